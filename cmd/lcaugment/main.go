// Command lcaugment generates synthetic light curves from a stored set and
// saves them as a new set, recording the run alongside.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/banshee-data/lightcurve.report/internal/augment"
	"github.com/banshee-data/lightcurve.report/internal/config"
	"github.com/banshee-data/lightcurve.report/internal/lcstore"
	"github.com/banshee-data/lightcurve.report/internal/monitoring"
	"github.com/banshee-data/lightcurve.report/internal/version"
)

var (
	dbPath        = flag.String("db", "lightcurves.db", "Path to the light-curve store")
	configPath    = flag.String("config", "", "Augmentation config JSON (default: built-in defaults)")
	source        = flag.String("source", "raw", "Set to augment")
	output        = flag.String("out", "", "Name of the output set (default: <source>_aug)")
	seed          = flag.Int64("seed", -1, "Override the config seed (negative keeps it)")
	workers       = flag.Int("workers", 0, "Override the config worker count (0 keeps it)")
	keepOriginals = flag.Bool("keep-originals", false, "Copy the source objects into the output set")
	debug         = flag.Bool("debug", false, "Enable debug logging")
	showVersion   = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()
	if *showVersion {
		fmt.Println(version.String("lcaugment"))
		return
	}
	monitoring.SetDebug(*debug)

	cfg := config.DefaultAugmentConfig()
	if *configPath != "" {
		var err error
		if cfg, err = config.LoadAugmentConfig(*configPath); err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}
	if *seed >= 0 {
		s := uint64(*seed)
		cfg.Seed = &s
	}
	if *workers > 0 {
		cfg.Workers = workers
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}
	out := *output
	if out == "" {
		out = *source + "_aug"
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := lcstore.Open(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer store.Close()

	set, err := store.LoadSet(ctx, *source)
	if err != nil {
		log.Fatalf("Failed to load set: %v", err)
	}

	a := &augment.Augmenter{Config: cfg, KeepOriginals: *keepOriginals}
	augmented, summary, err := a.Run(ctx, set, out)
	if err != nil {
		log.Fatalf("Augmentation failed: %v", err)
	}
	if err := store.SaveSet(ctx, augmented); err != nil {
		log.Fatalf("Failed to save set: %v", err)
	}

	configJSON, err := json.Marshal(cfg)
	if err != nil {
		log.Fatalf("Failed to encode config: %v", err)
	}
	if err := store.RecordAugmentRun(ctx, summary.Record(string(configJSON))); err != nil {
		log.Printf("Failed to record run %s: %v", summary.RunID, err)
	}
	log.Printf("Run %s: %d objects in, %d out, %d skipped, saved as %q",
		summary.RunID, summary.ObjectsIn, summary.ObjectsOut, summary.Skipped, out)
}
