// Command lcimport reads photometry and label CSV files into a labeled set
// and saves it to the light-curve store.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os/signal"
	"strings"
	"syscall"

	"github.com/banshee-data/lightcurve.report/internal/config"
	"github.com/banshee-data/lightcurve.report/internal/fsutil"
	"github.com/banshee-data/lightcurve.report/internal/ingest"
	"github.com/banshee-data/lightcurve.report/internal/lcstore"
	"github.com/banshee-data/lightcurve.report/internal/lightcurve"
	"github.com/banshee-data/lightcurve.report/internal/monitoring"
	"github.com/banshee-data/lightcurve.report/internal/version"
)

var (
	dbPath      = flag.String("db", "lightcurves.db", "Path to the light-curve store")
	photometry  = flag.String("photometry", "", "Photometry CSV (object,band,day,obs,obse)")
	labels      = flag.String("labels", "", "Optional label CSV (object,class,ra,dec,z)")
	setName     = flag.String("name", "raw", "Name of the labeled set to write")
	survey      = flag.String("survey", "ZTF", "Survey name")
	isFlux      = flag.Bool("flux", true, "Observations are fluxes (false for magnitudes)")
	bands       = flag.String("bands", "", "Comma-separated bands to keep, in order (default: all seen)")
	classes     = flag.String("classes", "", "Comma-separated class names, in label order (default: all seen)")
	configPath  = flag.String("config", "", "Pipeline config JSON supplying min_valid_length, cadence_dt and cadence_mode")
	minPoints   = flag.Int("min-points", lightcurve.MinPointsDefinition, "Drop bands with fewer points (overrides config)")
	cadenceDT   = flag.Float64("cadence-dt", lightcurve.CadenceThreshold, "Merge observations closer than this many days, 0 disables (overrides config)")
	cadenceMode = flag.String("cadence-mode", string(lightcurve.CadenceExpectation), "Cadence merge mode: mean, min_obse or expectation (overrides config)")
	normalize   = flag.Bool("normalize", true, "Shift every object so its first day is zero")
	debug       = flag.Bool("debug", false, "Enable debug logging")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()
	if *showVersion {
		fmt.Println(version.String("lcimport"))
		return
	}
	monitoring.SetDebug(*debug)
	if *photometry == "" {
		log.Fatal("-photometry is required")
	}

	cfg := config.DefaultAugmentConfig()
	if *configPath != "" {
		var err error
		if cfg, err = config.LoadAugmentConfig(*configPath); err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}
	opts := ingest.Options{
		Name:          *setName,
		Survey:        *survey,
		IsFlux:        *isFlux,
		Bands:         splitList(*bands),
		ClassNames:    splitList(*classes),
		MinPoints:     cfg.GetMinValidLength(),
		CadenceDT:     cfg.GetCadenceDT(),
		CadenceMode:   cfg.GetCadenceMode(),
		NormalizeDays: *normalize,
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "min-points":
			opts.MinPoints = *minPoints
		case "cadence-dt":
			opts.CadenceDT = *cadenceDT
		case "cadence-mode":
			opts.CadenceMode = lightcurve.CadenceMode(*cadenceMode)
		}
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fsys := fsutil.OSFileSystem{}
	rows, err := readRows(fsys, *photometry, ingest.ReadPhotometry)
	if err != nil {
		log.Fatalf("Failed to read photometry: %v", err)
	}
	var labelRows []ingest.LabelRow
	if *labels != "" {
		if labelRows, err = readRows(fsys, *labels, ingest.ReadLabels); err != nil {
			log.Fatalf("Failed to read labels: %v", err)
		}
	}

	set, report, err := ingest.BuildSet(rows, labelRows, opts)
	if err != nil {
		log.Fatalf("Failed to build set: %v", err)
	}
	log.Printf("Import report: %s", report)

	store, err := lcstore.Open(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer store.Close()
	if err := store.SaveSet(ctx, set); err != nil {
		log.Fatalf("Failed to save set: %v", err)
	}
	log.Printf("Saved %d objects to set %q in %s", set.Len(), set.Name, *dbPath)
}

func readRows[T any](fsys fsutil.FileSystem, path string, read func(r io.Reader) ([]T, error)) ([]T, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return read(f)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
