// Command lcexport renders every object of stored sets as PNG figures
// grouped by set and class.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"strings"
	"syscall"

	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/lightcurve.report/internal/fsutil"
	"github.com/banshee-data/lightcurve.report/internal/lcplot"
	"github.com/banshee-data/lightcurve.report/internal/lcstore"
	"github.com/banshee-data/lightcurve.report/internal/monitoring"
	"github.com/banshee-data/lightcurve.report/internal/security"
	"github.com/banshee-data/lightcurve.report/internal/version"
)

var (
	dbPath      = flag.String("db", "lightcurves.db", "Path to the light-curve store")
	sets        = flag.String("sets", "", "Comma-separated sets to export (default: all)")
	outDir      = flag.String("out", "figures", "Output directory")
	maxDay      = flag.Float64("max-day", 0, "Only plot observations up to this day (0 plots all)")
	stdFactor   = flag.Float64("std-factor", 1, "Error bar scale in standard deviations")
	percentile  = flag.Float64("percentile", 0.9, "Error bar quantile of the observation error")
	widthIn     = flag.Float64("width", 12, "Figure width in inches")
	heightIn    = flag.Float64("height", 5, "Figure height in inches")
	debug       = flag.Bool("debug", false, "Enable debug logging")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()
	if *showVersion {
		fmt.Println(version.String("lcexport"))
		return
	}
	monitoring.SetDebug(*debug)
	if err := security.ValidateOutputDir(*outDir); err != nil {
		log.Fatalf("Invalid output directory: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := lcstore.Open(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer store.Close()

	names, err := store.SetNames(ctx)
	if err != nil {
		log.Fatalf("Failed to list sets: %v", err)
	}
	if *sets != "" {
		names = strings.Split(*sets, ",")
	}

	opts := lcplot.DefaultOptions()
	opts.MaxDay = *maxDay
	opts.StdFactor = *stdFactor
	opts.Percentile = *percentile
	opts.Width = vg.Length(*widthIn) * vg.Inch
	opts.Height = vg.Length(*heightIn) * vg.Inch

	fsys := fsutil.OSFileSystem{}
	total := 0
	for _, name := range names {
		set, err := store.LoadSet(ctx, strings.TrimSpace(name))
		if err != nil {
			log.Fatalf("Failed to load set: %v", err)
		}
		n, err := lcplot.ExportImages(ctx, fsys, *outDir, set, opts)
		total += n
		if err != nil {
			log.Fatalf("Export of %q stopped after %d images: %v", set.Name, n, err)
		}
	}
	log.Printf("Exported %d images to %s", total, *outDir)
}
