// Command lcstore inspects and maintains the light-curve store.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"text/tabwriter"

	"github.com/banshee-data/lightcurve.report/internal/lcstore"
	"github.com/banshee-data/lightcurve.report/internal/version"
)

var dbPath = flag.String("db", "lightcurves.db", "Path to the light-curve store")

func main() {
	flag.Usage = printUsage
	flag.Parse()

	if flag.NArg() < 1 {
		printUsage()
		os.Exit(1)
	}
	command := flag.Arg(0)
	args := flag.Args()[1:]

	if command == "version" {
		fmt.Println(version.String("lcstore"))
		return
	}

	store, err := lcstore.Open(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer store.Close()
	ctx := context.Background()

	switch command {
	case "sets":
		sums, err := store.Summaries(ctx)
		if err != nil {
			log.Fatalf("Failed to list sets: %v", err)
		}
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "SET\tSURVEY\tOBJECTS\tPOINTS")
		for _, s := range sums {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%d\n", s.Name, s.Survey, s.Objects, s.Points)
		}
		tw.Flush()

	case "runs":
		source := ""
		if len(args) > 0 {
			source = args[0]
		}
		runs, err := store.AugmentRuns(ctx, source)
		if err != nil {
			log.Fatalf("Failed to list runs: %v", err)
		}
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "RUN\tSOURCE\tOUTPUT\tSEED\tIN\tOUT\tSKIPPED\tSTARTED")
		for _, r := range runs {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%s\n", r.RunID, r.SourceSet, r.OutputSet,
				r.Seed, r.ObjectsIn, r.ObjectsOut, r.ObjectsSkipped, r.StartedAt.Format("2006-01-02 15:04:05"))
		}
		tw.Flush()

	case "delete":
		if len(args) < 1 {
			log.Fatal("Usage: lcstore delete <set>")
		}
		if err := store.DeleteSet(ctx, args[0]); err != nil {
			log.Fatalf("Failed to delete set: %v", err)
		}
		log.Printf("Deleted set %q", args[0])

	case "migrate":
		runMigrate(store, args)

	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runMigrate(store *lcstore.Store, args []string) {
	if len(args) < 1 {
		log.Fatal("Usage: lcstore migrate <up|down|status>")
	}
	switch args[0] {
	case "up":
		if err := store.MigrateUp(); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
	case "down":
		if err := store.MigrateDown(); err != nil {
			log.Fatalf("Rollback failed: %v", err)
		}
	case "status":
	default:
		log.Fatalf("Unknown migrate action: %s", args[0])
	}
	v, dirty, err := store.MigrateVersion()
	if err != nil {
		log.Fatalf("Failed to read schema version: %v", err)
	}
	fmt.Printf("Schema version: %d (dirty: %v)\n", v, dirty)
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage: lcstore [-db path] <command> [args]

Commands:
  sets              List stored sets with object and point counts
  runs [source]     List augmentation runs, optionally for one source set
  delete <set>      Delete a set and its objects
  migrate <action>  Schema migrations: up, down or status
  version           Print version
`)
}
