// Command lcbrowse serves the light-curve store over HTTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/banshee-data/lightcurve.report/internal/browse"
	"github.com/banshee-data/lightcurve.report/internal/lcstore"
	"github.com/banshee-data/lightcurve.report/internal/metrics"
	"github.com/banshee-data/lightcurve.report/internal/monitoring"
	"github.com/banshee-data/lightcurve.report/internal/version"
)

var (
	dbPath      = flag.String("db", "lightcurves.db", "Path to the light-curve store")
	listen      = flag.String("listen", ":8080", "Listen address")
	debug       = flag.Bool("debug", false, "Log every request")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()
	if *showVersion {
		fmt.Println(version.String("lcbrowse"))
		return
	}
	if *listen == "" {
		log.Fatal("Listen address is required")
	}
	monitoring.SetDebug(*debug)

	store, err := lcstore.Open(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := browse.NewServer(store, metrics.NewCollector("lightcurve"))
	mux := srv.ServeMux()
	if err := store.AttachAdminRoutes(mux); err != nil {
		log.Fatalf("Failed to attach admin routes: %v", err)
	}

	server := &http.Server{
		Addr:    *listen,
		Handler: srv.Middleware(mux),
	}

	go func() {
		log.Printf("serving %s on %s", *dbPath, *listen)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
		if err := server.Close(); err != nil {
			log.Printf("HTTP server force close error: %v", err)
		}
	}
	log.Printf("Graceful shutdown complete")
}
