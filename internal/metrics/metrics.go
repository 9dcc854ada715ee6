// Package metrics exposes Prometheus metrics for ingestion, augmentation
// and the browse server.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds every metric. A nil *Collector is valid and records
// nothing, so library code can take one optionally.
type Collector struct {
	registry *prometheus.Registry

	// Augmentation
	AugmentObjectsTotal   *prometheus.CounterVec
	AugmentObjectDuration prometheus.Histogram
	AugmentRunDuration    prometheus.Histogram
	SamplerFitsTotal      *prometheus.CounterVec

	// Ingestion
	IngestRowsTotal    *prometheus.CounterVec
	IngestObjectsTotal prometheus.Counter

	// HTTP
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewCollector registers all metrics on a fresh registry under namespace.
func NewCollector(namespace string) *Collector {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Collector{
		registry: reg,

		AugmentObjectsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "augment_objects_total",
				Help:      "Synthetic copies attempted by the augmentation pipeline by outcome",
			},
			[]string{"outcome"},
		),
		AugmentObjectDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "augment_object_duration_seconds",
				Help:      "Time to generate one synthetic copy of an object",
				Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
		),
		AugmentRunDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "augment_run_duration_seconds",
				Help:      "Duration of a full augmentation run",
				Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
			},
		),
		SamplerFitsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sampler_fits_total",
				Help:      "Distribution sampler fits by sampler kind and outcome",
			},
			[]string{"sampler", "outcome"},
		),

		IngestRowsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ingest_rows_total",
				Help:      "Photometry rows read by outcome",
			},
			[]string{"outcome"},
		),
		IngestObjectsTotal: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ingest_objects_total",
				Help:      "Objects built from imported photometry",
			},
		),

		HTTPRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by route and status",
			},
			[]string{"route", "status"},
		),
		HTTPRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.5, 1.0, 2.0, 5.0},
			},
			[]string{"route"},
		),
	}
}

// Registry returns the registry the metrics live on.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the collector's metrics in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// RecordAugmentObject records one synthetic copy and how long it took.
func (c *Collector) RecordAugmentObject(outcome string, d time.Duration) {
	if c == nil {
		return
	}
	c.AugmentObjectsTotal.WithLabelValues(outcome).Inc()
	c.AugmentObjectDuration.Observe(d.Seconds())
}

func (c *Collector) RecordAugmentRun(d time.Duration) {
	if c == nil {
		return
	}
	c.AugmentRunDuration.Observe(d.Seconds())
}

func (c *Collector) RecordSamplerFit(sampler string, err error) {
	if c == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	c.SamplerFitsTotal.WithLabelValues(sampler, outcome).Inc()
}

func (c *Collector) RecordIngestRows(outcome string, n int) {
	if c == nil {
		return
	}
	c.IngestRowsTotal.WithLabelValues(outcome).Add(float64(n))
}

func (c *Collector) RecordIngestObjects(n int) {
	if c == nil {
		return
	}
	c.IngestObjectsTotal.Add(float64(n))
}

func (c *Collector) RecordHTTPRequest(route string, status int, d time.Duration) {
	if c == nil {
		return
	}
	c.HTTPRequestsTotal.WithLabelValues(route, http.StatusText(status)).Inc()
	c.HTTPRequestDuration.WithLabelValues(route).Observe(d.Seconds())
}
