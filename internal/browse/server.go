// Package browse serves stored light-curve sets over HTTP: JSON listings,
// interactive charts and PNG figures.
package browse

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/lightcurve.report/internal/lcplot"
	"github.com/banshee-data/lightcurve.report/internal/lcset"
	"github.com/banshee-data/lightcurve.report/internal/lcstore"
	"github.com/banshee-data/lightcurve.report/internal/lightcurve"
	"github.com/banshee-data/lightcurve.report/internal/metrics"
	"github.com/banshee-data/lightcurve.report/internal/monitoring"
)

// Server answers read-only queries against a store.
type Server struct {
	store   *lcstore.Store
	metrics *metrics.Collector
	plot    lcplot.Options
}

// NewServer returns a server over store. m may be nil.
func NewServer(store *lcstore.Store, m *metrics.Collector) *Server {
	return &Server{store: store, metrics: m, plot: lcplot.DefaultOptions()}
}

// ObjectSummary is one row of a set listing.
type ObjectSummary struct {
	Name      string         `json:"name"`
	Class     string         `json:"class,omitempty"`
	Lengths   map[string]int `json:"lengths"`
	Synthetic bool           `json:"synthetic"`
	SNR       *float64       `json:"snr,omitempty"`
}

// ServeMux mounts every route, including /metrics.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /sets", s.listSets)
	mux.HandleFunc("GET /sets/{set}", s.listObjects)
	mux.HandleFunc("GET /objects/{set}/{name}", s.showObject)
	mux.HandleFunc("GET /png/{set}/{name}", s.showObjectPNG)
	mux.HandleFunc("GET /runs", s.listRuns)
	mux.Handle("GET /metrics", s.metrics.Handler())
	return mux
}

// Handler wraps the mux with request logging and metrics.
func (s *Server) Handler() http.Handler {
	return s.Middleware(s.ServeMux())
}

func (s *Server) listSets(w http.ResponseWriter, r *http.Request) {
	sums, err := s.store.Summaries(r.Context())
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if sums == nil {
		sums = []lcstore.SetSummary{}
	}
	writeJSON(w, http.StatusOK, sums)
}

func (s *Server) listObjects(w http.ResponseWriter, r *http.Request) {
	set, ok := s.loadSet(w, r)
	if !ok {
		return
	}
	out := make([]ObjectSummary, 0, set.Len())
	for _, name := range set.ObjectNames() {
		o, _ := set.Get(name)
		class, _ := set.ClassName(o.Y())
		sum := ObjectSummary{
			Name:      name,
			Class:     class,
			Lengths:   o.LengthByBand(),
			Synthetic: o.AnySynthetic(),
		}
		// JSON has no infinities; objects without points report no SNR.
		if snr := o.SNR(); !math.IsInf(snr, 0) && !math.IsNaN(snr) {
			sum.SNR = &snr
		}
		out = append(out, sum)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) showObject(w http.ResponseWriter, r *http.Request) {
	set, obj, ok := s.loadObject(w, r)
	if !ok {
		return
	}
	name := r.PathValue("name")
	subtitle := fmt.Sprintf("%d points, %d bands", obj.Len(), len(obj.Bands()))
	var buf bytes.Buffer
	if err := lcplot.RenderHTML(&buf, obj, lcplot.Title(set, name), subtitle, s.plotOptions(r)); err != nil {
		monitoring.Logf("browse: render %s/%s: %v", set.Name, name, err)
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeBody(w, "text/html; charset=utf-8", &buf)
}

func (s *Server) showObjectPNG(w http.ResponseWriter, r *http.Request) {
	set, obj, ok := s.loadObject(w, r)
	if !ok {
		return
	}
	name := r.PathValue("name")
	var buf bytes.Buffer
	if err := lcplot.RenderPNG(&buf, obj, lcplot.Title(set, name), s.plotOptions(r)); err != nil {
		monitoring.Logf("browse: render png %s/%s: %v", set.Name, name, err)
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeBody(w, "image/png", &buf)
}

// writeBody sends a fully rendered page so a render failure can still
// become an error status.
func writeBody(w http.ResponseWriter, contentType string, buf *bytes.Buffer) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		log.Printf("failed to write response: %v", err)
	}
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.store.AugmentRuns(r.Context(), r.URL.Query().Get("source"))
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if runs == nil {
		runs = []lcstore.AugmentRun{}
	}
	writeJSON(w, http.StatusOK, runs)
}

// plotOptions reads max_day from the query string.
func (s *Server) plotOptions(r *http.Request) lcplot.Options {
	o := s.plot
	if v := r.URL.Query().Get("max_day"); v != "" {
		if d, err := strconv.ParseFloat(v, 64); err == nil {
			o.MaxDay = d
		}
	}
	return o
}

func (s *Server) loadSet(w http.ResponseWriter, r *http.Request) (*lcset.LabeledSet, bool) {
	set, err := s.store.LoadSet(r.Context(), r.PathValue("set"))
	switch {
	case errors.Is(err, lcset.ErrSetNotFound):
		writeJSONError(w, http.StatusNotFound, err.Error())
		return nil, false
	case err != nil:
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	return set, true
}

func (s *Server) loadObject(w http.ResponseWriter, r *http.Request) (*lcset.LabeledSet, *lightcurve.Object, bool) {
	set, ok := s.loadSet(w, r)
	if !ok {
		return nil, nil, false
	}
	obj, ok := set.Get(r.PathValue("name"))
	if !ok {
		writeJSONError(w, http.StatusNotFound, fmt.Sprintf("object %q not in set %q", r.PathValue("name"), set.Name))
		return nil, nil, false
	}
	return set, obj, true
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.statusCode = code
	sr.ResponseWriter.WriteHeader(code)
}

// Middleware logs method, path, status and duration, and records them
// per route pattern.
func (s *Server) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sr := &statusRecorder{w, http.StatusOK}
		next.ServeHTTP(sr, r)
		d := time.Since(start)
		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		s.metrics.RecordHTTPRequest(route, sr.statusCode, d)
		monitoring.Debugf("[%d] %s %s %.1fms", sr.statusCode, r.Method, r.RequestURI, float64(d.Nanoseconds())/1e6)
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("failed to encode json response: %v", err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
