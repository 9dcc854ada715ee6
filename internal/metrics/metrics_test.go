package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_Records(t *testing.T) {
	c := NewCollector("lc")

	c.RecordAugmentObject("ok", time.Millisecond)
	c.RecordAugmentObject("ok", time.Millisecond)
	c.RecordAugmentObject("skipped", time.Millisecond)
	c.RecordSamplerFit("obse", nil)
	c.RecordSamplerFit("obse", errors.New("degenerate"))
	c.RecordIngestRows("invalid", 3)
	c.RecordIngestObjects(2)

	assert.Equal(t, 2.0, counterValue(t, c.AugmentObjectsTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, counterValue(t, c.AugmentObjectsTotal.WithLabelValues("skipped")))
	assert.Equal(t, 1.0, counterValue(t, c.SamplerFitsTotal.WithLabelValues("obse", "error")))
	assert.Equal(t, 3.0, counterValue(t, c.IngestRowsTotal.WithLabelValues("invalid")))
	assert.Equal(t, 2.0, counterValue(t, c.IngestObjectsTotal))
}

func TestCollector_IndependentRegistries(t *testing.T) {
	// Two collectors with the same namespace must not collide.
	a, b := NewCollector("lc"), NewCollector("lc")
	a.RecordIngestObjects(1)
	assert.Equal(t, 0.0, counterValue(t, b.IngestObjectsTotal))
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector("lc")
	c.RecordHTTPRequest("/sets", http.StatusOK, 2*time.Millisecond)

	w := httptest.NewRecorder()
	c.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), `lc_http_requests_total{route="/sets",status="OK"} 1`))
}

func TestCollector_NilIsNoop(t *testing.T) {
	var c *Collector
	c.RecordAugmentObject("ok", time.Second)
	c.RecordAugmentRun(time.Second)
	c.RecordSamplerFit("length", nil)
	c.RecordIngestRows("ok", 1)
	c.RecordIngestObjects(1)
	c.RecordHTTPRequest("/", 200, time.Second)

	w := httptest.NewRecorder()
	c.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}
