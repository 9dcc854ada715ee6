package browse

import (
	"context"
	"encoding/json"
	"image/png"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/lightcurve.report/internal/lcset"
	"github.com/banshee-data/lightcurve.report/internal/lcstore"
	"github.com/banshee-data/lightcurve.report/internal/lightcurve"
	"github.com/banshee-data/lightcurve.report/internal/metrics"
	"github.com/banshee-data/lightcurve.report/internal/monitoring"
	"github.com/banshee-data/lightcurve.report/internal/testutil"
)

func init() { monitoring.SetLogger(nil) }

func newTestServer(t *testing.T) (*Server, *lcstore.Store) {
	t.Helper()
	store, err := lcstore.Open(filepath.Join(t.TempDir(), "lc.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	rng := testutil.NewRand(5)
	set := lcset.NewLabeledSet("train", "ZTF", []string{"SNIa", "SNII"}, []string{"g", "r"})
	y := 1
	o := lightcurve.NewObject(lightcurve.Metadata{IsFlux: true, Y: &y})
	for i, b := range []string{"g", "r"} {
		days, obs, obse := testutil.Series(rng, 12, float64(i))
		require.NoError(t, o.AttachBand(b, days, obs, obse))
	}
	require.NoError(t, set.Add("ZTF20abc", o))
	empty := lightcurve.NewObject(lightcurve.Metadata{})
	require.NoError(t, empty.AttachBand("g", nil, nil, nil))
	require.NoError(t, set.Add("ZTF20empty", empty))
	require.NoError(t, store.SaveSet(context.Background(), set))

	return NewServer(store, metrics.NewCollector("lctest")), store
}

func serve(s *Server, path string) *http.Response {
	w := testutil.NewTestRecorder()
	s.Handler().ServeHTTP(w, testutil.NewTestRequest(http.MethodGet, path))
	return w.Result()
}

func TestListSets(t *testing.T) {
	s, _ := newTestServer(t)
	resp := serve(s, "/sets")
	testutil.AssertStatusCode(t, resp.StatusCode, http.StatusOK)

	var sums []lcstore.SetSummary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&sums))
	require.Len(t, sums, 1)
	assert.Equal(t, "train", sums[0].Name)
	assert.Equal(t, 2, sums[0].Objects)
	assert.Equal(t, 24, sums[0].Points)
}

func TestListObjects(t *testing.T) {
	s, _ := newTestServer(t)
	resp := serve(s, "/sets/train")
	testutil.AssertStatusCode(t, resp.StatusCode, http.StatusOK)

	var objs []ObjectSummary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&objs))
	require.Len(t, objs, 2)
	assert.Equal(t, "ZTF20abc", objs[0].Name)
	assert.Equal(t, "SNII", objs[0].Class)
	assert.Equal(t, map[string]int{"g": 12, "r": 12}, objs[0].Lengths)
	assert.NotNil(t, objs[0].SNR)
	assert.Empty(t, objs[1].Class)
	assert.Nil(t, objs[1].SNR)

	resp = serve(s, "/sets/missing")
	testutil.AssertStatusCode(t, resp.StatusCode, http.StatusNotFound)
}

func TestShowObject(t *testing.T) {
	s, _ := newTestServer(t)
	resp := serve(s, "/objects/train/ZTF20abc?max_day=5")
	testutil.AssertStatusCode(t, resp.StatusCode, http.StatusOK)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/html"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "obj=ZTF20abc [SNII]")

	resp = serve(s, "/objects/train/nope")
	testutil.AssertStatusCode(t, resp.StatusCode, http.StatusNotFound)
}

func TestShowObjectPNG(t *testing.T) {
	s, _ := newTestServer(t)
	s.plot.Width, s.plot.Height = 200, 100
	resp := serve(s, "/png/train/ZTF20abc")
	testutil.AssertStatusCode(t, resp.StatusCode, http.StatusOK)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	_, err := png.Decode(resp.Body)
	assert.NoError(t, err)
}

func TestRenderFailureIsServerError(t *testing.T) {
	s, store := newTestServer(t)
	bare := lcset.NewLabeledSet("bare", "ZTF", nil, []string{"g"})
	require.NoError(t, bare.Add("ZTF20none", lightcurve.NewObject(lightcurve.Metadata{})))
	require.NoError(t, store.SaveSet(context.Background(), bare))

	for _, path := range []string{"/objects/bare/ZTF20none", "/png/bare/ZTF20none"} {
		resp := serve(s, path)
		testutil.AssertStatusCode(t, resp.StatusCode, http.StatusInternalServerError)
		assert.Equal(t, "application/json", resp.Header.Get("Content-Type"), path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body), path)
		assert.Contains(t, body["error"], "no bands", path)
	}
}

func TestListRuns(t *testing.T) {
	s, store := newTestServer(t)

	resp := serve(s, "/runs")
	testutil.AssertStatusCode(t, resp.StatusCode, http.StatusOK)
	var runs []lcstore.AugmentRun
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&runs))
	assert.Empty(t, runs)

	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, store.RecordAugmentRun(context.Background(), lcstore.AugmentRun{
		RunID: "r1", SourceSet: "train", OutputSet: "train_aug", Seed: 7,
		ConfigJSON: "{}", ObjectsIn: 2, ObjectsOut: 6, StartedAt: now, FinishedAt: now,
	}))

	resp = serve(s, "/runs?source=train")
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&runs))
	require.Len(t, runs, 1)
	assert.Equal(t, "train_aug", runs[0].OutputSet)

	resp = serve(s, "/runs?source=other")
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&runs))
	assert.Empty(t, runs)
}

func TestMiddlewareRecordsRequests(t *testing.T) {
	s, _ := newTestServer(t)
	serve(s, "/sets")
	serve(s, "/sets/missing")

	resp := serve(s, "/metrics")
	testutil.AssertStatusCode(t, resp.StatusCode, http.StatusOK)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `route="GET /sets"`)
	assert.Contains(t, string(body), `route="GET /sets/{set}",status="Not Found"`)
}

func TestNilMetrics(t *testing.T) {
	s, _ := newTestServer(t)
	s.metrics = nil
	resp := serve(s, "/sets")
	testutil.AssertStatusCode(t, resp.StatusCode, http.StatusOK)
	resp = serve(s, "/metrics")
	testutil.AssertStatusCode(t, resp.StatusCode, http.StatusNotFound)
}
