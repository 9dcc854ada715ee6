package augment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/lightcurve.report/internal/config"
	"github.com/banshee-data/lightcurve.report/internal/lcset"
	"github.com/banshee-data/lightcurve.report/internal/lightcurve"
	"github.com/banshee-data/lightcurve.report/internal/metrics"
	"github.com/banshee-data/lightcurve.report/internal/monitoring"
	"github.com/banshee-data/lightcurve.report/internal/testutil"
	"github.com/banshee-data/lightcurve.report/internal/timeutil"
)

func init() { monitoring.SetLogger(nil) }

func fixtureSet(t *testing.T, n, length int) *lcset.LabeledSet {
	t.Helper()
	rng := testutil.NewRand(11)
	set := lcset.NewLabeledSet("train", "ZTF", []string{"SNIa", "SNII"}, []string{"g", "r"})
	for i := range n {
		y := i % 2
		o := lightcurve.NewObject(lightcurve.Metadata{IsFlux: true, Y: &y})
		days, obs, obse := testutil.Series(rng, length, 0)
		require.NoError(t, o.AttachBand("g", days, obs, obse))
		days, obs, obse = testutil.Series(rng, length/2, 0.3)
		require.NoError(t, o.AttachBand("r", days, obs, obse))
		require.NoError(t, set.Add(fmt.Sprintf("ZTF20%04d", i), o))
	}
	return set
}

func testConfig(seed uint64, workers int) *config.AugmentConfig {
	cfg := config.DefaultAugmentConfig()
	cfg.Seed = &seed
	cfg.Workers = &workers
	copies := 3
	cfg.CopiesPerObject = &copies
	return cfg
}

func TestRun_ProducesTaggedCopies(t *testing.T) {
	set := fixtureSet(t, 12, 30)
	a := &Augmenter{Config: testConfig(5, 4)}

	out, summary, err := a.Run(context.Background(), set, "train.augmented")
	require.NoError(t, err)

	assert.Equal(t, "train.augmented", out.Name)
	assert.Equal(t, set.ClassNames, out.ClassNames)
	assert.Equal(t, 12, summary.ObjectsIn)
	assert.Equal(t, 36-summary.Skipped, summary.ObjectsOut)
	assert.Equal(t, out.Len(), summary.ObjectsOut)
	assert.NotEmpty(t, summary.RunID)
	assert.False(t, summary.FinishedAt.Before(summary.StartedAt))

	for _, name := range out.ObjectNames() {
		assert.Contains(t, name, ".synth-")
		obj, _ := out.Get(name)
		assert.True(t, obj.AllSynthetic(), name)

		srcName := name[:strings.Index(name, ".synth-")]
		src, ok := set.Get(srcName)
		require.True(t, ok, srcName)
		assert.Equal(t, *src.Y(), *obj.Y())

		for _, b := range obj.Bands() {
			c, _ := obj.Band(b)
			orig, _ := src.Band(b)
			assert.LessOrEqual(t, c.Len(), orig.Len())
			assert.GreaterOrEqual(t, c.Len(), min(orig.Len(), lightcurve.MinPointsDefinition))
			days := c.Days()
			for i := 1; i < len(days); i++ {
				require.Less(t, days[i-1], days[i])
			}
			for _, e := range c.Obse() {
				require.Greater(t, e, 0.0)
			}
		}
	}

	// The source set is untouched.
	for _, o := range set.Objects() {
		assert.True(t, o.AllReal())
	}
}

func TestRun_DeterministicAcrossWorkerCounts(t *testing.T) {
	set := fixtureSet(t, 10, 25)

	run := func(workers int) *lcset.LabeledSet {
		out, _, err := (&Augmenter{Config: testConfig(42, workers)}).Run(context.Background(), set, "aug")
		require.NoError(t, err)
		return out
	}
	serial, parallel := run(1), run(8)

	require.Equal(t, serial.ObjectNames(), parallel.ObjectNames())
	for _, name := range serial.ObjectNames() {
		a, _ := serial.Get(name)
		b, _ := parallel.Get(name)
		for _, band := range a.Bands() {
			ca, _ := a.Band(band)
			cb, _ := b.Band(band)
			assert.Equal(t, ca.Days(), cb.Days(), "%s/%s days", name, band)
			assert.Equal(t, ca.Obs(), cb.Obs(), "%s/%s obs", name, band)
			assert.Equal(t, ca.Obse(), cb.Obse(), "%s/%s obse", name, band)
		}
	}

	other, _, err := (&Augmenter{Config: testConfig(43, 2)}).Run(context.Background(), set, "aug")
	require.NoError(t, err)
	assert.NotEqual(t, serial.ObjectNames(), other.ObjectNames())
}

func TestRun_KeepOriginals(t *testing.T) {
	set := fixtureSet(t, 3, 20)
	cfg := testConfig(1, 2)
	zero := 0
	cfg.CopiesPerObject = &zero

	out, summary, err := (&Augmenter{Config: cfg, KeepOriginals: true}).Run(context.Background(), set, "aug")
	require.NoError(t, err)
	assert.Equal(t, set.ObjectNames(), out.ObjectNames())
	assert.Equal(t, 3, summary.ObjectsOut)
	for _, o := range out.Objects() {
		assert.True(t, o.AllReal())
	}
}

func TestRun_ClockStampsSummary(t *testing.T) {
	start := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	clock := timeutil.NewSteppingClock(start, time.Millisecond)

	_, summary, err := (&Augmenter{Config: testConfig(3, 1), Clock: clock}).Run(context.Background(), fixtureSet(t, 2, 20), "aug")
	require.NoError(t, err)
	assert.Equal(t, start, summary.StartedAt)
	// One reading to start the run, one per copy, one to finish.
	assert.Equal(t, start.Add(7*time.Millisecond), summary.FinishedAt)
}

func TestRun_WithSamplers(t *testing.T) {
	set := fixtureSet(t, 120, 40)
	cfg := testConfig(9, 4)
	yes, ranges, maxDur := true, 8, 30.0
	cfg.ResampleErrors = &yes
	cfg.ResampleLengths = &yes
	cfg.RankRanges = &ranges
	cfg.MaxDuration = &maxDur

	m := metrics.NewCollector("lctest")
	out, summary, err := (&Augmenter{Config: cfg, Metrics: m}).Run(context.Background(), set, "aug")
	require.NoError(t, err)
	assert.Positive(t, out.Len())

	for _, o := range out.Objects() {
		d, err := o.Duration("g")
		if err == nil {
			assert.LessOrEqual(t, d, maxDur)
		}
	}

	fits := counterValue(t, m.SamplerFitsTotal.WithLabelValues("obse", "ok")) +
		counterValue(t, m.SamplerFitsTotal.WithLabelValues("obse", "error"))
	assert.Equal(t, 2.0, fits, "one obse fit per band")
	assert.Equal(t, float64(summary.ObjectsOut), counterValue(t, m.AugmentObjectsTotal.WithLabelValues(OutcomeOK)))
}

func TestRun_Errors(t *testing.T) {
	empty := lcset.NewLabeledSet("empty", "", nil, []string{"g"})
	_, _, err := (&Augmenter{}).Run(context.Background(), empty, "aug")
	assert.ErrorIs(t, err, ErrEmptySet)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err = (&Augmenter{Config: testConfig(1, 1)}).Run(ctx, fixtureSet(t, 4, 10), "aug")
	assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
}

func TestRun_RecordsDurationPerCopy(t *testing.T) {
	m := metrics.NewCollector("lctest")
	_, summary, err := (&Augmenter{Config: testConfig(2, 2), Metrics: m}).Run(context.Background(), fixtureSet(t, 2, 20), "aug")
	require.NoError(t, err)

	var hist dto.Metric
	require.NoError(t, m.AugmentObjectDuration.Write(&hist))
	attempted := uint64(summary.ObjectsOut + summary.Skipped)
	assert.Equal(t, uint64(6), attempted)
	assert.Equal(t, attempted, hist.GetHistogram().GetSampleCount())
}

func TestSyntheticName(t *testing.T) {
	a := SyntheticName("ZTF20abc", 1, 0)
	assert.Equal(t, a, SyntheticName("ZTF20abc", 1, 0))
	assert.NotEqual(t, a, SyntheticName("ZTF20abc", 1, 1))
	assert.NotEqual(t, a, SyntheticName("ZTF20abc", 2, 0))
	assert.True(t, strings.HasPrefix(a, "ZTF20abc.synth-"))
	assert.Len(t, a, len("ZTF20abc.synth-")+8)
}

func TestRunSummary_Record(t *testing.T) {
	now := time.Now()
	s := RunSummary{RunID: "r", SourceSet: "a", OutputSet: "b", Seed: 7, ObjectsIn: 2, ObjectsOut: 6, Skipped: 1, StartedAt: now, FinishedAt: now}
	row := s.Record(`{"seed":7}`)
	assert.Equal(t, int64(7), row.Seed)
	assert.Equal(t, 1, row.ObjectsSkipped)
	assert.Equal(t, `{"seed":7}`, row.ConfigJSON)
	assert.Equal(t, 6, row.ObjectsOut)
}

type writer interface{ Write(*dto.Metric) error }

func counterValue(t *testing.T, c writer) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}
