package synthetic

import (
	"math"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/lightcurve.report/internal/lightcurve"
	"github.com/banshee-data/lightcurve.report/internal/monitoring"
	"github.com/banshee-data/lightcurve.report/internal/testutil"
)

func init() { monitoring.SetLogger(nil) }

func TestObsErrorSampler_Fit(t *testing.T) {
	src := fixtureObjects(t, 1, 150, func(int) int { return 40 })
	s, err := NewObsErrorSampler(src, "g", 10)
	require.NoError(t, err)

	assert.Equal(t, "g", s.Band())
	assert.False(t, math.IsNaN(s.Slope()))
	assert.Greater(t, s.Slope(), 0.0)

	bins := s.Bins()
	require.Len(t, bins, 10)
	for k, b := range bins {
		assert.LessOrEqual(t, b.Lo, b.Hi, "bin %d", k)
		assert.Greater(t, b.Params.Alpha, 0.0)
		assert.Greater(t, b.Params.Beta, 0.0)
		if k > 0 {
			assert.Equal(t, bins[k-1].Hi, b.Lo)
		}
	}
}

func TestObsErrorSampler_SampleLowEndIsPositive(t *testing.T) {
	src := fixtureObjects(t, 2, 150, func(int) int { return 40 })
	s, err := NewObsErrorSampler(src, "g", 10)
	require.NoError(t, err)

	rng := testutil.NewRand(2)
	low := s.Bins()[0].Lo
	obs := make([]float64, 1000)
	for i := range obs {
		obs[i] = low
	}
	got, err := s.Sample(rng, obs)
	require.NoError(t, err)
	require.Len(t, got, 1000)

	lo, hi := bin0Range(t, src, s)
	for i, v := range got {
		require.Greater(t, v, 0.0, "draw %d", i)
		require.GreaterOrEqual(t, v, lo)
		require.LessOrEqual(t, v, hi)
	}
}

// bin0Range is the obse range of retained points in the first rank bin.
func bin0Range(t *testing.T, src ObjectSource, s *ObsErrorSampler) (lo, hi float64) {
	t.Helper()
	obs, obse := pool(src, "g")
	b := s.Bins()[0]
	lo, hi = math.Inf(1), math.Inf(-1)
	for i, o := range obs {
		if o >= obse[i]*s.Slope()+s.Intercept() && o > b.Lo && o <= b.Hi {
			lo, hi = math.Min(lo, obse[i]), math.Max(hi, obse[i])
		}
	}
	require.False(t, math.IsInf(lo, 1))
	return lo, hi
}

func TestObsErrorSampler_BinLookup(t *testing.T) {
	src := fixtureObjects(t, 3, 150, func(int) int { return 40 })
	s, err := NewObsErrorSampler(src, "g", 5)
	require.NoError(t, err)
	bins := s.Bins()

	assert.Equal(t, 0, s.binFor(-1), "values below the first bin clamp to bin 0")
	assert.Equal(t, 0, s.binFor(bins[0].Hi))
	assert.Equal(t, 1, s.binFor(math.Nextafter(bins[0].Hi, math.Inf(1))))
	assert.Equal(t, 4, s.binFor(1e9), "values above the maximum clamp to the last bin")

	got, err := s.Sample(testutil.NewRand(3), []float64{-1, 0.05, 1e9})
	require.NoError(t, err)
	assert.Len(t, got, 3)
	assert.True(t, slices.IndexFunc(got, func(v float64) bool { return !(v > 0) }) < 0)
}

func TestObsErrorSampler_Errors(t *testing.T) {
	src := fixtureObjects(t, 4, 150, func(int) int { return 40 })

	_, err := NewObsErrorSampler(src, "z", 10)
	assert.ErrorIs(t, err, ErrNoObservations)
	_, err = NewObsErrorSampler(src, "g", 0)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	s, err := NewObsErrorSampler(src, "g", 10)
	require.NoError(t, err)
	_, err = s.Sample(testutil.NewRand(1), nil)
	assert.ErrorIs(t, err, ErrEmptyInput)
	_, err = s.Sample(testutil.NewRand(1), []float64{math.NaN()})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestObsErrorSampler_TooFewAnchors(t *testing.T) {
	o := lightcurve.NewObject(lightcurve.Metadata{})
	require.NoError(t, o.AttachBand("g",
		[]float64{0, 1, 2, 3, 4, 5},
		[]float64{1, 2, 3, 4, 5, 6},
		[]float64{0.1, 0.2, 0.3, 0.1, 0.2, 0.3}))
	_, err := NewObsErrorSampler(objectList{o}, "g", 2)
	assert.ErrorIs(t, err, ErrDegenerateFit)
}
