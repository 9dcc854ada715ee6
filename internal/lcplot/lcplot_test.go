package lcplot

import (
	"bytes"
	"context"
	"image/png"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/banshee-data/lightcurve.report/internal/fsutil"
	"github.com/banshee-data/lightcurve.report/internal/lcset"
	"github.com/banshee-data/lightcurve.report/internal/lightcurve"
	"github.com/banshee-data/lightcurve.report/internal/monitoring"
	"github.com/banshee-data/lightcurve.report/internal/testutil"
)

func init() { monitoring.SetLogger(nil) }

func fixtureObject(t *testing.T, synthetic bool) *lightcurve.Object {
	t.Helper()
	rng := testutil.NewRand(3)
	y := 0
	o := lightcurve.NewObject(lightcurve.Metadata{IsFlux: true, Y: &y})
	for i, b := range []string{"g", "r"} {
		days, obs, obse := testutil.Series(rng, 15, float64(i))
		require.NoError(t, o.AttachBand(b, days, obs, obse))
	}
	if synthetic {
		r, _ := o.Band("r")
		r.SetSyntheticMode(lightcurve.SyntheticAugmented)
	}
	return o
}

func TestErrorBars(t *testing.T) {
	bars := ErrorBars([]float64{0.1, 0.2}, 1, 0.9)
	want := distuv.Normal{Mu: 0, Sigma: 0.1}.Quantile(0.9)
	assert.InDelta(t, want, bars[0], 1e-12)
	assert.InDelta(t, 2*bars[0], bars[1], 1e-12)
	assert.InDelta(t, 0.1*1.2815515655446004, bars[0], 1e-9)
}

func TestMargin(t *testing.T) {
	lo, hi := Margin([]float64{2, 4, 12}, 10)
	assert.InDelta(t, 1.0, lo, 1e-12)
	assert.InDelta(t, 13.0, hi, 1e-12)

	lo, hi = Margin(nil, 10)
	assert.Zero(t, lo)
	assert.Zero(t, hi)
}

func TestSeries(t *testing.T) {
	o := fixtureObject(t, true)
	opts := DefaultOptions()
	g, _ := o.Band("g")
	first, _ := g.FirstDay()
	opts.MaxDay = first + 10

	series, err := Series(o, opts)
	require.NoError(t, err)
	require.Len(t, series, 2)
	assert.Equal(t, "g obs", series[0].Label())
	assert.Equal(t, "r obs (synth)", series[1].Label())
	for _, s := range series {
		assert.Len(t, s.Obs, len(s.Days))
		assert.Len(t, s.Bars, len(s.Days))
		for _, d := range s.Days {
			assert.LessOrEqual(t, d, opts.MaxDay)
		}
	}
	assert.Less(t, len(series[0].Days), g.Len())

	_, err = Series(o, opts, "z")
	assert.ErrorIs(t, err, lightcurve.ErrUnknownBand)
	_, err = Series(lightcurve.NewObject(lightcurve.Metadata{}), opts)
	assert.ErrorIs(t, err, ErrNoBands)
}

func TestRenderPNG(t *testing.T) {
	var buf bytes.Buffer
	opts := DefaultOptions()
	opts.Width, opts.Height = 300, 150
	require.NoError(t, RenderPNG(&buf, fixtureObject(t, true), "test", opts))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Positive(t, img.Bounds().Dx())
}

func TestRenderHTML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderHTML(&buf, fixtureObject(t, true), "ZTF20a", "SNIa", DefaultOptions()))
	html := buf.String()
	assert.Contains(t, html, "<html")
	assert.Contains(t, html, "r obs (synth)")
	assert.Contains(t, html, lightcurve.BandColor("g"))
}

func TestHexColor(t *testing.T) {
	c := hexColor("#6ABE4F")
	assert.Equal(t, uint8(0x6a), c.R)
	assert.Equal(t, uint8(0xbe), c.G)
	assert.Equal(t, uint8(0x4f), c.B)
	assert.Equal(t, uint8(255), c.A)

	black := hexColor("k")
	assert.Equal(t, uint8(0), black.R)
	assert.Equal(t, uint8(255), black.A)

	assert.Equal(t, uint8(64), withAlpha(c, 0.25).A)
}

func TestExportImages(t *testing.T) {
	set := lcset.NewLabeledSet("train", "ZTF", []string{"SNIa", "SNII"}, []string{"g", "r"})
	require.NoError(t, set.Add("ZTF20a", fixtureObject(t, false)))
	unlabeled := lightcurve.NewObject(lightcurve.Metadata{IsFlux: true})
	days, obs, obse := testutil.Series(testutil.NewRand(4), 10, 0)
	require.NoError(t, unlabeled.AttachBand("g", days, obs, obse))
	require.NoError(t, set.Add("ZTF20b/x", unlabeled))
	other := lightcurve.NewObject(lightcurve.Metadata{})
	require.NoError(t, other.AttachBand("i", days, obs, obse))
	require.NoError(t, set.Add("ZTF20c", other))

	fsys := fsutil.NewMemoryFileSystem()
	opts := DefaultOptions()
	opts.Width, opts.Height = 200, 100
	n, err := ExportImages(context.Background(), fsys, "figs", set, opts)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	want := []string{
		filepath.Join("figs", "train", "SNIa", "ZTF20a.png"),
		filepath.Join("figs", "train", "unlabeled", "ZTF20b_x.png"),
	}
	assert.Equal(t, want, fsys.Files("figs"))

	data, err := fsys.ReadFile(want[0])
	require.NoError(t, err)
	_, err = png.Decode(bytes.NewReader(data))
	assert.NoError(t, err)

	assert.True(t, strings.HasSuffix(Title(set, "ZTF20a"), "obj=ZTF20a [SNIa]"))
	assert.Equal(t, "survey=ZTF-gr - obj=ZTF20a [SNIa]", Title(set, "ZTF20a"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = ExportImages(ctx, fsys, "figs", set, opts)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	assert.True(t, math.IsInf(opts.maxDay(), 1))
	opts.MaxDay = 0
	assert.True(t, math.IsInf(opts.maxDay(), 1))
	opts.MaxDay = 5
	assert.Equal(t, 5.0, opts.maxDay())
}
