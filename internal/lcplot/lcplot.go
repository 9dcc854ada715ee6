// Package lcplot renders light curves as PNG figures with error bars and
// as interactive HTML charts.
package lcplot

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/banshee-data/lightcurve.report/internal/lightcurve"
)

var ErrNoBands = errors.New("lcplot: no bands to plot")

// Options controls how a curve is drawn.
type Options struct {
	// MaxDay hides points after this day. Zero or +Inf shows everything.
	MaxDay float64
	// StdFactor scales obse into the standard deviation of a Gaussian
	// error; bars span its Percentile bound.
	StdFactor  float64
	Percentile float64

	XMarginPercent float64
	YMarginPercent float64

	Width, Height vg.Length
}

// DefaultOptions returns the standard figure layout.
func DefaultOptions() Options {
	return Options{
		MaxDay:         math.Inf(1),
		StdFactor:      lightcurve.ObseStdScale,
		Percentile:     0.9,
		XMarginPercent: 1,
		YMarginPercent: 10,
		Width:          12 * vg.Inch,
		Height:         5 * vg.Inch,
	}
}

func (o Options) maxDay() float64 {
	if o.MaxDay == 0 {
		return math.Inf(1)
	}
	return o.MaxDay
}

// ErrorBars returns the half-width of each point's error bar: the
// percentile bound of a zero-mean Gaussian with sigma stdFactor*obse.
func ErrorBars(obse []float64, stdFactor, percentile float64) []float64 {
	out := make([]float64, len(obse))
	for i, e := range obse {
		n := distuv.Normal{Mu: 0, Sigma: stdFactor * e}
		out[i] = n.Quantile(percentile)
	}
	return out
}

// Margin pads the range of x by percent of its span on each side. Empty
// input gives (0, 0).
func Margin(x []float64, percent float64) (lo, hi float64) {
	if len(x) == 0 {
		return 0, 0
	}
	lo, hi = floats.Min(x), floats.Max(x)
	pad := math.Abs(hi-lo) * percent / 100
	return lo - pad, hi + pad
}

// BandSeries is the plotted portion of one band.
type BandSeries struct {
	Band      string
	Days      []float64
	Obs       []float64
	Bars      []float64
	Synthetic bool
}

// Label is the legend entry for the band.
func (s BandSeries) Label() string {
	label := s.Band + " obs"
	if s.Synthetic {
		label += " (synth)"
	}
	return label
}

// Series extracts the visible points of every requested band of obj. With
// no bands every attached band is used.
func Series(obj *lightcurve.Object, opts Options, bands ...string) ([]BandSeries, error) {
	if len(bands) == 0 {
		bands = obj.Bands()
	}
	if len(bands) == 0 {
		return nil, ErrNoBands
	}
	out := make([]BandSeries, 0, len(bands))
	for _, b := range bands {
		c, ok := obj.Band(b)
		if !ok {
			return nil, fmt.Errorf("%w: %q", lightcurve.ErrUnknownBand, b)
		}
		days, obs, obse := c.DaysUpTo(opts.maxDay())
		out = append(out, BandSeries{
			Band:      b,
			Days:      days,
			Obs:       obs,
			Bars:      ErrorBars(obse, opts.StdFactor, opts.Percentile),
			Synthetic: c.IsSynthetic(),
		})
	}
	return out, nil
}

type errorPoints struct {
	plotter.XYs
	plotter.YErrors
}

// NewPlot builds the figure for obj: error bars, a faint dashed line and
// markers per band, with synthetic bands outlined in black.
func NewPlot(obj *lightcurve.Object, title string, opts Options, bands ...string) (*plot.Plot, error) {
	series, err := Series(obj, opts, bands...)
	if err != nil {
		return nil, err
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "time [days]"
	p.Y.Label.Text = "observations [flux]"
	if !obj.Metadata().IsFlux {
		p.Y.Label.Text = "observations [mag]"
	}
	p.Add(plotter.NewGrid())

	var xs, ys []float64
	for _, s := range series {
		if len(s.Days) == 0 {
			continue
		}
		col := hexColor(lightcurve.BandColor(s.Band))
		pts := errorPoints{XYs: make(plotter.XYs, len(s.Days)), YErrors: make(plotter.YErrors, len(s.Days))}
		for i := range s.Days {
			pts.XYs[i] = plotter.XY{X: s.Days[i], Y: s.Obs[i]}
			pts.YErrors[i].Low, pts.YErrors[i].High = s.Bars[i], s.Bars[i]
		}

		bars, err := plotter.NewYErrorBars(pts)
		if err != nil {
			return nil, fmt.Errorf("band %s error bars: %w", s.Band, err)
		}
		bars.Color = col
		bars.Width = vg.Points(1)
		bars.CapWidth = 0

		line, err := plotter.NewLine(pts.XYs)
		if err != nil {
			return nil, fmt.Errorf("band %s line: %w", s.Band, err)
		}
		line.Color = withAlpha(col, 0.25)
		line.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}

		marks, err := plotter.NewScatter(pts.XYs)
		if err != nil {
			return nil, fmt.Errorf("band %s markers: %w", s.Band, err)
		}
		marks.Color = col
		marks.Shape = draw.CircleGlyph{}
		marks.Radius = vg.Points(3)

		p.Add(bars, line, marks)
		if s.Synthetic {
			ring, err := plotter.NewScatter(pts.XYs)
			if err != nil {
				return nil, err
			}
			ring.Color = color.Black
			ring.Shape = draw.RingGlyph{}
			ring.Radius = vg.Points(3)
			p.Add(ring)
			p.Legend.Add(s.Label(), marks, ring)
		} else {
			p.Legend.Add(s.Label(), marks)
		}

		for i := range s.Days {
			ys = append(ys, s.Obs[i]-s.Bars[i], s.Obs[i]+s.Bars[i])
		}
		xs = append(xs, s.Days...)
	}

	if len(xs) > 0 {
		p.X.Min, p.X.Max = Margin(xs, opts.XMarginPercent)
		p.Y.Min, p.Y.Max = Margin(ys, opts.YMarginPercent)
	}
	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p, nil
}

// RenderPNG writes the figure for obj as a PNG.
func RenderPNG(w io.Writer, obj *lightcurve.Object, title string, opts Options, bands ...string) error {
	p, err := NewPlot(obj, title, opts, bands...)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(opts.Width, opts.Height, "png")
	if err != nil {
		return fmt.Errorf("png writer: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write png: %w", err)
	}
	return nil
}

// hexColor parses "#rrggbb"; anything else is black.
func hexColor(s string) color.NRGBA {
	s = strings.TrimPrefix(s, "#")
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil || len(s) != 6 {
		return color.NRGBA{A: 255}
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}
}

func withAlpha(c color.NRGBA, alpha float64) color.NRGBA {
	c.A = uint8(math.Round(alpha * 255))
	return c
}
