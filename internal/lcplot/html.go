package lcplot

import (
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/lightcurve.report/internal/lightcurve"
)

// EChartsAssetsHost overrides where the chart page loads its scripts from.
// Empty uses the go-echarts default CDN.
var EChartsAssetsHost = ""

// NewChart builds an interactive chart of obj: one dashed series per band
// with the error bar half-width carried as a third value for the tooltip.
func NewChart(obj *lightcurve.Object, title, subtitle string, o Options, bands ...string) (*charts.Line, error) {
	series, err := Series(obj, o, bands...)
	if err != nil {
		return nil, err
	}

	var xs, ys []float64
	for _, s := range series {
		xs = append(xs, s.Days...)
		ys = append(ys, s.Obs...)
	}
	xMin, xMax := Margin(xs, o.XMarginPercent)
	yMin, yMax := Margin(ys, o.YMarginPercent)

	yName := "observations [flux]"
	if !obj.Metadata().IsFlux {
		yName = "observations [mag]"
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "1100px", Height: "500px", AssetsHost: EChartsAssetsHost}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Min: xMin, Max: xMax, Name: "time [days]", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Min: yMin, Max: yMax, Name: yName, NameLocation: "middle", NameGap: 45}),
	)

	for _, s := range series {
		data := make([]opts.LineData, len(s.Days))
		for i := range s.Days {
			data[i] = opts.LineData{Value: []interface{}{s.Days[i], s.Obs[i], s.Bars[i]}}
		}
		symbol := "circle"
		if s.Synthetic {
			symbol = "emptyCircle"
		}
		col := lightcurve.BandColor(s.Band)
		line.AddSeries(s.Label(), data,
			charts.WithLineChartOpts(opts.LineChart{Symbol: symbol, SymbolSize: 7, ShowSymbol: opts.Bool(true)}),
			charts.WithLineStyleOpts(opts.LineStyle{Color: col, Type: "dashed", Opacity: opts.Float(0.25)}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: col}),
		)
	}
	return line, nil
}

// RenderHTML writes a standalone HTML page with the chart of obj.
func RenderHTML(w io.Writer, obj *lightcurve.Object, title, subtitle string, o Options, bands ...string) error {
	chart, err := NewChart(obj, title, subtitle, o, bands...)
	if err != nil {
		return err
	}
	return chart.Render(w)
}
