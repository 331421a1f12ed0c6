package report

import (
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/reps.report/internal/pose/history"
)

// DefaultAssetsHost serves the echarts JavaScript.
const DefaultAssetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"

// ChartOptions tune the HTML chart.
type ChartOptions struct {
	Title      string
	AssetsHost string
}

// RenderHTML writes a page with daily reps per exercise and per-exercise
// totals.
func RenderHTML(w io.Writer, records []history.Record, o ChartOptions) error {
	if len(records) == 0 {
		return ErrNoData
	}
	if o.Title == "" {
		o.Title = "Training history"
	}
	if o.AssetsHost == "" {
		o.AssetsHost = DefaultAssetsHost
	}

	days, totals := dailyTotals(records)
	types := slices.Sorted(maps.Keys(totals))

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: o.Title, Width: "100%", Height: "480px", AssetsHost: o.AssetsHost}),
		charts.WithTitleOpts(opts.Title{Title: o.Title, Subtitle: fmt.Sprintf("%d sessions over %d days", len(records), len(days))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Reps"}),
	)
	line.SetXAxis(days)
	for _, t := range types {
		data := make([]opts.LineData, len(days))
		for i, n := range totals[t] {
			data[i] = opts.LineData{Value: n}
		}
		line.AddSeries(t, data)
	}

	summaries := Summarize(records)
	names := make([]string, len(summaries))
	best := make([]opts.BarData, len(summaries))
	total := make([]opts.BarData, len(summaries))
	for i, s := range summaries {
		names[i] = s.Type
		best[i] = opts.BarData{Value: s.BestReps}
		total[i] = opts.BarData{Value: s.TotalReps}
	}
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "360px", AssetsHost: o.AssetsHost}),
		charts.WithTitleOpts(opts.Title{Title: "Per exercise"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(names).
		AddSeries("total", total, charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"})).
		AddSeries("best session", best, charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}))

	page := components.NewPage()
	page.SetAssetsHost(o.AssetsHost)
	page.AddCharts(line, bar)
	return page.Render(w)
}
