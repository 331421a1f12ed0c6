package report

import (
	"fmt"
	"io"
	"maps"
	"slices"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/reps.report/internal/pose/history"
)

// PlotSize is the default PNG size.
var PlotSize = struct{ Width, Height vg.Length }{14 * vg.Inch, 6 * vg.Inch}

// newPlot draws reps per session over time, one line per exercise.
func newPlot(records []history.Record) (*plot.Plot, error) {
	if len(records) == 0 {
		return nil, ErrNoData
	}
	p := plot.New()
	p.Title.Text = "Reps per session"
	p.X.Label.Text = "Date"
	p.Y.Label.Text = "Reps"
	p.X.Tick.Marker = plot.TimeTicks{Format: "Jan 2"}
	p.Y.Min = 0
	p.Add(plotter.NewGrid())

	byType := groupByType(records)
	for i, t := range slices.Sorted(maps.Keys(byType)) {
		pts := make(plotter.XYs, 0, len(byType[t]))
		for _, r := range byType[t] {
			pts = append(pts, plotter.XY{X: float64(r.Date.Unix()), Y: float64(r.Count)})
		}
		line, points, err := plotter.NewLinePoints(pts)
		if err != nil {
			return nil, fmt.Errorf("failed to plot %s: %w", t, err)
		}
		line.Color = plotutil.Color(i)
		line.Width = vg.Points(1.5)
		points.Color = plotutil.Color(i)
		points.Shape = plotutil.Shape(i)
		p.Add(line, points)
		p.Legend.Add(t, line, points)
	}
	p.Legend.Top = true
	p.Legend.Left = true
	return p, nil
}

// WritePNG renders the history plot as PNG to w.
func WritePNG(w io.Writer, records []history.Record) error {
	p, err := newPlot(records)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(PlotSize.Width, PlotSize.Height, "png")
	if err != nil {
		return fmt.Errorf("failed to render plot: %w", err)
	}
	_, err = wt.WriteTo(w)
	return err
}

// SavePNG renders the history plot to path.
func SavePNG(path string, records []history.Record) error {
	p, err := newPlot(records)
	if err != nil {
		return err
	}
	if err := p.Save(PlotSize.Width, PlotSize.Height, path); err != nil {
		return fmt.Errorf("failed to save plot: %w", err)
	}
	return nil
}
