// Package report renders training history: per-exercise summaries, an
// interactive HTML chart for the web UI and a PNG plot for the CLI.
package report

import (
	"errors"
	"maps"
	"slices"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/reps.report/internal/pose/history"
)

// ErrNoData is returned when there is nothing to draw.
var ErrNoData = errors.New("no history to report")

// Summary describes one exercise's history.
type Summary struct {
	Type         string    `json:"type"`
	Sessions     int       `json:"sessions"`
	TotalReps    int       `json:"total_reps"`
	BestReps     int       `json:"best_reps"`
	MeanReps     float64   `json:"mean_reps"`
	StdDevReps   float64   `json:"stddev_reps"`
	MeanDuration float64   `json:"mean_duration_sec"`
	Last         time.Time `json:"last"`
}

// Summarize groups records by exercise type, ordered by type.
func Summarize(records []history.Record) []Summary {
	byType := groupByType(records)
	out := make([]Summary, 0, len(byType))
	for _, t := range slices.Sorted(maps.Keys(byType)) {
		recs := byType[t]
		reps := make([]float64, len(recs))
		durations := make([]float64, len(recs))
		s := Summary{Type: t, Sessions: len(recs)}
		for i, r := range recs {
			reps[i] = float64(r.Count)
			durations[i] = float64(r.DurationSec)
			s.TotalReps += r.Count
			if r.Count > s.BestReps {
				s.BestReps = r.Count
			}
			if r.Date.After(s.Last) {
				s.Last = r.Date
			}
		}
		s.MeanReps = stat.Mean(reps, nil)
		if len(reps) > 1 {
			s.StdDevReps = stat.StdDev(reps, nil)
		}
		s.MeanDuration = stat.Mean(durations, nil)
		out = append(out, s)
	}
	return out
}

// groupByType buckets records per type, each bucket oldest first.
func groupByType(records []history.Record) map[string][]history.Record {
	out := make(map[string][]history.Record)
	for _, r := range records {
		out[r.Type] = append(out[r.Type], r)
	}
	for _, recs := range out {
		sort.SliceStable(recs, func(i, j int) bool { return recs[i].Date.Before(recs[j].Date) })
	}
	return out
}

// dailyTotals sums reps per calendar day (UTC) per type. Days are
// returned oldest first and cover every day with any session.
func dailyTotals(records []history.Record) ([]string, map[string][]int) {
	const layout = "2006-01-02"
	daySet := make(map[string]bool)
	for _, r := range records {
		daySet[r.Date.UTC().Format(layout)] = true
	}
	days := slices.Sorted(maps.Keys(daySet))
	index := make(map[string]int, len(days))
	for i, d := range days {
		index[d] = i
	}

	totals := make(map[string][]int)
	for _, r := range records {
		if totals[r.Type] == nil {
			totals[r.Type] = make([]int, len(days))
		}
		totals[r.Type][index[r.Date.UTC().Format(layout)]] += r.Count
	}
	return days, totals
}
