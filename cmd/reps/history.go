package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/banshee-data/reps.report/internal/pose/history"
	"github.com/banshee-data/reps.report/internal/pose/l6levels"
	"github.com/banshee-data/reps.report/internal/pose/report"
	"github.com/banshee-data/reps.report/internal/timeutil"
)

func runHistory(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	var common commonFlags
	common.register(fs)
	typ := fs.String("type", "", "Only show this exercise type")
	limit := fs.Int("limit", 20, "Maximum sessions to list (0 for all)")
	summary := fs.Bool("summary", false, "Print per-exercise statistics instead of sessions")
	plotPath := fs.String("plot", "", "Write a PNG chart of the history to this path")
	chartPath := fs.String("chart", "", "Write an HTML chart of the history to this path")
	tz := fs.String("tz", "", "Timezone for listed dates (default: local)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	common.apply()
	loc, err := timeutil.LoadZone(*tz)
	if err != nil {
		return err
	}

	store, _, closeStore, err := common.historyStore()
	if err != nil {
		return err
	}
	defer closeStore()

	if *summary || *plotPath != "" || *chartPath != "" {
		all, err := history.List(ctx, store, history.Query{Type: *typ})
		if err != nil {
			return err
		}
		if *plotPath != "" {
			if err := report.SavePNG(*plotPath, all); err != nil {
				return err
			}
			fmt.Fprintf(stdout, "wrote %s\n", *plotPath)
		}
		if *chartPath != "" {
			if err := writeChart(*chartPath, all); err != nil {
				return err
			}
			fmt.Fprintf(stdout, "wrote %s\n", *chartPath)
		}
		if *summary {
			printSummary(stdout, report.Summarize(all))
		}
		return nil
	}

	records, err := history.List(ctx, store, history.Query{Type: *typ, Limit: *limit})
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(stdout, "No training history yet.")
		return nil
	}
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tEXERCISE\tREPS\tDURATION")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", r.FormatDateIn(loc), r.Type, r.Count, l6levels.FormatTime(time.Duration(r.DurationSec)*time.Second))
	}
	return tw.Flush()
}

func printSummary(w io.Writer, sums []report.Summary) {
	if len(sums) == 0 {
		fmt.Fprintln(w, "No training history yet.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "EXERCISE\tSESSIONS\tTOTAL\tBEST\tMEAN\tSTDDEV")
	for _, s := range sums {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%.1f\t%.1f\n", s.Type, s.Sessions, s.TotalReps, s.BestReps, s.MeanReps, s.StdDevReps)
	}
	tw.Flush()
}

func writeChart(path string, records []history.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := report.RenderHTML(f, records, report.ChartOptions{}); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
