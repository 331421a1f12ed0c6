package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/banshee-data/reps.report/internal/pose/storage/sqlite"
)

func runGoals(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("goals", flag.ContinueOnError)
	dbPath := fs.String("db", "reps.db", "SQLite database path")
	add := fs.String("add", "", "Add a goal with this title")
	edit := fs.String("edit", "", "Edit the goal with this ID; only the flags given change")
	del := fs.String("delete", "", "Delete the goal with this ID")
	complete := fs.String("complete", "", "Complete the goal with this ID")
	title := fs.String("title", "", "New title when editing")
	description := fs.String("description", "", "Free-form note on the goal")
	exerciseType := fs.String("exercise", "", "Exercise the goal is about")
	target := fs.Int("target", 0, "Rep target for the goal")
	xp := fs.Int("xp", 100, "Experience awarded by the goal")
	coins := fs.Int("coins", 10, "Coins awarded by the goal")
	if err := fs.Parse(args); err != nil {
		return err
	}
	actions := 0
	for _, a := range []string{*add, *edit, *del, *complete} {
		if a != "" {
			actions++
		}
	}
	if actions > 1 {
		return errors.New("-add, -edit, -delete and -complete are mutually exclusive")
	}

	db, err := sqlite.OpenAndMigrate(*dbPath)
	if err != nil {
		return err
	}
	defer db.Close()
	goals := sqlite.NewGoalStore(db)

	switch {
	case *add != "":
		g := sqlite.Goal{Title: *add, Description: *description, Exercise: *exerciseType, Target: *target, XPReward: *xp, CoinReward: *coins}
		if err := goals.Create(ctx, &g); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "added goal %s\n", g.ID)
		return nil
	case *edit != "":
		g, err := goals.Get(ctx, *edit)
		if err != nil {
			return err
		}
		fs.Visit(func(f *flag.Flag) {
			switch f.Name {
			case "title":
				g.Title = *title
			case "description":
				g.Description = *description
			case "exercise":
				g.Exercise = *exerciseType
			case "target":
				g.Target = *target
			case "xp":
				g.XPReward = *xp
			case "coins":
				g.CoinReward = *coins
			}
		})
		if err := goals.Update(ctx, &g); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "updated goal %s\n", g.ID)
		return nil
	case *del != "":
		if err := goals.Delete(ctx, *del); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "deleted goal %s\n", *del)
		return nil
	case *complete != "":
		done, err := goals.Complete(ctx, *complete)
		if err != nil {
			return err
		}
		p := done.Profile
		fmt.Fprintf(stdout, "completed %q: +%d XP, +%d coins\n", done.Goal.Title, done.Goal.XPReward, done.Goal.CoinReward)
		fmt.Fprintf(stdout, "level %d, %d/%d XP, %d coins\n", p.Level, p.XP, p.XPToNextLevel, p.Coins)
		return nil
	}

	list, err := goals.List(ctx)
	if err != nil {
		return err
	}
	p, err := goals.Profile(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "level %d, %d/%d XP, %d coins\n", p.Level, p.XP, p.XPToNextLevel, p.Coins)
	if len(list) == 0 {
		fmt.Fprintln(stdout, "No goals yet.")
		return nil
	}
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tNOTE\tREWARD\tDONE")
	for _, g := range list {
		done := ""
		if g.Completed() {
			done = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d XP / %d coins\t%s\n", g.ID, g.Title, g.Description, g.XPReward, g.CoinReward, done)
	}
	return tw.Flush()
}
