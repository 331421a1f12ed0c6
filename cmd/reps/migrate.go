package main

import (
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/banshee-data/reps.report/internal/pose/storage/sqlite"
)

func runMigrate(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	dbPath := fs.String("db", "reps.db", "SQLite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: reps migrate [-db path] up|down|status")
	}

	db, err := sqlite.Open(*dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	switch fs.Arg(0) {
	case "up":
		if err := db.MigrateUp(); err != nil {
			return err
		}
	case "down":
		if err := db.MigrateDown(); err != nil {
			return err
		}
	case "status":
	default:
		return fmt.Errorf("unknown migrate action %q (want up, down or status)", fs.Arg(0))
	}

	status, err := db.MigrateStatus()
	if err != nil {
		return err
	}
	state := "up to date"
	switch {
	case status.Dirty:
		state = "dirty, fix manually"
	case status.Pending:
		state = "migrations pending"
	}
	fmt.Fprintf(stdout, "%s: version %d of %d (%s)\n", db.Path(), status.CurrentVersion, status.LatestVersion, state)
	return nil
}
