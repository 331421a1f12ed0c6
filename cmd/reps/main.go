package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/banshee-data/reps.report/internal/config"
	"github.com/banshee-data/reps.report/internal/fsutil"
	"github.com/banshee-data/reps.report/internal/monitoring"
	"github.com/banshee-data/reps.report/internal/pose/exercise"
	"github.com/banshee-data/reps.report/internal/pose/history"
	"github.com/banshee-data/reps.report/internal/pose/storage/sqlite"
	"github.com/banshee-data/reps.report/internal/version"
)

// errUsage is returned when the arguments were wrong and usage has been
// printed.
var errUsage = errors.New("usage")

func main() {
	// A .env file is optional; variables already set take precedence.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("failed to load .env: %v", err)
	}

	flag.Usage = printUsage
	flag.Parse()

	if flag.NArg() < 1 {
		printUsage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, flag.Arg(0), flag.Args()[1:], os.Stdout); err != nil {
		if !errors.Is(err, errUsage) && !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, command string, args []string, stdout io.Writer) error {
	switch command {
	case "serve":
		return runServe(ctx, args)
	case "count":
		return runCount(ctx, args, os.Stdin, stdout)
	case "push":
		return runPush(ctx, args, os.Stdin, stdout)
	case "history":
		return runHistory(ctx, args, stdout)
	case "goals":
		return runGoals(ctx, args, stdout)
	case "migrate":
		return runMigrate(args, stdout)
	case "version":
		fmt.Fprintln(stdout, version.String())
		return nil
	case "help":
		printUsage()
		return nil
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		return errUsage
	}
}

func printUsage() {
	fmt.Println(`reps - exercise repetition counter

Usage: reps <command> [options]

Commands:
  serve      Run the HTTP API for live sessions, history and goals
  count      Count reps from a landmark stream (stdin, file or serial port)
  push       Stream landmark frames to a remote reps server
  history    List training history, summarise it or plot it
  goals      List, add, edit, delete and complete goals
  migrate    Apply or inspect database schema migrations (up, down, status)
  version    Show version
  help       Show this help message

Common Flags:
  --config <file>   Exercise tuning file (default: built-in defaults)
  --store <kind>    History backend: sqlite or json (default: sqlite)
  --db <path>       SQLite database path (default: reps.db)
  --json <path>     JSON history file (default: reps-history.json)
  --debug           Log every decoded frame and skipped line

Environment (also read from ./.env):
  REPS_CONFIG, REPS_STORE, REPS_DB, REPS_JSON set the common flag defaults.

Run 'reps <command> -h' for command options.`)
}

// commonFlags are shared by the commands that touch configuration or
// history.
type commonFlags struct {
	configPath string
	store      string
	dbPath     string
	jsonPath   string
	debug      bool
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configPath, "config", envOr("REPS_CONFIG", ""), "Exercise tuning JSON file (default: built-in defaults)")
	fs.StringVar(&c.store, "store", envOr("REPS_STORE", "sqlite"), "History backend: sqlite or json")
	fs.StringVar(&c.dbPath, "db", envOr("REPS_DB", "reps.db"), "SQLite database path")
	fs.StringVar(&c.jsonPath, "json", envOr("REPS_JSON", "reps-history.json"), "JSON history file path")
	fs.BoolVar(&c.debug, "debug", false, "Enable debug logging")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func (c *commonFlags) apply() {
	monitoring.SetTracing(c.debug)
}

func (c *commonFlags) registry() (*exercise.Registry, error) {
	cfg := config.DefaultTuningConfig()
	if c.configPath != "" {
		loaded, err := config.LoadTuningConfig(c.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
		log.Printf("loaded tuning from %s", c.configPath)
	}
	return exercise.NewRegistry(cfg)
}

// historyStore opens the selected backend. The returned DB is nil for the
// JSON backend; closer releases whatever was opened.
func (c *commonFlags) historyStore() (history.Store, *sqlite.DB, func(), error) {
	switch c.store {
	case "sqlite":
		db, err := sqlite.OpenAndMigrate(c.dbPath)
		if err != nil {
			return nil, nil, nil, err
		}
		return sqlite.NewSessionStore(db), db, func() { db.Close() }, nil
	case "json":
		return history.NewFileStore(fsutil.OSFileSystem{}, c.jsonPath), nil, func() {}, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown store %q (want sqlite or json)", c.store)
	}
}
