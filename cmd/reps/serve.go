package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"time"

	"github.com/banshee-data/reps.report/internal/api"
	"github.com/banshee-data/reps.report/internal/pose/pipeline"
	"github.com/banshee-data/reps.report/internal/pose/storage/sqlite"
)

func runServe(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	var common commonFlags
	common.register(fs)
	listen := fs.String("listen", ":8080", "Listen address")
	admin := fs.Bool("admin", true, "Serve /debug/ admin routes (sqlite store only)")
	maxFinished := fs.Int("keep-finished", 16, "Finished sessions kept readable over the API")
	recordings := fs.String("recordings", "", "Directory of frame recordings sessions may replay")
	if err := fs.Parse(args); err != nil {
		return err
	}
	common.apply()

	if *listen == "" {
		return errors.New("listen address is required")
	}
	registry, err := common.registry()
	if err != nil {
		return err
	}
	store, db, closeStore, err := common.historyStore()
	if err != nil {
		return err
	}
	defer closeStore()

	manager, err := api.NewManager(ctx, api.ManagerConfig{
		Registry:    registry,
		Recorder:    pipeline.NewRecorder(store),
		MaxFinished: *maxFinished,
	})
	if err != nil {
		return err
	}

	var goals *sqlite.GoalStore
	if db != nil {
		goals = sqlite.NewGoalStore(db)
	}
	srv := api.NewServer(api.Config{
		Registry:      registry,
		Sessions:      manager,
		History:       store,
		Goals:         goals,
		RecordingsDir: *recordings,
	})
	mux := srv.ServeMux()
	if db != nil && *admin {
		if err := db.AttachAdminRoutes(mux); err != nil {
			return err
		}
	}

	server := &http.Server{
		Addr:    *listen,
		Handler: api.LoggingMiddleware(mux),
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Printf("listening on %s", *listen)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	// Finish open sessions first so their records are written before the
	// store closes.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := manager.Shutdown(shutdownCtx); err != nil {
		log.Printf("failed to finish sessions on shutdown: %v", err)
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
		server.Close()
	}
	log.Print("server stopped")
	return nil
}
