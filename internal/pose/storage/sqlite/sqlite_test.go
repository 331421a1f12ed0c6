package sqlite

import (
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/reps.report/internal/monitoring"
	"github.com/banshee-data/reps.report/internal/pose/history"
	"github.com/banshee-data/reps.report/internal/pose/l6levels"
)

func init() {
	monitoring.SetLogger(nil)
}

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenAndMigrate(filepath.Join(t.TempDir(), "reps.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

var base = time.Date(2026, 5, 4, 18, 0, 0, 0, time.UTC)

func TestMigrations(t *testing.T) {
	t.Parallel()

	db, err := Open(filepath.Join(t.TempDir(), "fresh.db"))
	require.NoError(t, err)
	defer db.Close()

	latest, err := LatestMigrationVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(3), latest)

	st, err := db.MigrateStatus()
	require.NoError(t, err)
	assert.Equal(t, MigrationStatus{CurrentVersion: 0, LatestVersion: 3, Pending: true}, st)

	require.NoError(t, db.MigrateUp())
	require.NoError(t, db.MigrateUp())
	version, dirty, err := db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(3), version)
	assert.False(t, dirty)

	require.NoError(t, db.MigrateDown())
	version, _, err = db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
	_, err = NewGoalStore(db).List(context.Background())
	assert.Error(t, err, "description column should be gone")

	require.NoError(t, db.MigrateDown())
	version, _, err = db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	_, err = db.Exec(`SELECT goal_id FROM goals`)
	assert.Error(t, err, "goals table should be gone")

	require.NoError(t, db.MigrateUp())
	st, err = db.MigrateStatus()
	require.NoError(t, err)
	assert.False(t, st.Pending)
}

func TestSessionStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewSessionStore(newTestDB(t))

	all, err := store.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	records := []history.Record{
		{ID: "a", Date: base, Type: "pushups", Count: 12, DurationSec: 60, Reason: "finished"},
		{ID: "b", Date: base.Add(time.Hour), Type: "sitdowns", Count: 20, DurationSec: 90, Reason: "hidden"},
		{ID: "c", Date: base.Add(2 * time.Hour), Type: "pushups", Count: 15, DurationSec: 70, Reason: "max_level"},
	}
	for _, r := range records {
		require.NoError(t, store.Append(ctx, r))
	}

	all, err = store.All(ctx)
	require.NoError(t, err)
	want := []history.Record{records[2], records[1], records[0]}
	if diff := cmp.Diff(want, all); diff != "" {
		t.Errorf("All() mismatch (-want +got):\n%s", diff)
	}

	pushups, err := store.List(ctx, history.Query{Type: "pushups", Limit: 1})
	require.NoError(t, err)
	require.Len(t, pushups, 1)
	assert.Equal(t, "c", pushups[0].ID)

	last, ok, err := store.Last(ctx, "sitdowns")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 20, last.Count)

	_, ok, err = store.Last(ctx, "handsup")
	require.NoError(t, err)
	assert.False(t, ok)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, []ExerciseStats{
		{Exercise: "pushups", Sessions: 2, TotalReps: 27, BestReps: 15},
		{Exercise: "sitdowns", Sessions: 1, TotalReps: 20, BestReps: 20},
	}, stats)

	// The shared read helpers see the same ordering.
	listed, err := history.List(ctx, store, history.Query{Type: "pushups"})
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a"}, []string{listed[0].ID, listed[1].ID})
}

func TestSessionStoreRejects(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewSessionStore(newTestDB(t))

	assert.Error(t, store.Append(ctx, history.Record{ID: "zero", Date: base, Type: "pushups"}))
	require.NoError(t, store.Append(ctx, history.Record{ID: "dup", Date: base, Type: "pushups", Count: 1}))
	assert.Error(t, store.Append(ctx, history.Record{ID: "dup", Date: base, Type: "pushups", Count: 2}))

	require.NoError(t, store.Append(ctx, history.Record{Date: base, Type: "handsup", Count: 3}))
	all, err := store.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	for _, r := range all {
		assert.NotEmpty(t, r.ID)
	}
}

func TestGoalStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewGoalStore(newTestDB(t))
	clock := base
	store.now = func() time.Time { clock = clock.Add(time.Minute); return clock }

	p, err := store.Profile(ctx)
	require.NoError(t, err)
	assert.Equal(t, l6levels.NewProfile(), p)

	assert.Error(t, store.Create(ctx, &Goal{Title: "   "}))
	assert.Error(t, store.Create(ctx, &Goal{Title: "x", XPReward: -1}))

	first := &Goal{Title: "First 10 pushups", Exercise: "pushups", Target: 10, XPReward: 150, CoinReward: 5}
	second := &Goal{Title: "Stretch", XPReward: 30, CoinReward: 1}
	require.NoError(t, store.Create(ctx, first))
	require.NoError(t, store.Create(ctx, second))
	assert.NotEmpty(t, first.ID)
	assert.NotEqual(t, first.ID, second.ID)

	got, err := store.Get(ctx, first.ID)
	require.NoError(t, err)
	if diff := cmp.Diff(*first, got); diff != "" {
		t.Errorf("Get() mismatch (-want +got):\n%s", diff)
	}

	done, err := store.Complete(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, done.Goal.Completed())
	assert.Equal(t, 1, done.LevelsGained)
	assert.Equal(t, l6levels.Profile{Level: 2, XP: 50, Coins: 5, XPToNextLevel: 120}, done.Profile)

	_, err = store.Complete(ctx, first.ID)
	assert.ErrorIs(t, err, ErrGoalCompleted)
	_, err = store.Complete(ctx, "missing")
	assert.ErrorIs(t, err, ErrGoalNotFound)

	// A rejected completion pays nothing.
	p, err = store.Profile(ctx)
	require.NoError(t, err)
	assert.Equal(t, done.Profile, p)

	goals, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, goals, 2)
	assert.Equal(t, second.ID, goals[0].ID, "open goals come first")
	assert.True(t, goals[1].Completed())
}

func TestGoalStoreUpdateAndDelete(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewGoalStore(newTestDB(t))
	store.now = func() time.Time { return base }

	g := &Goal{Title: "Squats", Description: "  before breakfast ", XPReward: 40}
	require.NoError(t, store.Create(ctx, g))
	assert.Equal(t, "before breakfast", g.Description)

	edit := &Goal{ID: g.ID, Title: " 30 squats ", Description: "after lunch", Exercise: "sitdowns", Target: 30, XPReward: 60, CoinReward: 2}
	require.NoError(t, store.Update(ctx, edit))
	assert.Equal(t, "30 squats", edit.Title)
	assert.Equal(t, base, edit.CreatedAt)

	got, err := store.Get(ctx, g.ID)
	require.NoError(t, err)
	if diff := cmp.Diff(*edit, got); diff != "" {
		t.Errorf("Get() after Update mismatch (-want +got):\n%s", diff)
	}

	t.Run("validation", func(t *testing.T) {
		assert.Error(t, store.Update(ctx, &Goal{ID: g.ID, Title: " "}))
		assert.Error(t, store.Update(ctx, &Goal{ID: g.ID, Title: "x", Target: -1}))
		unchanged, err := store.Get(ctx, g.ID)
		require.NoError(t, err)
		assert.Equal(t, "30 squats", unchanged.Title)
	})

	t.Run("unknown", func(t *testing.T) {
		assert.ErrorIs(t, store.Update(ctx, &Goal{ID: "missing", Title: "x"}), ErrGoalNotFound)
		assert.ErrorIs(t, store.Delete(ctx, "missing"), ErrGoalNotFound)
	})

	_, err = store.Complete(ctx, g.ID)
	require.NoError(t, err)
	assert.ErrorIs(t, store.Update(ctx, &Goal{ID: g.ID, Title: "late edit"}), ErrGoalCompleted)

	require.NoError(t, store.Delete(ctx, g.ID))
	_, err = store.Get(ctx, g.ID)
	assert.ErrorIs(t, err, ErrGoalNotFound)
	assert.ErrorIs(t, store.Delete(ctx, g.ID), ErrGoalNotFound)

	// Deleting a completed goal keeps what it paid.
	p, err := store.Profile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 60, p.XP)
}

func TestAdminRoutes(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := newTestDB(t)
	require.NoError(t, NewSessionStore(db).Append(ctx, history.Record{ID: "a", Date: base, Type: "pushups", Count: 4}))

	mux := http.NewServeMux()
	require.NoError(t, db.AttachAdminRoutes(mux))

	req := httptest.NewRequest(http.MethodGet, "/debug/backup", nil)
	req.RemoteAddr = "127.0.0.1:12345"
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".db.gz")

	gz, err := gzip.NewReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	data, err := io.ReadAll(gz)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("SQLite format 3\x00")))

	req = httptest.NewRequest(http.MethodGet, "/debug/", nil)
	req.RemoteAddr = "127.0.0.1:12345"
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "tailsql")
}
