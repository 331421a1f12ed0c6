package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/reps.report/internal/fsutil"
	"github.com/banshee-data/reps.report/internal/pose/history"
)

func TestRecorder(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ended := time.Date(2026, 6, 1, 9, 30, 0, 0, time.FixedZone("CEST", 2*3600))

	t.Run("no reps records nothing", func(t *testing.T) {
		t.Parallel()
		store := history.NewFileStore(fsutil.NewMemoryFileSystem(), "/h.json")
		rec, err := NewRecorder(store).Record(ctx, Summary{SessionID: "a", Type: "pushups", Count: 0, EndedAt: ended})
		require.NoError(t, err)
		assert.Nil(t, rec)
		all, err := store.All(ctx)
		require.NoError(t, err)
		assert.Empty(t, all)
	})

	t.Run("records in UTC", func(t *testing.T) {
		t.Parallel()
		store := history.NewFileStore(fsutil.NewMemoryFileSystem(), "/h.json")
		rec, err := NewRecorder(store).Record(ctx, Summary{
			SessionID: "b", Type: "sitdowns", Count: 12, Duration: 95 * time.Second, EndedAt: ended, Reason: ReasonHidden,
		})
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.Equal(t, time.UTC, rec.Date.Location())
		assert.True(t, rec.Date.Equal(ended))
		assert.Equal(t, 95, rec.DurationSec)
		assert.Equal(t, "hidden", rec.Reason)

		all, err := store.All(ctx)
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, "sitdowns", all[0].Type)
		assert.Equal(t, 12, all[0].Count)
	})

	t.Run("write failure keeps the record", func(t *testing.T) {
		t.Parallel()
		mfs := fsutil.NewMemoryFileSystem()
		mfs.FailWrites(true)
		rec, err := NewRecorder(history.NewFileStore(mfs, "/h.json")).Record(ctx, Summary{SessionID: "c", Type: "pushups", Count: 7, EndedAt: ended})
		assert.ErrorIs(t, err, fsutil.ErrInjected)
		require.NotNil(t, rec)
		assert.Equal(t, 7, rec.Count)
	})

	t.Run("nil recorder", func(t *testing.T) {
		t.Parallel()
		var r *Recorder
		rec, err := r.Record(ctx, Summary{SessionID: "d", Type: "pushups", Count: 1, EndedAt: ended})
		require.NoError(t, err)
		assert.Equal(t, 1, rec.Count)
	})
}
