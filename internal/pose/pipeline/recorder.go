package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/banshee-data/reps.report/internal/monitoring"
	"github.com/banshee-data/reps.report/internal/pose/exercise"
	"github.com/banshee-data/reps.report/internal/pose/history"
)

// FinishReason says why a session ended.
type FinishReason string

const (
	ReasonFinished    FinishReason = "finished"     // user pressed finish
	ReasonHidden      FinishReason = "hidden"       // view lost visibility
	ReasonUnload      FinishReason = "unload"       // process or page going away
	ReasonMaxLevel    FinishReason = "max_level"    // last level completed
	ReasonSourceEnded FinishReason = "source_ended" // frame source exhausted
)

// Summary is what a finished session hands to the Recorder.
type Summary struct {
	SessionID string
	Type      exercise.Type
	Count     int
	Duration  time.Duration
	EndedAt   time.Time
	Reason    FinishReason
}

// Recorder turns finished sessions into history records.
type Recorder struct {
	store history.Store
}

// NewRecorder persists through store. A nil store records nothing.
func NewRecorder(store history.Store) *Recorder {
	return &Recorder{store: store}
}

// Record appends a record for sum when at least one rep was counted and
// returns it. Sessions with no reps return nil. A failed write is logged
// and returned alongside the record so the count is never lost.
func (r *Recorder) Record(ctx context.Context, sum Summary) (*history.Record, error) {
	if sum.Count <= 0 {
		return nil, nil
	}
	rec := &history.Record{
		ID:          sum.SessionID,
		Date:        sum.EndedAt.UTC(),
		Type:        string(sum.Type),
		Count:       sum.Count,
		DurationSec: int(sum.Duration / time.Second),
		Reason:      string(sum.Reason),
	}
	if r == nil || r.store == nil {
		return rec, nil
	}
	if err := r.store.Append(ctx, *rec); err != nil {
		monitoring.Logf("failed to save session %s (%s, %d reps): %v", rec.ID, rec.Type, rec.Count, err)
		return rec, fmt.Errorf("failed to save session: %w", err)
	}
	monitoring.Logf("saved session %s: %d %s", rec.ID, rec.Count, rec.Type)
	return rec, nil
}
