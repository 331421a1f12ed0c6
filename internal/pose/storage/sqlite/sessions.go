package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/reps.report/internal/pose/history"
)

// SessionStore persists finished sessions. It implements history.Store.
type SessionStore struct {
	db *DB
}

var _ history.Store = (*SessionStore)(nil)

// NewSessionStore creates a SessionStore on a migrated database.
func NewSessionStore(db *DB) *SessionStore {
	return &SessionStore{db: db}
}

// Append inserts rec. A record without an ID gets a new UUID.
func (s *SessionStore) Append(ctx context.Context, rec history.Record) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Count <= 0 {
		return fmt.Errorf("refusing to store session %s with %d reps", rec.ID, rec.Count)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (session_id, exercise, rep_count, duration_sec, reason, ended_at_ms)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Type, rec.Count, rec.DurationSec, rec.Reason, rec.Date.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert session %s: %w", rec.ID, err)
	}
	return nil
}

// All returns every session, newest first.
func (s *SessionStore) All(ctx context.Context) ([]history.Record, error) {
	return s.List(ctx, history.Query{})
}

// List applies q in SQL: filtered by type, newest first, limited.
func (s *SessionStore) List(ctx context.Context, q history.Query) ([]history.Record, error) {
	query := `SELECT session_id, exercise, rep_count, duration_sec, reason, ended_at_ms FROM sessions`
	var args []interface{}
	if q.Type != "" {
		query += ` WHERE exercise = ?`
		args = append(args, q.Type)
	}
	query += ` ORDER BY ended_at_ms DESC, rowid DESC`
	if q.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	records := []history.Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Last returns the newest session of the given type, or of any type when
// exercise is empty.
func (s *SessionStore) Last(ctx context.Context, exercise string) (history.Record, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT session_id, exercise, rep_count, duration_sec, reason, ended_at_ms
		FROM sessions
		WHERE ? = '' OR exercise = ?
		ORDER BY ended_at_ms DESC, rowid DESC
		LIMIT 1`, exercise, exercise)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return history.Record{}, false, nil
	}
	if err != nil {
		return history.Record{}, false, err
	}
	return rec, true, nil
}

// ExerciseStats aggregates one exercise's sessions.
type ExerciseStats struct {
	Exercise  string `json:"exercise"`
	Sessions  int    `json:"sessions"`
	TotalReps int    `json:"total_reps"`
	BestReps  int    `json:"best_reps"`
}

// Stats aggregates sessions per exercise, ordered by name.
func (s *SessionStore) Stats(ctx context.Context) ([]ExerciseStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT exercise, COUNT(*), SUM(rep_count), MAX(rep_count)
		FROM sessions
		GROUP BY exercise
		ORDER BY exercise`)
	if err != nil {
		return nil, fmt.Errorf("query session stats: %w", err)
	}
	defer rows.Close()

	var out []ExerciseStats
	for rows.Next() {
		var st ExerciseStats
		if err := rows.Scan(&st.Exercise, &st.Sessions, &st.TotalReps, &st.BestReps); err != nil {
			return nil, fmt.Errorf("scan session stats: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row scanner) (history.Record, error) {
	var (
		rec   history.Record
		ended int64
	)
	if err := row.Scan(&rec.ID, &rec.Type, &rec.Count, &rec.DurationSec, &rec.Reason, &ended); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rec, err
		}
		return rec, fmt.Errorf("scan session: %w", err)
	}
	rec.Date = time.UnixMilli(ended).UTC()
	return rec, nil
}
