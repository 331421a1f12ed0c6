package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/reps.report/internal/monitoring"
	"github.com/banshee-data/reps.report/internal/pose/l6levels"
)

var (
	// ErrGoalNotFound is returned for an unknown goal ID.
	ErrGoalNotFound = errors.New("goal not found")
	// ErrGoalCompleted is returned when completing or editing a goal that
	// has already paid out.
	ErrGoalCompleted = errors.New("goal already completed")
)

// Goal is a user-set target that pays out experience and coins once.
type Goal struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Exercise    string     `json:"exercise,omitempty"`
	Target      int        `json:"target,omitempty"`
	XPReward    int        `json:"xp_reward"`
	CoinReward  int        `json:"coin_reward"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Completed reports whether the reward has been paid.
func (g *Goal) Completed() bool { return g.CompletedAt != nil }

// Completion is the outcome of completing a goal.
type Completion struct {
	Goal         Goal             `json:"goal"`
	Profile      l6levels.Profile `json:"profile"`
	LevelsGained int              `json:"levels_gained"`
}

// GoalStore persists goals and the single user profile.
type GoalStore struct {
	db  *DB
	now func() time.Time
}

// NewGoalStore creates a GoalStore on a migrated database.
func NewGoalStore(db *DB) *GoalStore {
	return &GoalStore{db: db, now: time.Now}
}

func validateGoal(g *Goal) error {
	g.Title = strings.TrimSpace(g.Title)
	g.Description = strings.TrimSpace(g.Description)
	if g.Title == "" {
		return errors.New("goal title is required")
	}
	if g.XPReward < 0 || g.CoinReward < 0 || g.Target < 0 {
		return errors.New("goal target and rewards must not be negative")
	}
	return nil
}

// Create inserts g, assigning its ID and creation time.
func (s *GoalStore) Create(ctx context.Context, g *Goal) error {
	if err := validateGoal(g); err != nil {
		return err
	}
	g.ID = uuid.NewString()
	g.CreatedAt = s.now().UTC()
	g.CompletedAt = nil

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO goals (goal_id, title, description, exercise, target, xp_reward, coin_reward, created_at_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.Title, g.Description, g.Exercise, g.Target, g.XPReward, g.CoinReward, g.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert goal: %w", err)
	}
	return nil
}

// Update rewrites the editable fields of the goal with g.ID. Completed
// goals are frozen and return ErrGoalCompleted. On success g carries the
// stored creation time.
func (s *GoalStore) Update(ctx context.Context, g *Goal) error {
	if err := validateGoal(g); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	cur, err := getGoal(ctx, tx, g.ID)
	if err != nil {
		return err
	}
	if cur.Completed() {
		return fmt.Errorf("%w: %s", ErrGoalCompleted, g.ID)
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE goals
		SET title = ?, description = ?, exercise = ?, target = ?, xp_reward = ?, coin_reward = ?
		WHERE goal_id = ?`,
		g.Title, g.Description, g.Exercise, g.Target, g.XPReward, g.CoinReward, g.ID,
	)
	if err != nil {
		return fmt.Errorf("update goal: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	g.CreatedAt = cur.CreatedAt
	g.CompletedAt = nil
	return nil
}

// Delete removes a goal. Rewards already paid stay in the profile.
func (s *GoalStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM goals WHERE goal_id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete goal: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete goal: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrGoalNotFound, id)
	}
	return nil
}

// List returns goals with open ones first, each group newest first.
func (s *GoalStore) List(ctx context.Context) ([]Goal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT goal_id, title, description, exercise, target, xp_reward, coin_reward, created_at_ms, completed_at_ms
		FROM goals
		ORDER BY completed_at_ms IS NOT NULL, created_at_ms DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("query goals: %w", err)
	}
	defer rows.Close()

	goals := []Goal{}
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		goals = append(goals, g)
	}
	return goals, rows.Err()
}

// Get returns one goal.
func (s *GoalStore) Get(ctx context.Context, id string) (Goal, error) {
	return getGoal(ctx, s.db, id)
}

// Complete marks the goal done and pays its reward into the profile in a
// single transaction.
func (s *GoalStore) Complete(ctx context.Context, id string) (Completion, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Completion{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	g, err := getGoal(ctx, tx, id)
	if err != nil {
		return Completion{}, err
	}
	if g.Completed() {
		return Completion{}, fmt.Errorf("%w: %s", ErrGoalCompleted, id)
	}

	done := s.now().UTC()
	if _, err := tx.ExecContext(ctx, `UPDATE goals SET completed_at_ms = ? WHERE goal_id = ?`, done.UnixMilli(), id); err != nil {
		return Completion{}, fmt.Errorf("update goal: %w", err)
	}
	g.CompletedAt = &done

	p, err := getProfile(ctx, tx)
	if err != nil {
		return Completion{}, err
	}
	gained := p.Award(g.XPReward, g.CoinReward)
	if _, err := tx.ExecContext(ctx, `UPDATE profile SET level = ?, xp = ?, coins = ? WHERE profile_id = 1`, p.Level, p.XP, p.Coins); err != nil {
		return Completion{}, fmt.Errorf("update profile: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Completion{}, fmt.Errorf("commit: %w", err)
	}
	if gained > 0 {
		monitoring.Logf("profile reached level %d", p.Level)
	}
	return Completion{Goal: g, Profile: p, LevelsGained: gained}, nil
}

// Profile returns the current user profile.
func (s *GoalStore) Profile(ctx context.Context) (l6levels.Profile, error) {
	return getProfile(ctx, s.db)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func getGoal(ctx context.Context, q queryer, id string) (Goal, error) {
	row := q.QueryRowContext(ctx, `
		SELECT goal_id, title, description, exercise, target, xp_reward, coin_reward, created_at_ms, completed_at_ms
		FROM goals WHERE goal_id = ?`, id)
	g, err := scanGoal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Goal{}, fmt.Errorf("%w: %s", ErrGoalNotFound, id)
	}
	return g, err
}

func getProfile(ctx context.Context, q queryer) (l6levels.Profile, error) {
	p := l6levels.NewProfile()
	err := q.QueryRowContext(ctx, `SELECT level, xp, coins FROM profile WHERE profile_id = 1`).Scan(&p.Level, &p.XP, &p.Coins)
	if errors.Is(err, sql.ErrNoRows) {
		return l6levels.NewProfile(), nil
	}
	if err != nil {
		return p, fmt.Errorf("query profile: %w", err)
	}
	p.XPToNextLevel = l6levels.XPToNextLevel(p.Level)
	return p, nil
}

func scanGoal(row scanner) (Goal, error) {
	var (
		g         Goal
		created   int64
		completed sql.NullInt64
	)
	if err := row.Scan(&g.ID, &g.Title, &g.Description, &g.Exercise, &g.Target, &g.XPReward, &g.CoinReward, &created, &completed); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return g, err
		}
		return g, fmt.Errorf("scan goal: %w", err)
	}
	g.CreatedAt = time.UnixMilli(created).UTC()
	if completed.Valid {
		t := time.UnixMilli(completed.Int64).UTC()
		g.CompletedAt = &t
	}
	return g, nil
}
