package l6levels

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidGoals is returned for an empty or non-increasing goal list.
var ErrInvalidGoals = errors.New("level goals must be positive and strictly increasing")

// EventKind distinguishes level events.
type EventKind string

const (
	EventLevelCompleted   EventKind = "level_completed"
	EventSessionCompleted EventKind = "session_completed"
)

// Event is emitted by Tracker.Update.
type Event struct {
	Kind       EventKind `json:"kind"`
	LevelIndex int       `json:"level_index"`
	NextGoal   *int      `json:"next_goal,omitempty"`
	FinalCount int       `json:"final_count,omitempty"`
}

// Tracker maps a rep count onto level goals. Levels complete strictly in
// order, at most one per Update.
type Tracker struct {
	goals     []int
	completed []bool
	current   int
	done      bool
}

// NewTracker validates goals and starts at level 0.
func NewTracker(goals []int) (*Tracker, error) {
	if len(goals) == 0 {
		return nil, ErrInvalidGoals
	}
	for i, g := range goals {
		if g <= 0 || (i > 0 && g <= goals[i-1]) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidGoals, goals)
		}
	}
	return &Tracker{
		goals:     append([]int(nil), goals...),
		completed: make([]bool, len(goals)),
	}, nil
}

// Update reacts to a new count. It completes the current level when its
// goal is reached; completing the last level also completes the session.
func (t *Tracker) Update(count int) []Event {
	if t.done || count < t.goals[t.current] || t.completed[t.current] {
		return nil
	}
	t.completed[t.current] = true
	idx := t.current
	if idx == len(t.goals)-1 {
		t.done = true
		return []Event{
			{Kind: EventLevelCompleted, LevelIndex: idx},
			{Kind: EventSessionCompleted, LevelIndex: idx, FinalCount: count},
		}
	}
	t.current++
	next := t.goals[t.current]
	return []Event{{Kind: EventLevelCompleted, LevelIndex: idx, NextGoal: &next}}
}

// Current is the index of the level being worked on.
func (t *Tracker) Current() int { return t.current }

// Goal is the target of the current level.
func (t *Tracker) Goal() int { return t.goals[t.current] }

// Goals returns a copy of every level's target.
func (t *Tracker) Goals() []int { return append([]int(nil), t.goals...) }

// Completed returns a copy of the per-level completion flags.
func (t *Tracker) Completed() []bool { return append([]bool(nil), t.completed...) }

// Done reports whether the last level has been completed.
func (t *Tracker) Done() bool { return t.done }

// Progress is the percentage of the current level achieved by count,
// measured from the previous level's goal and clamped to [0,100].
func (t *Tracker) Progress(count int) float64 {
	return Progress(t.goals, t.current, count)
}

// Progress computes the percentage for level idx of goals.
func Progress(goals []int, idx, count int) float64 {
	if idx < 0 || idx >= len(goals) {
		return 0
	}
	prev := 0
	if idx > 0 {
		prev = goals[idx-1]
	}
	span := goals[idx] - prev
	if span <= 0 {
		return 100
	}
	pct := float64(count-prev) / float64(span) * 100
	return math.Max(0, math.Min(100, pct))
}
