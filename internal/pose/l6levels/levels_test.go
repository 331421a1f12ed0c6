package l6levels

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestTrackerProgression(t *testing.T) {
	t.Parallel()

	tr, err := NewTracker([]int{10, 20, 30})
	require.NoError(t, err)

	var events []Event
	for count := 1; count <= 35; count++ {
		events = append(events, tr.Update(count)...)
	}

	want := []Event{
		{Kind: EventLevelCompleted, LevelIndex: 0, NextGoal: intPtr(20)},
		{Kind: EventLevelCompleted, LevelIndex: 1, NextGoal: intPtr(30)},
		{Kind: EventLevelCompleted, LevelIndex: 2},
		{Kind: EventSessionCompleted, LevelIndex: 2, FinalCount: 30},
	}
	if diff := cmp.Diff(want, events); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, tr.Done())
	assert.Equal(t, []bool{true, true, true}, tr.Completed())
}

func TestTrackerOneLevelPerUpdate(t *testing.T) {
	t.Parallel()

	tr, err := NewTracker([]int{2, 4})
	require.NoError(t, err)

	ev := tr.Update(9)
	require.Len(t, ev, 1)
	assert.Equal(t, 0, ev[0].LevelIndex)
	assert.Equal(t, 1, tr.Current())

	ev = tr.Update(9)
	require.Len(t, ev, 2)
	assert.Equal(t, EventSessionCompleted, ev[1].Kind)

	assert.Empty(t, tr.Update(10), "nothing fires after the session completes")
}

func TestTrackerRejectsBadGoals(t *testing.T) {
	t.Parallel()

	for _, goals := range [][]int{nil, {}, {0, 5}, {5, 5}, {10, 5}, {-1}} {
		_, err := NewTracker(goals)
		assert.ErrorIs(t, err, ErrInvalidGoals, "goals %v", goals)
	}
}

func TestProgress(t *testing.T) {
	t.Parallel()

	goals := []int{20, 45, 60}
	assert.Equal(t, 50.0, Progress(goals, 0, 10))
	assert.Equal(t, 20.0, Progress(goals, 1, 25))
	assert.Equal(t, 100.0, Progress(goals, 0, 40))
	assert.Equal(t, 0.0, Progress(goals, 1, 3))
	assert.Equal(t, 0.0, Progress(goals, 7, 3))

	tr, err := NewTracker(goals)
	require.NoError(t, err)
	assert.Equal(t, 50.0, tr.Progress(10))
	tr.Update(20)
	assert.Equal(t, 45, tr.Goal())
	assert.Equal(t, 20.0, tr.Progress(25))
	assert.Equal(t, []int{20, 45, 60}, tr.Goals())
}

func TestFormatTime(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "00:00", FormatTime(0))
	assert.Equal(t, "00:59", FormatTime(59*time.Second+900*time.Millisecond))
	assert.Equal(t, "01:05", FormatTime(65*time.Second))
	assert.Equal(t, "61:01", FormatTime(61*time.Minute+time.Second))
	assert.Equal(t, "00:00", FormatTime(-time.Second))
}

func TestEvaluate(t *testing.T) {
	t.Parallel()

	goals := []int{20, 45, 60}
	assert.Equal(t, VerdictExcellent, Evaluate(60, goals))
	assert.Equal(t, VerdictGreat, Evaluate(59, goals))
	assert.Equal(t, VerdictGood, Evaluate(20, goals))
	assert.Equal(t, VerdictKeepGoing, Evaluate(19, goals))
	assert.Equal(t, VerdictExcellent, Evaluate(3, []int{3}))
	assert.Equal(t, VerdictKeepGoing, Evaluate(3, nil))
}

func TestXPCurve(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 100, XPToNextLevel(1))
	assert.Equal(t, 120, XPToNextLevel(2))
	assert.Equal(t, 144, XPToNextLevel(3))
	assert.Equal(t, 172, XPToNextLevel(4))
	assert.Equal(t, 100, XPToNextLevel(0))
}

func TestProfileAward(t *testing.T) {
	t.Parallel()

	p := NewProfile()
	assert.Equal(t, 0, p.Award(50, 5))
	assert.Equal(t, Profile{Level: 1, XP: 50, Coins: 5, XPToNextLevel: 100}, p)

	// 50 + 300 pays for level 1 (100) and level 2 (120), leaving 130 < 144.
	assert.Equal(t, 2, p.Award(300, 10))
	assert.Equal(t, Profile{Level: 3, XP: 130, Coins: 15, XPToNextLevel: 144}, p)

	var zero Profile
	zero.Award(100, 0)
	assert.Equal(t, 2, zero.Level)
}
