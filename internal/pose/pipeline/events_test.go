package pipeline

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/reps.report/internal/monitoring"
)

func TestBroadcaster(t *testing.T) {
	t.Parallel()

	b := NewBroadcaster(2)
	id1, ch1 := b.Subscribe()
	id2, ch2 := b.Subscribe()
	assert.NotEqual(t, id1, id2)

	b.Emit(Event{Kind: EventRepCompleted, Count: 1})
	assert.Equal(t, 1, (<-ch1).Count)
	assert.Equal(t, 1, (<-ch2).Count)

	// A full subscriber misses events instead of blocking the sender.
	for i := 2; i <= 5; i++ {
		b.Emit(Event{Kind: EventRepCompleted, Count: i})
	}
	assert.Len(t, ch1, 2)
	assert.Equal(t, 2, (<-ch1).Count)
	assert.Equal(t, 3, (<-ch1).Count)

	b.Unsubscribe(id1)
	_, ok := <-ch1
	assert.False(t, ok)
	b.Unsubscribe(id1)

	b.Close()
	for range ch2 {
	}
	_, ch3 := b.Subscribe()
	_, ok = <-ch3
	assert.False(t, ok)
	b.Emit(Event{Kind: EventTick})
}

func TestMultiSink(t *testing.T) {
	t.Parallel()

	var got []string
	sink := MultiSink{
		SinkFunc(func(ev Event) { got = append(got, "a:"+string(ev.Kind)) }),
		nil,
		SinkFunc(func(ev Event) { got = append(got, "b:"+string(ev.Kind)) }),
	}
	sink.Emit(Event{Kind: EventTick})
	assert.Equal(t, []string{"a:tick", "b:tick"}, got)
}

func TestLogSink(t *testing.T) {
	var lines []string
	monitoring.SetLogger(func(format string, v ...interface{}) {
		lines = append(lines, format)
	})
	t.Cleanup(func() { monitoring.SetLogger(nil) })

	var s LogSink
	s.Emit(Event{Kind: EventRepCompleted, SessionID: "s", Count: 3})
	s.Emit(Event{Kind: EventFrameSkipped, SessionID: "s", Error: "missing"})
	require.Len(t, lines, 1)
	assert.True(t, strings.Contains(lines[0], "rep"))

	monitoring.SetTracing(true)
	t.Cleanup(func() { monitoring.SetTracing(false) })
	s.Emit(Event{Kind: EventFrameSkipped, SessionID: "s", Error: "missing"})
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[1], "[trace] "))
}

func TestEventKeepsFirstLevelIndex(t *testing.T) {
	t.Parallel()

	b, err := json.Marshal(Event{Kind: EventLevelCompleted, LevelIndex: 0, Count: 10})
	require.NoError(t, err)
	assert.Contains(t, string(b), `"level_index":0`)
}
