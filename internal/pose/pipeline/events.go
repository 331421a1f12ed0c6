package pipeline

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/reps.report/internal/monitoring"
	"github.com/banshee-data/reps.report/internal/pose/l5phases"
)

// EventKind names what happened.
type EventKind string

const (
	EventPhaseChanged     EventKind = "phase_changed"
	EventRepCompleted     EventKind = "rep_completed"
	EventLevelCompleted   EventKind = "level_completed"
	EventSessionCompleted EventKind = "session_completed"
	EventFrameSkipped     EventKind = "frame_skipped"
	EventStateChanged     EventKind = "state_changed"
	EventCountdown        EventKind = "countdown"
	EventTick             EventKind = "tick"
)

// Event is delivered to sinks. Only the fields relevant to Kind are set.
type Event struct {
	Kind       EventKind      `json:"kind"`
	SessionID  string         `json:"session_id"`
	At         time.Time      `json:"at"`
	Count      int            `json:"count,omitempty"`
	From       l5phases.Phase `json:"from,omitempty"`
	Phase      l5phases.Phase `json:"phase,omitempty"`
	Status     string         `json:"status,omitempty"`
	LevelIndex int            `json:"level_index"`
	NextGoal   *int           `json:"next_goal,omitempty"`
	State      State          `json:"state,omitempty"`
	Remaining  int            `json:"remaining,omitempty"`
	Elapsed    string         `json:"elapsed,omitempty"`
	Error      string         `json:"error,omitempty"`
}

// EventSink receives session events. Emit is called from the processing
// goroutine and must not block.
type EventSink interface {
	Emit(Event)
}

// SinkFunc adapts a function to EventSink.
type SinkFunc func(Event)

// Emit calls f(ev).
func (f SinkFunc) Emit(ev Event) { f(ev) }

// MultiSink fans each event out to every sink in order.
type MultiSink []EventSink

// Emit forwards ev to each non-nil sink.
func (m MultiSink) Emit(ev Event) {
	for _, s := range m {
		if s != nil {
			s.Emit(ev)
		}
	}
}

// LogSink logs milestones through monitoring.Logf and per-frame detail
// through monitoring.Tracef.
type LogSink struct{}

// Emit logs ev.
func (LogSink) Emit(ev Event) {
	switch ev.Kind {
	case EventRepCompleted:
		monitoring.Logf("session %s: rep %d", ev.SessionID, ev.Count)
	case EventLevelCompleted:
		monitoring.Logf("session %s: level %d complete", ev.SessionID, ev.LevelIndex+1)
	case EventSessionCompleted:
		monitoring.Logf("session %s: all levels complete with %d reps", ev.SessionID, ev.Count)
	case EventStateChanged:
		monitoring.Logf("session %s: %s", ev.SessionID, ev.State)
	case EventFrameSkipped:
		monitoring.Tracef("session %s: frame skipped: %s", ev.SessionID, ev.Error)
	default:
		monitoring.Tracef("session %s: %s %s %s", ev.SessionID, ev.Kind, ev.Phase, ev.Status)
	}
}

// Broadcaster fans events out to subscriber channels. Slow subscribers
// miss events rather than stall the pipeline.
type Broadcaster struct {
	mu     sync.Mutex
	subs   map[string]chan Event
	buffer int
	closed bool
}

// NewBroadcaster gives each subscriber a channel of the given capacity.
func NewBroadcaster(buffer int) *Broadcaster {
	if buffer < 1 {
		buffer = 1
	}
	return &Broadcaster{subs: make(map[string]chan Event), buffer: buffer}
}

// Subscribe registers a new subscriber. The channel is closed by
// Unsubscribe or Close.
func (b *Broadcaster) Subscribe() (string, <-chan Event) {
	id := uuid.NewString()
	ch := make(chan Event, b.buffer)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return id, ch
	}
	b.subs[id] = ch
	return id, ch
}

// Unsubscribe removes and closes a subscriber.
func (b *Broadcaster) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.subs[id]; ok {
		close(ch)
		delete(b.subs, id)
	}
}

// Emit delivers ev to every subscriber with room for it.
func (b *Broadcaster) Emit(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			// subscriber is behind; drop rather than block processing
		}
	}
}

// Close closes every subscriber; later subscriptions are closed at once.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	for id, ch := range b.subs {
		close(ch)
		delete(b.subs, id)
	}
}
