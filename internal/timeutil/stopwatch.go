package timeutil

import (
	"sync"
	"time"
)

// Stopwatch measures running time, excluding paused spans.
type Stopwatch struct {
	clock Clock

	mu       sync.Mutex
	started  time.Time
	pausedAt time.Time
	paused   time.Duration
	running  bool
	stopped  bool
	final    time.Duration
}

// NewStopwatch returns an unstarted stopwatch.
func NewStopwatch(clock Clock) *Stopwatch {
	if clock == nil {
		clock = RealClock{}
	}
	return &Stopwatch{clock: clock}
}

// Start begins timing. Starting twice is a no-op.
func (s *Stopwatch) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started.IsZero() {
		return
	}
	s.started = s.clock.Now()
	s.running = true
}

// Pause stops the clock until Resume.
func (s *Stopwatch) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.pausedAt = s.clock.Now()
	s.running = false
}

// Resume continues after Pause.
func (s *Stopwatch) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running || s.stopped || s.pausedAt.IsZero() {
		return
	}
	s.paused += s.clock.Since(s.pausedAt)
	s.pausedAt = time.Time{}
	s.running = true
}

// Stop freezes the reading.
func (s *Stopwatch) Stop() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.stopped {
		s.final = s.elapsedLocked()
		s.stopped = true
		s.running = false
	}
	return s.final
}

// Elapsed is the running time so far.
func (s *Stopwatch) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return s.final
	}
	return s.elapsedLocked()
}

func (s *Stopwatch) elapsedLocked() time.Duration {
	if s.started.IsZero() {
		return 0
	}
	end := s.clock.Now()
	if !s.running && !s.pausedAt.IsZero() {
		end = s.pausedAt
	}
	return end.Sub(s.started) - s.paused
}
