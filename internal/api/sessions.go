package api

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/banshee-data/reps.report/internal/monitoring"
	"github.com/banshee-data/reps.report/internal/pose/exercise"
	"github.com/banshee-data/reps.report/internal/pose/pipeline"
	"github.com/banshee-data/reps.report/internal/timeutil"
)

var (
	// ErrSessionNotFound is returned for an unknown or evicted session ID.
	ErrSessionNotFound = errors.New("session not found")
	// ErrShuttingDown is returned by Create once Shutdown has begun.
	ErrShuttingDown = errors.New("session manager is shutting down")
)

const (
	defaultMaxFinished = 16
	defaultEventBuffer = 64
)

// ManagerConfig configures a Manager.
type ManagerConfig struct {
	Registry *exercise.Registry
	Recorder *pipeline.Recorder
	Clock    timeutil.Clock

	// MaxFinished is how many finished sessions stay readable.
	MaxFinished int
	// EventBuffer is the per-subscriber event channel capacity.
	EventBuffer int
	// TickInterval is passed through to each controller.
	TickInterval time.Duration
}

// Session is a running or finished controller with its event fan-out.
type Session struct {
	*pipeline.Controller
	events *pipeline.Broadcaster
}

// Subscribe registers an event listener. The channel closes when the
// session has been torn down.
func (s *Session) Subscribe() (string, <-chan pipeline.Event) {
	return s.events.Subscribe()
}

// Unsubscribe removes a listener registered with Subscribe.
func (s *Session) Unsubscribe(id string) {
	s.events.Unsubscribe(id)
}

// Manager owns the sessions created over HTTP.
type Manager struct {
	cfg ManagerConfig
	ctx context.Context

	mu       sync.Mutex
	sessions map[string]*Session
	order    []string // creation order
	finished []string // oldest first
	closing  bool

	wg sync.WaitGroup
}

// NewManager returns a Manager whose sessions live at most as long as ctx.
func NewManager(ctx context.Context, cfg ManagerConfig) (*Manager, error) {
	if cfg.Registry == nil {
		return nil, errors.New("session manager requires an exercise registry")
	}
	if cfg.Clock == nil {
		cfg.Clock = timeutil.RealClock{}
	}
	if cfg.MaxFinished <= 0 {
		cfg.MaxFinished = defaultMaxFinished
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = defaultEventBuffer
	}
	return &Manager{
		cfg:      cfg,
		ctx:      ctx,
		sessions: make(map[string]*Session),
	}, nil
}

// Create starts a session for typ. A nil countdown uses the configured
// default. src may be nil for sessions fed through Offer.
func (m *Manager) Create(typ exercise.Type, countdown *time.Duration, src pipeline.FrameSource) (*Session, error) {
	def, err := m.cfg.Registry.Lookup(typ)
	if err != nil {
		return nil, err
	}
	cd := m.cfg.Registry.Countdown()
	if countdown != nil {
		if *countdown < 0 {
			return nil, fmt.Errorf("countdown must not be negative: %v", *countdown)
		}
		cd = *countdown
	}

	events := pipeline.NewBroadcaster(m.cfg.EventBuffer)
	c, err := pipeline.NewController(pipeline.ControllerConfig{
		Definition:   def,
		Clock:        m.cfg.Clock,
		Recorder:     m.cfg.Recorder,
		Sink:         pipeline.MultiSink{pipeline.LogSink{}, events},
		Countdown:    cd,
		TickInterval: m.cfg.TickInterval,
	})
	if err != nil {
		return nil, err
	}
	s := &Session{Controller: c, events: events}

	m.mu.Lock()
	if m.closing {
		m.mu.Unlock()
		return nil, ErrShuttingDown
	}
	m.sessions[c.ID()] = s
	m.order = append(m.order, c.ID())
	m.wg.Add(1)
	m.mu.Unlock()

	if err := c.Start(m.ctx, src); err != nil {
		m.wg.Done()
		m.remove(c.ID())
		return nil, err
	}
	go m.watch(s)

	monitoring.Logf("session %s: created %s (countdown %v)", c.ID(), def.Type, cd)
	return s, nil
}

// watch closes the session's event stream once teardown has completed
// and retires it to the finished list.
func (m *Manager) watch(s *Session) {
	defer m.wg.Done()
	<-s.Done()
	// Finish is once-only: this waits for the teardown already under way.
	_, _ = s.Finish(context.WithoutCancel(m.ctx), pipeline.ReasonUnload)
	s.Wait()
	s.events.Close()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.finished = append(m.finished, s.ID())
	for len(m.finished) > m.cfg.MaxFinished {
		oldest := m.finished[0]
		m.finished = m.finished[1:]
		m.removeLocked(oldest)
	}
}

// Get returns a session by ID.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return s, nil
}

// List returns snapshots of every known session, oldest first.
func (m *Manager) List() []pipeline.Snapshot {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.order))
	for _, id := range m.order {
		sessions = append(sessions, m.sessions[id])
	}
	m.mu.Unlock()

	out := make([]pipeline.Snapshot, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s.Snapshot())
	}
	return out
}

// Shutdown finishes every active session as an unload and waits for
// their teardown, or for ctx.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	m.closing = true
	active := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		active = append(active, s)
	}
	m.mu.Unlock()

	for _, s := range active {
		if _, err := s.Finish(ctx, pipeline.ReasonUnload); err != nil {
			monitoring.Logf("session %s: failed to record on shutdown: %v", s.ID(), err)
		}
	}

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeLocked(id)
}

func (m *Manager) removeLocked(id string) {
	delete(m.sessions, id)
	for i, v := range m.order {
		if v == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}
