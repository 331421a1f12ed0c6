package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/reps.report/internal/monitoring"
	"github.com/banshee-data/reps.report/internal/pose/exercise"
	"github.com/banshee-data/reps.report/internal/pose/history"
	"github.com/banshee-data/reps.report/internal/pose/l1landmarks"
	"github.com/banshee-data/reps.report/internal/pose/l5phases"
	"github.com/banshee-data/reps.report/internal/pose/l6levels"
	"github.com/banshee-data/reps.report/internal/timeutil"
)

// ErrUnableToStart is returned when the frame source cannot be acquired.
var ErrUnableToStart = errors.New("unable to start")

// State is the controller lifecycle stage.
type State string

const (
	StateIdle      State = "idle"
	StateCountdown State = "countdown"
	StateRunning   State = "running"
	StatePaused    State = "paused"
	StateFinished  State = "finished"
	StateFailed    State = "failed"
)

// FrameSource produces landmark frames. Open acquires the underlying
// device or stream; Stream pushes frames until ctx is cancelled or the
// source is exhausted; Close releases it and may be called more than once.
type FrameSource interface {
	Open(ctx context.Context) error
	Stream(ctx context.Context, push func(*l1landmarks.Frame)) error
	Close() error
}

// ControllerConfig configures a Controller.
type ControllerConfig struct {
	// Definition is the exercise to count. Required.
	Definition *exercise.Definition

	// Clock drives countdown, stopwatch and phase guards. Defaults to the
	// real clock.
	Clock timeutil.Clock

	// Recorder persists the finished session. Optional.
	Recorder *Recorder

	// Sink receives session events. Optional.
	Sink EventSink

	// Countdown delays counting after Start. Zero starts immediately.
	Countdown time.Duration

	// TickInterval paces stopwatch tick events. Zero means one second;
	// negative disables ticks.
	TickInterval time.Duration

	// SessionID overrides the generated identifier.
	SessionID string
}

// Controller runs one session: it owns the frame pump, the lifecycle
// state and teardown. Offer may be called from any goroutine; frames are
// processed serially on the controller's own goroutine and only the most
// recent unprocessed frame is kept.
type Controller struct {
	cfg       ControllerConfig
	id        string
	clock     timeutil.Clock
	sink      EventSink
	stopwatch *timeutil.Stopwatch

	mu      sync.Mutex // guards the fields below
	state   State
	started bool
	latest  *l1landmarks.Frame
	cancel  context.CancelFunc
	source  FrameSource
	reason  FinishReason
	baseCtx context.Context

	sessMu     sync.Mutex
	session    *Session
	sessClosed bool // set by teardown; no frame is processed after it

	wake      chan struct{}
	ended     chan struct{}
	done      chan struct{}
	doneOnce  sync.Once
	wg        sync.WaitGroup
	finish    sync.Once
	record    *history.Record // guarded by mu
	recordErr error           // guarded by mu

	processed atomic.Uint64
	dropped   atomic.Uint64
}

// NewController validates cfg and returns an idle controller.
func NewController(cfg ControllerConfig) (*Controller, error) {
	if cfg.Definition == nil {
		return nil, errors.New("controller requires an exercise definition")
	}
	if cfg.Clock == nil {
		cfg.Clock = timeutil.RealClock{}
	}
	if cfg.TickInterval == 0 {
		cfg.TickInterval = time.Second
	}
	id := cfg.SessionID
	if id == "" {
		id = uuid.NewString()
	}
	sink := cfg.Sink
	if sink == nil {
		sink = MultiSink(nil)
	}
	return &Controller{
		cfg:       cfg,
		id:        id,
		clock:     cfg.Clock,
		sink:      sink,
		stopwatch: timeutil.NewStopwatch(cfg.Clock),
		state:     StateIdle,
		wake:      make(chan struct{}, 1),
		ended:     make(chan struct{}, 1),
		done:      make(chan struct{}),
		baseCtx:   context.Background(),
	}, nil
}

// ID is the session identifier.
func (c *Controller) ID() string { return c.id }

// State returns the lifecycle stage.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Done is closed once the session has been torn down or failed to start.
func (c *Controller) Done() <-chan struct{} { return c.done }

// Wait blocks until the controller's goroutines have exited.
func (c *Controller) Wait() { c.wg.Wait() }

// Processed counts frames that went through the counting layers.
func (c *Controller) Processed() uint64 { return c.processed.Load() }

// Dropped counts frames overwritten before processing or offered while
// not running.
func (c *Controller) Dropped() uint64 { return c.dropped.Load() }

// Start acquires src (which may be nil when frames arrive through Offer)
// and begins the session. ctx bounds the whole session: cancelling it
// tears the session down as an unload.
func (c *Controller) Start(ctx context.Context, src FrameSource) error {
	c.mu.Lock()
	if c.started {
		st := c.state
		c.mu.Unlock()
		return fmt.Errorf("session %s already %s", c.id, st)
	}
	c.started = true
	c.baseCtx = context.WithoutCancel(ctx)
	c.mu.Unlock()

	if src != nil {
		if err := src.Open(ctx); err != nil {
			monitoring.Logf("session %s: failed to open frame source: %v", c.id, err)
			c.mu.Lock()
			c.state = StateFailed
			c.mu.Unlock()
			c.emitState(StateFailed, err.Error())
			c.closeDone()
			return fmt.Errorf("%w: %v", ErrUnableToStart, err)
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.source = src
	c.cancel = cancel
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.run(runCtx, src)
	}()
	return nil
}

func (c *Controller) run(ctx context.Context, src FrameSource) {
	if !c.countdown(ctx) {
		return
	}
	if err := c.begin(); err != nil {
		monitoring.Logf("session %s: %v", c.id, err)
		return
	}
	if src != nil {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			c.stream(ctx, src)
		}()
	}
	c.loop(ctx)
}

// countdown waits out the configured delay, emitting the seconds left.
// It reports false when the session ended during the wait.
func (c *Controller) countdown(ctx context.Context) bool {
	d := c.cfg.Countdown
	if d <= 0 {
		return true
	}
	if !c.setState(StateCountdown) {
		return false
	}
	timer := c.clock.NewTimer(d)
	defer timer.Stop()
	ticker := c.clock.NewTicker(time.Second)
	defer ticker.Stop()

	remaining := int(math.Ceil(d.Seconds()))
	c.emit(Event{Kind: EventCountdown, Remaining: remaining})
	for {
		select {
		case <-timer.C():
			return true
		case <-ticker.C():
			remaining--
			if remaining > 0 {
				c.emit(Event{Kind: EventCountdown, Remaining: remaining})
			}
		case <-c.done:
			return false
		case <-ctx.Done():
			c.Finish(c.base(), ReasonUnload)
			return false
		}
	}
}

// begin creates the session state at the moment counting starts.
func (c *Controller) begin() error {
	sess, err := NewSession(c.id, c.cfg.Definition, c.clock.Now(), c.sink)
	if err != nil {
		c.mu.Lock()
		c.state = StateFailed
		c.mu.Unlock()
		c.closeDone()
		return fmt.Errorf("failed to create session: %w", err)
	}
	c.sessMu.Lock()
	c.session = sess
	c.sessMu.Unlock()
	c.stopwatch.Start()
	if !c.setState(StateRunning) {
		return errors.New("session finished before it started")
	}
	c.emit(Event{Kind: EventPhaseChanged, Phase: sess.Phase(), Status: sess.Status()})
	return nil
}

func (c *Controller) stream(ctx context.Context, src FrameSource) {
	err := src.Stream(ctx, c.Offer)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		monitoring.Logf("session %s: frame source stopped: %v", c.id, err)
	}
	select {
	case c.ended <- struct{}{}:
	default:
	}
}

func (c *Controller) loop(ctx context.Context) {
	var tick <-chan time.Time
	if c.cfg.TickInterval > 0 {
		t := c.clock.NewTicker(c.cfg.TickInterval)
		defer t.Stop()
		tick = t.C()
	}
	for {
		select {
		case <-c.done:
			return
		case <-ctx.Done():
			c.Finish(c.base(), ReasonUnload)
			return
		case <-c.wake:
			c.processLatest()
		case <-c.ended:
			c.processLatest()
			c.Finish(c.base(), ReasonSourceEnded)
			return
		case <-tick:
			if c.State() == StateRunning {
				c.emit(Event{Kind: EventTick, Elapsed: l6levels.FormatTime(c.stopwatch.Elapsed())})
			}
		}
	}
}

func (c *Controller) processLatest() {
	c.mu.Lock()
	f := c.latest
	c.latest = nil
	running := c.state == StateRunning
	c.mu.Unlock()
	if f == nil || !running {
		return
	}

	c.sessMu.Lock()
	if c.session == nil || c.sessClosed {
		c.sessMu.Unlock()
		return
	}
	res, err := c.session.Process(f, c.clock.Now())
	c.sessMu.Unlock()
	c.processed.Add(1)

	if err != nil && !errors.Is(err, l1landmarks.ErrIncompleteFrame) {
		monitoring.Logf("session %s: frame error: %v", c.id, err)
	}
	if res.SessionCompleted {
		c.Finish(c.base(), ReasonMaxLevel)
	}
}

// Offer hands a frame to the pump without blocking. An unprocessed frame
// already waiting is replaced and counted as dropped. Frames offered while
// the session is not running are dropped.
func (c *Controller) Offer(f *l1landmarks.Frame) {
	if f == nil {
		return
	}
	c.mu.Lock()
	if c.state != StateRunning {
		c.mu.Unlock()
		c.dropped.Add(1)
		return
	}
	if c.latest != nil {
		c.dropped.Add(1)
	}
	c.latest = f
	c.mu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// Pause stops counting and the stopwatch.
func (c *Controller) Pause() error {
	c.mu.Lock()
	if c.state != StateRunning {
		st := c.state
		c.mu.Unlock()
		return fmt.Errorf("cannot pause a %s session", st)
	}
	c.state = StatePaused
	c.latest = nil
	c.mu.Unlock()

	c.stopwatch.Pause()
	c.emitState(StatePaused, "")
	return nil
}

// Resume continues a paused session. Buffered classifications from before
// the pause are discarded.
func (c *Controller) Resume() error {
	c.mu.Lock()
	if c.state != StatePaused {
		st := c.state
		c.mu.Unlock()
		return fmt.Errorf("cannot resume a %s session", st)
	}
	c.state = StateRunning
	c.mu.Unlock()

	c.sessMu.Lock()
	if c.session != nil {
		c.session.ResetStability()
	}
	c.sessMu.Unlock()
	c.stopwatch.Resume()
	c.emitState(StateRunning, "")
	return nil
}

// Finish tears the session down: the source is released, the pump stops
// and the final count is recorded when above zero. It is safe to call
// more than once and from any goroutine; later calls return the first
// call's result.
func (c *Controller) Finish(ctx context.Context, reason FinishReason) (*history.Record, error) {
	c.finish.Do(func() { c.teardown(ctx, reason) })
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.record, c.recordErr
}

func (c *Controller) teardown(ctx context.Context, reason FinishReason) {
	c.mu.Lock()
	prev := c.state
	if prev != StateFailed {
		c.state = StateFinished
	}
	c.reason = reason
	c.latest = nil
	cancel, src := c.cancel, c.source
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	c.closeDone()
	if src != nil {
		if err := src.Close(); err != nil {
			monitoring.Logf("session %s: failed to close frame source: %v", c.id, err)
		}
	}
	elapsed := c.stopwatch.Stop()

	c.sessMu.Lock()
	count := c.closeSessionLocked()
	c.sessMu.Unlock()

	if prev != StateFailed {
		rec, err := c.cfg.Recorder.Record(ctx, Summary{
			SessionID: c.id,
			Type:      c.cfg.Definition.Type,
			Count:     count,
			Duration:  elapsed,
			EndedAt:   c.clock.Now(),
			Reason:    reason,
		})
		c.mu.Lock()
		c.record, c.recordErr = rec, err
		c.mu.Unlock()
		c.emit(Event{Kind: EventStateChanged, State: StateFinished, Count: count, Status: string(reason)})
	}
}

// closeSessionLocked stops frame processing and releases filter state,
// returning the final count. c.sessMu must be held.
func (c *Controller) closeSessionLocked() int {
	c.sessClosed = true
	if c.session == nil {
		return 0
	}
	c.session.ResetStability()
	return c.session.Count()
}

func (c *Controller) closeDone() {
	c.doneOnce.Do(func() { close(c.done) })
}

func (c *Controller) base() context.Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.baseCtx
}

// setState moves to s unless the session already ended.
func (c *Controller) setState(s State) bool {
	c.mu.Lock()
	if c.state == StateFinished || c.state == StateFailed {
		c.mu.Unlock()
		return false
	}
	c.state = s
	c.mu.Unlock()
	c.emitState(s, "")
	return true
}

func (c *Controller) emitState(s State, msg string) {
	c.emit(Event{Kind: EventStateChanged, State: s, Error: msg})
}

func (c *Controller) emit(ev Event) {
	ev.SessionID = c.id
	if ev.At.IsZero() {
		ev.At = c.clock.Now()
	}
	c.sink.Emit(ev)
}

// Snapshot is a point-in-time view of a session for display.
type Snapshot struct {
	ID         string          `json:"id"`
	Type       exercise.Type   `json:"type"`
	Name       string          `json:"name"`
	State      State           `json:"state"`
	Phase      l5phases.Phase  `json:"phase"`
	Status     string          `json:"status"`
	Count      int             `json:"count"`
	Level      int             `json:"level"`
	Goal       int             `json:"goal"`
	Progress   float64         `json:"progress"`
	Completed  []bool          `json:"completed_levels"`
	Elapsed    string          `json:"elapsed"`
	ElapsedSec int             `json:"elapsed_sec"`
	Processed  uint64          `json:"frames_processed"`
	Dropped    uint64          `json:"frames_dropped"`
	Skipped    uint64          `json:"frames_skipped"`
	Reason     FinishReason    `json:"reason,omitempty"`
	Verdict    string          `json:"verdict,omitempty"`
	Record     *history.Record `json:"record,omitempty"`
}

// Snapshot reports the current session view.
func (c *Controller) Snapshot() Snapshot {
	def := c.cfg.Definition
	c.mu.Lock()
	state, reason, record := c.state, c.reason, c.record
	c.mu.Unlock()

	elapsed := c.stopwatch.Elapsed()
	snap := Snapshot{
		ID:         c.id,
		Type:       def.Type,
		Name:       def.Name,
		State:      state,
		Phase:      def.Graph.Initial,
		Status:     def.Graph.Idle[def.Graph.Initial],
		Level:      1,
		Goal:       def.LevelGoals[0],
		Completed:  make([]bool, len(def.LevelGoals)),
		Elapsed:    l6levels.FormatTime(elapsed),
		ElapsedSec: int(elapsed / time.Second),
		Processed:  c.processed.Load(),
		Dropped:    c.dropped.Load(),
		Reason:     reason,
	}

	c.sessMu.Lock()
	if s := c.session; s != nil {
		snap.Phase = s.Phase()
		snap.Status = s.Status()
		snap.Count = s.Count()
		snap.Level = s.Levels().Current() + 1
		snap.Goal = s.Levels().Goal()
		snap.Progress = s.Levels().Progress(snap.Count)
		snap.Completed = s.Levels().Completed()
		snap.Skipped = s.Skipped()
	}
	c.sessMu.Unlock()

	if state == StateFinished {
		snap.Verdict = l6levels.Evaluate(snap.Count, def.LevelGoals)
		snap.Record = record
	}
	return snap
}
