package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/reps.report/internal/fsutil"
	"github.com/banshee-data/reps.report/internal/pose/exercise"
	"github.com/banshee-data/reps.report/internal/pose/history"
	"github.com/banshee-data/reps.report/internal/pose/l1landmarks"
	"github.com/banshee-data/reps.report/internal/pose/l5phases"
	"github.com/banshee-data/reps.report/internal/testutil"
	"github.com/banshee-data/reps.report/internal/timeutil"
)

type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *recordingSink) Emit(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *recordingSink) kinds(kind EventKind) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Event
	for _, ev := range s.events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

type fakeSource struct {
	openErr error
	frames  []*l1landmarks.Frame
	block   bool

	mu     sync.Mutex
	closed int
}

func (s *fakeSource) Open(context.Context) error { return s.openErr }

func (s *fakeSource) Stream(ctx context.Context, push func(*l1landmarks.Frame)) error {
	for _, f := range s.frames {
		push(f)
	}
	if s.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}

func (s *fakeSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

func (s *fakeSource) closeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

type controllerFixture struct {
	c     *Controller
	clock *timeutil.MockClock
	store *history.FileStore
	sink  *recordingSink
}

func newController(t *testing.T, def *exercise.Definition, countdown time.Duration) *controllerFixture {
	t.Helper()
	fx := &controllerFixture{
		clock: timeutil.NewMockClock(t0),
		store: history.NewFileStore(fsutil.NewMemoryFileSystem(), "/history.json"),
		sink:  &recordingSink{},
	}
	c, err := NewController(ControllerConfig{
		Definition:   def,
		Clock:        fx.clock,
		Recorder:     NewRecorder(fx.store),
		Sink:         fx.sink,
		Countdown:    countdown,
		TickInterval: -1,
		SessionID:    "ctl",
	})
	require.NoError(t, err)
	fx.c = c
	return fx
}

func (fx *controllerFixture) waitState(t *testing.T, want State) {
	t.Helper()
	require.Eventually(t, func() bool { return fx.c.State() == want }, 2*time.Second, time.Millisecond)
}

// offer hands n frames to the controller one at a time, waiting for each
// to be processed.
func (fx *controllerFixture) offer(t *testing.T, pose poseFunc, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		fx.clock.Advance(frameInterval)
		want := fx.c.Processed() + 1
		fx.c.Offer(pose(fx.clock.Now()))
		require.Eventually(t, func() bool { return fx.c.Processed() >= want }, 2*time.Second, time.Millisecond)
	}
}

func (fx *controllerFixture) pushup(t *testing.T) {
	t.Helper()
	fx.offer(t, testutil.PushupBottomPose, 10)
	fx.offer(t, testutil.PlankPose, 10)
}

func TestControllerCountsAndRecordsOnce(t *testing.T) {
	t.Parallel()

	fx := newController(t, definition(t, exercise.TypePushups), 0)
	ctx := context.Background()
	require.NoError(t, fx.c.Start(ctx, nil))
	fx.waitState(t, StateRunning)

	fx.offer(t, testutil.PlankPose, 10)
	fx.pushup(t)
	fx.pushup(t)

	snap := fx.c.Snapshot()
	assert.Equal(t, 2, snap.Count)
	assert.Equal(t, l5phases.PhaseGoingDown, snap.Phase)
	assert.Equal(t, 1, snap.Level)
	assert.Equal(t, 10, snap.Goal)
	assert.InDelta(t, 20.0, snap.Progress, 1e-9)

	rec, err := fx.c.Finish(ctx, ReasonFinished)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, 2, rec.Count)
	assert.Equal(t, "pushups", rec.Type)
	assert.Equal(t, "finished", rec.Reason)

	again, err := fx.c.Finish(ctx, ReasonUnload)
	require.NoError(t, err)
	assert.Same(t, rec, again)

	all, err := fx.store.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	<-fx.c.Done()
	fx.c.Wait()
	assert.Equal(t, StateFinished, fx.c.State())

	snap = fx.c.Snapshot()
	assert.Equal(t, ReasonFinished, snap.Reason)
	assert.Equal(t, "Keep practicing", snap.Verdict)
	assert.Equal(t, rec, snap.Record)

	dropped := fx.c.Dropped()
	fx.c.Offer(testutil.PlankPose(fx.clock.Now()))
	assert.Equal(t, dropped+1, fx.c.Dropped())

	assert.Error(t, fx.c.Start(ctx, nil))
}

func TestControllerFinishWithoutRepsSavesNothing(t *testing.T) {
	t.Parallel()

	fx := newController(t, definition(t, exercise.TypeHandsUp), 0)
	ctx := context.Background()
	require.NoError(t, fx.c.Start(ctx, nil))
	fx.waitState(t, StateRunning)
	fx.offer(t, testutil.StandingPose, 3)

	rec, err := fx.c.Finish(ctx, ReasonHidden)
	require.NoError(t, err)
	assert.Nil(t, rec)
	all, err := fx.store.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	finished := fx.sink.kinds(EventStateChanged)
	require.NotEmpty(t, finished)
	last := finished[len(finished)-1]
	assert.Equal(t, StateFinished, last.State)
	assert.Equal(t, "hidden", last.Status)
}

func TestControllerUnableToStart(t *testing.T) {
	t.Parallel()

	fx := newController(t, definition(t, exercise.TypePushups), 0)
	src := &fakeSource{openErr: errors.New("camera busy")}
	err := fx.c.Start(context.Background(), src)
	require.ErrorIs(t, err, ErrUnableToStart)
	assert.Contains(t, err.Error(), "camera busy")
	assert.Equal(t, StateFailed, fx.c.State())

	select {
	case <-fx.c.Done():
	default:
		t.Fatal("done should be closed after a failed start")
	}

	rec, err := fx.c.Finish(context.Background(), ReasonFinished)
	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.Equal(t, StateFailed, fx.c.State())
}

func TestControllerSourceEnded(t *testing.T) {
	t.Parallel()

	fx := newController(t, definition(t, exercise.TypePushups), 0)
	src := &fakeSource{frames: []*l1landmarks.Frame{testutil.PlankPose(t0)}}
	require.NoError(t, fx.c.Start(context.Background(), src))

	<-fx.c.Done()
	fx.c.Wait()

	assert.Equal(t, StateFinished, fx.c.State())
	assert.Equal(t, uint64(1), fx.c.Processed())
	assert.Equal(t, ReasonSourceEnded, fx.c.Snapshot().Reason)
	assert.Equal(t, 1, src.closeCount())
}

func TestControllerDropsStaleFrames(t *testing.T) {
	t.Parallel()

	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	gate := SinkFunc(func(ev Event) {
		if ev.Kind == EventFrameSkipped {
			once.Do(func() {
				close(entered)
				<-release
			})
		}
	})

	clock := timeutil.NewMockClock(t0)
	c, err := NewController(ControllerConfig{
		Definition:   definition(t, exercise.TypePushups),
		Clock:        clock,
		Sink:         gate,
		TickInterval: -1,
	})
	require.NoError(t, err)
	require.NoError(t, c.Start(context.Background(), nil))
	require.Eventually(t, func() bool { return c.State() == StateRunning }, 2*time.Second, time.Millisecond)

	// The first frame is incomplete, so processing parks in the sink.
	c.Offer(testutil.Truncated(testutil.PlankPose(t0), l1landmarks.LeftHip))
	<-entered

	for i := 0; i < 3; i++ {
		c.Offer(testutil.PlankPose(t0))
	}
	assert.Equal(t, uint64(2), c.Dropped())

	close(release)
	require.Eventually(t, func() bool { return c.Processed() == 2 }, 2*time.Second, time.Millisecond)

	_, err = c.Finish(context.Background(), ReasonFinished)
	require.NoError(t, err)
	c.Wait()
	assert.Equal(t, uint64(2), c.Processed())
	assert.Equal(t, uint64(1), c.Snapshot().Skipped)
}

func TestControllerCountdown(t *testing.T) {
	t.Parallel()

	fx := newController(t, definition(t, exercise.TypePushups), 3*time.Second)
	require.NoError(t, fx.c.Start(context.Background(), nil))
	fx.waitState(t, StateCountdown)
	require.Eventually(t, func() bool { return fx.clock.PendingTimers() == 1 }, 2*time.Second, time.Millisecond)

	fx.c.Offer(testutil.PlankPose(t0))
	assert.Equal(t, uint64(1), fx.c.Dropped())

	fx.clock.Advance(3 * time.Second)
	fx.waitState(t, StateRunning)

	countdown := fx.sink.kinds(EventCountdown)
	require.NotEmpty(t, countdown)
	assert.Equal(t, 3, countdown[0].Remaining)

	_, err := fx.c.Finish(context.Background(), ReasonFinished)
	require.NoError(t, err)
	fx.c.Wait()
}

func TestControllerFinishDuringCountdown(t *testing.T) {
	t.Parallel()

	fx := newController(t, definition(t, exercise.TypePushups), 3*time.Second)
	require.NoError(t, fx.c.Start(context.Background(), nil))
	fx.waitState(t, StateCountdown)

	rec, err := fx.c.Finish(context.Background(), ReasonHidden)
	require.NoError(t, err)
	assert.Nil(t, rec)
	fx.c.Wait()
	assert.Equal(t, StateFinished, fx.c.State())
}

func TestControllerFinishesAtMaxLevel(t *testing.T) {
	t.Parallel()

	fx := newController(t, withGoals(definition(t, exercise.TypePushups), 1), 0)
	require.NoError(t, fx.c.Start(context.Background(), nil))
	fx.waitState(t, StateRunning)

	fx.offer(t, testutil.PlankPose, 10)
	fx.offer(t, testutil.PushupBottomPose, 10)
	// The rep lands on the ninth plank frame, which ends the session.
	fx.offer(t, testutil.PlankPose, 9)

	<-fx.c.Done()
	fx.c.Wait()

	rec, err := fx.c.Finish(context.Background(), ReasonFinished)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, 1, rec.Count)
	assert.Equal(t, "max_level", rec.Reason)
	assert.Equal(t, "Excellent", fx.c.Snapshot().Verdict)
	assert.Len(t, fx.sink.kinds(EventSessionCompleted), 1)
}

func TestControllerSitdownsEndToEnd(t *testing.T) {
	t.Parallel()

	fx := newController(t, definition(t, exercise.TypeSitdowns), 0)
	ctx := context.Background()
	require.NoError(t, fx.store.Append(ctx, history.Record{
		ID: "older", Date: t0.Add(-24 * time.Hour), Type: "pushups", Count: 5, DurationSec: 60,
	}))
	require.NoError(t, fx.c.Start(ctx, nil))
	fx.waitState(t, StateRunning)

	jitter := noisy(11)
	fx.offer(t, jitter(testutil.StandingPose), 15)
	for i := 0; i < 3; i++ {
		fx.offer(t, jitter(testutil.SquatPose), 15)
		fx.offer(t, jitter(testutil.StandingPose), 15)
	}
	assert.Equal(t, 3, fx.c.Snapshot().Count)

	rec, err := fx.c.Finish(ctx, ReasonFinished)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, 3, rec.Count)
	assert.Equal(t, "sitdowns", rec.Type)
	assert.False(t, rec.Date.IsZero())
	assert.True(t, rec.Date.Equal(fx.clock.Now()))

	records, err := history.List(ctx, fx.store, history.Query{})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "ctl", records[0].ID)
	assert.Equal(t, 3, records[0].Count)
	assert.Equal(t, "older", records[1].ID)
}

func TestControllerNoFrameProcessedAfterTeardown(t *testing.T) {
	t.Parallel()

	fx := newController(t, definition(t, exercise.TypePushups), 0)
	ctx := context.Background()
	require.NoError(t, fx.c.Start(ctx, nil))
	fx.waitState(t, StateRunning)

	fx.offer(t, testutil.PlankPose, 10)
	fx.offer(t, testutil.PushupBottomPose, 10)
	fx.offer(t, testutil.PlankPose, 8)
	processed := fx.c.Processed()

	// Hold the session lock while the pump picks up the frame that would
	// complete a rep, then close the session ahead of it the way teardown does.
	fx.c.sessMu.Lock()
	fx.clock.Advance(frameInterval)
	fx.c.Offer(testutil.PlankPose(fx.clock.Now()))
	require.Eventually(t, func() bool {
		fx.c.mu.Lock()
		defer fx.c.mu.Unlock()
		return fx.c.latest == nil
	}, 2*time.Second, time.Millisecond)
	assert.Equal(t, 0, fx.c.closeSessionLocked())
	fx.c.sessMu.Unlock()

	rec, err := fx.c.Finish(ctx, ReasonFinished)
	require.NoError(t, err)
	assert.Nil(t, rec)
	fx.c.Wait()

	assert.Equal(t, processed, fx.c.Processed())
	assert.Empty(t, fx.sink.kinds(EventRepCompleted))
	assert.Equal(t, 0, fx.c.Snapshot().Count)
	all, err := fx.store.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestControllerContextCancelUnloads(t *testing.T) {
	t.Parallel()

	fx := newController(t, definition(t, exercise.TypePushups), 0)
	src := &fakeSource{block: true}
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, fx.c.Start(ctx, src))
	fx.waitState(t, StateRunning)

	fx.offer(t, testutil.PlankPose, 10)
	fx.pushup(t)
	cancel()

	<-fx.c.Done()
	fx.c.Wait()

	all, err := fx.store.All(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "unload", all[0].Reason)
	assert.Equal(t, 1, src.closeCount())
}

func TestControllerPauseResume(t *testing.T) {
	t.Parallel()

	fx := newController(t, definition(t, exercise.TypePushups), 0)
	require.NoError(t, fx.c.Start(context.Background(), nil))
	fx.waitState(t, StateRunning)
	assert.Error(t, fx.c.Resume())

	fx.clock.Advance(10 * time.Second)
	require.NoError(t, fx.c.Pause())
	assert.Error(t, fx.c.Pause())
	assert.Equal(t, StatePaused, fx.c.State())

	fx.clock.Advance(5 * time.Second)
	assert.Equal(t, 10, fx.c.Snapshot().ElapsedSec)

	dropped := fx.c.Dropped()
	fx.c.Offer(testutil.PlankPose(fx.clock.Now()))
	assert.Equal(t, dropped+1, fx.c.Dropped())

	require.NoError(t, fx.c.Resume())
	fx.clock.Advance(2 * time.Second)
	snap := fx.c.Snapshot()
	assert.Equal(t, 12, snap.ElapsedSec)
	assert.Equal(t, "00:12", snap.Elapsed)

	_, err := fx.c.Finish(context.Background(), ReasonFinished)
	require.NoError(t, err)
	fx.c.Wait()
}

func TestNewControllerRequiresDefinition(t *testing.T) {
	t.Parallel()

	_, err := NewController(ControllerConfig{})
	assert.Error(t, err)
}
