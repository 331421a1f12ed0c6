package pipeline

import (
	"fmt"
	"time"

	"github.com/banshee-data/reps.report/internal/pose/exercise"
	"github.com/banshee-data/reps.report/internal/pose/l1landmarks"
	"github.com/banshee-data/reps.report/internal/pose/l3stability"
	"github.com/banshee-data/reps.report/internal/pose/l4classify"
	"github.com/banshee-data/reps.report/internal/pose/l5phases"
	"github.com/banshee-data/reps.report/internal/pose/l6levels"
)

// Result describes what one frame did.
type Result struct {
	Count            int                   `json:"count"`
	Phase            l5phases.Phase        `json:"phase"`
	Status           string                `json:"status"`
	Angles           l4classify.Angles     `json:"angles"`
	Signals          l4classify.Signals    `json:"signals,omitempty"`
	Transitions      []l5phases.Transition `json:"transitions,omitempty"`
	LevelEvents      []l6levels.Event      `json:"level_events,omitempty"`
	SessionCompleted bool                  `json:"session_completed"`
}

// Session is the per-frame counting state for one exercise attempt. It is
// not safe for concurrent use; the Controller serializes access.
type Session struct {
	id       string
	def      *exercise.Definition
	required []int
	filter   *l3stability.Filter
	smoother *l3stability.AngleSmoother
	machine  *l5phases.Machine
	levels   *l6levels.Tracker
	sink     EventSink
	skipped  uint64
}

// NewSession creates the session state at now, the moment counting begins.
func NewSession(id string, def *exercise.Definition, now time.Time, sink EventSink) (*Session, error) {
	machine, err := l5phases.NewMachine(def.Graph, def.MinPhaseDuration, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create phase machine: %w", err)
	}
	levels, err := l6levels.NewTracker(def.LevelGoals)
	if err != nil {
		return nil, fmt.Errorf("failed to create level tracker: %w", err)
	}
	if sink == nil {
		sink = MultiSink(nil)
	}
	return &Session{
		id:       id,
		def:      def,
		required: l4classify.RequiredLandmarks(def.Signals...),
		filter:   l3stability.NewFilter(def.Stability),
		smoother: l3stability.NewAngleSmoother(def.SmoothingWindow),
		machine:  machine,
		levels:   levels,
		sink:     sink,
	}, nil
}

// Process runs one frame through the counting layers. A frame missing a
// joint the exercise needs is skipped without touching any buffered state;
// the returned error then wraps l1landmarks.ErrIncompleteFrame.
func (s *Session) Process(f *l1landmarks.Frame, now time.Time) (Result, error) {
	// 1. Reject frames that cannot be classified.
	if err := f.Require(s.def.Thresholds.MinVisibility, s.required...); err != nil {
		s.skipped++
		s.sink.Emit(Event{Kind: EventFrameSkipped, SessionID: s.id, At: now, Error: err.Error()})
		return s.result(), err
	}

	// 2. Measure and smooth angles, then classify.
	angles := l4classify.MeasureAngles(f).Smooth(s.smoother)
	signals, err := l4classify.Classify(f, angles, s.def.Thresholds, s.def.Signals...)
	if err != nil {
		return s.result(), err
	}

	// 3. Debounce.
	for _, sig := range s.def.Signals {
		s.filter.Observe(string(sig), signals[sig])
	}

	// 4. Step the phase machine.
	step := s.machine.Step(s.filter, now)
	res := Result{
		Count:       step.Count,
		Phase:       step.Phase,
		Status:      step.Status,
		Angles:      angles,
		Signals:     signals,
		Transitions: step.Transitions,
	}
	for _, tr := range step.Transitions {
		s.sink.Emit(Event{Kind: EventPhaseChanged, SessionID: s.id, At: now, From: tr.From, Phase: tr.To, Status: step.Status, Count: step.Count})
	}
	if step.ResetStability {
		s.filter.Reset()
	}
	if !step.RepCompleted {
		return res, nil
	}

	// 5. Count the rep and advance levels.
	s.sink.Emit(Event{Kind: EventRepCompleted, SessionID: s.id, At: now, Count: step.Count})
	res.LevelEvents = s.levels.Update(step.Count)
	for _, ev := range res.LevelEvents {
		switch ev.Kind {
		case l6levels.EventLevelCompleted:
			s.sink.Emit(Event{Kind: EventLevelCompleted, SessionID: s.id, At: now, Count: step.Count, LevelIndex: ev.LevelIndex, NextGoal: ev.NextGoal})
		case l6levels.EventSessionCompleted:
			res.SessionCompleted = true
			s.sink.Emit(Event{Kind: EventSessionCompleted, SessionID: s.id, At: now, Count: ev.FinalCount})
		}
	}
	return res, nil
}

func (s *Session) result() Result {
	return Result{Count: s.machine.Count(), Phase: s.machine.Context().Phase, Status: s.machine.Status()}
}

// ID is the session identifier.
func (s *Session) ID() string { return s.id }

// Definition is the exercise being counted.
func (s *Session) Definition() *exercise.Definition { return s.def }

// Count is the number of completed repetitions.
func (s *Session) Count() int { return s.machine.Count() }

// Phase is the current phase.
func (s *Session) Phase() l5phases.Phase { return s.machine.Context().Phase }

// Status is the latest status message.
func (s *Session) Status() string { return s.machine.Status() }

// Levels exposes the level tracker for progress reporting.
func (s *Session) Levels() *l6levels.Tracker { return s.levels }

// Skipped is the number of frames rejected as incomplete.
func (s *Session) Skipped() uint64 { return s.skipped }

// ResetStability discards buffered classifications and smoothed angles,
// e.g. after a pause when old evidence no longer applies.
func (s *Session) ResetStability() {
	s.filter.Reset()
	s.smoother.Reset()
}
