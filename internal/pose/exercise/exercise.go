// Package exercise turns tuning configuration into runnable exercise
// definitions: which signals to classify, the phase graph to walk, and the
// thresholds, stability rule and level goals to apply. Adding an exercise
// is a configuration change; the state machine never changes.
package exercise

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/banshee-data/reps.report/internal/config"
	"github.com/banshee-data/reps.report/internal/pose/l3stability"
	"github.com/banshee-data/reps.report/internal/pose/l4classify"
	"github.com/banshee-data/reps.report/internal/pose/l5phases"
)

// Type is the tag stored with each session record.
type Type string

// Built-in exercise types.
const (
	TypePushups  Type = "pushups"
	TypeSitdowns Type = "sitdowns"
	TypeHandsUp  Type = "handsup"
)

// ErrUnknownExercise is returned for a type with no definition.
var ErrUnknownExercise = errors.New("unknown exercise")

// Definition is everything a session needs to count one exercise.
type Definition struct {
	Type             Type
	Name             string
	Pattern          string
	Graph            *l5phases.Graph
	Signals          []l4classify.Signal
	Thresholds       l4classify.Thresholds
	Stability        l3stability.Rule
	SmoothingWindow  int
	MinPhaseDuration time.Duration
	LevelGoals       []int
}

// Registry holds the definitions loaded from one config.
type Registry struct {
	defs      map[Type]*Definition
	countdown time.Duration
}

// NewRegistry builds a definition for every configured exercise.
func NewRegistry(cfg *config.TuningConfig) (*Registry, error) {
	r := &Registry{defs: make(map[Type]*Definition), countdown: cfg.GetCountdown()}
	for _, name := range cfg.ExerciseNames() {
		def, err := build(Type(name), cfg.Exercises[name], cfg)
		if err != nil {
			return nil, fmt.Errorf("exercise %q: %w", name, err)
		}
		r.defs[def.Type] = def
	}
	if len(r.defs) == 0 {
		return nil, errors.New("no exercises configured")
	}
	return r, nil
}

// Lookup returns the definition for t.
func (r *Registry) Lookup(t Type) (*Definition, error) {
	def, ok := r.defs[t]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownExercise, t)
	}
	return def, nil
}

// Types lists the registered exercise types in sorted order.
func (r *Registry) Types() []Type {
	out := make([]Type, 0, len(r.defs))
	for t := range r.defs {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Countdown is the configured delay before a session starts counting.
func (r *Registry) Countdown() time.Duration { return r.countdown }

func build(t Type, e *config.ExerciseTuning, root *config.TuningConfig) (*Definition, error) {
	up, err := l4classify.ParseSignal(*e.UpSignal)
	if err != nil {
		return nil, err
	}
	down, err := l4classify.ParseSignal(*e.DownSignal)
	if err != nil {
		return nil, err
	}

	def := &Definition{
		Type:    t,
		Name:    e.GetName(string(t)),
		Pattern: e.GetPattern(),
		Stability: l3stability.Rule{
			Window:   e.GetStabilityWindow(root),
			Majority: e.GetStabilityMajority(root),
		},
		SmoothingWindow:  e.GetSmoothingWindow(),
		MinPhaseDuration: e.GetMinPhaseDuration(root),
		LevelGoals:       e.GetLevelGoals(),
		Thresholds:       thresholds(e, root),
	}

	msgs := messagesFor(t, e.Messages)
	switch def.Pattern {
	case config.PatternCycle:
		def.Graph = l5phases.CycleGraph(up, down, l5phases.CycleMessages{
			Ready:     msgs["ready"],
			Start:     msgs["start"],
			Bottom:    msgs["bottom"],
			Rising:    msgs["rising"],
			Completed: msgs["completed"],
		})
	case config.PatternRaise:
		def.Graph = l5phases.RaiseGraph(up, down, l5phases.RaiseMessages{
			Ready:     msgs["ready"],
			Raised:    msgs["raised"],
			Lowering:  msgs["lowering"],
			Completed: msgs["completed"],
		})
	default:
		return nil, fmt.Errorf("unknown pattern %q", def.Pattern)
	}
	if err := def.Graph.Validate(); err != nil {
		return nil, err
	}
	def.Signals = def.Graph.Signals()
	return def, nil
}

func thresholds(e *config.ExerciseTuning, root *config.TuningConfig) l4classify.Thresholds {
	d := l4classify.DefaultThresholds()
	return l4classify.Thresholds{
		PlankAlignment:       config.GetFloat(e.PlankAlignment, d.PlankAlignment),
		PlankElbowMin:        config.GetFloat(e.PlankElbowMin, d.PlankElbowMin),
		HandsUnderShoulders:  config.GetFloat(e.HandsUnderShoulders, d.HandsUnderShoulders),
		PushupBottomElbowMax: config.GetFloat(e.PushupBottomElbowMax, d.PushupBottomElbowMax),
		SquatBottomKneeMax:   config.GetFloat(e.SquatBottomKneeMax, d.SquatBottomKneeMax),
		StandingLegTolerance: config.GetFloat(e.StandingLegTolerance, d.StandingLegTolerance),
		HandsRaiseMargin:     config.GetFloat(e.HandsRaiseMargin, d.HandsRaiseMargin),
		MinVisibility:        root.GetMinVisibility(),
	}
}
