package l5phases

import (
	"fmt"
	"time"
)

// Stabilized answers whether a signal has settled on a value. The L3
// filter satisfies it.
type Stabilized interface {
	Stable(signal string, want bool) bool
}

// Context is the per-session machine state.
type Context struct {
	Phase      Phase
	LastChange time.Time
}

// Transition records one edge taken.
type Transition struct {
	From Phase
	To   Phase
	At   time.Time
	Rep  bool
}

// Step is the outcome of feeding one frame's stabilized signals.
type Step struct {
	Transitions    []Transition
	RepCompleted   bool
	Count          int
	Phase          Phase
	Status         string
	ResetStability bool
}

// Changed reports whether any transition happened.
func (s Step) Changed() bool { return len(s.Transitions) > 0 }

// Machine walks a Graph. It has no terminal state; callers decide when a
// session ends. A Machine is owned by one session and not safe for
// concurrent use.
type Machine struct {
	graph    *Graph
	minPhase time.Duration
	ctx      Context
	count    int
	status   string
}

// NewMachine starts a machine in the graph's initial phase at now.
func NewMachine(g *Graph, minPhase time.Duration, now time.Time) (*Machine, error) {
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("invalid phase graph: %w", err)
	}
	if minPhase < 0 {
		return nil, fmt.Errorf("min phase duration must be non-negative, got %v", minPhase)
	}
	m := &Machine{graph: g, minPhase: minPhase}
	m.Reset(now)
	return m, nil
}

// Reset returns to the initial phase with a zero count.
func (m *Machine) Reset(now time.Time) {
	m.ctx = Context{Phase: m.graph.Initial, LastChange: now}
	m.count = 0
	m.status = m.graph.Idle[m.graph.Initial]
}

// Context returns a copy of the current state.
func (m *Machine) Context() Context { return m.ctx }

// Count is the number of completed repetitions.
func (m *Machine) Count() int { return m.count }

// Status is the latest user-facing message.
func (m *Machine) Status() string { return m.status }

// MinPhaseDuration is the dwell time enforced on guarded edges.
func (m *Machine) MinPhaseDuration() time.Duration { return m.minPhase }

// Step evaluates the current phase's outgoing edges in declaration order
// and takes the first one whose condition holds and whose guard, if any,
// has elapsed. Unconditional edges out of the new phase are then followed
// immediately. At most one conditional edge is taken per step.
func (m *Machine) Step(st Stabilized, now time.Time) Step {
	var step Step
	for _, e := range m.graph.Edges {
		if e.From != m.ctx.Phase || e.When.Always {
			continue
		}
		if e.Guarded && now.Sub(m.ctx.LastChange) < m.minPhase {
			continue
		}
		if !st.Stable(string(e.When.Signal), e.When.Want) {
			continue
		}
		m.take(e, now, &step)
		break
	}
	if step.Changed() {
		// Validate rules out unconditional cycles, so this terminates.
		for {
			e, ok := m.graph.always(m.ctx.Phase)
			if !ok {
				break
			}
			m.take(e, now, &step)
		}
		step.ResetStability = m.graph.ResetStability
	}
	step.Count = m.count
	step.Phase = m.ctx.Phase
	step.Status = m.status
	return step
}

func (m *Machine) take(e Edge, now time.Time, step *Step) {
	step.Transitions = append(step.Transitions, Transition{From: e.From, To: e.To, At: now, Rep: e.Rep})
	m.ctx = Context{Phase: e.To, LastChange: now}
	if e.Rep {
		m.count++
		step.RepCompleted = true
	}
	if e.Status != "" {
		m.status = e.Status
	} else if idle, ok := m.graph.Idle[e.To]; ok {
		m.status = idle
	}
}
