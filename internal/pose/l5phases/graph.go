package l5phases

import (
	"errors"
	"fmt"

	"github.com/banshee-data/reps.report/internal/pose/l4classify"
)

// Phase is a named stage of a movement cycle.
type Phase string

// Cycle pattern phases (push-ups, sit-downs).
const (
	PhaseInitial       Phase = "INITIAL"
	PhaseGoingDown     Phase = "GOING_DOWN"
	PhaseBottomReached Phase = "BOTTOM_REACHED"
	PhaseGoingUp       Phase = "GOING_UP"
)

// Raise pattern phases (arm raises).
const (
	PhaseDown     Phase = "DOWN"
	PhaseUp       Phase = "UP"
	PhaseComplete Phase = "COMPLETE"
)

// Condition is what an edge waits for: a stabilized signal value, or
// nothing at all when Always is set.
type Condition struct {
	Signal l4classify.Signal
	Want   bool
	Always bool
}

// Edge is one allowed transition.
type Edge struct {
	From    Phase
	To      Phase
	When    Condition
	Guarded bool   // blocked until the minimum phase duration has elapsed
	Rep     bool   // taking the edge completes one repetition
	Status  string // user-facing message once taken
}

// Graph is the data describing one exercise's automaton.
type Graph struct {
	Initial Phase
	Edges   []Edge
	// Idle maps a phase to the message shown while waiting in it before
	// any edge has brought the machine there.
	Idle map[Phase]string
	// ResetStability asks the caller to clear classification histories
	// after every transition.
	ResetStability bool
}

var errNoRepEdge = errors.New("phase graph has no rep edge")

// Validate checks the graph is well formed: a known initial phase, at
// least one rep edge, and no cycle made only of unconditional edges.
func (g *Graph) Validate() error {
	if g == nil {
		return errors.New("nil phase graph")
	}
	if g.Initial == "" {
		return errors.New("phase graph has no initial phase")
	}
	phases := map[Phase]bool{g.Initial: true}
	reps := 0
	for i, e := range g.Edges {
		if e.From == "" || e.To == "" {
			return fmt.Errorf("edge %d: empty phase", i)
		}
		if !e.When.Always && e.When.Signal == "" {
			return fmt.Errorf("edge %d (%s->%s): no condition", i, e.From, e.To)
		}
		if e.When.Always && e.Guarded {
			return fmt.Errorf("edge %d (%s->%s): unconditional edges cannot be guarded", i, e.From, e.To)
		}
		phases[e.From] = true
		phases[e.To] = true
		if e.Rep {
			reps++
		}
	}
	if reps == 0 {
		return errNoRepEdge
	}
	for p := range phases {
		seen := map[Phase]bool{p: true}
		for cur := p; ; {
			e, ok := g.always(cur)
			if !ok {
				break
			}
			if seen[e.To] {
				return fmt.Errorf("unconditional cycle through %s", e.To)
			}
			seen[e.To] = true
			cur = e.To
		}
	}
	return nil
}

// Signals lists the distinct signals the graph's conditions read, in
// edge order.
func (g *Graph) Signals() []l4classify.Signal {
	var out []l4classify.Signal
	seen := make(map[l4classify.Signal]bool)
	for _, e := range g.Edges {
		if e.When.Always || seen[e.When.Signal] {
			continue
		}
		seen[e.When.Signal] = true
		out = append(out, e.When.Signal)
	}
	return out
}

func (g *Graph) always(from Phase) (Edge, bool) {
	for _, e := range g.Edges {
		if e.From == from && e.When.Always {
			return e, true
		}
	}
	return Edge{}, false
}

// CycleMessages are the statuses of the four-phase cycle.
type CycleMessages struct {
	Ready     string // waiting in INITIAL
	Start     string // INITIAL -> GOING_DOWN
	Bottom    string // GOING_DOWN -> BOTTOM_REACHED
	Rising    string // BOTTOM_REACHED -> GOING_UP
	Completed string // GOING_UP -> GOING_DOWN
}

// CycleGraph is the down-and-up automaton shared by push-ups and
// sit-downs: up and bottom name the signals of the top and bottom
// positions.
func CycleGraph(up, bottom l4classify.Signal, msg CycleMessages) *Graph {
	return &Graph{
		Initial: PhaseInitial,
		Idle:    map[Phase]string{PhaseInitial: msg.Ready},
		Edges: []Edge{
			{From: PhaseInitial, To: PhaseGoingDown, When: Condition{Signal: up, Want: true}, Status: msg.Start},
			{From: PhaseGoingDown, To: PhaseBottomReached, When: Condition{Signal: bottom, Want: true}, Guarded: true, Status: msg.Bottom},
			{From: PhaseBottomReached, To: PhaseGoingUp, When: Condition{Signal: up, Want: true}, Status: msg.Rising},
			{From: PhaseGoingUp, To: PhaseGoingDown, When: Condition{Signal: up, Want: true}, Guarded: true, Rep: true, Status: msg.Completed},
		},
	}
}

// RaiseMessages are the statuses of the three-phase raise.
type RaiseMessages struct {
	Ready     string // waiting in DOWN
	Raised    string // DOWN -> UP
	Lowering  string // UP -> COMPLETE
	Completed string // COMPLETE -> DOWN
}

// RaiseGraph is the lift-and-lower automaton. COMPLETE is transient: the
// machine counts the rep and returns to DOWN in the same step.
func RaiseGraph(raised, lowered l4classify.Signal, msg RaiseMessages) *Graph {
	return &Graph{
		Initial:        PhaseDown,
		Idle:           map[Phase]string{PhaseDown: msg.Ready},
		ResetStability: true,
		Edges: []Edge{
			{From: PhaseDown, To: PhaseUp, When: Condition{Signal: raised, Want: true}, Guarded: true, Status: msg.Raised},
			{From: PhaseUp, To: PhaseComplete, When: Condition{Signal: lowered, Want: true}, Guarded: true, Status: msg.Lowering},
			{From: PhaseComplete, To: PhaseDown, When: Condition{Always: true}, Rep: true, Status: msg.Completed},
		},
	}
}
