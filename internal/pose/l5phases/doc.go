// Package l5phases owns Layer 5 (Phases) of the pose data model.
//
// Responsibilities: a single parametric state machine that walks an
// exercise's phase graph on stabilized classifications, enforces a minimum
// dwell time between guarded transitions, and counts a repetition each time
// a rep edge is taken. Exercises differ only in the Graph they supply.
// Key types: Phase, Graph, Edge, Machine, Step.
//
// Dependency rule: L5 may depend on L1-L4, but never on L6.
// No SQL/database code is allowed in this package.
package l5phases
