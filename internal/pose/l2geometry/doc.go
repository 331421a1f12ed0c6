// Package l2geometry owns Layer 2 (Geometry) of the pose data model.
//
// Responsibilities: joint angles and relational predicates over landmarks
// (vertical ordering, horizontal alignment, torso offsets). All functions
// are pure and total: degenerate input yields a defined value.
//
// Dependency rule: L2 may depend on L1, but never on L3+.
package l2geometry
