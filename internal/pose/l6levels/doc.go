// Package l6levels owns Layer 6 (Levels) of the pose data model.
//
// Responsibilities: mapping a session's rep count onto an ordered list of
// level goals, reporting level and session completion exactly once each,
// progress percentages, stopwatch formatting, the end-of-session verdict,
// and the profile XP curve.
// Key types: Tracker, Event, Profile.
//
// Dependency rule: L6 may depend on L1-L5.
// No SQL/database code is allowed in this package.
package l6levels
