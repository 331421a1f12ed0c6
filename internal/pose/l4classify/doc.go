// Package l4classify owns Layer 4 (Classification) of the pose data model.
//
// Responsibilities: measuring joint angles from a frame and deciding, per
// frame, which body positions are present (plank, push-up bottom, squat
// bottom, standing, hands raised, hands lowered). Classifiers are pure
// functions of the frame, its angles and a Thresholds value; debouncing
// happens in L3 and phase logic in L5.
// Key types: Signal, Signals, Angles, Thresholds.
//
// Dependency rule: L4 may depend on L1-L3, but never on L5+.
package l4classify
