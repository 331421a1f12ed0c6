// Package pipeline drives the counting layers for one exercise session.
//
// A Session runs a single frame through L2-L6: measure angles, classify,
// debounce, step the phase machine, update levels, and emit events. The
// Controller owns a Session's lifecycle: countdown, the single-slot frame
// pump that drops stale frames, pause and resume, and an idempotent
// teardown that hands the final count to the Recorder.
package pipeline
