// Package l3stability owns Layer 3 (Stability) of the pose data model.
//
// Responsibilities: debouncing noisy per-frame classifications through
// bounded histories and a majority rule, and smoothing continuous angle
// signals with a moving average. Every signal gets its own buffer; buffers
// are never shared between signals or limbs.
// Key types: History, Rule, Filter, Smoother, AngleSmoother.
//
// Dependency rule: L3 may depend on L1-L2, but never on L4+.
package l3stability
