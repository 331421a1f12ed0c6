// Package l1landmarks owns Layer 1 (Landmarks) of the pose data model.
//
// Responsibilities: the Joint and Frame types produced by an external pose
// estimator, the anatomical landmark indices, decoding of line-delimited JSON
// frames, and completeness checks for the joints a consumer needs.
// Key types: Joint, Frame.
//
// Dependency rule: L1 has no dependencies on higher layers.
// No SQL/database code is allowed in this package.
package l1landmarks
