package l2geometry

import (
	"math"

	"github.com/banshee-data/reps.report/internal/pose/l1landmarks"
)

// Angle returns the interior angle in degrees at vertex b formed by the
// segments b→a and b→c, in [0,180]. Coincident points give 0.
func Angle(a, b, c l1landmarks.Joint) float64 {
	rad := math.Atan2(c.Y-b.Y, c.X-b.X) - math.Atan2(a.Y-b.Y, a.X-b.X)
	deg := math.Abs(rad * 180 / math.Pi)
	if deg > 180 {
		deg = 360 - deg
	}
	return deg
}

// JointAngle is Angle over three landmark indices of a frame.
func JointAngle(f *l1landmarks.Frame, a, b, c int) float64 {
	return Angle(f.Joint(a), f.Joint(b), f.Joint(c))
}
