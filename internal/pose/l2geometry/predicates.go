package l2geometry

import (
	"math"

	"github.com/banshee-data/reps.report/internal/pose/l1landmarks"
)

// Image Y grows downward, so "below" means a larger Y.

// Below reports whether a is lower in the image than b.
func Below(a, b l1landmarks.Joint) bool { return a.Y > b.Y }

// Above reports whether a is higher in the image than b.
func Above(a, b l1landmarks.Joint) bool { return a.Y < b.Y }

// VerticalChain reports whether each joint is strictly below the previous one.
func VerticalChain(joints ...l1landmarks.Joint) bool {
	for i := 1; i < len(joints); i++ {
		if !Below(joints[i], joints[i-1]) {
			return false
		}
	}
	return true
}

// AlignedX reports whether a and b are within tol of each other horizontally.
func AlignedX(a, b l1landmarks.Joint, tol float64) bool {
	return math.Abs(a.X-b.X) < tol
}

// AlignedY reports whether a and b are within tol of each other vertically.
func AlignedY(a, b l1landmarks.Joint, tol float64) bool {
	return math.Abs(a.Y-b.Y) < tol
}

// MidY is the mean height of two joints.
func MidY(a, b l1landmarks.Joint) float64 { return (a.Y + b.Y) / 2 }

// VerticalOffset is the absolute height difference between the midpoint of
// (a, b) and the midpoint of (c, d), e.g. shoulders against hips.
func VerticalOffset(a, b, c, d l1landmarks.Joint) float64 {
	return math.Abs(MidY(a, b) - MidY(c, d))
}

// Rise is how far a sits above b; negative when a is below b.
func Rise(a, b l1landmarks.Joint) float64 { return b.Y - a.Y }
