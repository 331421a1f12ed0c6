package l4classify

// Thresholds are the tunable limits the classifiers compare against.
// Distances are in normalized image units, angles in degrees.
type Thresholds struct {
	// PlankAlignment is the maximum shoulder/hip height difference for a
	// straight body.
	PlankAlignment float64
	// PlankElbowMin is the minimum elbow angle for locked arms.
	PlankElbowMin float64
	// HandsUnderShoulders is the maximum wrist/shoulder horizontal offset.
	HandsUnderShoulders float64
	// PushupBottomElbowMax is the elbow angle below which a push-up is at
	// the bottom.
	PushupBottomElbowMax float64
	// SquatBottomKneeMax is the knee angle below which a squat is at the
	// bottom.
	SquatBottomKneeMax float64
	// StandingLegTolerance is the maximum hip/knee/ankle horizontal offset
	// for straight legs.
	StandingLegTolerance float64
	// HandsRaiseMargin is how far wrists must be above (or below) the
	// shoulders to count as raised (or lowered).
	HandsRaiseMargin float64
	// MinVisibility rejects joints scored below it. Zero disables.
	MinVisibility float64
}

// DefaultThresholds returns the stock limits.
func DefaultThresholds() Thresholds {
	return Thresholds{
		PlankAlignment:       0.1,
		PlankElbowMin:        150,
		HandsUnderShoulders:  0.1,
		PushupBottomElbowMax: 90,
		SquatBottomKneeMax:   130,
		StandingLegTolerance: 0.1,
		HandsRaiseMargin:     0.2,
	}
}
