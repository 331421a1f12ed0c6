package l4classify

import (
	"github.com/banshee-data/reps.report/internal/pose/l1landmarks"
	"github.com/banshee-data/reps.report/internal/pose/l2geometry"
	"github.com/banshee-data/reps.report/internal/pose/l3stability"
)

// Angles holds the joint angles classifiers read, in degrees.
type Angles struct {
	LeftElbow  float64 `json:"left_elbow"`
	RightElbow float64 `json:"right_elbow"`
	LeftKnee   float64 `json:"left_knee"`
	RightKnee  float64 `json:"right_knee"`
}

// MeasureAngles computes elbow (shoulder-elbow-wrist) and knee
// (hip-knee-ankle) angles from raw landmarks.
func MeasureAngles(f *l1landmarks.Frame) Angles {
	return Angles{
		LeftElbow:  l2geometry.JointAngle(f, l1landmarks.LeftShoulder, l1landmarks.LeftElbow, l1landmarks.LeftWrist),
		RightElbow: l2geometry.JointAngle(f, l1landmarks.RightShoulder, l1landmarks.RightElbow, l1landmarks.RightWrist),
		LeftKnee:   l2geometry.JointAngle(f, l1landmarks.LeftHip, l1landmarks.LeftKnee, l1landmarks.LeftAnkle),
		RightKnee:  l2geometry.JointAngle(f, l1landmarks.RightHip, l1landmarks.RightKnee, l1landmarks.RightAnkle),
	}
}

// Smooth passes each angle through its own moving average.
func (a Angles) Smooth(s *l3stability.AngleSmoother) Angles {
	if !s.Enabled() {
		return a
	}
	return Angles{
		LeftElbow:  s.Smooth("left_elbow", a.LeftElbow),
		RightElbow: s.Smooth("right_elbow", a.RightElbow),
		LeftKnee:   s.Smooth("left_knee", a.LeftKnee),
		RightKnee:  s.Smooth("right_knee", a.RightKnee),
	}
}
