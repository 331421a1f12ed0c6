package testutil

import (
	"math/rand/v2"
	"time"

	"github.com/banshee-data/reps.report/internal/pose/l1landmarks"
)

// point is an (x, y) placement in normalized image space.
type point struct{ x, y float64 }

// pose places both sides of the body; unlisted joints sit at the frame centre.
type pose map[int]point

func (p pose) frame(ts time.Time) *l1landmarks.Frame {
	joints := make([]l1landmarks.Joint, l1landmarks.NumLandmarks)
	for i := range joints {
		joints[i] = l1landmarks.Joint{X: 0.5, Y: 0.5}
	}
	for idx, pt := range p {
		joints[idx] = l1landmarks.Joint{X: pt.x, Y: pt.y}
	}
	return &l1landmarks.Frame{Timestamp: ts, Joints: joints}
}

// StandingPose is upright with straight legs and arms hanging down.
func StandingPose(ts time.Time) *l1landmarks.Frame {
	return pose{
		l1landmarks.LeftShoulder: {0.45, 0.30}, l1landmarks.RightShoulder: {0.55, 0.30},
		l1landmarks.LeftElbow: {0.45, 0.45}, l1landmarks.RightElbow: {0.55, 0.45},
		l1landmarks.LeftWrist: {0.45, 0.60}, l1landmarks.RightWrist: {0.55, 0.60},
		l1landmarks.LeftHip: {0.47, 0.55}, l1landmarks.RightHip: {0.53, 0.55},
		l1landmarks.LeftKnee: {0.47, 0.72}, l1landmarks.RightKnee: {0.53, 0.72},
		l1landmarks.LeftAnkle: {0.47, 0.90}, l1landmarks.RightAnkle: {0.53, 0.90},
	}.frame(ts)
}

// HandsUpPose is StandingPose with both wrists well above the shoulders.
func HandsUpPose(ts time.Time) *l1landmarks.Frame {
	f := StandingPose(ts)
	f.Joints[l1landmarks.LeftElbow].Y = 0.15
	f.Joints[l1landmarks.RightElbow].Y = 0.15
	f.Joints[l1landmarks.LeftWrist].Y = 0.05
	f.Joints[l1landmarks.RightWrist].Y = 0.05
	return f
}

// SquatPose has knees pushed forward and bent to roughly 99 degrees.
func SquatPose(ts time.Time) *l1landmarks.Frame {
	f := StandingPose(ts)
	f.Joints[l1landmarks.LeftHip] = l1landmarks.Joint{X: 0.47, Y: 0.60}
	f.Joints[l1landmarks.RightHip] = l1landmarks.Joint{X: 0.53, Y: 0.60}
	f.Joints[l1landmarks.LeftKnee] = l1landmarks.Joint{X: 0.35, Y: 0.70}
	f.Joints[l1landmarks.RightKnee] = l1landmarks.Joint{X: 0.65, Y: 0.70}
	return f
}

// PlankPose is a side view of a straight body with locked elbows and
// wrists under the shoulders.
func PlankPose(ts time.Time) *l1landmarks.Frame {
	return pose{
		l1landmarks.LeftShoulder: {0.30, 0.50}, l1landmarks.RightShoulder: {0.30, 0.50},
		l1landmarks.LeftElbow: {0.30, 0.62}, l1landmarks.RightElbow: {0.30, 0.62},
		l1landmarks.LeftWrist: {0.30, 0.75}, l1landmarks.RightWrist: {0.30, 0.75},
		l1landmarks.LeftHip: {0.60, 0.52}, l1landmarks.RightHip: {0.60, 0.52},
		l1landmarks.LeftKnee: {0.75, 0.54}, l1landmarks.RightKnee: {0.75, 0.54},
		l1landmarks.LeftAnkle: {0.90, 0.56}, l1landmarks.RightAnkle: {0.90, 0.56},
	}.frame(ts)
}

// PushupBottomPose is the low point of a push-up: elbows bent to roughly
// 64 degrees.
func PushupBottomPose(ts time.Time) *l1landmarks.Frame {
	return pose{
		l1landmarks.LeftShoulder: {0.30, 0.65}, l1landmarks.RightShoulder: {0.30, 0.65},
		l1landmarks.LeftElbow: {0.22, 0.70}, l1landmarks.RightElbow: {0.22, 0.70},
		l1landmarks.LeftWrist: {0.30, 0.75}, l1landmarks.RightWrist: {0.30, 0.75},
		l1landmarks.LeftHip: {0.60, 0.66}, l1landmarks.RightHip: {0.60, 0.66},
		l1landmarks.LeftKnee: {0.75, 0.66}, l1landmarks.RightKnee: {0.75, 0.66},
		l1landmarks.LeftAnkle: {0.90, 0.67}, l1landmarks.RightAnkle: {0.90, 0.67},
	}.frame(ts)
}

// Truncated returns a frame holding only the first n joints of f.
func Truncated(f *l1landmarks.Frame, n int) *l1landmarks.Frame {
	out := *f
	out.Joints = append([]l1landmarks.Joint(nil), f.Joints[:n]...)
	return &out
}

// Jitter displaces every joint of pose by up to amp in x and y, drawing
// offsets from rng so runs are repeatable.
func Jitter(pose func(time.Time) *l1landmarks.Frame, amp float64, rng *rand.Rand) func(time.Time) *l1landmarks.Frame {
	return func(ts time.Time) *l1landmarks.Frame {
		f := pose(ts)
		for i := range f.Joints {
			f.Joints[i].X += (rng.Float64()*2 - 1) * amp
			f.Joints[i].Y += (rng.Float64()*2 - 1) * amp
		}
		return f
	}
}
