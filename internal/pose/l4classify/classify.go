package l4classify

import (
	"fmt"
	"sort"

	"github.com/banshee-data/reps.report/internal/pose/l1landmarks"
	g "github.com/banshee-data/reps.report/internal/pose/l2geometry"
)

// Signal names a body position a classifier can detect.
type Signal string

const (
	SignalPlank        Signal = "plank"
	SignalPushupBottom Signal = "pushup_bottom"
	SignalSquatBottom  Signal = "squat_bottom"
	SignalStanding     Signal = "standing"
	SignalHandsRaised  Signal = "hands_raised"
	SignalHandsLowered Signal = "hands_lowered"
)

// Signals is one frame's classification result.
type Signals map[Signal]bool

type classifier struct {
	detect   func(f *l1landmarks.Frame, a Angles, th Thresholds) bool
	required []int
}

var (
	arms = []int{
		l1landmarks.LeftShoulder, l1landmarks.RightShoulder,
		l1landmarks.LeftElbow, l1landmarks.RightElbow,
		l1landmarks.LeftWrist, l1landmarks.RightWrist,
	}
	legs = []int{
		l1landmarks.LeftHip, l1landmarks.RightHip,
		l1landmarks.LeftKnee, l1landmarks.RightKnee,
		l1landmarks.LeftAnkle, l1landmarks.RightAnkle,
	}
	shouldersAndWrists = []int{
		l1landmarks.LeftShoulder, l1landmarks.RightShoulder,
		l1landmarks.LeftWrist, l1landmarks.RightWrist,
	}
)

var classifiers = map[Signal]classifier{
	SignalPlank:        {IsPlank, append(append([]int{}, arms...), l1landmarks.LeftHip, l1landmarks.RightHip)},
	SignalPushupBottom: {IsPushupBottom, arms},
	SignalSquatBottom:  {IsSquatBottom, legs},
	SignalStanding:     {IsStanding, legs},
	SignalHandsRaised:  {HandsRaised, shouldersAndWrists},
	SignalHandsLowered: {HandsLowered, shouldersAndWrists},
}

// ParseSignal resolves a configured signal name.
func ParseSignal(name string) (Signal, error) {
	s := Signal(name)
	if _, ok := classifiers[s]; !ok {
		return "", fmt.Errorf("unknown signal %q", name)
	}
	return s, nil
}

// KnownSignals lists every signal in sorted order.
func KnownSignals() []Signal {
	out := make([]Signal, 0, len(classifiers))
	for s := range classifiers {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// RequiredLandmarks returns the sorted union of joints the signals read.
func RequiredLandmarks(signals ...Signal) []int {
	seen := make(map[int]bool)
	for _, s := range signals {
		for _, idx := range classifiers[s].required {
			seen[idx] = true
		}
	}
	out := make([]int, 0, len(seen))
	for idx := range seen {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}

// Classify evaluates the requested signals on one frame. When a joint
// needed by any of them is missing the frame cannot be classified and the
// returned error wraps l1landmarks.ErrIncompleteFrame.
func Classify(f *l1landmarks.Frame, a Angles, th Thresholds, signals ...Signal) (Signals, error) {
	if err := f.Require(th.MinVisibility, RequiredLandmarks(signals...)...); err != nil {
		return nil, err
	}
	out := make(Signals, len(signals))
	for _, s := range signals {
		c, ok := classifiers[s]
		if !ok {
			return nil, fmt.Errorf("unknown signal %q", s)
		}
		out[s] = c.detect(f, a, th)
	}
	return out, nil
}

// IsPlank: body straight, elbows locked, wrists under shoulders.
func IsPlank(f *l1landmarks.Frame, a Angles, th Thresholds) bool {
	ls, rs := f.Joint(l1landmarks.LeftShoulder), f.Joint(l1landmarks.RightShoulder)
	lh, rh := f.Joint(l1landmarks.LeftHip), f.Joint(l1landmarks.RightHip)
	if g.VerticalOffset(ls, rs, lh, rh) >= th.PlankAlignment {
		return false
	}
	if a.LeftElbow <= th.PlankElbowMin || a.RightElbow <= th.PlankElbowMin {
		return false
	}
	return g.AlignedX(f.Joint(l1landmarks.LeftWrist), ls, th.HandsUnderShoulders) &&
		g.AlignedX(f.Joint(l1landmarks.RightWrist), rs, th.HandsUnderShoulders)
}

// IsPushupBottom: both elbows bent past the bottom angle.
func IsPushupBottom(_ *l1landmarks.Frame, a Angles, th Thresholds) bool {
	return a.LeftElbow < th.PushupBottomElbowMax && a.RightElbow < th.PushupBottomElbowMax
}

// IsSquatBottom: both knees bent past the bottom angle with knees and
// ankles below the hips.
func IsSquatBottom(f *l1landmarks.Frame, a Angles, th Thresholds) bool {
	if a.LeftKnee >= th.SquatBottomKneeMax || a.RightKnee >= th.SquatBottomKneeMax {
		return false
	}
	for _, side := range [2][3]int{
		{l1landmarks.LeftHip, l1landmarks.LeftKnee, l1landmarks.LeftAnkle},
		{l1landmarks.RightHip, l1landmarks.RightKnee, l1landmarks.RightAnkle},
	} {
		hip := f.Joint(side[0])
		if !g.Below(f.Joint(side[1]), hip) || !g.Below(f.Joint(side[2]), hip) {
			return false
		}
	}
	return true
}

// IsStanding: hip above knee above ankle on both legs, each segment
// near vertical.
func IsStanding(f *l1landmarks.Frame, _ Angles, th Thresholds) bool {
	for _, side := range [2][3]int{
		{l1landmarks.LeftHip, l1landmarks.LeftKnee, l1landmarks.LeftAnkle},
		{l1landmarks.RightHip, l1landmarks.RightKnee, l1landmarks.RightAnkle},
	} {
		hip, knee, ankle := f.Joint(side[0]), f.Joint(side[1]), f.Joint(side[2])
		if !g.VerticalChain(hip, knee, ankle) {
			return false
		}
		if !g.AlignedX(hip, knee, th.StandingLegTolerance) || !g.AlignedX(knee, ankle, th.StandingLegTolerance) {
			return false
		}
	}
	return true
}

// HandsRaised: both wrists above their shoulders by more than the margin.
func HandsRaised(f *l1landmarks.Frame, _ Angles, th Thresholds) bool {
	return g.Rise(f.Joint(l1landmarks.LeftWrist), f.Joint(l1landmarks.LeftShoulder)) > th.HandsRaiseMargin &&
		g.Rise(f.Joint(l1landmarks.RightWrist), f.Joint(l1landmarks.RightShoulder)) > th.HandsRaiseMargin
}

// HandsLowered: both wrists below their shoulders by more than the margin.
func HandsLowered(f *l1landmarks.Frame, _ Angles, th Thresholds) bool {
	return g.Rise(f.Joint(l1landmarks.LeftWrist), f.Joint(l1landmarks.LeftShoulder)) < -th.HandsRaiseMargin &&
		g.Rise(f.Joint(l1landmarks.RightWrist), f.Joint(l1landmarks.RightShoulder)) < -th.HandsRaiseMargin
}
