package l1landmarks

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Anatomical landmark indices of the 33-point pose topology.
const (
	Nose = iota
	LeftEyeInner
	LeftEye
	LeftEyeOuter
	RightEyeInner
	RightEye
	RightEyeOuter
	LeftEar
	RightEar
	MouthLeft
	MouthRight
	LeftShoulder
	RightShoulder
	LeftElbow
	RightElbow
	LeftWrist
	RightWrist
	LeftPinky
	RightPinky
	LeftIndex
	RightIndex
	LeftThumb
	RightThumb
	LeftHip
	RightHip
	LeftKnee
	RightKnee
	LeftAnkle
	RightAnkle
	LeftHeel
	RightHeel
	LeftFootIndex
	RightFootIndex

	// NumLandmarks is the number of joints in a full frame.
	NumLandmarks
)

var landmarkNames = [NumLandmarks]string{
	"nose", "left_eye_inner", "left_eye", "left_eye_outer",
	"right_eye_inner", "right_eye", "right_eye_outer",
	"left_ear", "right_ear", "mouth_left", "mouth_right",
	"left_shoulder", "right_shoulder", "left_elbow", "right_elbow",
	"left_wrist", "right_wrist", "left_pinky", "right_pinky",
	"left_index", "right_index", "left_thumb", "right_thumb",
	"left_hip", "right_hip", "left_knee", "right_knee",
	"left_ankle", "right_ankle", "left_heel", "right_heel",
	"left_foot_index", "right_foot_index",
}

// Name returns the snake_case name of a landmark index.
func Name(idx int) string {
	if idx < 0 || idx >= NumLandmarks {
		return fmt.Sprintf("landmark_%d", idx)
	}
	return landmarkNames[idx]
}

// ErrIncompleteFrame is returned when a frame lacks a joint a consumer needs.
var ErrIncompleteFrame = errors.New("incomplete landmark frame")

// Joint is one body landmark in normalized image space. X grows rightward
// and Y grows downward, both nominally in [0,1]. Z is relative depth.
type Joint struct {
	X          float64  `json:"x"`
	Y          float64  `json:"y"`
	Z          float64  `json:"z"`
	Visibility *float64 `json:"visibility,omitempty"`
}

// Finite reports whether all coordinates are real numbers.
func (j Joint) Finite() bool {
	for _, v := range [...]float64{j.X, j.Y, j.Z} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Visible reports whether the joint meets the minimum visibility. Joints
// without a visibility score are treated as visible.
func (j Joint) Visible(min float64) bool {
	if j.Visibility == nil || min <= 0 {
		return true
	}
	return *j.Visibility >= min
}

// Frame is one pose estimate: joints indexed by anatomical landmark.
type Frame struct {
	Timestamp time.Time
	Joints    []Joint
}

// Joint returns the landmark at idx. The caller must have checked the frame
// with Require first; out-of-range indices yield the zero Joint.
func (f *Frame) Joint(idx int) Joint {
	if f == nil || idx < 0 || idx >= len(f.Joints) {
		return Joint{}
	}
	return f.Joints[idx]
}

// Require checks that every listed landmark is present, finite and at least
// minVisibility visible. The returned error wraps ErrIncompleteFrame.
func (f *Frame) Require(minVisibility float64, indices ...int) error {
	if f == nil {
		return fmt.Errorf("%w: no frame", ErrIncompleteFrame)
	}
	for _, idx := range indices {
		if idx < 0 || idx >= len(f.Joints) {
			return fmt.Errorf("%w: missing %s", ErrIncompleteFrame, Name(idx))
		}
		j := f.Joints[idx]
		if !j.Finite() {
			return fmt.Errorf("%w: non-finite %s", ErrIncompleteFrame, Name(idx))
		}
		if !j.Visible(minVisibility) {
			return fmt.Errorf("%w: %s below visibility %.2f", ErrIncompleteFrame, Name(idx), minVisibility)
		}
	}
	return nil
}
