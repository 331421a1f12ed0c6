package l1landmarks

import (
	"encoding/json"
	"fmt"
	"time"
)

// wireFrame is the line-delimited JSON shape emitted by pose estimators.
type wireFrame struct {
	TimestampMs *int64  `json:"ts_ms,omitempty"`
	Landmarks   []Joint `json:"landmarks"`
}

// ParseFrame decodes one JSON frame. Frames without ts_ms are stamped with
// fallback, which callers normally take from their clock.
func ParseFrame(data []byte, fallback time.Time) (*Frame, error) {
	var w wireFrame
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("failed to decode landmark frame: %w", err)
	}
	if len(w.Landmarks) == 0 {
		return nil, fmt.Errorf("%w: no landmarks", ErrIncompleteFrame)
	}
	if len(w.Landmarks) > NumLandmarks {
		return nil, fmt.Errorf("too many landmarks: %d (max %d)", len(w.Landmarks), NumLandmarks)
	}
	ts := fallback
	if w.TimestampMs != nil {
		ts = time.UnixMilli(*w.TimestampMs)
	}
	return &Frame{Timestamp: ts, Joints: w.Landmarks}, nil
}

// MarshalJSON encodes the frame in the same shape ParseFrame reads.
func (f Frame) MarshalJSON() ([]byte, error) {
	w := wireFrame{Landmarks: f.Joints}
	if !f.Timestamp.IsZero() {
		ms := f.Timestamp.UnixMilli()
		w.TimestampMs = &ms
	}
	return json.Marshal(w)
}
