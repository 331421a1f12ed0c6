package l2geometry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/banshee-data/reps.report/internal/pose/l1landmarks"
)

func j(x, y float64) l1landmarks.Joint { return l1landmarks.Joint{X: x, Y: y} }

func TestAngle(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		a, b, c l1landmarks.Joint
		want    float64
	}{
		{"right angle", j(1, 0), j(0, 0), j(0, 1), 90},
		{"straight", j(-1, 0), j(0, 0), j(1, 0), 180},
		{"folded", j(1, 0), j(0, 0), j(1, 0), 0},
		{"reflex reflected", j(math.Cos(170*math.Pi/180), math.Sin(170*math.Pi/180)), j(0, 0), j(math.Cos(-170*math.Pi/180), math.Sin(-170*math.Pi/180)), 20},
		{"coincident points", j(0.3, 0.3), j(0.3, 0.3), j(0.3, 0.3), 0},
		{"forty five", j(1, 0), j(0, 0), j(1, 1), 45},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := Angle(tc.a, tc.b, tc.c)
			assert.InDelta(t, tc.want, got, 1e-9)
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, 180.0)
		})
	}
}

func TestAngleSymmetric(t *testing.T) {
	t.Parallel()

	a, b, c := j(0.2, 0.7), j(0.4, 0.5), j(0.9, 0.6)
	assert.InDelta(t, Angle(a, b, c), Angle(c, b, a), 1e-9)
}

func TestPredicates(t *testing.T) {
	t.Parallel()

	hip, knee, ankle := j(0.5, 0.5), j(0.5, 0.7), j(0.52, 0.9)
	assert.True(t, Below(knee, hip))
	assert.True(t, Above(hip, knee))
	assert.True(t, VerticalChain(hip, knee, ankle))
	assert.False(t, VerticalChain(knee, hip, ankle))
	assert.True(t, VerticalChain(hip), "a single joint is trivially ordered")

	assert.True(t, AlignedX(knee, ankle, 0.1))
	assert.False(t, AlignedX(knee, j(0.7, 0.7), 0.1))
	assert.False(t, AlignedX(j(0, 0), j(0.1, 0), 0.1), "tolerance is exclusive")
	assert.True(t, AlignedY(j(0, 0.5), j(1, 0.55), 0.1))

	assert.InDelta(t, 0.6, MidY(hip, knee), 1e-12)
	assert.InDelta(t, 0.2, VerticalOffset(hip, hip, knee, knee), 1e-12)
	assert.InDelta(t, 0.2, Rise(hip, knee), 1e-12)
	assert.InDelta(t, -0.2, Rise(knee, hip), 1e-12)
}

func TestJointAngle(t *testing.T) {
	t.Parallel()

	f := &l1landmarks.Frame{Joints: []l1landmarks.Joint{j(1, 0), j(0, 0), j(0, 1)}}
	assert.InDelta(t, 90, JointAngle(f, 0, 1, 2), 1e-9)
}
