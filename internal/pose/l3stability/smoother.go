package l3stability

import "gonum.org/v1/gonum/stat"

// Smoother is a moving average over the most recent values of one
// continuous signal.
type Smoother struct {
	buf  []float64
	next int
	n    int
}

// NewSmoother averages over at most window values; window below 1 means 1.
func NewSmoother(window int) *Smoother {
	if window < 1 {
		window = 1
	}
	return &Smoother{buf: make([]float64, window)}
}

// Add records v and returns the mean of the values held.
func (s *Smoother) Add(v float64) float64 {
	s.buf[s.next] = v
	s.next = (s.next + 1) % len(s.buf)
	if s.n < len(s.buf) {
		s.n++
	}
	return s.Mean()
}

// Mean is the current average, 0 when empty.
func (s *Smoother) Mean() float64 {
	if s.n == 0 {
		return 0
	}
	if s.n < len(s.buf) {
		return stat.Mean(s.buf[:s.n], nil)
	}
	return stat.Mean(s.buf, nil)
}

// Reset discards held values.
func (s *Smoother) Reset() { s.next, s.n = 0, 0 }

// AngleSmoother keeps an independent Smoother per named angle. A window
// below 2 disables smoothing and Smooth returns its input.
type AngleSmoother struct {
	window    int
	smoothers map[string]*Smoother
}

// NewAngleSmoother returns a smoother set averaging over window values.
func NewAngleSmoother(window int) *AngleSmoother {
	return &AngleSmoother{window: window, smoothers: make(map[string]*Smoother)}
}

// Enabled reports whether smoothing has any effect.
func (a *AngleSmoother) Enabled() bool { return a != nil && a.window > 1 }

// Smooth records v for name and returns the smoothed value.
func (a *AngleSmoother) Smooth(name string, v float64) float64 {
	if !a.Enabled() {
		return v
	}
	s, ok := a.smoothers[name]
	if !ok {
		s = NewSmoother(a.window)
		a.smoothers[name] = s
	}
	return s.Add(v)
}

// Reset clears every per-angle buffer.
func (a *AngleSmoother) Reset() {
	if a == nil {
		return
	}
	for _, s := range a.smoothers {
		s.Reset()
	}
}
