package l3stability

// History is a fixed-capacity FIFO of boolean classifications. Pushing onto
// a full history evicts the oldest entry.
type History struct {
	buf  []bool
	head int // index of the oldest entry
	n    int
}

// NewHistory returns an empty history holding at most capacity entries.
// A capacity below 1 is raised to 1.
func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = 1
	}
	return &History{buf: make([]bool, capacity)}
}

// Push appends v, evicting the oldest entry when full.
func (h *History) Push(v bool) {
	if h.n < len(h.buf) {
		h.buf[(h.head+h.n)%len(h.buf)] = v
		h.n++
		return
	}
	h.buf[h.head] = v
	h.head = (h.head + 1) % len(h.buf)
}

// Len is the number of entries currently held.
func (h *History) Len() int { return h.n }

// Cap is the maximum number of entries.
func (h *History) Cap() int { return len(h.buf) }

// Count returns how many held entries equal v.
func (h *History) Count(v bool) int {
	c := 0
	for i := 0; i < h.n; i++ {
		if h.buf[(h.head+i)%len(h.buf)] == v {
			c++
		}
	}
	return c
}

// Values returns the held entries oldest first.
func (h *History) Values() []bool {
	out := make([]bool, h.n)
	for i := range out {
		out[i] = h.buf[(h.head+i)%len(h.buf)]
	}
	return out
}

// Reset empties the history.
func (h *History) Reset() {
	h.head, h.n = 0, 0
}

// Rule decides when a history is stable.
type Rule struct {
	// Window is the history capacity and the number of samples required
	// before any decision is made.
	Window int
	// Majority is the minimum number of entries that must agree.
	Majority int
}

// DefaultRule is five samples with four in agreement.
var DefaultRule = Rule{Window: 5, Majority: 4}

// Stable reports whether h is saturated and at least Majority of its
// entries equal target.
func (r Rule) Stable(h *History, target bool) bool {
	if h == nil || h.Len() < r.Window {
		return false
	}
	return h.Count(target) >= r.Majority
}
