package l3stability

import "sort"

// Filter keeps one History per named signal under a shared Rule.
// A Filter belongs to a single session and is not safe for concurrent use.
type Filter struct {
	rule      Rule
	histories map[string]*History
}

// NewFilter returns a filter applying rule to every signal.
func NewFilter(rule Rule) *Filter {
	if rule.Window < 1 {
		rule = DefaultRule
	}
	if rule.Majority > rule.Window {
		rule.Majority = rule.Window
	}
	return &Filter{rule: rule, histories: make(map[string]*History)}
}

// Rule returns the filter's stability rule.
func (f *Filter) Rule() Rule { return f.rule }

// Observe pushes one classification for signal.
func (f *Filter) Observe(signal string, v bool) {
	h, ok := f.histories[signal]
	if !ok {
		h = NewHistory(f.rule.Window)
		f.histories[signal] = h
	}
	h.Push(v)
}

// Stable reports whether signal has settled on target.
func (f *Filter) Stable(signal string, target bool) bool {
	return f.rule.Stable(f.histories[signal], target)
}

// History returns the buffer for signal, or nil if it was never observed.
func (f *Filter) History(signal string) *History { return f.histories[signal] }

// Signals lists observed signal names in sorted order.
func (f *Filter) Signals() []string {
	names := make([]string, 0, len(f.histories))
	for name := range f.histories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Reset clears every history.
func (f *Filter) Reset() {
	for _, h := range f.histories {
		h.Reset()
	}
}
