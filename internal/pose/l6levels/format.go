package l6levels

import (
	"fmt"
	"time"
)

// FormatTime renders a stopwatch reading as MM:SS. Minutes keep counting
// past 59.
func FormatTime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}

// Verdicts returned by Evaluate.
const (
	VerdictExcellent = "Excellent"
	VerdictGreat     = "Great"
	VerdictGood      = "Good"
	VerdictKeepGoing = "Keep practicing"
)

// Evaluate grades a final count against the level goals: reaching the last
// goal is excellent, the one before great, the one before that good.
func Evaluate(count int, goals []int) string {
	verdicts := []string{VerdictExcellent, VerdictGreat, VerdictGood}
	for i, v := range verdicts {
		idx := len(goals) - 1 - i
		if idx < 0 {
			break
		}
		if count >= goals[idx] {
			return v
		}
	}
	return VerdictKeepGoing
}
