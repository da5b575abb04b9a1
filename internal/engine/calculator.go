package engine

import (
	"time"
)

// ratePerSecond returns delta per second over elapsed. ok is false when
// elapsed is not positive: two collections stamped at the same millisecond
// (or out of order) have no defined rate.
func ratePerSecond(delta float64, elapsed time.Duration) (rate float64, ok bool) {
	ms := elapsed.Milliseconds()
	if ms <= 0 {
		return 0, false
	}
	return delta * 1000 / float64(ms), true
}

// safeDivide returns a/b, or 0 when b is zero.
func safeDivide(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}

// microsToMillis converts a microsecond total to milliseconds.
func microsToMillis(us int64) float64 {
	return float64(us) / 1000
}
