package core

import (
	"math"
	"time"
)

// CalculateDuration returns the net study seconds between start and observed
// after subtracting accumulated paused seconds. Negative results are clamped
// to zero, which guards against clock skew and corrupted accumulators. The
// same calculation is applied at pause, resume and finish.
func CalculateDuration(start, observed time.Time, pausedSeconds float64) float64 {
	seconds := observed.Sub(start).Seconds() - pausedSeconds
	if math.IsNaN(seconds) || seconds < 0 {
		return 0
	}
	return seconds
}
