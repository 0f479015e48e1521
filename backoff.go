package libemit

import (
	"math"
	"time"
)

// BackoffCalculator maps the number of failed dial attempts to the time
// to wait before the next one.
type BackoffCalculator func(attempts int) time.Duration

func ExponentialBackoff(attempts int) float64 {
	return (math.Pow(2.0, float64(attempts)) - 1) / 2
}

func ExponentialBackoffSeconds(attempts int) time.Duration {
	return time.Duration(ExponentialBackoff(attempts)) * time.Second
}
