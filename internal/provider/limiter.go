package provider

import (
	"golang.org/x/time/rate"
)

// newLimiter returns a token-bucket limiter enforcing requestsPerSecond with
// the given burst, used to keep one guild's flood of submissions from
// hammering a single upstream provider.
func newLimiter(requestsPerSecond float64, burst int) *rate.Limiter {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 2
	}
	if burst <= 0 {
		burst = 4
	}
	return rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
}
