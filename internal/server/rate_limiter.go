// Package server wraps a token bucket rate limiter for per-connection
// throttling of inbound messages.
package server

import (
	"time"

	"golang.org/x/time/rate"
)

// newRateLimiter allows burst messages per interval, refilled evenly. A
// non-positive burst disables limiting and yields nil.
func newRateLimiter(burst int, interval time.Duration) *rate.Limiter {
	if burst <= 0 {
		return nil
	}
	if interval <= 0 {
		interval = time.Second
	}
	return rate.NewLimiter(rate.Every(interval/time.Duration(burst)), burst)
}
