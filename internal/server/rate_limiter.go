package server

import (
	"time"

	"golang.org/x/time/rate"
)

// rateLimiter throttles the frames a single session may submit: burst frames
// per interval, refilled continuously.
type rateLimiter struct {
	limiter *rate.Limiter
}

func newRateLimiter(burst int, interval time.Duration) *rateLimiter {
	if burst <= 0 {
		burst = 1
	}
	if interval <= 0 {
		interval = time.Second
	}

	return &rateLimiter{
		limiter: rate.NewLimiter(rate.Every(interval/time.Duration(burst)), burst),
	}
}

func (rl *rateLimiter) allow() bool {
	return rl.limiter.Allow()
}
