package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Config holds outbound rate limiting and retry configuration
type Config struct {
	RequestsPerSecond float64 `json:"requestsPerSecond"`
	Burst             int     `json:"burst"`
	MaxAttempts       int     `json:"maxAttempts"`
	BaseDelayMs       int     `json:"baseDelayMs"`
	NetworkDelayMs    int     `json:"networkDelayMs"`
}

// DefaultConfig returns the default rate limit configuration
func DefaultConfig() Config {
	return Config{
		RequestsPerSecond: 5,
		Burst:             5,
		MaxAttempts:       3,
		BaseDelayMs:       1000,
		NetworkDelayMs:    1000,
	}
}

// Policy returns the retry policy described by the config
func (c Config) Policy() RetryPolicy {
	p := DefaultRetryPolicy()
	if c.MaxAttempts > 0 {
		p.MaxAttempts = c.MaxAttempts
	}
	if c.BaseDelayMs > 0 {
		p.BaseDelay = time.Duration(c.BaseDelayMs) * time.Millisecond
	}
	if c.NetworkDelayMs > 0 {
		p.NetworkDelay = time.Duration(c.NetworkDelayMs) * time.Millisecond
	}
	return p
}

// RateLimiter provides rate limiting using a token bucket
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter creates a new rate limiter with the given config.
// A non-positive rate disables limiting.
func NewRateLimiter(config Config) *RateLimiter {
	limit := rate.Inf
	if config.RequestsPerSecond > 0 {
		limit = rate.Limit(config.RequestsPerSecond)
	}
	burst := config.Burst
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{limiter: rate.NewLimiter(limit, burst)}
}

// NewRateLimiterDefault creates a rate limiter with default config
func NewRateLimiterDefault() *RateLimiter {
	return NewRateLimiter(DefaultConfig())
}

// Throttle waits until a request may be sent or ctx is done.
// Call this before making a request
func (r *RateLimiter) Throttle(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}
