// Package ratelimit provides fixed-window request limiters used to shield
// the identity authority from unauthenticated bursts.
package ratelimit

import (
	"context"
	"time"
)

// Decision reports the outcome of a single Allow call.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Limiter answers whether one more request under key fits in the window.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (Decision, error)
}
