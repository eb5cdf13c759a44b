// Package ratelimit throttles unauthenticated reads per client.
package ratelimit

import (
	"context"
	"time"
)

const keyPrefix = "scrollvite:ratelimit:"

type Result struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Limiter decides whether one more request for key fits its bucket.
type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}
