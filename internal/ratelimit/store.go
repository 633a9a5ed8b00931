// Package ratelimit enforces the server-side scan submission ceiling. It is
// a second line behind the client dispatch gate: agents self-limit, but the
// server does not trust them to.
package ratelimit

import (
	"context"
	"time"
)

// Result describes the outcome of one admission check.
type Result struct {
	Allowed   bool
	Remaining int
	Limit     int
	ResetAt   time.Time
}

// BucketStore tracks request counts per key over a sliding window.
type BucketStore interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*Result, error)
	CurrentCount(ctx context.Context, key string) (int, error)
	Reset(ctx context.Context, key string) error
}
