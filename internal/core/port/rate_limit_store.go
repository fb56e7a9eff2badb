package port

import (
	"context"
	"time"
)

// RateLimitStore counts hits inside a sliding window. Allow records the hit
// and reports whether the caller is still within limit.
type RateLimitStore interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}
