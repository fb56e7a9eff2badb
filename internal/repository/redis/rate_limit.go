package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/tetardtek/superoauth/internal/core/port"
)

const defaultRateLimitPrefix = "rate_limit"

// RateLimitRepository implements a sliding-window limiter over Redis sorted
// sets. Each attempt is a member scored by its nanosecond timestamp; counting
// after trimming the expired range yields the in-window total.
type RateLimitRepository struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

// NewRateLimitRepository constructs a repository using the provided Redis client and key prefix.
func NewRateLimitRepository(client *redis.Client, keyPrefix string) *RateLimitRepository {
	prefix := keyPrefix
	if prefix == "" {
		prefix = defaultRateLimitPrefix
	}
	return &RateLimitRepository{
		client: client,
		prefix: prefix,
		now:    time.Now,
	}
}

// Allow records an attempt for the key and reports whether the attempt count
// inside the window stays at or below the limit.
func (r *RateLimitRepository) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if limit <= 0 {
		return false, errors.New("limit must be positive")
	}
	if window <= 0 {
		return false, errors.New("window must be positive")
	}

	now := r.now().UTC()
	redisKey := fmt.Sprintf("%s:%s", r.prefix, key)
	threshold := strconv.FormatFloat(float64(now.Add(-window).UnixNano()), 'f', -1, 64)

	pipe := r.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "-inf", threshold)
	pipe.ZAdd(ctx, redisKey, redis.Z{
		Score:  float64(now.UnixNano()),
		Member: fmt.Sprintf("%d:%s", now.UnixNano(), uuid.NewString()),
	})
	countCmd := pipe.ZCard(ctx, redisKey)
	pipe.Expire(ctx, redisKey, window)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("redis rate limit pipeline: %w", err)
	}

	return countCmd.Val() <= int64(limit), nil
}

// WithClock overrides the internal clock, used in tests.
func (r *RateLimitRepository) WithClock(clock func() time.Time) {
	if clock != nil {
		r.now = clock
	}
}

var _ port.RateLimitStore = (*RateLimitRepository)(nil)
