package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	red "github.com/redis/go-redis/v9"

	"github.com/tetardtek/superoauth/internal/core/domain"
	"github.com/tetardtek/superoauth/internal/core/port"
	"github.com/tetardtek/superoauth/internal/repository"
)

const defaultStatePrefix = "oauth_state"

// StateRepository keeps OAuth anti-forgery state in Redis. Entries expire via
// TTL, and Consume uses GETDEL so a state value is redeemable exactly once.
type StateRepository struct {
	client *red.Client
	prefix string
}

// NewStateRepository constructs a repository using the provided Redis client and key prefix.
func NewStateRepository(client *red.Client, keyPrefix string) *StateRepository {
	prefix := strings.TrimSpace(keyPrefix)
	if prefix == "" {
		prefix = defaultStatePrefix
	}
	return &StateRepository{client: client, prefix: prefix}
}

// Save stores the state payload under its opaque token with the given TTL.
func (r *StateRepository) Save(ctx context.Context, state string, payload domain.OAuthState, ttl time.Duration) error {
	state = strings.TrimSpace(state)
	if state == "" {
		return errors.New("state is required")
	}
	if ttl <= 0 {
		return errors.New("ttl must be positive")
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal oauth state: %w", err)
	}

	if err := r.client.Set(ctx, r.key(state), raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis set oauth state: %w", err)
	}
	return nil
}

// Consume atomically reads and deletes the payload. A missing or expired
// state yields repository.ErrNotFound; concurrent redeemers race on GETDEL
// and at most one wins.
func (r *StateRepository) Consume(ctx context.Context, state string) (*domain.OAuthState, error) {
	state = strings.TrimSpace(state)
	if state == "" {
		return nil, repository.ErrNotFound
	}

	raw, err := r.client.GetDel(ctx, r.key(state)).Result()
	if err != nil {
		if errors.Is(err, red.Nil) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("redis getdel oauth state: %w", err)
	}

	var payload domain.OAuthState
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("unmarshal oauth state: %w", err)
	}
	return &payload, nil
}

// CleanupExpired is a no-op for the Redis backend; TTL eviction handles it.
func (r *StateRepository) CleanupExpired(ctx context.Context) error {
	return nil
}

func (r *StateRepository) key(state string) string {
	return fmt.Sprintf("%s:%s", r.prefix, state)
}

var _ port.StateStore = (*StateRepository)(nil)
