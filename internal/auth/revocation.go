package auth

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Revoker stores revoked session token IDs.
type Revoker interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// NoopRevoker is used when no Redis is configured. Sessions end only when the
// cookie is cleared or the token expires.
type NoopRevoker struct{}

// Revoke does nothing.
func (NoopRevoker) Revoke(context.Context, string, time.Duration) error { return nil }

// IsRevoked always reports false.
func (NoopRevoker) IsRevoked(context.Context, string) (bool, error) { return false, nil }

const revokedKeyPrefix = "session:revoked:"

// RedisRevoker keeps revoked token IDs in Redis with the token's remaining lifetime as TTL.
type RedisRevoker struct {
	client *redis.Client
}

// NewRedisRevoker creates a revocation list backed by the given client.
func NewRedisRevoker(client *redis.Client) *RedisRevoker {
	return &RedisRevoker{client: client}
}

// Revoke records the token ID.
func (r *RedisRevoker) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	return r.client.Set(ctx, revokedKeyPrefix+tokenID, 1, ttl).Err()
}

// IsRevoked reports whether the token ID was revoked.
func (r *RedisRevoker) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	err := r.client.Get(ctx, revokedKeyPrefix+tokenID).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
