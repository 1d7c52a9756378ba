package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cosmas28/business-connect-v2/internal/repository"
)

const revokedKeyPrefix = "revoked:"

// RedisRevocationCache fronts a durable RevocationRegistry with a Redis
// fast path. Revoke writes the durable store first so the registry stays
// correct if the cache write is lost; cached keys expire at the token's
// natural expiry, after which the durable row is the only record left.
type RedisRevocationCache struct {
	client redis.UniversalClient
	next   repository.RevocationRegistry
}

var _ repository.RevocationRegistry = (*RedisRevocationCache)(nil)

// NewRedisRevocationCache wraps next with a Redis read-through cache.
func NewRedisRevocationCache(client redis.UniversalClient, next repository.RevocationRegistry) *RedisRevocationCache {
	return &RedisRevocationCache{client: client, next: next}
}

func (c *RedisRevocationCache) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	if err := c.next.Revoke(ctx, jti, expiresAt); err != nil {
		return err
	}
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	if err := c.client.Set(ctx, revokedKeyPrefix+jti, 1, ttl).Err(); err != nil {
		return fmt.Errorf("cache revocation: %w", err)
	}
	return nil
}

func (c *RedisRevocationCache) IsRevoked(ctx context.Context, jti string) (bool, error) {
	err := c.client.Get(ctx, revokedKeyPrefix+jti).Err()
	if err == nil {
		return true, nil
	}
	if err != redis.Nil {
		return false, fmt.Errorf("cache lookup: %w", err)
	}
	return c.next.IsRevoked(ctx, jti)
}

func (c *RedisRevocationCache) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	// Cached keys carry their own TTL; only the durable rows need sweeping.
	return c.next.DeleteExpired(ctx, now)
}
