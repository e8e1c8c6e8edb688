package revocation

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/redis/go-redis/v9"
)

// RedisRegistry stores blacklist markers as expiring Redis keys.
type RedisRegistry struct {
	client  redis.UniversalClient
	timeout time.Duration
}

var _ Registry = (*RedisRegistry)(nil)

// NewRedisRegistry binds the registry to an existing client. Every call is
// bounded by timeout; a zero timeout relies on the caller's context only.
func NewRedisRegistry(client redis.UniversalClient, timeout time.Duration) *RedisRegistry {
	return &RedisRegistry{client: client, timeout: timeout}
}

func (r *RedisRegistry) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, r.timeout)
}

// Blacklist sets revoked:<jti> with an expiry of ttl.
func (r *RedisRegistry) Blacklist(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	if err := r.client.Set(ctx, key(jti), "1", ttl).Err(); err != nil {
		return fmt.Errorf("%w: blacklist: %w", common.ErrServiceUnavailable, err)
	}
	return nil
}

// IsRevoked checks for the presence of revoked:<jti>.
func (r *RedisRegistry) IsRevoked(ctx context.Context, jti string) (bool, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	n, err := r.client.Exists(ctx, key(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: revocation lookup: %w", common.ErrServiceUnavailable, err)
	}
	return n > 0, nil
}

// Ping reports whether Redis is reachable.
func (r *RedisRegistry) Ping(ctx context.Context) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %w", common.ErrServiceUnavailable, err)
	}
	return nil
}
