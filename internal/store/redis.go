// redis.go -- go-redis structs for short-lived auth state.
//
// RedisStore tracks revoked refresh-token IDs (the jti denylist) so a
// refresh token can only be redeemed once. RedisRateLimiter throttles
// credential guessing on the login endpoint.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient connects to Redis and verifies connectivity with a ping.
// The returned client is shared by every Redis-backed struct in the process.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	rdb := redis.NewClient(opt)

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, err
	}

	return rdb, nil
}

// RedisStore wraps a Redis client for refresh-token revocation tracking.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore wraps an already-connected Redis client.
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb}
}

// CheckHealth verifies the Redis connection is alive.
func (s *RedisStore) CheckHealth(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// RevokeRefreshToken denylists a refresh token's jti until the token would
// have expired anyway. The TTL keeps the denylist self-cleaning: once the
// token is past its exp claim, the signature check rejects it regardless.
func (s *RedisStore) RevokeRefreshToken(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		// Already expired -- nothing to denylist.
		return nil
	}
	if err := s.rdb.Set(ctx, "revoked_refresh:"+jti, "1", ttl).Err(); err != nil {
		return fmt.Errorf("revoking refresh token: %w", err)
	}
	return nil
}

// IsRefreshTokenRevoked reports whether a refresh token's jti has been
// redeemed or revoked. Fails closed: a Redis error is returned rather than
// treated as "not revoked".
func (s *RedisStore) IsRefreshTokenRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := s.rdb.Exists(ctx, "revoked_refresh:"+jti).Result()
	if err != nil {
		return false, fmt.Errorf("checking refresh token revocation: %w", err)
	}
	return n > 0, nil
}

// RedisRateLimiter implements fixed-window counting with a lockout key.
type RedisRateLimiter struct {
	rdb *redis.Client
}

// NewRedisRateLimiter wraps an already-connected Redis client.
func NewRedisRateLimiter(rdb *redis.Client) *RedisRateLimiter {
	return &RedisRateLimiter{rdb}
}

// Allow records an attempt for key and returns ErrRateLimitExceeded if the
// caller is locked out or has exhausted the policy's attempt budget.
// Any other non-nil error is a Redis failure; callers decide whether to
// fail open or closed.
func (l *RedisRateLimiter) Allow(ctx context.Context, key string, policy RateLimit) error {
	lockKey := "ratelimit:lock:" + key
	countKey := "ratelimit:count:" + key

	// Locked out from a previous burst?
	locked, err := l.rdb.Exists(ctx, lockKey).Result()
	if err != nil {
		return fmt.Errorf("checking lockout: %w", err)
	}
	if locked > 0 {
		return ErrRateLimitExceeded
	}

	// Count this attempt; first attempt in a window sets the window TTL.
	count, err := l.rdb.Incr(ctx, countKey).Result()
	if err != nil {
		return fmt.Errorf("counting attempt: %w", err)
	}
	if count == 1 {
		if err := l.rdb.Expire(ctx, countKey, policy.Window).Err(); err != nil {
			return fmt.Errorf("setting window expiry: %w", err)
		}
	}

	if count > int64(policy.MaxAttempts) {
		// Budget blown -- start the lockout and clear the counter so the
		// next window starts fresh after the lockout lapses.
		pipe := l.rdb.TxPipeline()
		pipe.Set(ctx, lockKey, "1", policy.LockoutTTL)
		pipe.Del(ctx, countKey)
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("setting lockout: %w", err)
		}
		return ErrRateLimitExceeded
	}

	return nil
}
