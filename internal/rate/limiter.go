package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds rate limiter tuning parameters.
type Config struct {
	EnableIssueThrottle    bool
	EnableRotateThrottle   bool
	MaxIssueAttempts       int
	IssueCooldownDuration  time.Duration
	MaxRotateAttempts      int
	RotateCooldownDuration time.Duration
}

// Limiter enforces per-family and per-user rate limits for issue
// and rotation operations using Redis counters.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a rate [Limiter] backed by the given Redis client.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	return &Limiter{
		redis:  redisClient,
		config: cfg,
	}
}

// CheckIssue checks whether the user is within the session issue budget.
// Returns an error if rate-limited.
func (l *Limiter) CheckIssue(ctx context.Context, userID string) error {
	if !l.config.EnableIssueThrottle {
		return nil
	}

	count, err := l.incrementWithTTL(ctx, issueKey(userID), l.config.IssueCooldownDuration)
	if err != nil {
		return err
	}
	if count > int64(l.config.MaxIssueAttempts) {
		return ErrRateLimited
	}

	return nil
}

// CheckRotate enforces the rotation limit by incrementing the counter and applying cooldown TTL.
func (l *Limiter) CheckRotate(ctx context.Context, familyID string) error {
	if !l.config.EnableRotateThrottle {
		return nil
	}

	count, err := l.incrementWithTTL(ctx, rotateKey(familyID), l.config.RotateCooldownDuration)
	if err != nil {
		return err
	}
	if count > int64(l.config.MaxRotateAttempts) {
		return ErrRateLimited
	}

	return nil
}

// ResetRotate clears the rotation counter for a family. Called when the
// family is revoked so a fresh login is not penalized.
func (l *Limiter) ResetRotate(ctx context.Context, familyID string) error {
	if err := l.redis.Del(ctx, rotateKey(familyID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// GetRotateAttempts returns the current attempt counter for a family.
// Missing keys return zero.
func (l *Limiter) GetRotateAttempts(ctx context.Context, familyID string) (int, error) {
	count, err := l.redis.Get(ctx, rotateKey(familyID)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count < 0 {
		return 0, nil
	}
	return int(count), nil
}

func (l *Limiter) incrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed-window semantics: set TTL only for the first hit in the window.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return count, nil
}

func rotateKey(familyID string) string {
	return "gr:" + familyID
}

func issueKey(userID string) string {
	return "gi:" + userID
}
