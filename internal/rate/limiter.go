// Package rate enforces fixed-window attempt budgets for login, two-factor
// verification, and password-reset confirmation using Redis counters.
package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrRateLimited is returned when an attempt budget is exhausted.
	ErrRateLimited = errors.New("rate limited")
	// ErrRedisUnavailable wraps transport failures talking to Redis.
	ErrRedisUnavailable = errors.New("redis unavailable")
)

// Config holds the per-flow budgets and cooldown windows.
type Config struct {
	MaxLoginAttempts     int
	LoginCooldown        time.Duration
	MaxTwoFactorAttempts int
	TwoFactorCooldown    time.Duration
	MaxResetAttempts     int
	ResetCooldown        time.Duration
}

// Limiter tracks failed attempts per identifier. Counters are fixed-window:
// the TTL is set on the first failure in a window and left untouched after.
// A nil Limiter, or one built without a Redis client, disables throttling.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a [Limiter] backed by the given Redis client.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	return &Limiter{
		redis:  redisClient,
		config: cfg,
	}
}

// CheckLogin reports whether the identifier is within its login budget.
func (l *Limiter) CheckLogin(ctx context.Context, identifier string) error {
	if l == nil {
		return nil
	}
	return l.check(ctx, loginKey(identifier), l.config.MaxLoginAttempts)
}

// RecordLoginFailure counts a failed login for the identifier.
func (l *Limiter) RecordLoginFailure(ctx context.Context, identifier string) error {
	if l == nil {
		return nil
	}
	return l.record(ctx, loginKey(identifier), l.config.MaxLoginAttempts, l.config.LoginCooldown)
}

// ResetLogin clears the failed-login counter after a successful login.
func (l *Limiter) ResetLogin(ctx context.Context, identifier string) error {
	if l == nil {
		return nil
	}
	return l.reset(ctx, loginKey(identifier))
}

// CheckTwoFactor reports whether the user is within its 2FA budget.
func (l *Limiter) CheckTwoFactor(ctx context.Context, userID string) error {
	if l == nil {
		return nil
	}
	return l.check(ctx, twoFactorKey(userID), l.config.MaxTwoFactorAttempts)
}

// RecordTwoFactorFailure counts a failed 2FA attempt for the user.
func (l *Limiter) RecordTwoFactorFailure(ctx context.Context, userID string) error {
	if l == nil {
		return nil
	}
	return l.record(ctx, twoFactorKey(userID), l.config.MaxTwoFactorAttempts, l.config.TwoFactorCooldown)
}

// ResetTwoFactor clears the 2FA counter after a successful verification.
func (l *Limiter) ResetTwoFactor(ctx context.Context, userID string) error {
	if l == nil {
		return nil
	}
	return l.reset(ctx, twoFactorKey(userID))
}

// CheckReset reports whether the identifier is within its reset budget.
func (l *Limiter) CheckReset(ctx context.Context, identifier string) error {
	if l == nil {
		return nil
	}
	return l.check(ctx, resetKey(identifier), l.config.MaxResetAttempts)
}

// RecordResetFailure counts a failed reset confirmation.
func (l *Limiter) RecordResetFailure(ctx context.Context, identifier string) error {
	if l == nil {
		return nil
	}
	return l.record(ctx, resetKey(identifier), l.config.MaxResetAttempts, l.config.ResetCooldown)
}

func (l *Limiter) check(ctx context.Context, key string, maxAttempts int) error {
	if l.redis == nil {
		return nil
	}
	count, err := l.redis.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	if count >= int64(maxAttempts) {
		return ErrRateLimited
	}

	return nil
}

func (l *Limiter) record(ctx context.Context, key string, maxAttempts int, ttl time.Duration) error {
	if l.redis == nil {
		return nil
	}
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed-window semantics: set TTL only for the first hit in the window.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, ttl).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	if count >= int64(maxAttempts) {
		return ErrRateLimited
	}

	return nil
}

func (l *Limiter) reset(ctx context.Context, key string) error {
	if l.redis == nil {
		return nil
	}
	if err := l.redis.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func loginKey(identifier string) string {
	return "identity:login:" + identifier
}

func twoFactorKey(userID string) string {
	return "identity:2fa:" + userID
}

func resetKey(identifier string) string {
	return "identity:reset:" + identifier
}
