package auth

import (
	"context"
	"errors"
	"time"

	"github.com/nimasrn/cash-ledger/pkg/redis"
)

const (
	DefaultMaxFailures = 5
	DefaultLockWindow  = 10 * time.Minute

	failKeyPrefix = "login:fail:"
	lockKeyPrefix = "login:lock:"
)

// LoginGuard counts consecutive failed logins per email. Once MaxFailures
// is reached the email is locked for Window; a successful login resets it.
type LoginGuard struct {
	redis       redis.RedisAdapter
	maxFailures int
	window      time.Duration
}

func NewLoginGuard(adapter redis.RedisAdapter, maxFailures int, window time.Duration) *LoginGuard {
	if maxFailures <= 0 {
		maxFailures = DefaultMaxFailures
	}
	if window <= 0 {
		window = DefaultLockWindow
	}
	return &LoginGuard{redis: adapter, maxFailures: maxFailures, window: window}
}

// Check returns ErrLocked together with the remaining lock time when the
// email is locked.
func (g *LoginGuard) Check(ctx context.Context, email string) (time.Duration, error) {
	ttl, err := g.redis.TTL(lockKeyPrefix + email)
	if err != nil {
		if errors.Is(err, redis.NilError) {
			return 0, nil
		}
		return 0, err
	}
	if ttl > 0 {
		return ttl, ErrLocked
	}
	return 0, nil
}

// Fail records a failed attempt and reports whether it locked the email.
func (g *LoginGuard) Fail(ctx context.Context, email string) (bool, error) {
	key := failKeyPrefix + email
	n, err := g.redis.Incr(key)
	if err != nil {
		return false, err
	}
	if n == 1 {
		if err := g.redis.Expire(key, g.window); err != nil {
			return false, err
		}
	}
	if n < int64(g.maxFailures) {
		return false, nil
	}

	if err := g.redis.Set(lockKeyPrefix+email, []byte("1"), g.window); err != nil {
		return false, err
	}
	return true, g.redis.Del(key)
}

func (g *LoginGuard) Reset(ctx context.Context, email string) error {
	return g.redis.Del(failKeyPrefix + email)
}
