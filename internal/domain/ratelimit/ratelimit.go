// Package ratelimit implements a fixed-window admission counter keyed by
// action and account. It is best-effort: it gates how often an account may
// trigger an action and never guards ledger correctness.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ActionOpenPack keys the daily pack allowance.
const ActionOpenPack = "open_pack_daily"

var ErrUnavailable = errors.New("rate limit store unavailable")

// Store increments the counter for key. The first increment of a window sets
// its expiry to now+window; later increments inside the window keep it.
type Store interface {
	Incr(ctx context.Context, key string, window time.Duration) (count int64, expiresAt time.Time, err error)
}

// Decision is the outcome of one CheckAndConsume call.
type Decision struct {
	Allowed bool
	Count   int64
	RetryAt time.Time
}

type Limiter struct {
	store Store
}

func New(store Store) *Limiter {
	return &Limiter{store: store}
}

// Key builds the counter key for an action performed by an account.
func Key(action, account string) string {
	return action + ":" + account
}

// CheckAndConsume increments the counter and rejects the call when the
// post-increment value exceeds limit. RetryAt is the end of the current window.
func (l *Limiter) CheckAndConsume(ctx context.Context, key string, limit int64, window time.Duration) (Decision, error) {
	if window <= 0 {
		return Decision{}, fmt.Errorf("invalid window %s", window)
	}

	count, expiresAt, err := l.store.Incr(ctx, key, window)
	if err != nil {
		return Decision{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	return Decision{
		Allowed: count <= limit,
		Count:   count,
		RetryAt: expiresAt,
	}, nil
}
