package ledger

import (
	"context"
	"errors"
	"time"
)

const retryBaseDelay = 50 * time.Millisecond

// Retry runs fn up to attempts times, backing off exponentially while it
// fails with ErrStorageUnavailable. Any other error is returned immediately.
func Retry(ctx context.Context, attempts int, fn func(ctx context.Context) error) error {
	var err error
	delay := retryBaseDelay
	for i := 0; i < attempts; i++ {
		if err = fn(ctx); err == nil || !errors.Is(err, ErrStorageUnavailable) {
			return err
		}
		if i == attempts-1 {
			break
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return errors.Join(err, ctx.Err())
		case <-timer.C:
		}
		delay *= 2
	}
	return err
}
