package ledger

import (
	"context"
)

// Repository persists collections.
//
// Update loads the current collections of accounts (absent accounts are
// empty), hands them to fn for in-place modification and persists every
// collection atomically if fn returns nil. Calls touching the same account
// are linearized; calls touching disjoint accounts may run in parallel.
type Repository interface {
	Get(ctx context.Context, account string) (Collection, error)
	Update(ctx context.Context, accounts []string, fn func(cols map[string]Collection) error) error
}
