package ledger

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepository keeps collections in process memory. Each account has its
// own lock, multi-account updates take them in sorted order.
type MemoryRepository struct {
	mu    sync.RWMutex
	data  map[string]Collection
	locks sync.Map // account -> *sync.Mutex
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{data: make(map[string]Collection)}
}

func (r *MemoryRepository) lock(account string) *sync.Mutex {
	m, _ := r.locks.LoadOrStore(account, &sync.Mutex{})
	return m.(*sync.Mutex)
}

func (r *MemoryRepository) Get(ctx context.Context, account string) (Collection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.data[account].Clone(), nil
}

func (r *MemoryRepository) Update(ctx context.Context, accounts []string, fn func(map[string]Collection) error) error {
	ordered := SortedAccounts(accounts)
	for _, acc := range ordered {
		m := r.lock(acc)
		m.Lock()
		defer m.Unlock()
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	cols := make(map[string]Collection, len(ordered))
	r.mu.RLock()
	for _, acc := range ordered {
		cols[acc] = r.data[acc].Clone()
	}
	r.mu.RUnlock()

	if err := fn(cols); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, acc := range ordered {
		col := cols[acc].Normalize()
		if len(col) == 0 {
			delete(r.data, acc)
			continue
		}
		r.data[acc] = col
	}
	return nil
}

// SortedAccounts dedupes accounts and sorts them into lock order.
func SortedAccounts(accounts []string) []string {
	out := make([]string, 0, len(accounts))
	seen := make(map[string]bool, len(accounts))
	for _, acc := range accounts {
		if !seen[acc] {
			seen[acc] = true
			out = append(out, acc)
		}
	}
	sort.Strings(out)
	return out
}
