package ledger

import (
	"sort"
)

// Collection maps card ids to the number of copies an account holds.
// Stored collections never contain zero or negative counts.
type Collection map[string]int

// Deltas maps card ids to a positive quantity to add or remove.
type Deltas map[string]int

func (c Collection) Count(cardID string) int {
	return c[cardID]
}

func (c Collection) Clone() Collection {
	out := make(Collection, len(c))
	for id, n := range c {
		out[id] = n
	}
	return out
}

// Total is the number of card copies held.
func (c Collection) Total() int {
	total := 0
	for _, n := range c {
		total += n
	}
	return total
}

// CardIDs returns the held card ids in sorted order.
func (c Collection) CardIDs() []string {
	ids := make([]string, 0, len(c))
	for id, n := range c {
		if n > 0 {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Normalize drops entries with a non-positive count in place.
func (c Collection) Normalize() Collection {
	for id, n := range c {
		if n <= 0 {
			delete(c, id)
		}
	}
	return c
}

func (c Collection) grant(deltas Deltas) {
	for id, n := range deltas {
		c[id] += n
	}
}

// deduct removes deltas from c, or leaves c untouched and reports the first
// shortfall in card id order.
func (c Collection) deduct(account string, deltas Deltas) error {
	ids := make([]string, 0, len(deltas))
	for id := range deltas {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if have := c[id]; have < deltas[id] {
			return &InsufficientHoldingError{Account: account, CardID: id, Have: have, Want: deltas[id]}
		}
	}
	for id, n := range deltas {
		c[id] -= n
		if c[id] == 0 {
			delete(c, id)
		}
	}
	return nil
}

// Transfer describes a two-sided swap of one copy each.
type Transfer struct {
	From     string
	FromCard string
	To       string
	ToCard   string
}
