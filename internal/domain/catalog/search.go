package catalog

import (
	"strings"

	"github.com/sahilm/fuzzy"
)

// Discord caps autocomplete results at 25 choices.
const MaxChoices = 25

type setSource []Set

func (s setSource) String(i int) string { return s[i].Name }
func (s setSource) Len() int            { return len(s) }

type cardSource []Card

func (s cardSource) String(i int) string { return s[i].Name }
func (s cardSource) Len() int            { return len(s) }

// SearchOpenableSets fuzzy-matches openable set names. Results are memoized
// because the openable list never changes after load.
func (c *Catalog) SearchOpenableSets(query string, limit int) []Set {
	key := strings.ToLower(strings.TrimSpace(query))
	if cached, ok := c.searchCache.Get(key); ok {
		return truncate(cached.([]Set), limit)
	}

	res := FilterSets(c.openable, key, MaxChoices)
	c.searchCache.Add(key, res)
	return truncate(res, limit)
}

// FilterSets fuzzy-matches set names, best match first. An empty query keeps
// the input order.
func FilterSets(sets []Set, query string, limit int) []Set {
	query = strings.TrimSpace(query)
	if query == "" {
		return truncate(append([]Set(nil), sets...), limit)
	}

	matches := fuzzy.FindFrom(query, setSource(sets))
	out := make([]Set, 0, min(len(matches), limit))
	for _, m := range matches {
		if len(out) == limit {
			break
		}
		out = append(out, sets[m.Index])
	}
	return out
}

// FilterCards fuzzy-matches card names, best match first.
func FilterCards(cards []Card, query string, limit int) []Card {
	query = strings.TrimSpace(query)
	if query == "" {
		if len(cards) > limit {
			cards = cards[:limit]
		}
		return append([]Card(nil), cards...)
	}

	matches := fuzzy.FindFrom(query, cardSource(cards))
	out := make([]Card, 0, min(len(matches), limit))
	for _, m := range matches {
		if len(out) == limit {
			break
		}
		out = append(out, cards[m.Index])
	}
	return out
}

func truncate(sets []Set, limit int) []Set {
	if limit >= 0 && len(sets) > limit {
		return sets[:limit]
	}
	return sets
}
