package catalog

import (
	"log/slog"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru"
)

// Openable set thresholds.
const (
	MinCommons   = 5
	MinUncommons = 3
	MinCards     = 9
)

const searchCacheSize = 512

type Images struct {
	Small string `json:"small"`
	Large string `json:"large"`
}

// Card is an immutable catalog entry.
type Card struct {
	ID      string
	Name    string
	SetID   string
	SetName string
	Rarity  string
	Images  Images
}

func (c Card) Tier() Tier {
	return TierOf(c.Rarity)
}

// ImageURL prefers the large image.
func (c Card) ImageURL() string {
	if c.Images.Large != "" {
		return c.Images.Large
	}
	return c.Images.Small
}

type Set struct {
	ID      string
	Name    string
	Series  string
	CardIDs []string
}

// Tiers partitions the cards of one set by rarity tier.
type Tiers map[Tier][]Card

// Catalog is the read-only card and set index. It is built once and shared by
// reference; none of its methods mutate the index.
type Catalog struct {
	cards    map[string]Card
	sets     map[string]Set
	setCards map[string][]Card
	tiers    map[string]Tiers
	openable []Set
	isOpen   map[string]bool
	byName   map[string]string // lowercased set name -> set id

	// memoizes openable set searches; safe for concurrent use
	searchCache *lru.Cache
}

// New indexes cards and sets. Cards without a set id are skipped, sets only
// referenced by cards are synthesized from the card's set fields.
func New(cards []Card, sets []Set) *Catalog {
	c := &Catalog{
		cards:    make(map[string]Card, len(cards)),
		sets:     make(map[string]Set, len(sets)),
		setCards: make(map[string][]Card),
		tiers:    make(map[string]Tiers),
		isOpen:   make(map[string]bool),
		byName:   make(map[string]string),
	}

	for _, s := range sets {
		if s.ID == "" {
			continue
		}
		s.CardIDs = nil
		c.sets[s.ID] = s
	}

	skipped := 0
	for _, card := range cards {
		if card.ID == "" || card.SetID == "" {
			skipped++
			continue
		}
		if _, dup := c.cards[card.ID]; dup {
			skipped++
			continue
		}
		c.cards[card.ID] = card

		set, ok := c.sets[card.SetID]
		if !ok {
			set = Set{ID: card.SetID, Name: card.SetName}
		}
		if set.Name == "" {
			set.Name = card.SetName
		}
		set.CardIDs = append(set.CardIDs, card.ID)
		c.sets[card.SetID] = set
		c.setCards[card.SetID] = append(c.setCards[card.SetID], card)
	}

	for setID, setCards := range c.setCards {
		tiers := make(Tiers)
		for _, card := range setCards {
			tier := card.Tier()
			tiers[tier] = append(tiers[tier], card)
		}
		c.tiers[setID] = tiers

		if eligible(tiers, len(setCards)) {
			c.isOpen[setID] = true
			c.openable = append(c.openable, c.sets[setID])
		}
	}

	sort.Slice(c.openable, func(i, j int) bool {
		if c.openable[i].Name != c.openable[j].Name {
			return c.openable[i].Name < c.openable[j].Name
		}
		return c.openable[i].ID < c.openable[j].ID
	})

	ids := make([]string, 0, len(c.sets))
	for id := range c.sets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		name := strings.ToLower(strings.TrimSpace(c.sets[id].Name))
		if name == "" {
			continue
		}
		// an openable set wins a name shared with an unopenable one
		if prev, ok := c.byName[name]; !ok || (!c.isOpen[prev] && c.isOpen[id]) {
			c.byName[name] = id
		}
	}

	c.searchCache, _ = lru.New(searchCacheSize)

	slog.Info("Catalog indexed",
		slog.String("type", "sys"),
		slog.Int("cards", len(c.cards)),
		slog.Int("sets", len(c.sets)),
		slog.Int("openable_sets", len(c.openable)),
		slog.Int("skipped_cards", skipped))

	return c
}

func eligible(tiers Tiers, total int) bool {
	return len(tiers[TierCommon]) >= MinCommons &&
		len(tiers[TierUncommon]) >= MinUncommons &&
		total >= MinCards
}

func (c *Catalog) Card(id string) (Card, bool) {
	card, ok := c.cards[id]
	return card, ok
}

func (c *Catalog) Set(id string) (Set, bool) {
	set, ok := c.sets[id]
	return set, ok
}

// CardsInSet returns the cards of a set in catalog order. The returned slice
// must not be modified.
func (c *Catalog) CardsInSet(setID string) []Card {
	return c.setCards[setID]
}

// Tiers returns the rarity partition of a set. The returned map must not be
// modified.
func (c *Catalog) Tiers(setID string) (Tiers, bool) {
	t, ok := c.tiers[setID]
	return t, ok
}

// OpenableSets lists sets that satisfy the diversity thresholds, sorted by name.
func (c *Catalog) OpenableSets() []Set {
	out := make([]Set, len(c.openable))
	copy(out, c.openable)
	return out
}

// SetByName looks a set up by its exact name, ignoring case and surrounding
// whitespace.
func (c *Catalog) SetByName(name string) (Set, bool) {
	id, ok := c.byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Set{}, false
	}
	return c.sets[id], true
}

func (c *Catalog) IsOpenable(setID string) bool {
	return c.isOpen[setID]
}

func (c *Catalog) Len() int {
	return len(c.cards)
}

// ResolveCard maps a user selection inside a set to a card. The selection may
// be a card id or a card name (case-insensitive).
func (c *Catalog) ResolveCard(setID, selection string) (Card, bool) {
	selection = strings.TrimSpace(selection)
	if card, ok := c.cards[selection]; ok && (setID == "" || card.SetID == setID) {
		return card, true
	}
	for _, card := range c.setCards[setID] {
		if strings.EqualFold(card.Name, selection) {
			return card, true
		}
	}
	return Card{}, false
}

// SetsOf returns the distinct sets containing any of the given card ids,
// sorted by name. Unknown ids are ignored.
func (c *Catalog) SetsOf(cardIDs []string) []Set {
	seen := make(map[string]bool)
	var out []Set
	for _, id := range cardIDs {
		card, ok := c.cards[id]
		if !ok || seen[card.SetID] {
			continue
		}
		seen[card.SetID] = true
		out = append(out, c.sets[card.SetID])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
