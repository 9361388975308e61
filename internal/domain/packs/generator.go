package packs

import (
	crand "crypto/rand"
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"

	"github.com/disgoorg/packbot/internal/domain/catalog"
	"github.com/disgoorg/packbot/internal/domain/ledger"
)

// Pack composition.
const (
	CommonSlots   = 5
	UncommonSlots = 3
)

// Relative weights of the rare-or-better slot. Every card of a tier carries
// its tier's weight.
var tierWeights = []struct {
	tier   catalog.Tier
	weight int
}{
	{catalog.TierRare, 10},
	{catalog.TierUltraRare, 4},
	{catalog.TierSecretRare, 1},
}

// Generator draws packs from the catalog. It is safe for concurrent use.
type Generator struct {
	catalog *catalog.Catalog

	mu  sync.Mutex
	rng *rand.Rand
}

// NewGenerator creates a generator drawing from src. A nil src is replaced by
// a ChaCha8 source seeded from crypto/rand.
func NewGenerator(c *catalog.Catalog, src rand.Source) *Generator {
	if src == nil {
		var seed [32]byte
		if _, err := crand.Read(seed[:]); err != nil {
			panic(fmt.Sprintf("packs: failed to seed generator: %v", err))
		}
		src = rand.NewChaCha8(seed)
	}
	return &Generator{catalog: c, rng: rand.New(src)}
}

// Draw builds one pack: distinct commons, distinct uncommons, one card of any
// rarity and, when the set has any, one weighted rare-or-better card.
func (g *Generator) Draw(setID string) ([]catalog.Card, error) {
	if !g.catalog.IsOpenable(setID) {
		return nil, fmt.Errorf("%w: %s", ErrSetNotOpenable, setID)
	}
	tiers, _ := g.catalog.Tiers(setID)
	all := g.catalog.CardsInSet(setID)

	g.mu.Lock()
	defer g.mu.Unlock()

	pack := make([]catalog.Card, 0, CommonSlots+UncommonSlots+2)
	pack = append(pack, g.sample(tiers[catalog.TierCommon], CommonSlots)...)
	pack = append(pack, g.sample(tiers[catalog.TierUncommon], UncommonSlots)...)
	pack = append(pack, all[g.rng.IntN(len(all))])
	if card, ok := g.weighted(tiers); ok {
		pack = append(pack, card)
	}
	return pack, nil
}

// sample picks min(n, len(cards)) distinct cards.
func (g *Generator) sample(cards []catalog.Card, n int) []catalog.Card {
	n = min(n, len(cards))
	out := make([]catalog.Card, 0, n)
	for _, i := range g.rng.Perm(len(cards))[:n] {
		out = append(out, cards[i])
	}
	return out
}

func (g *Generator) weighted(tiers catalog.Tiers) (catalog.Card, bool) {
	var (
		pool       []catalog.Card
		cumulative []int
		total      int
	)
	for _, tw := range tierWeights {
		for _, card := range tiers[tw.tier] {
			total += tw.weight
			pool = append(pool, card)
			cumulative = append(cumulative, total)
		}
	}
	if total == 0 {
		return catalog.Card{}, false
	}

	r := g.rng.IntN(total)
	i := sort.Search(len(cumulative), func(i int) bool { return cumulative[i] > r })
	return pool[i], true
}

// Deltas counts occurrences of each card id in a pack.
func Deltas(cards []catalog.Card) ledger.Deltas {
	deltas := make(ledger.Deltas, len(cards))
	for _, card := range cards {
		deltas[card.ID]++
	}
	return deltas
}
