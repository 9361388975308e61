package catalog_test

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disgoorg/packbot/internal/domain/catalog"
	"github.com/disgoorg/packbot/internal/domain/catalog/mock"
)

func TestTierOf(t *testing.T) {
	tests := []struct {
		rarity string
		want   catalog.Tier
	}{
		{"Common", catalog.TierCommon},
		{"  uncommon ", catalog.TierUncommon},
		{"Rare Holo", catalog.TierRare},
		{"rare  holo   vmax", catalog.TierUltraRare},
		{"Special Illustration Rare", catalog.TierSecretRare},
		{"Promo", catalog.TierUltraRare},
		{"Mystery", catalog.TierNone},
		{"", catalog.TierNone},
	}

	for _, tt := range tests {
		t.Run(tt.rarity, func(t *testing.T) {
			if got := catalog.TierOf(tt.rarity); got != tt.want {
				t.Errorf("TierOf(%q) = %v, want %v", tt.rarity, got, tt.want)
			}
		})
	}
}

func TestCatalog_OpenableSets(t *testing.T) {
	c := mock.Catalog()

	sets := c.OpenableSets()
	if len(sets) != 2 {
		t.Fatalf("OpenableSets() returned %d sets, want 2", len(sets))
	}
	if sets[0].ID != mock.BaseSet || sets[1].ID != mock.NoRareSet {
		t.Errorf("OpenableSets() = %v, want sorted [%s %s]", sets, mock.BaseSet, mock.NoRareSet)
	}
	if c.IsOpenable(mock.TinySet) {
		t.Errorf("IsOpenable(%s) = true, want false", mock.TinySet)
	}

	tiny, ok := c.Set(mock.TinySet)
	if !ok {
		t.Fatalf("Set(%s) not found, want synthesized set", mock.TinySet)
	}
	if tiny.Name != "Tiny" || len(tiny.CardIDs) != 4 {
		t.Errorf("synthesized set = %+v", tiny)
	}
}

func TestCatalog_Thresholds(t *testing.T) {
	build := func(commons, uncommons, others int) *catalog.Catalog {
		var cards []catalog.Card
		n := 0
		add := func(rarity string, count int) {
			for i := 0; i < count; i++ {
				n++
				cards = append(cards, catalog.Card{
					ID:      "s-" + string(rune('a'+n)),
					Name:    "card",
					SetID:   "s",
					SetName: "S",
					Rarity:  rarity,
				})
			}
		}
		add("Common", commons)
		add("Uncommon", uncommons)
		add("Rare", others)
		return catalog.New(cards, nil)
	}

	tests := []struct {
		name                       string
		commons, uncommons, others int
		want                       bool
	}{
		{"exact thresholds", 5, 3, 1, true},
		{"four commons", 4, 3, 5, false},
		{"two uncommons", 6, 2, 5, false},
		{"eight cards total", 5, 3, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := build(tt.commons, tt.uncommons, tt.others).IsOpenable("s"); got != tt.want {
				t.Errorf("IsOpenable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCatalog_Tiers(t *testing.T) {
	c := mock.Catalog()

	tiers, ok := c.Tiers(mock.BaseSet)
	if !ok {
		t.Fatal("Tiers() missing base set")
	}
	want := map[catalog.Tier]int{
		catalog.TierCommon:     6,
		catalog.TierUncommon:   4,
		catalog.TierRare:       2,
		catalog.TierUltraRare:  1,
		catalog.TierSecretRare: 1,
		catalog.TierNone:       1,
	}
	for tier, n := range want {
		if len(tiers[tier]) != n {
			t.Errorf("tier %v has %d cards, want %d", tier, len(tiers[tier]), n)
		}
	}
}

func TestCatalog_ResolveCard(t *testing.T) {
	c := mock.Catalog()

	if card, ok := c.ResolveCard(mock.BaseSet, "base card 3"); !ok || card.ID != mock.CardID(mock.BaseSet, 3) {
		t.Errorf("ResolveCard by name = %v, %v", card, ok)
	}
	if card, ok := c.ResolveCard(mock.BaseSet, mock.CardID(mock.BaseSet, 11)); !ok || card.Rarity != "Rare Holo" {
		t.Errorf("ResolveCard by id = %v, %v", card, ok)
	}
	if _, ok := c.ResolveCard(mock.NoRareSet, mock.CardID(mock.BaseSet, 1)); ok {
		t.Error("ResolveCard matched a card from another set")
	}
	if _, ok := c.ResolveCard(mock.BaseSet, "nope"); ok {
		t.Error("ResolveCard matched an unknown card")
	}
}

func TestCatalog_SearchOpenableSets(t *testing.T) {
	c := mock.Catalog()

	got := c.SearchOpenableSets("rares", catalog.MaxChoices)
	if len(got) == 0 || got[0].ID != mock.NoRareSet {
		t.Errorf("SearchOpenableSets(rares) = %v", got)
	}
	// served from the memo on the second call
	again := c.SearchOpenableSets("RARES", 1)
	if len(again) != 1 || again[0].ID != mock.NoRareSet {
		t.Errorf("SearchOpenableSets(RARES, 1) = %v", again)
	}
	if got := c.SearchOpenableSets("tiny", catalog.MaxChoices); len(got) != 0 {
		t.Errorf("SearchOpenableSets(tiny) = %v, want no non-openable sets", got)
	}
}

func TestCatalog_SetByName(t *testing.T) {
	c := mock.Catalog()

	tests := []struct {
		name   string
		want   string
		wantOK bool
	}{
		{"Base", mock.BaseSet, true},
		{"  no RARES ", mock.NoRareSet, true},
		{"tiny", mock.TinySet, true},
		{"Bas", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, ok := c.SetByName(tt.name)
			if ok != tt.wantOK || set.ID != tt.want {
				t.Errorf("SetByName(%q) = %q, %v, want %q, %v", tt.name, set.ID, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestCatalog_SetsOf(t *testing.T) {
	c := mock.Catalog()

	sets := c.SetsOf([]string{mock.CardID(mock.TinySet, 1), mock.CardID(mock.BaseSet, 2), mock.CardID(mock.BaseSet, 5), "missing"})
	if len(sets) != 2 || sets[0].ID != mock.BaseSet || sets[1].ID != mock.TinySet {
		t.Errorf("SetsOf() = %v", sets)
	}
}

const cardsDoc = `[
  {"id": "a-1", "name": "Alpha", "rarity": "Common", "set": {"id": "a", "name": "Set A"}, "images": {"small": "s.png", "large": "l.png"}},
  {"id": "a-2", "name": "Beta", "rarity": "Rare", "set": {"id": "a", "name": "Set A"}},
  {"id": "x-1", "name": "Loose", "rarity": "Common", "set": {}}
]`

func TestLoad_DirSource(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, catalog.CardsFile), []byte(cardsDoc), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, catalog.SetsFile), []byte(`[{"id":"a","name":"Set A","series":"Test"}]`), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := catalog.Load(context.Background(), catalog.DirSource(dir))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2 (card without set skipped)", c.Len())
	}
	card, ok := c.Card("a-1")
	if !ok || card.SetName != "Set A" || card.ImageURL() != "l.png" {
		t.Errorf("Card(a-1) = %+v, %v", card, ok)
	}
	set, _ := c.Set("a")
	if set.Series != "Test" || len(set.CardIDs) != 2 {
		t.Errorf("Set(a) = %+v", set)
	}
}

type memSource map[string]string

func (m memSource) Open(_ context.Context, name string) (io.ReadCloser, error) {
	doc, ok := m[name]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return io.NopCloser(strings.NewReader(doc)), nil
}

func TestLoad_MissingDocuments(t *testing.T) {
	c, err := catalog.Load(context.Background(), memSource{catalog.CardsFile: cardsDoc})
	if err != nil {
		t.Fatalf("Load() without sets error = %v", err)
	}
	if set, ok := c.Set("a"); !ok || set.Name != "Set A" {
		t.Errorf("derived Set(a) = %+v, %v", set, ok)
	}

	_, err = catalog.Load(context.Background(), memSource{})
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Load() without cards error = %v, want fs.ErrNotExist", err)
	}
}
