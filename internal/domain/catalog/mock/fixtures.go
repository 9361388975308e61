// Package mock holds a small in-memory catalog shared by domain tests.
package mock

import (
	"fmt"

	"github.com/disgoorg/packbot/internal/domain/catalog"
)

const (
	// BaseSet is openable and has every tier populated.
	BaseSet = "base1"
	// NoRareSet is openable but has no rare-or-better card.
	NoRareSet = "nr1"
	// TinySet has four commons only and is never openable.
	TinySet = "tiny1"
)

func card(setID, setName string, n int, rarity string) catalog.Card {
	return catalog.Card{
		ID:      fmt.Sprintf("%s-%d", setID, n),
		Name:    fmt.Sprintf("%s Card %d", setName, n),
		SetID:   setID,
		SetName: setName,
		Rarity:  rarity,
		Images: catalog.Images{
			Small: fmt.Sprintf("https://images.example/%s/%d.png", setID, n),
			Large: fmt.Sprintf("https://images.example/%s/%d_hires.png", setID, n),
		},
	}
}

// Cards returns the fixture cards. BaseSet: 6 commons (1-6), 4 uncommons
// (7-10), 2 rares (11-12), 1 ultra rare (13), 1 secret rare (14), 1 unmapped
// rarity (15).
func Cards() []catalog.Card {
	var cards []catalog.Card
	n := 1
	add := func(setID, setName, rarity string, count int) {
		for i := 0; i < count; i++ {
			cards = append(cards, card(setID, setName, n, rarity))
			n++
		}
	}

	add(BaseSet, "Base", "Common", 6)
	add(BaseSet, "Base", "Uncommon", 4)
	add(BaseSet, "Base", "Rare Holo", 2)
	add(BaseSet, "Base", "Rare Holo EX", 1)
	add(BaseSet, "Base", "Rare Secret", 1)
	add(BaseSet, "Base", "Mystery", 1)

	n = 1
	add(NoRareSet, "No Rares", "common", 5)
	add(NoRareSet, "No Rares", "UNCOMMON", 3)
	add(NoRareSet, "No Rares", "Mystery", 1)

	n = 1
	add(TinySet, "Tiny", "Common", 4)

	return cards
}

func Sets() []catalog.Set {
	return []catalog.Set{
		{ID: BaseSet, Name: "Base", Series: "Base"},
		{ID: NoRareSet, Name: "No Rares", Series: "Test"},
	}
}

// Catalog builds the fixture catalog.
func Catalog() *catalog.Catalog {
	return catalog.New(Cards(), Sets())
}

// CardID returns the id of the n-th card of a fixture set.
func CardID(setID string, n int) string {
	return fmt.Sprintf("%s-%d", setID, n)
}
