package commands

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/disgoorg/snowflake/v2"

	"github.com/disgoorg/packbot/internal/domain/catalog"
	"github.com/disgoorg/packbot/packbot"
)

const autocompleteTimeout = 2 * time.Second

func setChoices(sets []catalog.Set) []discord.AutocompleteChoice {
	choices := make([]discord.AutocompleteChoice, 0, min(len(sets), catalog.MaxChoices))
	for _, set := range sets {
		if len(choices) == catalog.MaxChoices {
			break
		}
		name := set.Name
		if set.Series != "" {
			name += " (" + set.Series + ")"
		}
		choices = append(choices, discord.AutocompleteChoiceString{Name: truncateChoice(name), Value: set.ID})
	}
	return choices
}

func cardChoices(cards []catalog.Card, counts map[string]int) []discord.AutocompleteChoice {
	choices := make([]discord.AutocompleteChoice, 0, min(len(cards), catalog.MaxChoices))
	for _, card := range cards {
		if len(choices) == catalog.MaxChoices {
			break
		}
		name := card.Name + " · " + card.ID
		if n := counts[card.ID]; n > 1 {
			name += " ×" + strconv.Itoa(n)
		}
		choices = append(choices, discord.AutocompleteChoiceString{Name: truncateChoice(name), Value: card.ID})
	}
	return choices
}

// truncateChoice keeps choice names under Discord's 100 character limit.
func truncateChoice(s string) string {
	const maxLen = 100
	if r := []rune(s); len(r) > maxLen {
		return string(r[:maxLen-1]) + "…"
	}
	return s
}

// ownedSetChoices suggests sets the account holds at least one card of.
func ownedSetChoices(b *packbot.Bot, account snowflake.ID, query string) []discord.AutocompleteChoice {
	ctx, cancel := context.WithTimeout(context.Background(), autocompleteTimeout)
	defer cancel()

	col, err := b.Ledger.GetCollection(ctx, account.String())
	if err != nil {
		slog.Error("Failed to load collection for autocomplete",
			slog.String("type", "db"),
			slog.String("user_id", account.String()),
			slog.Any("error", err))
		return []discord.AutocompleteChoice{}
	}
	sets := catalog.FilterSets(b.Catalog.SetsOf(col.CardIDs()), query, catalog.MaxChoices)
	return setChoices(sets)
}

// ownedCardChoices suggests cards of setID the account holds.
func ownedCardChoices(b *packbot.Bot, account snowflake.ID, setID, query string) []discord.AutocompleteChoice {
	ctx, cancel := context.WithTimeout(context.Background(), autocompleteTimeout)
	defer cancel()

	col, err := b.Ledger.GetCollection(ctx, account.String())
	if err != nil {
		slog.Error("Failed to load collection for autocomplete",
			slog.String("type", "db"),
			slog.String("user_id", account.String()),
			slog.Any("error", err))
		return []discord.AutocompleteChoice{}
	}

	var owned []catalog.Card
	for _, card := range b.Catalog.CardsInSet(setID) {
		if col.Count(card.ID) > 0 {
			owned = append(owned, card)
		}
	}
	return cardChoices(catalog.FilterCards(owned, query, catalog.MaxChoices), col)
}

func focusedQuery(e *handler.AutocompleteEvent) (string, string) {
	focused := e.Data.Focused()
	return focused.Name, strings.TrimSpace(e.Data.String(focused.Name))
}
