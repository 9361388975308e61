package commands

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/disgoorg/paginator"

	"github.com/disgoorg/packbot/internal/domain/catalog"
	"github.com/disgoorg/packbot/internal/domain/ledger"
	"github.com/disgoorg/packbot/packbot"
	"github.com/disgoorg/packbot/packbot/config"
	"github.com/disgoorg/packbot/packbot/utils"
)

var ShowCards = discord.SlashCommandCreate{
	Name:        "show-cards",
	Description: "Show your card collection",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionString{
			Name:         "set",
			Description:  "Only show cards from this set",
			Required:     false,
			Autocomplete: true,
		},
		discord.ApplicationCommandOptionUser{
			Name:        "user",
			Description: "Show someone else's collection",
			Required:    false,
		},
	},
}

func ShowCardsHandler(b *packbot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		data := e.SlashCommandInteractionData()
		target := e.User()
		if user, ok := data.OptUser("user"); ok {
			target = user
		}
		setID := strings.TrimSpace(data.String("set"))

		ctx, cancel := context.WithTimeout(context.Background(), config.CommandExecutionTimeout)
		defer cancel()

		// reads are idempotent, so transient storage failures are retried
		var col ledger.Collection
		err := ledger.Retry(ctx, config.MaxRetries, func(ctx context.Context) error {
			var err error
			col, err = b.Ledger.GetCollection(ctx, target.ID.String())
			return err
		})
		if err != nil {
			slog.Error("Failed to load collection",
				slog.String("type", "db"),
				slog.String("user_id", target.ID.String()),
				slog.Any("error", err))
			return utils.EH.HandleError(e, err)
		}

		lines := collectionLines(b.Catalog, col, setID)
		if len(lines) == 0 {
			return utils.EH.CreateClassifiedError(e, utils.NotFoundError, "No cards found. Open a pack with `/open-pack`!")
		}

		totalPages := (len(lines) + config.CardsPerPage - 1) / config.CardsPerPage
		title := fmt.Sprintf("🃏 %s's collection", target.Username)

		return b.Paginator.Create(e.Respond, paginator.Pages{
			ID:      e.ID().String(),
			Creator: e.User().ID,
			PageFunc: func(page int, embed *discord.EmbedBuilder) {
				start := page * config.CardsPerPage
				end := min(start+config.CardsPerPage, len(lines))
				embed.
					SetTitle(title).
					SetDescription(strings.Join(lines[start:end], "\n")).
					SetColor(config.BackgroundColor).
					SetFooter(fmt.Sprintf("Page %d/%d • %d cards • %d unique", page+1, totalPages, col.Total(), len(col)), "")
			},
			Pages:      totalPages,
			ExpireMode: paginator.ExpireModeAfterLastUsage,
		}, false)
	}
}

func ShowCardsAutocomplete(b *packbot.Bot) handler.AutocompleteHandler {
	return func(e *handler.AutocompleteEvent) error {
		_, query := focusedQuery(e)
		return e.AutocompleteResult(ownedSetChoices(b, e.User().ID, query))
	}
}

// collectionLines renders one line per held card, grouped by set name and
// ordered by card id inside a set. Ids missing from the catalog are listed
// last by id.
func collectionLines(c *catalog.Catalog, col ledger.Collection, setID string) []string {
	type entry struct {
		card  catalog.Card
		known bool
	}
	entries := make([]entry, 0, len(col))
	for _, id := range col.CardIDs() {
		card, ok := c.Card(id)
		if setID != "" && (!ok || card.SetID != setID) {
			continue
		}
		if !ok {
			card = catalog.Card{ID: id, Name: id}
		}
		entries = append(entries, entry{card: card, known: ok})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.known != b.known {
			return a.known
		}
		if a.card.SetName != b.card.SetName {
			return a.card.SetName < b.card.SetName
		}
		return a.card.ID < b.card.ID
	})

	lines := make([]string, 0, len(entries))
	lastSet := ""
	for _, en := range entries {
		if en.known && en.card.SetName != lastSet {
			lastSet = en.card.SetName
			lines = append(lines, fmt.Sprintf("**%s**", lastSet))
		}
		line := fmt.Sprintf("%s %s `%s`", tierEmoji(en.card.Tier()), en.card.Name, en.card.ID)
		if n := col.Count(en.card.ID); n > 1 {
			line += fmt.Sprintf(" ×%d", n)
		}
		lines = append(lines, line)
	}
	return lines
}
