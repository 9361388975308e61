package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"

	"github.com/disgoorg/packbot/internal/domain/catalog"
	"github.com/disgoorg/packbot/internal/domain/packs"
	"github.com/disgoorg/packbot/packbot"
	"github.com/disgoorg/packbot/packbot/config"
	"github.com/disgoorg/packbot/packbot/utils"
)

var OpenPack = discord.SlashCommandCreate{
	Name:        "open-pack",
	Description: "Open a booster pack from a set",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionString{
			Name:         "set",
			Description:  "The set to open a pack from",
			Required:     true,
			Autocomplete: true,
		},
	},
}

func OpenPackHandler(b *packbot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		setID := selectedSet(b.Catalog, e.SlashCommandInteractionData().String("set"))

		if err := e.DeferCreateMessage(false); err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), config.CommandExecutionTimeout)
		defer cancel()

		result, err := b.Packs.OpenPack(ctx, e.User().ID.String(), setID)
		if err != nil {
			errorType, message := utils.ClassifyError(err)
			if errorType == utils.SystemError {
				slog.Error("Failed to open pack",
					slog.String("type", "cmd"),
					slog.String("user_id", e.User().ID.String()),
					slog.String("set", setID),
					slog.Any("error", err))
			}
			return utils.EH.UpdateClassifiedError(e, errorType, message)
		}

		_, err = e.UpdateInteractionResponse(discord.MessageUpdate{
			Embeds: &[]discord.Embed{packEmbed(e.User().Username, result)},
		})
		return err
	}
}

func OpenPackAutocomplete(b *packbot.Bot) handler.AutocompleteHandler {
	return func(e *handler.AutocompleteEvent) error {
		_, query := focusedQuery(e)
		return e.AutocompleteResult(setChoices(b.Catalog.SearchOpenableSets(query, catalog.MaxChoices)))
	}
}

// selectedSet maps the submitted option to a set id. Autocomplete submits the
// id; a typed value is accepted only when it names a set exactly. Anything
// else is passed through unchanged so opening it fails as not openable.
func selectedSet(c *catalog.Catalog, value string) string {
	value = strings.TrimSpace(value)
	if _, ok := c.Set(value); ok {
		return value
	}
	if set, ok := c.SetByName(value); ok {
		return set.ID
	}
	return value
}

// packEmbed lists the pulls in draw order and shows the best pull's image.
func packEmbed(username string, result *packs.Result) discord.Embed {
	var (
		sb   strings.Builder
		best catalog.Card
	)
	for i, card := range result.Cards {
		fmt.Fprintf(&sb, "%s **%s** `%s`", tierEmoji(card.Tier()), card.Name, card.ID)
		if card.Rarity != "" {
			fmt.Fprintf(&sb, " · %s", card.Rarity)
		}
		if result.Collection.Count(card.ID) == 1 {
			sb.WriteString(" ✨")
		}
		sb.WriteString("\n")
		if i == 0 || card.Tier() > best.Tier() {
			best = card
		}
	}

	embed := discord.Embed{
		Title:       fmt.Sprintf("📦 %s opened a %s pack", username, result.Set.Name),
		Description: sb.String(),
		Color:       tierColor(best.Tier()),
		Footer: &discord.EmbedFooter{
			Text: fmt.Sprintf("%d cards · %d in collection", len(result.Cards), result.Collection.Total()),
		},
	}
	if url := best.ImageURL(); url != "" {
		embed.Thumbnail = &discord.EmbedResource{URL: url}
	}
	return embed
}

func tierEmoji(t catalog.Tier) string {
	if emoji, ok := config.TierEmojis[t.String()]; ok {
		return emoji
	}
	return "▫️"
}

func tierColor(t catalog.Tier) int {
	switch t {
	case catalog.TierUncommon:
		return config.TierUncommonColor
	case catalog.TierRare:
		return config.TierRareColor
	case catalog.TierUltraRare:
		return config.TierUltraRareColor
	case catalog.TierSecretRare:
		return config.TierSecretRareColor
	default:
		return config.TierCommonColor
	}
}
