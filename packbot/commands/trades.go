package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"

	"github.com/disgoorg/packbot/packbot"
	"github.com/disgoorg/packbot/packbot/config"
	"github.com/disgoorg/packbot/packbot/database/models"
)

const tradeHistoryLimit = 10

var Trades = discord.SlashCommandCreate{
	Name:        "trades",
	Description: "Show your pending and recent trades",
}

func TradesHandler(b *packbot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		userID := e.User().ID.String()

		var pending strings.Builder
		for _, s := range b.Trades.Pending(userID) {
			fmt.Fprintf(&pending, "%s ⇄ %s · expires <t:%d:R>\n",
				cardLabel(b.Catalog, s.Offer.InitiatorCard),
				cardLabel(b.Catalog, s.Offer.CounterpartCard),
				s.ExpiresAt.Unix())
		}

		var recent []*models.Trade
		if b.TradeRepository != nil {
			ctx, cancel := context.WithTimeout(context.Background(), config.CommandExecutionTimeout)
			defer cancel()

			var err error
			recent, err = b.TradeRepository.GetUserTrades(ctx, userID, tradeHistoryLimit)
			if err != nil {
				slog.Error("Failed to load trade history",
					slog.String("type", "db"),
					slog.String("user_id", userID),
					slog.Any("error", err))
			}
		}

		return e.CreateMessage(discord.MessageCreate{
			Embeds: []discord.Embed{{
				Title: "🔄 Your trades",
				Color: config.BackgroundColor,
				Fields: []discord.EmbedField{
					{Name: "Pending", Value: orNone(pending.String())},
					{Name: "Recent", Value: orNone(historyLines(b, recent))},
				},
			}},
			Flags: discord.MessageFlagEphemeral,
		})
	}
}

func historyLines(b *packbot.Bot, rows []*models.Trade) string {
	var sb strings.Builder
	for _, t := range rows {
		fmt.Fprintf(&sb, "%s %s ⇄ %s · <t:%d:R>\n",
			tradeStateEmoji(t.State),
			cardLabel(b.Catalog, t.InitiatorCard),
			cardLabel(b.Catalog, t.CounterpartCard),
			t.ResolvedAt.Unix())
	}
	return sb.String()
}

func tradeStateEmoji(s models.TradeState) string {
	switch s {
	case models.TradeAccepted:
		return "✅"
	case models.TradeDeclined:
		return "❌"
	case models.TradeExpired:
		return "⌛"
	default:
		return "⚠️"
	}
}

func orNone(s string) string {
	if s == "" {
		return "None"
	}
	// embed field values are capped at 1024 characters
	if r := []rune(s); len(r) > 1024 {
		return string(r[:1023]) + "…"
	}
	return s
}
