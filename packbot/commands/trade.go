package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/disgoorg/snowflake/v2"

	"github.com/disgoorg/packbot/internal/domain/catalog"
	"github.com/disgoorg/packbot/internal/domain/trades"
	"github.com/disgoorg/packbot/packbot"
	"github.com/disgoorg/packbot/packbot/config"
	"github.com/disgoorg/packbot/packbot/utils"
)

var Trade = discord.SlashCommandCreate{
	Name:        "trade",
	Description: "Offer one of your cards for one of someone else's",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionUser{
			Name:        "user",
			Description: "Who to trade with",
			Required:    true,
		},
		discord.ApplicationCommandOptionString{
			Name:         "my_set",
			Description:  "Set of the card you give",
			Required:     true,
			Autocomplete: true,
		},
		discord.ApplicationCommandOptionString{
			Name:         "my_card",
			Description:  "The card you give",
			Required:     true,
			Autocomplete: true,
		},
		discord.ApplicationCommandOptionString{
			Name:         "their_set",
			Description:  "Set of the card you want",
			Required:     true,
			Autocomplete: true,
		},
		discord.ApplicationCommandOptionString{
			Name:         "their_card",
			Description:  "The card you want",
			Required:     true,
			Autocomplete: true,
		},
	},
}

func TradeHandler(b *packbot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		data := e.SlashCommandInteractionData()
		target := data.User("user")
		if target.Bot {
			return utils.EH.CreateClassifiedError(e, utils.UserError, "You can't trade with a bot.")
		}

		myCard, ok := b.Catalog.ResolveCard(data.String("my_set"), data.String("my_card"))
		if !ok {
			return utils.EH.CreateClassifiedError(e, utils.NotFoundError, fmt.Sprintf("Card `%s` not found.", data.String("my_card")))
		}
		theirCard, ok := b.Catalog.ResolveCard(data.String("their_set"), data.String("their_card"))
		if !ok {
			return utils.EH.CreateClassifiedError(e, utils.NotFoundError, fmt.Sprintf("Card `%s` not found.", data.String("their_card")))
		}

		ctx, cancel := context.WithTimeout(context.Background(), config.CommandExecutionTimeout)
		defer cancel()

		s, err := b.Trades.Propose(ctx, trades.Offer{
			Initiator:       e.User().ID.String(),
			InitiatorCard:   myCard.ID,
			Counterpart:     target.ID.String(),
			CounterpartCard: theirCard.ID,
		})
		if err != nil {
			return utils.EH.HandleError(e, err)
		}

		if err = e.CreateMessage(discord.MessageCreate{
			Content: fmt.Sprintf("<@%s>, you have a trade offer!", target.ID),
			Embeds:  []discord.Embed{tradeOfferEmbed(b.Catalog, s)},
			Components: []discord.ContainerComponent{
				discord.NewActionRow(
					discord.NewSuccessButton("Accept", "/trade/accept/"+s.Handle),
					discord.NewDangerButton("Decline", "/trade/decline/"+s.Handle),
				),
			},
			AllowedMentions: &discord.AllowedMentions{Users: []snowflake.ID{target.ID}},
		}); err != nil {
			return err
		}

		go expireOffer(b, e.ApplicationID(), e.Token(), s)
		return nil
	}
}

// expireOffer clears the buttons once an unanswered offer times out. Answered
// offers are edited by the button handler.
func expireOffer(b *packbot.Bot, appID snowflake.ID, token string, s *trades.Session) {
	out, err := s.Wait(context.Background())
	if err != nil || out.State != trades.StateExpired {
		return
	}
	if _, err = b.Client.Rest().UpdateInteractionResponse(appID, token, discord.MessageUpdate{
		Embeds:     &[]discord.Embed{tradeOutcomeEmbed(b.Catalog, out)},
		Components: &[]discord.ContainerComponent{},
	}); err != nil {
		slog.Warn("Failed to mark trade offer expired",
			slog.String("type", "cmp"),
			slog.String("handle", s.Handle),
			slog.Any("error", err))
	}
}

func TradeAutocomplete(b *packbot.Bot) handler.AutocompleteHandler {
	return func(e *handler.AutocompleteEvent) error {
		name, query := focusedQuery(e)
		switch name {
		case "my_set":
			return e.AutocompleteResult(ownedSetChoices(b, e.User().ID, query))
		case "my_card":
			return e.AutocompleteResult(ownedCardChoices(b, e.User().ID, e.Data.String("my_set"), query))
		case "their_set", "their_card":
			target, ok := e.Data.OptSnowflake("user")
			if !ok {
				return e.AutocompleteResult([]discord.AutocompleteChoice{})
			}
			if name == "their_set" {
				return e.AutocompleteResult(ownedSetChoices(b, target, query))
			}
			return e.AutocompleteResult(ownedCardChoices(b, target, e.Data.String("their_set"), query))
		default:
			return e.AutocompleteResult([]discord.AutocompleteChoice{})
		}
	}
}

// TradeButtonHandler answers "/trade/{accept|decline}/{handle}" buttons.
func TradeButtonHandler(b *packbot.Bot) handler.ComponentHandler {
	return func(e *handler.ComponentEvent) error {
		action, handle, ok := parseTradeButton(e.Data.CustomID())
		if !ok {
			return fmt.Errorf("invalid trade button %q", e.Data.CustomID())
		}

		s, ok := b.Trades.Session(handle)
		if !ok {
			return utils.EH.HandleError(e, trades.ErrUnknownTrade)
		}
		if e.User().ID.String() != s.Offer.Counterpart {
			return utils.EH.HandleError(e, trades.ErrNotCounterpart)
		}

		if err := e.DeferUpdateMessage(); err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), config.CommandExecutionTimeout)
		defer cancel()

		var embed discord.Embed
		out, err := b.Trades.Respond(ctx, handle, e.User().ID.String(), action == "accept")
		if err != nil {
			errorType, message := utils.ClassifyError(err)
			embed = discord.Embed{Description: message, Color: config.ErrorColor}
			if errorType == utils.SystemError {
				slog.Error("Failed to respond to trade",
					slog.String("type", "cmp"),
					slog.String("handle", handle),
					slog.Any("error", err))
			}
		} else {
			embed = tradeOutcomeEmbed(b.Catalog, out)
		}

		_, err = b.Client.Rest().UpdateInteractionResponse(e.ApplicationID(), e.Token(), discord.MessageUpdate{
			Embeds:     &[]discord.Embed{embed},
			Components: &[]discord.ContainerComponent{},
		})
		return err
	}
}

func parseTradeButton(customID string) (action, handle string, ok bool) {
	rest, found := strings.CutPrefix(customID, "/trade/")
	if !found {
		return "", "", false
	}
	action, handle, found = strings.Cut(rest, "/")
	if !found || handle == "" || (action != "accept" && action != "decline") {
		return "", "", false
	}
	return action, handle, true
}

func cardLabel(c *catalog.Catalog, id string) string {
	if card, ok := c.Card(id); ok {
		return fmt.Sprintf("%s **%s** `%s`", tierEmoji(card.Tier()), card.Name, card.ID)
	}
	return fmt.Sprintf("`%s`", id)
}

func offerLines(c *catalog.Catalog, offer trades.Offer) string {
	return fmt.Sprintf("<@%s> gives %s\n<@%s> gives %s",
		offer.Initiator, cardLabel(c, offer.InitiatorCard),
		offer.Counterpart, cardLabel(c, offer.CounterpartCard))
}

func tradeOfferEmbed(c *catalog.Catalog, s *trades.Session) discord.Embed {
	return discord.Embed{
		Title:       "🔄 Trade offer",
		Description: offerLines(c, s.Offer) + fmt.Sprintf("\n\nExpires <t:%d:R>", s.ExpiresAt.Unix()),
		Color:       config.InfoColor,
	}
}

func tradeOutcomeEmbed(c *catalog.Catalog, out trades.Outcome) discord.Embed {
	embed := discord.Embed{Description: offerLines(c, out.Offer)}
	switch out.State {
	case trades.StateAccepted:
		embed.Title = "✅ Trade complete"
		embed.Color = config.SuccessColor
	case trades.StateDeclined:
		embed.Title = "❌ Trade declined"
		embed.Color = config.ErrorColor
	case trades.StateExpired:
		embed.Title = "⌛ Trade expired"
		embed.Color = config.WarningColor
	default:
		_, message := utils.ClassifyError(out.Err)
		embed.Title = "⚠️ Trade failed"
		embed.Description += "\n\n" + message
		embed.Color = config.ErrorColor
	}
	return embed
}
