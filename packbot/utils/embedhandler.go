// File: utils/embedhandler.go

package utils

import (
	"errors"
	"fmt"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"

	"github.com/disgoorg/packbot/internal/domain/ledger"
	"github.com/disgoorg/packbot/internal/domain/packs"
	"github.com/disgoorg/packbot/internal/domain/trades"
	"github.com/disgoorg/packbot/packbot/config"
)

// ResponseHandler provides standardized response methods for commands and components
type ResponseHandler struct{}

var EH = &ResponseHandler{}

// ErrorType represents different categories of errors for consistent handling
type ErrorType int

const (
	// UserError - User input issues, validation failures, parameter problems
	UserError ErrorType = iota
	// SystemError - Database failures, network issues, internal server errors
	SystemError
	// NotFoundError - Requested resources don't exist
	NotFoundError
	// PermissionError - Unauthorized actions, access denied
	PermissionError
	// BusinessLogicError - Cooldowns, insufficient resources, game rule violations
	BusinessLogicError
)

func getErrorPrefix(errorType ErrorType) string {
	switch errorType {
	case UserError:
		return "⚠️"
	case SystemError:
		return "🔧"
	case NotFoundError:
		return "🔍"
	case PermissionError:
		return "🚫"
	case BusinessLogicError:
		return "⏰"
	default:
		return "❌"
	}
}

func getErrorColor(errorType ErrorType) int {
	switch errorType {
	case UserError, BusinessLogicError:
		return config.WarningColor
	case NotFoundError:
		return config.InfoColor
	default:
		return config.ErrorColor
	}
}

// ClassifyError maps a domain error to the category and text shown to the
// user. Storage failures never leak their cause.
func ClassifyError(err error) (ErrorType, string) {
	var (
		limited  *packs.RateLimitedError
		notOwned *trades.NotOwnedError
		short    *ledger.InsufficientHoldingError
	)
	switch {
	case errors.As(err, &limited):
		return BusinessLogicError, fmt.Sprintf("You've opened all your packs for now. Try again <t:%d:R>.", limited.RetryAt.Unix())
	case errors.Is(err, packs.ErrSetNotOpenable):
		return UserError, "That set can't be opened as a pack."
	case errors.Is(err, trades.ErrSelfTrade):
		return UserError, "You can't trade with yourself."
	case errors.As(err, &notOwned):
		return BusinessLogicError, fmt.Sprintf("<@%s> doesn't own `%s`.", notOwned.Account, notOwned.CardID)
	case errors.Is(err, trades.ErrPendingTrade):
		return BusinessLogicError, "There's already a pending trade between you two."
	case errors.Is(err, trades.ErrUnknownTrade):
		return NotFoundError, "This trade no longer exists."
	case errors.Is(err, trades.ErrNotCounterpart):
		return PermissionError, "Only the person this trade was offered to can answer it."
	case errors.Is(err, trades.ErrTimeout):
		return BusinessLogicError, "This trade has expired."
	case errors.As(err, &short):
		return BusinessLogicError, fmt.Sprintf("<@%s> no longer has `%s`.", short.Account, short.CardID)
	case errors.Is(err, ledger.ErrUnknownCard):
		return NotFoundError, "That card doesn't exist."
	case errors.Is(err, ledger.ErrInvalidRequest):
		return UserError, "Invalid request."
	default:
		return SystemError, "Something went wrong. Please try again later."
	}
}

// CreateClassifiedError creates an error response with automatic categorization
func (h *ResponseHandler) CreateClassifiedError(event *handler.CommandEvent, errorType ErrorType, message string) error {
	return event.CreateMessage(discord.MessageCreate{
		Embeds: []discord.Embed{classifiedEmbed(errorType, message)},
		Flags:  discord.MessageFlagEphemeral,
	})
}

// UpdateClassifiedError replaces a deferred response with an error embed
func (h *ResponseHandler) UpdateClassifiedError(event *handler.CommandEvent, errorType ErrorType, message string) error {
	_, err := event.UpdateInteractionResponse(discord.MessageUpdate{
		Embeds: &[]discord.Embed{classifiedEmbed(errorType, message)},
	})
	return err
}

// CreateClassifiedComponentError creates an ephemeral error for component interactions
func (h *ResponseHandler) CreateClassifiedComponentError(event *handler.ComponentEvent, errorType ErrorType, message string) error {
	return event.CreateMessage(discord.MessageCreate{
		Content: getErrorPrefix(errorType) + " " + message,
		Flags:   discord.MessageFlagEphemeral,
	})
}

// HandleError answers event with the classified form of err
func (h *ResponseHandler) HandleError(event any, err error) error {
	errorType, message := ClassifyError(err)
	switch e := event.(type) {
	case *handler.CommandEvent:
		return h.CreateClassifiedError(e, errorType, message)
	case *handler.ComponentEvent:
		return h.CreateClassifiedComponentError(e, errorType, message)
	default:
		return fmt.Errorf("unsupported event type for error handling")
	}
}

func classifiedEmbed(errorType ErrorType, message string) discord.Embed {
	return discord.Embed{
		Description: getErrorPrefix(errorType) + " " + message,
		Color:       getErrorColor(errorType),
	}
}

func Ptr[T any](v T) *T {
	return &v
}
