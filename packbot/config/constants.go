package config

import "time"

// UI and Display Constants
const (
	// Pagination
	CardsPerPage = 15

	// Colors
	ErrorColor   = 0xFF0000
	SuccessColor = 0x00FF00
	InfoColor    = 0x0099FF
	WarningColor = 0xFFAA00

	// Discord UI Colors
	BackgroundColor   = 0x2B2D31
	EmbedDefaultColor = 0x2B2D31

	// Tier Colors
	TierCommonColor     = 0x808080
	TierUncommonColor   = 0x00FF00
	TierRareColor       = 0x0000FF
	TierUltraRareColor  = 0x800080
	TierSecretRareColor = 0xFFD700
)

// Database and Performance Constants
const (
	// Timeouts
	DefaultQueryTimeout     = 30 * time.Second
	CommandExecutionTimeout = 10 * time.Second
	CatalogLoadTimeout      = 2 * time.Minute
	NetworkDialTimeout      = 5 * time.Second

	// Retries
	MaxRetries = 3

	// Cleanup
	CleanupInterval = 1 * time.Hour
)

// Game Mechanics Constants
const (
	// Pack system
	DailyPackLimit  = 5
	DailyPackWindow = 24 * time.Hour

	// Trade system
	TradeTimeout = 60 * time.Second
)

// Tier emoji shown next to card names
var TierEmojis = map[string]string{
	"common":      "⚪",
	"uncommon":    "🟢",
	"rare":        "🔵",
	"ultra_rare":  "🟣",
	"secret_rare": "🌟",
}
