package models

import (
	"time"

	"github.com/uptrace/bun"
)

// PlayerCards is one row per account holding its card-id to count map.
type PlayerCards struct {
	bun.BaseModel `bun:"table:player_cards,alias:pc"`

	ID        int64          `bun:"id,pk,autoincrement"`
	DiscordID string         `bun:"discord_id,notnull,unique"`
	Cards     map[string]int `bun:"cards,type:jsonb,notnull,default:'{}'"`
	UpdatedAt time.Time      `bun:"updated_at,notnull,default:current_timestamp"`
}
