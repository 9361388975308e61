package models

import (
	"time"

	"github.com/uptrace/bun"
)

// RateLimit is a fixed-window counter keyed by "<action>:<account>".
type RateLimit struct {
	bun.BaseModel `bun:"table:rate_limits,alias:rl"`

	Key       string    `bun:"key,pk"`
	Count     int64     `bun:"count,notnull"`
	ExpiresAt time.Time `bun:"expires_at,notnull"`
}
