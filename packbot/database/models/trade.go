package models

import (
	"time"

	"github.com/uptrace/bun"
)

type TradeState string

const (
	TradeAccepted   TradeState = "accepted"
	TradeDeclined   TradeState = "declined"
	TradeExpired    TradeState = "expired"
	TradeSwapFailed TradeState = "swap_failed"
)

// Trade records the outcome of a resolved trade session.
type Trade struct {
	bun.BaseModel `bun:"table:trades,alias:t"`

	ID              int64      `bun:"id,pk,autoincrement"`
	Handle          string     `bun:"handle,notnull,unique"`
	InitiatorID     string     `bun:"initiator_id,notnull"`
	InitiatorCard   string     `bun:"initiator_card,notnull"`
	CounterpartID   string     `bun:"counterpart_id,notnull"`
	CounterpartCard string     `bun:"counterpart_card,notnull"`
	State           TradeState `bun:"state,notnull"`
	Error           string     `bun:"error"`
	CreatedAt       time.Time  `bun:"created_at,notnull"`
	ResolvedAt      time.Time  `bun:"resolved_at,notnull,default:current_timestamp"`
}
