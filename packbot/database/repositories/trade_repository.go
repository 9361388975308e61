package repositories

import (
	"context"
	"errors"

	"github.com/uptrace/bun"

	"github.com/disgoorg/packbot/internal/domain/trades"
	"github.com/disgoorg/packbot/packbot/database/models"
)

const tradesEntity = "trades"

// TradeRepository is the audit trail of resolved trades.
type TradeRepository interface {
	trades.Recorder
	GetUserTrades(ctx context.Context, userID string, limit int) ([]*models.Trade, error)
}

type tradeRepository struct {
	*BaseRepository
}

func NewTradeRepository(db *bun.DB) TradeRepository {
	return &tradeRepository{BaseRepository: NewBaseRepository(db)}
}

func (r *tradeRepository) Record(ctx context.Context, out trades.Outcome) error {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	row := tradeFromOutcome(out)
	_, err := r.db.NewInsert().
		Model(row).
		On("CONFLICT (handle) DO NOTHING").
		Exec(ctx)
	return r.HandleErrorWithID("record", tradesEntity, out.Handle, err)
}

func (r *tradeRepository) GetUserTrades(ctx context.Context, userID string, limit int) ([]*models.Trade, error) {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	var rows []*models.Trade
	err := r.db.NewSelect().
		Model(&rows).
		WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("initiator_id = ?", userID).WhereOr("counterpart_id = ?", userID)
		}).
		Order("resolved_at DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, r.HandleErrorWithID("list", tradesEntity, userID, err)
	}
	return rows, nil
}

func tradeFromOutcome(out trades.Outcome) *models.Trade {
	row := &models.Trade{
		Handle:          out.Handle,
		InitiatorID:     out.Offer.Initiator,
		InitiatorCard:   out.Offer.InitiatorCard,
		CounterpartID:   out.Offer.Counterpart,
		CounterpartCard: out.Offer.CounterpartCard,
		State:           tradeState(out.State),
		CreatedAt:       out.ProposedAt,
		ResolvedAt:      out.ResolvedAt,
	}
	if out.Err != nil && !errors.Is(out.Err, trades.ErrTimeout) {
		row.Error = out.Err.Error()
	}
	return row
}

func tradeState(s trades.State) models.TradeState {
	switch s {
	case trades.StateAccepted:
		return models.TradeAccepted
	case trades.StateDeclined:
		return models.TradeDeclined
	case trades.StateExpired:
		return models.TradeExpired
	default:
		return models.TradeSwapFailed
	}
}
