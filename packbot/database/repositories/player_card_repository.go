package repositories

import (
	"context"
	"database/sql"
	"errors"
	"slices"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/uptrace/bun"

	"github.com/disgoorg/packbot/internal/domain/ledger"
	"github.com/disgoorg/packbot/packbot/database/models"
)

const playerCardsEntity = "player_cards"

// PlayerCardRepository stores collections as one JSONB row per account.
// Mutations take a transaction-scoped advisory lock per account in ascending
// key order, so same-account writers queue and different accounts do not.
type PlayerCardRepository interface {
	ledger.Repository
}

type playerCardRepository struct {
	*BaseRepository
}

func NewPlayerCardRepository(db *bun.DB) PlayerCardRepository {
	return &playerCardRepository{BaseRepository: NewBaseRepository(db)}
}

func (r *playerCardRepository) Get(ctx context.Context, account string) (ledger.Collection, error) {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	row := new(models.PlayerCards)
	err := r.db.NewSelect().
		Model(row).
		Column("discord_id", "cards").
		Where("discord_id = ?", account).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.Collection{}, nil
	}
	if err != nil {
		return nil, r.HandleErrorWithID("get", playerCardsEntity, account, err)
	}
	return toCollection(row.Cards), nil
}

func (r *playerCardRepository) Update(ctx context.Context, accounts []string, fn func(map[string]ledger.Collection) error) error {
	ordered := ledger.SortedAccounts(accounts)

	return r.Transaction(ctx, func(ctx context.Context, tx bun.Tx) error {
		for _, key := range advisoryLockKeys(ordered) {
			if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock(?)", key); err != nil {
				return r.HandleErrorWithID("lock", playerCardsEntity, key, err)
			}
		}

		var rows []models.PlayerCards
		err := tx.NewSelect().
			Model(&rows).
			Column("discord_id", "cards").
			Where("discord_id IN (?)", bun.In(ordered)).
			Scan(ctx)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return r.HandleError("select", playerCardsEntity, err)
		}

		cols := make(map[string]ledger.Collection, len(ordered))
		for _, acc := range ordered {
			cols[acc] = ledger.Collection{}
		}
		for _, row := range rows {
			cols[row.DiscordID] = toCollection(row.Cards)
		}

		if err = fn(cols); err != nil {
			return err
		}

		upserts := playerCardRows(ordered, cols, time.Now())
		_, err = tx.NewInsert().
			Model(&upserts).
			On("CONFLICT (discord_id) DO UPDATE").
			Set("cards = EXCLUDED.cards").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx)
		return r.HandleError("upsert", playerCardsEntity, err)
	})
}

// advisoryLockKeys maps accounts to deduplicated lock keys sorted ascending.
// Sorting the keys rather than the accounts keeps the acquisition order
// consistent even when two accounts share a key.
func advisoryLockKeys(accounts []string) []int64 {
	keys := make([]int64, 0, len(accounts))
	for _, acc := range accounts {
		keys = append(keys, int64(xxhash.Sum64String(playerCardsEntity+":"+acc)))
	}
	slices.Sort(keys)
	return slices.Compact(keys)
}

// playerCardRows builds the upsert rows. An account left without cards is
// written as an empty object, never as null or zero-count entries.
func playerCardRows(accounts []string, cols map[string]ledger.Collection, now time.Time) []models.PlayerCards {
	rows := make([]models.PlayerCards, 0, len(accounts))
	for _, acc := range accounts {
		col := cols[acc].Normalize()
		if col == nil {
			col = ledger.Collection{}
		}
		rows = append(rows, models.PlayerCards{
			DiscordID: acc,
			Cards:     col,
			UpdatedAt: now,
		})
	}
	return rows
}

func toCollection(cards map[string]int) ledger.Collection {
	col := make(ledger.Collection, len(cards))
	for id, n := range cards {
		if n > 0 {
			col[id] = n
		}
	}
	return col
}
