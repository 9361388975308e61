package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/disgoorg/packbot/internal/domain/catalog"
	"github.com/disgoorg/packbot/internal/metrics"
)

// CardLookup resolves card ids against the catalog.
type CardLookup interface {
	Card(id string) (catalog.Card, bool)
}

// Ledger is the authoritative record of card holdings.
type Ledger struct {
	repository Repository
	cards      CardLookup
}

// New creates a ledger over repository. A nil cards lookup disables the card
// id check.
func New(repository Repository, cards CardLookup) *Ledger {
	return &Ledger{repository: repository, cards: cards}
}

func (l *Ledger) GetCollection(ctx context.Context, account string) (col Collection, err error) {
	defer observe("get", time.Now(), &err)

	if err = validateAccount(account); err != nil {
		return nil, err
	}
	col, err = l.repository.Get(ctx, account)
	if err != nil {
		return nil, wrapStoreError(err)
	}
	if col == nil {
		col = Collection{}
	}
	return col, nil
}

// GrantCards adds deltas to the account and returns the resulting collection.
func (l *Ledger) GrantCards(ctx context.Context, account string, deltas Deltas) (col Collection, err error) {
	defer observe("grant", time.Now(), &err)

	if err = l.validate(account, deltas); err != nil {
		return nil, err
	}

	err = l.repository.Update(ctx, []string{account}, func(cols map[string]Collection) error {
		c := ensure(cols, account)
		c.grant(deltas)
		col = c.Clone()
		return nil
	})
	if err != nil {
		return nil, l.fail("grant", account, err)
	}
	return col, nil
}

// DeductCards removes deltas from the account. Either every delta is applied
// or none is.
func (l *Ledger) DeductCards(ctx context.Context, account string, deltas Deltas) (col Collection, err error) {
	defer observe("deduct", time.Now(), &err)

	if err = l.validate(account, deltas); err != nil {
		return nil, err
	}

	err = l.repository.Update(ctx, []string{account}, func(cols map[string]Collection) error {
		c := ensure(cols, account)
		if err := c.deduct(account, deltas); err != nil {
			return err
		}
		col = c.Clone()
		return nil
	})
	if err != nil {
		return nil, l.fail("deduct", account, err)
	}
	return col, nil
}

// Swap moves one FromCard from t.From to t.To and one ToCard from t.To to
// t.From in a single transaction. Both holdings are checked against the state
// read inside the transaction.
func (l *Ledger) Swap(ctx context.Context, t Transfer) (from Collection, to Collection, err error) {
	defer observe("swap", time.Now(), &err)

	if err = validateAccount(t.From); err != nil {
		return nil, nil, err
	}
	if err = validateAccount(t.To); err != nil {
		return nil, nil, err
	}
	if t.From == t.To {
		return nil, nil, &ValidationError{Field: "account", Reason: "cannot swap with oneself"}
	}
	for _, id := range []string{t.FromCard, t.ToCard} {
		if err = l.validateCard(id); err != nil {
			return nil, nil, err
		}
	}

	err = l.repository.Update(ctx, []string{t.From, t.To}, func(cols map[string]Collection) error {
		a, b := ensure(cols, t.From), ensure(cols, t.To)
		if a.Count(t.FromCard) < 1 {
			return &InsufficientHoldingError{Account: t.From, CardID: t.FromCard, Have: a.Count(t.FromCard), Want: 1}
		}
		if b.Count(t.ToCard) < 1 {
			return &InsufficientHoldingError{Account: t.To, CardID: t.ToCard, Have: b.Count(t.ToCard), Want: 1}
		}

		if err := a.deduct(t.From, Deltas{t.FromCard: 1}); err != nil {
			return err
		}
		b.grant(Deltas{t.FromCard: 1})
		if err := b.deduct(t.To, Deltas{t.ToCard: 1}); err != nil {
			return err
		}
		a.grant(Deltas{t.ToCard: 1})

		from, to = a.Clone(), b.Clone()
		return nil
	})
	if err != nil {
		return nil, nil, l.fail("swap", t.From+","+t.To, err)
	}
	return from, to, nil
}

func (l *Ledger) validate(account string, deltas Deltas) error {
	if err := validateAccount(account); err != nil {
		return err
	}
	if len(deltas) == 0 {
		return &ValidationError{Field: "deltas", Reason: "no cards given"}
	}
	for id, n := range deltas {
		if n <= 0 {
			return &ValidationError{Field: "quantity", Reason: fmt.Sprintf("%d copies of %s", n, id)}
		}
		if err := l.validateCard(id); err != nil {
			return err
		}
	}
	return nil
}

func (l *Ledger) validateCard(id string) error {
	if id == "" {
		return &ValidationError{Field: "card_id", Reason: "empty"}
	}
	if l.cards == nil {
		return nil
	}
	if _, ok := l.cards.Card(id); !ok {
		return &ValidationError{Field: "card_id", Reason: id, Err: ErrUnknownCard}
	}
	return nil
}

func ensure(cols map[string]Collection, account string) Collection {
	c := cols[account]
	if c == nil {
		c = Collection{}
		cols[account] = c
	}
	return c
}

func validateAccount(account string) error {
	if account == "" {
		return &ValidationError{Field: "account", Reason: "empty"}
	}
	return nil
}

func (l *Ledger) fail(op, account string, err error) error {
	err = wrapStoreError(err)
	if result(err) == "unavailable" {
		slog.Error("Ledger operation failed",
			slog.String("type", "db"),
			slog.String("op", op),
			slog.String("account", account),
			slog.Any("error", err))
	}
	return err
}

func observe(op string, start time.Time, err *error) {
	metrics.LedgerOpDuration.WithLabelValues(op, result(*err)).Observe(time.Since(start).Seconds())
}
