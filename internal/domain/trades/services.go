package trades

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru"

	"github.com/disgoorg/packbot/internal/domain/ledger"
	"github.com/disgoorg/packbot/internal/metrics"
)

const (
	DefaultTimeout = 60 * time.Second
	swapTimeout    = 10 * time.Second
	recordTimeout  = 5 * time.Second
	recentSize     = 1024
)

// Coordinator runs the propose/respond handshake and performs the swap on
// acceptance. Sessions live in memory only.
type Coordinator struct {
	ledger  *ledger.Ledger
	cards   ledger.CardLookup
	timeout time.Duration
	records Recorder

	sessions sync.Map   // handle -> *Session
	pairs    sync.Map   // pairKey -> handle
	recent   *lru.Cache // handle -> *Session, resolved only
}

func NewCoordinator(l *ledger.Ledger, cards ledger.CardLookup, timeout time.Duration) *Coordinator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	recent, _ := lru.New(recentSize)
	return &Coordinator{
		ledger:  l,
		cards:   cards,
		timeout: timeout,
		recent:  recent,
	}
}

// WithRecorder sets where resolved outcomes are persisted.
func (c *Coordinator) WithRecorder(r Recorder) *Coordinator {
	c.records = r
	return c
}

func (c *Coordinator) Timeout() time.Duration {
	return c.timeout
}

func pairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + ":" + b
}

// Propose validates the offer against both collections and opens a session
// that expires after the coordinator timeout.
func (c *Coordinator) Propose(ctx context.Context, offer Offer) (*Session, error) {
	if offer.Initiator == "" || offer.Counterpart == "" {
		return nil, &ledger.ValidationError{Field: "account", Reason: "empty"}
	}
	if offer.Initiator == offer.Counterpart {
		return nil, ErrSelfTrade
	}
	for _, id := range []string{offer.InitiatorCard, offer.CounterpartCard} {
		if _, ok := c.cards.Card(id); !ok {
			return nil, &ledger.ValidationError{Field: "card_id", Reason: id, Err: ledger.ErrUnknownCard}
		}
	}

	for _, side := range []struct{ account, card string }{
		{offer.Initiator, offer.InitiatorCard},
		{offer.Counterpart, offer.CounterpartCard},
	} {
		col, err := c.ledger.GetCollection(ctx, side.account)
		if err != nil {
			return nil, err
		}
		if col.Count(side.card) < 1 {
			return nil, &NotOwnedError{Account: side.account, CardID: side.card}
		}
	}

	handle := uuid.NewString()
	key := pairKey(offer.Initiator, offer.Counterpart)
	if _, loaded := c.pairs.LoadOrStore(key, handle); loaded {
		return nil, ErrPendingTrade
	}

	s := newSession(handle, offer, time.Now(), c.timeout)
	c.sessions.Store(handle, s)
	s.state.Store(int32(StateAwaitingResponse))
	go c.run(s)

	metrics.TradesProposedTotal.Inc()
	metrics.TradesPending.Inc()
	slog.Info("Trade proposed",
		slog.String("type", "sys"),
		slog.String("handle", handle),
		slog.String("initiator", offer.Initiator),
		slog.String("counterpart", offer.Counterpart))

	return s, nil
}

// Respond records the counterpart's answer and returns the session outcome.
// Answers from any other account are rejected without touching the session.
// When the session already resolved, its outcome is returned unchanged.
func (c *Coordinator) Respond(ctx context.Context, handle, accepter string, accept bool) (Outcome, error) {
	s, ok := c.Session(handle)
	if !ok {
		return Outcome{}, ErrUnknownTrade
	}
	if accepter != s.Offer.Counterpart {
		return Outcome{}, ErrNotCounterpart
	}

	select {
	case s.responses <- response{ctx: ctx, accept: accept}:
	default:
		// an earlier answer is queued
	}
	return s.Wait(ctx)
}

// Wait blocks until the session resolves.
func (c *Coordinator) Wait(ctx context.Context, handle string) (Outcome, error) {
	s, ok := c.Session(handle)
	if !ok {
		return Outcome{}, ErrUnknownTrade
	}
	return s.Wait(ctx)
}

// Session looks up a pending or recently resolved session.
func (c *Coordinator) Session(handle string) (*Session, bool) {
	if v, ok := c.sessions.Load(handle); ok {
		return v.(*Session), true
	}
	if v, ok := c.recent.Get(handle); ok {
		return v.(*Session), true
	}
	return nil, false
}

// Pending lists unresolved sessions involving account, oldest first.
func (c *Coordinator) Pending(account string) []*Session {
	var out []*Session
	c.sessions.Range(func(_, v any) bool {
		if s := v.(*Session); s.involves(account) && !s.State().Terminal() {
			out = append(out, s)
		}
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// run is the only place a session resolves.
func (c *Coordinator) run(s *Session) {
	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	out := Outcome{Handle: s.Handle, Offer: s.Offer, ProposedAt: s.CreatedAt}
	select {
	case r := <-s.responses:
		if !r.accept {
			out.State = StateDeclined
			break
		}
		ctx, cancel := context.WithTimeout(context.WithoutCancel(r.ctx), swapTimeout)
		out.State, out.Err = c.swap(ctx, s.Offer)
		cancel()
	case <-timer.C:
		out.State = StateExpired
		out.Err = ErrTimeout
	}

	c.resolve(s, out)
}

func (c *Coordinator) swap(ctx context.Context, offer Offer) (State, error) {
	_, _, err := c.ledger.Swap(ctx, ledger.Transfer{
		From:     offer.Initiator,
		FromCard: offer.InitiatorCard,
		To:       offer.Counterpart,
		ToCard:   offer.CounterpartCard,
	})
	if err != nil {
		return StateSwapFailed, fmt.Errorf("swap failed: %w", err)
	}
	return StateAccepted, nil
}

func (c *Coordinator) resolve(s *Session, out Outcome) {
	out.ResolvedAt = time.Now()
	s.outcome = out
	s.state.Store(int32(out.State))
	c.recent.Add(s.Handle, s)
	c.sessions.Delete(s.Handle)
	c.pairs.CompareAndDelete(pairKey(s.Offer.Initiator, s.Offer.Counterpart), s.Handle)
	close(s.done)

	metrics.TradesPending.Dec()
	metrics.TradeOutcomesTotal.WithLabelValues(out.State.String()).Inc()

	attrs := []any{
		slog.String("type", "sys"),
		slog.String("handle", s.Handle),
		slog.String("state", out.State.String()),
		slog.Duration("took", time.Since(s.CreatedAt)),
	}
	if out.State == StateSwapFailed {
		slog.Error("Trade resolved", append(attrs, slog.Any("error", out.Err))...)
	} else {
		slog.Info("Trade resolved", attrs...)
	}

	c.record(out)
}

func (c *Coordinator) record(out Outcome) {
	if c.records == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()
	if err := c.records.Record(ctx, out); err != nil {
		slog.Warn("Failed to record trade outcome",
			slog.String("type", "db"),
			slog.String("handle", out.Handle),
			slog.Any("error", err))
	}
}
