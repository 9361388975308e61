package packs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/disgoorg/packbot/internal/domain/catalog"
	"github.com/disgoorg/packbot/internal/domain/ledger"
	"github.com/disgoorg/packbot/internal/domain/ratelimit"
	"github.com/disgoorg/packbot/internal/metrics"
)

var (
	ErrSetNotOpenable = errors.New("set cannot be opened")
	ErrRateLimited    = errors.New("rate limited")
)

type RateLimitedError struct {
	RetryAt time.Time
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited until %s", e.RetryAt.Format(time.RFC3339))
}

func (e *RateLimitedError) Is(target error) bool {
	return target == ErrRateLimited
}

type Config struct {
	// Limit is the number of packs per account and window. Zero disables
	// the limit.
	Limit  int64
	Window time.Duration
}

// Result is an opened pack. Cards keep draw order and may repeat.
type Result struct {
	Set        catalog.Set
	Cards      []catalog.Card
	Collection ledger.Collection
}

type Service struct {
	catalog   *catalog.Catalog
	generator *Generator
	limiter   *ratelimit.Limiter
	ledger    *ledger.Ledger
	cfg       Config
}

func NewService(c *catalog.Catalog, generator *Generator, limiter *ratelimit.Limiter, l *ledger.Ledger, cfg Config) *Service {
	return &Service{
		catalog:   c,
		generator: generator,
		limiter:   limiter,
		ledger:    l,
		cfg:       cfg,
	}
}

// OpenableSets lists the sets a pack can be opened from.
func (s *Service) OpenableSets() []catalog.Set {
	return s.catalog.OpenableSets()
}

// OpenPack checks the set, consumes one unit of the account's allowance,
// draws a pack and grants it.
func (s *Service) OpenPack(ctx context.Context, account, setID string) (*Result, error) {
	if account == "" {
		return nil, &ledger.ValidationError{Field: "account", Reason: "empty"}
	}
	set, ok := s.catalog.Set(setID)
	if !ok || !s.catalog.IsOpenable(setID) {
		return nil, fmt.Errorf("%w: %s", ErrSetNotOpenable, setID)
	}

	if err := s.admit(ctx, account); err != nil {
		return nil, err
	}

	cards, err := s.generator.Draw(setID)
	if err != nil {
		return nil, err
	}

	col, err := s.ledger.GrantCards(ctx, account, Deltas(cards))
	if err != nil {
		return nil, fmt.Errorf("failed to grant pack: %w", err)
	}

	metrics.PacksOpenedTotal.WithLabelValues(setID).Inc()
	metrics.CardsGrantedTotal.Add(float64(len(cards)))
	for _, card := range cards {
		metrics.PullsByTier.WithLabelValues(card.Tier().String()).Inc()
	}

	slog.Info("Pack opened",
		slog.String("type", "sys"),
		slog.String("account", account),
		slog.String("set", setID),
		slog.Int("cards", len(cards)))

	return &Result{Set: set, Cards: cards, Collection: col}, nil
}

// admit applies the rate limit. A limiter failure lets the request through.
func (s *Service) admit(ctx context.Context, account string) error {
	if s.limiter == nil || s.cfg.Limit <= 0 {
		return nil
	}

	decision, err := s.limiter.CheckAndConsume(ctx, ratelimit.Key(ratelimit.ActionOpenPack, account), s.cfg.Limit, s.cfg.Window)
	if err != nil {
		metrics.RateLimitErrorsTotal.Inc()
		slog.Warn("Rate limiter unavailable, allowing pack",
			slog.String("type", "error"),
			slog.String("account", account),
			slog.Any("error", err))
		return nil
	}
	if !decision.Allowed {
		metrics.RateLimitedTotal.WithLabelValues(ratelimit.ActionOpenPack).Inc()
		return &RateLimitedError{RetryAt: decision.RetryAt}
	}
	return nil
}
