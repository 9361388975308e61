package repositories

import (
	"context"
	"time"

	"github.com/uptrace/bun"

	"github.com/disgoorg/packbot/internal/domain/ratelimit"
	"github.com/disgoorg/packbot/packbot/database/models"
)

const rateLimitsEntity = "rate_limits"

// RateLimitRepository keeps fixed-window counters in Postgres so every bot
// process shares one allowance per account.
type RateLimitRepository interface {
	ratelimit.Store
	DeleteExpired(ctx context.Context) (int, error)
}

type rateLimitRepository struct {
	*BaseRepository
}

func NewRateLimitRepository(db *bun.DB) RateLimitRepository {
	return &rateLimitRepository{BaseRepository: NewBaseRepository(db)}
}

// Incr bumps the counter in a single statement. An expired window restarts
// at 1 with a fresh expiry; both sides use the database clock.
func (r *rateLimitRepository) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Time, error) {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	row := new(models.RateLimit)
	err := r.db.NewRaw(`
		INSERT INTO rate_limits (key, count, expires_at)
		VALUES (?, 1, NOW() + ? * INTERVAL '1 second')
		ON CONFLICT (key) DO UPDATE SET
			count = CASE WHEN rate_limits.expires_at <= NOW() THEN 1 ELSE rate_limits.count + 1 END,
			expires_at = CASE WHEN rate_limits.expires_at <= NOW() THEN EXCLUDED.expires_at ELSE rate_limits.expires_at END
		RETURNING key, count, expires_at`,
		key, window.Seconds(),
	).Scan(ctx, row)
	if err != nil {
		return 0, time.Time{}, r.HandleErrorWithID("incr", rateLimitsEntity, key, err)
	}
	return row.Count, row.ExpiresAt, nil
}

func (r *rateLimitRepository) DeleteExpired(ctx context.Context) (int, error) {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	res, err := r.db.NewDelete().
		Model((*models.RateLimit)(nil)).
		Where("expires_at <= NOW()").
		Exec(ctx)
	if err != nil {
		return 0, r.HandleError("delete_expired", rateLimitsEntity, err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
