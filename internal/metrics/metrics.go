// Package metrics provides Prometheus metrics for the pack bot.
// Scrape these at /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Pack Metrics
	PacksOpenedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "packbot_packs_opened_total",
			Help: "Total number of packs opened",
		},
		[]string{"set"},
	)

	CardsGrantedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "packbot_cards_granted_total",
			Help: "Total number of card copies granted from packs",
		},
	)

	PullsByTier = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "packbot_pulls_by_tier_total",
			Help: "Cards pulled by rarity tier",
		},
		[]string{"tier"},
	)

	// Rate Limit Metrics
	RateLimitedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "packbot_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		},
		[]string{"action"},
	)

	RateLimitErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "packbot_rate_limit_errors_total",
			Help: "Rate limiter store failures (request allowed)",
		},
	)

	// Ledger Metrics
	LedgerOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "packbot_ledger_op_duration_seconds",
			Help:    "Ledger operation latency in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"op", "result"}, // result: "ok", "invalid", "insufficient", "unavailable"
	)

	// Trade Metrics
	TradesProposedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "packbot_trades_proposed_total",
			Help: "Total number of trades proposed",
		},
	)

	TradeOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "packbot_trade_outcomes_total",
			Help: "Resolved trades by terminal state",
		},
		[]string{"state"},
	)

	TradesPending = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "packbot_trades_pending",
			Help: "Trades awaiting a response",
		},
	)

	// Command Metrics
	CommandDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "packbot_command_duration_seconds",
			Help:    "Interaction handler latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"command", "status"},
	)

	CatalogCards = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "packbot_catalog_cards",
			Help: "Number of cards in the loaded catalog",
		},
	)
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
