package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/handler"

	"github.com/disgoorg/packbot/internal/domain/catalog"
	"github.com/disgoorg/packbot/internal/domain/ledger"
	"github.com/disgoorg/packbot/internal/domain/packs"
	"github.com/disgoorg/packbot/internal/domain/ratelimit"
	"github.com/disgoorg/packbot/internal/domain/trades"
	"github.com/disgoorg/packbot/internal/metrics"
	"github.com/disgoorg/packbot/packbot"
	"github.com/disgoorg/packbot/packbot/commands"
	"github.com/disgoorg/packbot/packbot/config"
	"github.com/disgoorg/packbot/packbot/database"
	"github.com/disgoorg/packbot/packbot/database/repositories"
	"github.com/disgoorg/packbot/packbot/handlers"
	"github.com/disgoorg/packbot/packbot/logger"
	"github.com/disgoorg/packbot/packbot/services"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	// bootstrap logger until the config picks the real one
	logger.Setup(os.Stdout, slog.LevelInfo, "pretty", false, false)

	shouldSyncCommands := flag.Bool("sync-commands", false, "Whether to sync commands to discord")
	path := flag.String("config", "config.toml", "path to config")
	flag.Parse()

	cfg, err := packbot.LoadConfig(*path)
	if err != nil {
		slog.Error("Failed to load configuration", slog.String("type", "sys"), slog.Any("error", err))
		os.Exit(-1)
	}
	logger.Setup(os.Stdout, cfg.Log.Level, cfg.Log.Format, cfg.Log.AddSource, cfg.Log.NoColor)

	slog.Info("Starting PackBot",
		slog.String("type", "sys"),
		slog.String("version", version),
		slog.String("commit", commit))

	ctx, cancel := context.WithTimeout(context.Background(), config.CatalogLoadTimeout)
	defer cancel()

	dbStartTime := time.Now()
	db, err := database.New(ctx, cfg.DB)
	if err != nil {
		slog.Error("Database connection failed",
			slog.String("type", "db"),
			slog.Any("error", err),
			slog.Duration("attempted_for", time.Since(dbStartTime)))
		os.Exit(-1)
	}
	defer db.Close()

	if err = db.Ping(ctx); err != nil {
		slog.Error("Database ping failed", slog.String("type", "db"), slog.Any("error", err))
		os.Exit(-1)
	}
	if err = db.InitializeSchema(ctx); err != nil {
		slog.Error("Failed to initialize database schema", slog.String("type", "db"), slog.Any("error", err))
		os.Exit(-1)
	}
	slog.Info("Database ready",
		slog.String("type", "db"),
		slog.String("database", cfg.DB.Database),
		slog.Duration("took", time.Since(dbStartTime)))

	src, err := catalogSource(ctx, cfg)
	if err != nil {
		slog.Error("Failed to set up catalog source", slog.String("type", "sys"), slog.Any("error", err))
		os.Exit(-1)
	}
	cat, err := catalog.Load(ctx, src)
	if err != nil {
		slog.Error("Failed to load catalog", slog.String("type", "sys"), slog.Any("error", err))
		os.Exit(-1)
	}
	metrics.CatalogCards.Set(float64(cat.Len()))

	b := packbot.New(*cfg, version, commit)
	b.DB = db
	b.Catalog = cat
	b.Ledger = ledger.New(repositories.NewPlayerCardRepository(db.BunDB()), cat)
	b.TradeRepository = repositories.NewTradeRepository(db.BunDB())
	b.Trades = trades.NewCoordinator(b.Ledger, cat, cfg.Trade.Timeout()).WithRecorder(b.TradeRepository)

	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()

	b.Packs = packs.NewService(cat, packs.NewGenerator(cat, nil), rateLimiter(bgCtx, cfg, db), b.Ledger, packs.Config{
		Limit:  cfg.Packs.DailyLimit,
		Window: cfg.Packs.Window(),
	})

	if cfg.Metrics.Addr != "" {
		go serveMetrics(cfg.Metrics.Addr)
	}

	h := handler.New()
	h.Command("/version", commands.VersionHandler(b))
	h.Command("/open-pack", handlers.WrapWithLogging("open-pack", commands.OpenPackHandler(b)))
	h.Autocomplete("/open-pack", commands.OpenPackAutocomplete(b))
	h.Command("/show-cards", handlers.WrapWithLogging("show-cards", commands.ShowCardsHandler(b)))
	h.Autocomplete("/show-cards", commands.ShowCardsAutocomplete(b))
	h.Command("/trade", handlers.WrapWithLogging("trade", commands.TradeHandler(b)))
	h.Autocomplete("/trade", commands.TradeAutocomplete(b))
	h.Component("/trade/{action}/{handle}", handlers.WrapComponentWithLogging("trade-button", commands.TradeButtonHandler(b)))
	h.Command("/trades", handlers.WrapWithLogging("trades", commands.TradesHandler(b)))

	if err = b.SetupBot(h, bot.NewListenerFunc(b.OnReady)); err != nil {
		slog.Error("Failed to setup bot",
			slog.String("type", "sys"),
			slog.Any("error", err),
			slog.String("component", "bot_setup"),
			slog.String("status", "failed"),
		)
		os.Exit(-1)
	}

	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		b.Client.Close(ctx)
	}()

	if *shouldSyncCommands {
		slog.Info("Syncing commands",
			slog.String("type", "sys"),
			slog.Any("guild_ids", cfg.Bot.DevGuilds),
		)
		if err = handler.SyncCommands(b.Client, commands.Commands, cfg.Bot.DevGuilds); err != nil {
			slog.Error("Failed to sync commands",
				slog.String("type", "sys"),
				slog.Any("error", err),
				slog.String("component", "command_sync"),
				slog.String("status", "failed"),
			)
		}
	}

	gwCtx, gwCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer gwCancel()
	if err = b.Client.OpenGateway(gwCtx); err != nil {
		slog.Error("Failed to open gateway",
			slog.String("type", "sys"),
			slog.Any("error", err),
			slog.String("component", "gateway"),
			slog.String("status", "failed"),
		)
		os.Exit(-1)
	}

	slog.Info("Bot is running. Press CTRL-C to exit.", slog.String("type", "sys"))
	s := make(chan os.Signal, 1)
	signal.Notify(s, syscall.SIGINT, syscall.SIGTERM)
	<-s
	slog.Info("Shutting down bot...", slog.String("type", "sys"))
}

func catalogSource(ctx context.Context, cfg *packbot.Config) (catalog.Source, error) {
	switch cfg.Catalog.Source {
	case packbot.CatalogSourceSpaces:
		return services.NewSpacesSource(ctx,
			cfg.Spaces.Key,
			cfg.Spaces.Secret,
			cfg.Spaces.Region,
			cfg.Spaces.Bucket,
			cfg.Spaces.Endpoint,
			cfg.Spaces.CatalogRoot,
		)
	case packbot.CatalogSourceDir:
		return catalog.DirSource(cfg.Catalog.Dir), nil
	default:
		return nil, fmt.Errorf("unknown catalog source %q", cfg.Catalog.Source)
	}
}

// rateLimiter builds the pack limiter and starts expiry cleanup for its store.
func rateLimiter(ctx context.Context, cfg *packbot.Config, db *database.DB) *ratelimit.Limiter {
	if cfg.RateLimit.Backend == packbot.RateLimitBackendMemory {
		store := ratelimit.NewMemoryStore()
		store.StartCleanupRoutine(ctx, config.CleanupInterval)
		return ratelimit.New(store)
	}

	repo := repositories.NewRateLimitRepository(db.BunDB())
	go func() {
		ticker := time.NewTicker(config.CleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				n, err := repo.DeleteExpired(ctx)
				if err != nil {
					slog.Error("Failed to delete expired rate limits", slog.String("type", "db"), slog.Any("error", err))
					continue
				}
				slog.Debug("Deleted expired rate limits", slog.String("type", "db"), slog.Int("count", n))
			case <-ctx.Done():
				return
			}
		}
	}()
	return ratelimit.New(repo)
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	slog.Info("Serving metrics", slog.String("type", "sys"), slog.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Metrics server stopped", slog.String("type", "sys"), slog.Any("error", err))
	}
}
