package packbot

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/disgoorg/snowflake/v2"
	"github.com/pelletier/go-toml/v2"

	"github.com/disgoorg/packbot/packbot/config"
	"github.com/disgoorg/packbot/packbot/database"
)

// LoadConfig reads the TOML file at path and applies environment overrides.
// A missing file is not an error: defaults and the environment are used.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	file, err := os.Open(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		slog.Warn("Config file not found, using defaults and environment",
			slog.String("type", "sys"),
			slog.String("path", path))
	case err != nil:
		return nil, fmt.Errorf("failed to open config: %w", err)
	default:
		defer file.Close()
		if err = decodeConfig(file, &cfg); err != nil {
			return nil, err
		}
	}

	if err = env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if err = cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func decodeConfig(r io.Reader, cfg *Config) error {
	if err := toml.NewDecoder(r).DisallowUnknownFields().Decode(cfg); err != nil {
		return fmt.Errorf("failed to decode config: %w", err)
	}
	return nil
}

func DefaultConfig() Config {
	return Config{
		Log: LogConfig{
			Level:  slog.LevelInfo,
			Format: "pretty",
		},
		DB: database.DBConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "postgres",
			Database: "packbot",
			PoolSize: 10,
		},
		Catalog: CatalogConfig{
			Source: CatalogSourceDir,
			Dir:    "/app/data",
		},
		Packs: PacksConfig{
			DailyLimit:    config.DailyPackLimit,
			WindowSeconds: int(config.DailyPackWindow / time.Second),
		},
		Trade: TradeConfig{
			TimeoutSeconds: int(config.TradeTimeout / time.Second),
		},
		RateLimit: RateLimitConfig{
			Backend: RateLimitBackendPostgres,
		},
	}
}

type Config struct {
	Log       LogConfig         `toml:"log"`
	Bot       BotConfig         `toml:"bot"`
	DB        database.DBConfig `toml:"db"`
	Spaces    SpacesConfig      `toml:"spaces"`
	Catalog   CatalogConfig     `toml:"catalog"`
	Packs     PacksConfig       `toml:"packs"`
	Trade     TradeConfig       `toml:"trade"`
	RateLimit RateLimitConfig   `toml:"rate_limit"`
	Metrics   MetricsConfig     `toml:"metrics"`
}

func (c Config) Validate() error {
	var errs []error
	if c.Bot.Token == "" {
		errs = append(errs, errors.New("bot token is required (bot.token or DISCORD_BOT_TOKEN)"))
	}
	switch c.Catalog.Source {
	case CatalogSourceDir:
		if c.Catalog.Dir == "" {
			errs = append(errs, errors.New("catalog.dir is required for the dir source"))
		}
	case CatalogSourceSpaces:
		if c.Spaces.Bucket == "" {
			errs = append(errs, errors.New("spaces.bucket is required for the spaces catalog source"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown catalog source %q", c.Catalog.Source))
	}
	switch c.RateLimit.Backend {
	case RateLimitBackendPostgres, RateLimitBackendMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown rate limit backend %q", c.RateLimit.Backend))
	}
	if c.Packs.DailyLimit > 0 && c.Packs.WindowSeconds <= 0 {
		errs = append(errs, errors.New("packs.window_seconds must be positive"))
	}
	return errors.Join(errs...)
}

type LogConfig struct {
	Level     slog.Level `toml:"level" env:"LOG_LEVEL"`
	Format    string     `toml:"format" env:"LOG_FORMAT"`
	AddSource bool       `toml:"add_source"`
	NoColor   bool       `toml:"no_color" env:"NO_COLOR"`
}

type BotConfig struct {
	DevGuilds []snowflake.ID `toml:"dev_guilds"`
	Token     string         `toml:"token" env:"DISCORD_BOT_TOKEN"`
}

type SpacesConfig struct {
	Key      string `toml:"key" env:"SPACES_KEY"`
	Secret   string `toml:"secret" env:"SPACES_SECRET"`
	Region   string `toml:"region" env:"SPACES_REGION"`
	Bucket   string `toml:"bucket" env:"SPACES_BUCKET"`
	Endpoint string `toml:"endpoint" env:"SPACES_ENDPOINT"`
	// CatalogRoot is the key prefix of cards.json and sets.json.
	CatalogRoot string `toml:"catalog_root"`
}

const (
	CatalogSourceDir    = "dir"
	CatalogSourceSpaces = "spaces"
)

type CatalogConfig struct {
	Source string `toml:"source" env:"CATALOG_SOURCE"`
	Dir    string `toml:"dir" env:"CATALOG_DIR"`
}

type PacksConfig struct {
	DailyLimit    int64 `toml:"daily_limit" env:"PACKS_DAILY_LIMIT"`
	WindowSeconds int   `toml:"window_seconds"`
}

func (c PacksConfig) Window() time.Duration {
	return time.Duration(c.WindowSeconds) * time.Second
}

type TradeConfig struct {
	TimeoutSeconds int `toml:"timeout_seconds" env:"TRADE_TIMEOUT_SECONDS"`
}

func (c TradeConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

const (
	RateLimitBackendPostgres = "postgres"
	RateLimitBackendMemory   = "memory"
)

type RateLimitConfig struct {
	Backend string `toml:"backend" env:"RATE_LIMIT_BACKEND"`
}

type MetricsConfig struct {
	// Addr enables the Prometheus endpoint, e.g. ":9090".
	Addr string `toml:"addr" env:"METRICS_ADDR"`
}
