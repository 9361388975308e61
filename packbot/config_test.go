package packbot

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig_File(t *testing.T) {
	path := writeConfig(t, `
[log]
level = "debug"
format = "json"

[bot]
token = "file-token"
dev_guilds = [123456789012345678]

[db]
host = "db.internal"
port = 6543

[packs]
daily_limit = 3
window_seconds = 3600

[trade]
timeout_seconds = 30

[rate_limit]
backend = "memory"
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Log.Level != slog.LevelDebug || cfg.Log.Format != "json" {
		t.Errorf("Log = %+v", cfg.Log)
	}
	if cfg.Bot.Token != "file-token" {
		t.Errorf("Bot.Token = %q", cfg.Bot.Token)
	}
	if len(cfg.Bot.DevGuilds) != 1 || cfg.Bot.DevGuilds[0] != snowflake.ID(123456789012345678) {
		t.Errorf("Bot.DevGuilds = %v", cfg.Bot.DevGuilds)
	}
	if cfg.DB.Host != "db.internal" || cfg.DB.Port != 6543 || cfg.DB.Database != "packbot" {
		t.Errorf("DB = %+v, want file values over defaults", cfg.DB)
	}
	if cfg.Packs.DailyLimit != 3 || cfg.Packs.Window() != time.Hour {
		t.Errorf("Packs = %+v", cfg.Packs)
	}
	if cfg.Trade.Timeout() != 30*time.Second {
		t.Errorf("Trade.Timeout() = %v", cfg.Trade.Timeout())
	}
	if cfg.RateLimit.Backend != RateLimitBackendMemory {
		t.Errorf("RateLimit.Backend = %q", cfg.RateLimit.Backend)
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	path := writeConfig(t, `
[bot]
token = "file-token"
`)
	t.Setenv("DISCORD_BOT_TOKEN", "env-token")
	t.Setenv("DB_PASSWORD", "s3cret")
	t.Setenv("PACKS_DAILY_LIMIT", "7")
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("METRICS_ADDR", ":9090")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Bot.Token != "env-token" {
		t.Errorf("Bot.Token = %q, want env value", cfg.Bot.Token)
	}
	if cfg.DB.Password != "s3cret" {
		t.Errorf("DB.Password = %q", cfg.DB.Password)
	}
	if cfg.Packs.DailyLimit != 7 {
		t.Errorf("Packs.DailyLimit = %d", cfg.Packs.DailyLimit)
	}
	if cfg.Log.Level != slog.LevelWarn {
		t.Errorf("Log.Level = %v", cfg.Log.Level)
	}
	if cfg.Metrics.Addr != ":9090" {
		t.Errorf("Metrics.Addr = %q", cfg.Metrics.Addr)
	}
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("DISCORD_BOT_TOKEN", "env-token")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	def := DefaultConfig()
	if cfg.Packs != def.Packs || cfg.Trade != def.Trade || cfg.Catalog != def.Catalog {
		t.Errorf("LoadConfig() = %+v, want defaults", cfg)
	}
	if cfg.Packs.DailyLimit != 5 || cfg.Packs.Window() != 24*time.Hour || cfg.Trade.Timeout() != time.Minute {
		t.Errorf("defaults: limit=%d window=%v trade=%v", cfg.Packs.DailyLimit, cfg.Packs.Window(), cfg.Trade.Timeout())
	}
}

func TestLoadConfig_UnknownField(t *testing.T) {
	path := writeConfig(t, `
[bot]
token = "t"
tokn = "typo"
`)
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("LoadConfig() error = nil, want unknown field error")
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		cfg := DefaultConfig()
		cfg.Bot.Token = "t"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing token", mutate: func(c *Config) { c.Bot.Token = "" }, wantErr: "bot token"},
		{name: "spaces without bucket", mutate: func(c *Config) { c.Catalog.Source = CatalogSourceSpaces }, wantErr: "spaces.bucket"},
		{name: "dir without path", mutate: func(c *Config) { c.Catalog.Dir = "" }, wantErr: "catalog.dir"},
		{name: "unknown source", mutate: func(c *Config) { c.Catalog.Source = "ftp" }, wantErr: "unknown catalog source"},
		{name: "unknown backend", mutate: func(c *Config) { c.RateLimit.Backend = "redis" }, wantErr: "unknown rate limit backend"},
		{name: "zero window", mutate: func(c *Config) { c.Packs.WindowSeconds = 0 }, wantErr: "window_seconds"},
		{name: "limit disabled ignores window", mutate: func(c *Config) { c.Packs.DailyLimit = 0; c.Packs.WindowSeconds = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want %q", err, tt.wantErr)
			}
		})
	}

	cfg := valid()
	cfg.Bot.Token = ""
	cfg.RateLimit.Backend = "redis"
	if err := cfg.Validate(); err == nil || strings.Count(err.Error(), "\n") != 1 {
		t.Errorf("Validate() should join every problem, got %v", err)
	}
}
