package logger

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
)

func newTestLogger(level slog.Level) (*slog.Logger, *bytes.Buffer) {
	color.NoColor = true
	var buf bytes.Buffer
	return slog.New(NewHandlerWithOptions(&buf, &slog.HandlerOptions{Level: level})), &buf
}

func TestCustomHandler_Format(t *testing.T) {
	tests := []struct {
		name    string
		log     func(l *slog.Logger)
		want    []string
		notWant []string
	}{
		{
			name: "command",
			log: func(l *slog.Logger) {
				l.Info("Command completed",
					slog.String("type", "cmd"),
					slog.String("name", "open_pack"),
					slog.String("user_name", "ash"),
					slog.String("status", "success"),
					slog.Duration("took", 1500*time.Millisecond))
			},
			want:    []string{"[PackBot]", "[INFO]", "[CMD]", "[open_pack by ash]", "[Status: success]", "(took 1.5s)"},
			notWant: []string{"type=", "user_name="},
		},
		{
			name: "error",
			log: func(l *slog.Logger) {
				l.Error("Query failed", slog.String("type", "db"), slog.Any("error", errors.New("boom")), slog.String("table", "player_cards"))
			},
			want: []string{"[ERROR]", "[DB]", "Query failed", ": boom", "table=player_cards"},
		},
		{
			name: "system default",
			log: func(l *slog.Logger) {
				l.With(slog.String("shard", "0")).Warn("Reconnecting")
			},
			want: []string{"[WARN]", "[SYS]", "Reconnecting", "shard=0"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, buf := newTestLogger(slog.LevelDebug)
			tt.log(l)
			out := buf.String()
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("output %q missing %q", out, w)
				}
			}
			for _, w := range tt.notWant {
				if strings.Contains(out, w) {
					t.Errorf("output %q contains %q", out, w)
				}
			}
		})
	}
}

func TestCustomHandler_Filtering(t *testing.T) {
	l, buf := newTestLogger(slog.LevelInfo)

	l.Debug("hidden by level")
	l.Info("sending heartbeat to gateway")
	if buf.Len() != 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}

	l.Info("kept")
	if !strings.Contains(buf.String(), "kept") {
		t.Errorf("expected output, got %q", buf.String())
	}
}
