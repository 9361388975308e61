package handlers

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/google/uuid"

	"github.com/disgoorg/packbot/internal/metrics"
	"github.com/disgoorg/packbot/packbot/config"
)

const slowThreshold = 2 * time.Second

// run executes fn, logging start, completion and timeout with a shared
// correlation id.
func run(kind, name string, user discord.User, fn func() error) error {
	start := time.Now()
	correlationID := uuid.NewString()

	base := []any{
		slog.String("type", kind),
		slog.String("name", name),
		slog.String("user_id", user.ID.String()),
		slog.String("user_name", user.Username),
		slog.String("correlation_id", correlationID),
	}
	slog.Debug(fmt.Sprintf("%s started", label(kind)), base...)

	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		duration := time.Since(start)
		attrs := append(base, slog.Duration("took", duration))

		status := "success"
		switch {
		case err != nil:
			status = "failed"
			slog.Error(fmt.Sprintf("%s failed", label(kind)), append(attrs,
				slog.Any("error", err),
				slog.String("status", status),
			)...)
		case duration > slowThreshold:
			status = "slow"
			slog.Warn(fmt.Sprintf("%s executed slowly", label(kind)), append(attrs,
				slog.String("status", status),
			)...)
		default:
			slog.Info(fmt.Sprintf("%s completed", label(kind)), append(attrs,
				slog.String("status", status),
			)...)
		}
		metrics.CommandDuration.WithLabelValues(name, status).Observe(duration.Seconds())
		return err

	case <-time.After(config.CommandExecutionTimeout):
		slog.Error(fmt.Sprintf("%s timed out", label(kind)), append(base,
			slog.String("status", "timeout"),
			slog.Duration("timeout", config.CommandExecutionTimeout),
		)...)
		metrics.CommandDuration.WithLabelValues(name, "timeout").Observe(config.CommandExecutionTimeout.Seconds())
		return fmt.Errorf("%s %s timed out after %s", kind, name, config.CommandExecutionTimeout)
	}
}

func label(kind string) string {
	if kind == "component" {
		return "Component interaction"
	}
	return "Command"
}

// WrapWithLogging wraps a command handler with logging functionality
func WrapWithLogging(name string, h handler.CommandHandler) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		return run("cmd", name, e.User(), func() error { return h(e) })
	}
}

// WrapComponentWithLogging wraps a component handler with logging functionality
func WrapComponentWithLogging(name string, h handler.ComponentHandler) handler.ComponentHandler {
	return func(e *handler.ComponentEvent) error {
		return run("component", name, e.User(), func() error { return h(e) })
	}
}
