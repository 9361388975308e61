package logger

import (
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
)

// Setup installs the handler as the default logger. Format "json" and "text"
// select the standard slog handlers instead.
func Setup(out io.Writer, level slog.Level, format string, addSource bool, noColor bool) {
	if out == nil {
		out = os.Stdout
	}
	if noColor {
		color.NoColor = true
	}

	opts := &slog.HandlerOptions{Level: level, AddSource: addSource}
	var h slog.Handler
	switch format {
	case "json":
		h = slog.NewJSONHandler(out, opts)
	case "text":
		h = slog.NewTextHandler(out, opts)
	default:
		h = NewHandlerWithOptions(out, opts)
	}
	slog.SetDefault(slog.New(h))
}
