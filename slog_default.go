package shrinkcache

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/shrinkcache/shrinkcache/config"
)

// newSlog builds the engine's default structured logger from the logger
// config: JSON output to the configured path (stderr when unset) at the
// configured level.
func newSlog(lc *config.LoggerConfig) *slog.Logger {
	out := io.Writer(os.Stderr)
	level := slog.LevelInfo
	if lc != nil {
		if lc.Path != "" {
			if f, err := os.OpenFile(lc.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err == nil {
				out = f
			}
		}
		switch strings.ToLower(lc.Level) {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
	}
	return slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level}))
}
