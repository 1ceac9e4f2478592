// Package logger builds the application slog.Logger from environment
// configuration and provides attribute helpers shared across packages.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config controls logger construction. JSON output and info level are the
// defaults so production deployments work without any tuning.
type Config struct {
	Level   string `env:"LOG_LEVEL" envDefault:"info"`    // debug, info, warn, error
	Format  string `env:"LOG_FORMAT" envDefault:"json"`   // json or text
	Service string `env:"LOG_SERVICE" envDefault:"billingkit"`
}

// New returns a logger writing to w. A nil writer falls back to stdout.
func New(cfg Config, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}

	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var h slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		h = slog.NewTextHandler(w, opts)
	} else {
		h = slog.NewJSONHandler(w, opts)
	}

	log := slog.New(h)
	if cfg.Service != "" {
		log = log.With(slog.String("service", cfg.Service))
	}
	return log
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
