package obs

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// NewLogger builds the process logger: coloured text for local work, JSON elsewhere.
func NewLogger(env string) *slog.Logger {
	return newLogger(os.Stdout, env, levelFromEnv())
}

func newLogger(w io.Writer, env string, level slog.Level) *slog.Logger {
	var handler slog.Handler
	switch strings.ToLower(env) {
	case "dev", "local":
		handler = tint.NewHandler(w, &tint.Options{Level: level, TimeFormat: time.Kitchen})
	default:
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	}
	return slog.New(handler).With("service", "staybook")
}

func levelFromEnv() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(os.Getenv("LOG_LEVEL"))); err != nil {
		return slog.LevelInfo
	}
	return level
}
