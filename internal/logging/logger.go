package logging

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New constructs the app logger. JSON to stdout by default; LOG_FORMAT=console
// switches to the human-readable writer for local development.
func New(level, format, env string) zerolog.Logger {
	lvl := zerolog.InfoLevel
	if parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level))); err == nil {
		lvl = parsed
	}

	var out = os.Stdout
	zerolog.TimeFieldFormat = time.RFC3339Nano

	logger := zerolog.New(out)
	if strings.ToLower(strings.TrimSpace(format)) == "console" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339})
	}

	return logger.Level(lvl).With().
		Timestamp().
		Str("app", "workconnect").
		Str("env", env).
		Logger()
}
