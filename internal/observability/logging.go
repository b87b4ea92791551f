// Package observability carries the logging, metrics, and health
// surfaces shared by every component.
package observability

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger returns a component-tagged JSON logger. The level comes
// from REWARD_LOG_LEVEL (debug, info, warn, error); anything else
// falls back to info.
func NewLogger(component string) zerolog.Logger {
	level := parseLevel(os.Getenv("REWARD_LOG_LEVEL"))
	return zerolog.New(os.Stderr).
		Level(level).
		With().
		Timestamp().
		Str("component", component).
		Logger()
}

func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func init() {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.DurationFieldUnit = time.Millisecond
}
