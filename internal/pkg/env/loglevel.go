package env

import (
	"log/slog"
	"strings"
)

// ParseLogLevel reads LOG_LEVEL as an slog level name ("debug", "INFO",
// "warn+2", ...). "warning" is accepted as an alias for warn. Empty or
// unrecognised values yield fallback.
func ParseLogLevel(fallback slog.Level) slog.Level {
	raw := strings.TrimSpace(Get("LOG_LEVEL", ""))
	if raw == "" {
		return fallback
	}
	if strings.EqualFold(raw, "warning") {
		return slog.LevelWarn
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(raw)); err != nil {
		return fallback
	}
	return level
}
