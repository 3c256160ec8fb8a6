package logging

import (
	"log/slog"
	"strings"
)

// LevelFromString maps a config string ("DEBUG", "warn", ...) onto a
// slog level, defaulting to INFO for nil or unknown values.
func LevelFromString(str *string) slog.Level {
	if str == nil {
		return slog.LevelInfo
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(*str))); err != nil {
		return slog.LevelInfo
	}
	return l
}
