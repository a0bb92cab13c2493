package util

import (
	"log/slog"
	"os"
	"strings"
)

// InitLogger installs a JSON slog handler as the default logger.
// Unknown level strings fall back to info.
func InitLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     lvl,
		AddSource: true,
	}))
	slog.SetDefault(logger)
	return logger
}
