package tarka

import (
	"log/slog"
	"os"
	"sync"
)

var (
	baseLoggerOnce sync.Once
	baseLogger     *slog.Logger
)

// SetLogger overrides the package-wide base logger. Call it once during
// process startup before opening any index; safe to leave unset, in which
// case a text handler writing to stderr is used.
func SetLogger(l *slog.Logger) {
	baseLoggerOnce.Do(func() {})
	baseLogger = l
}

func rootLogger() *slog.Logger {
	baseLoggerOnce.Do(func() {
		if baseLogger == nil {
			baseLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
		}
	})
	if baseLogger == nil {
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return baseLogger
}

// componentLogger returns a logger scoped to a single core component
// (such as "index_reader" or "query_processor") so log lines can be filtered by
// subsystem without threading a logger through every constructor.
func componentLogger(component string) *slog.Logger {
	return rootLogger().With("component", component)
}
