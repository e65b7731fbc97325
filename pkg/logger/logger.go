// Package logger configures the process-wide slog logger.
package logger

import (
	"log/slog"
	"os"
)

// Setup initializes the default logger for the environment: human-readable
// text in development, JSON in production.
func Setup(env string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}

	var handler slog.Handler
	if env == "production" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	log := slog.New(handler)
	slog.SetDefault(log)
	return log
}
