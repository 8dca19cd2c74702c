package logger

import (
	"log/slog"
	"os"
)

func Init(env string) *slog.Logger {
	var logger *slog.Logger

	switch env {
	case "production":
		// JSON for log processing in production
		logger = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		logger = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	return logger
}
