// Package logging configures the process-wide slog logger.
package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Setup installs the default logger. LOG_FORMAT selects json or text;
// without it production environments log JSON. LOG_LEVEL defaults to
// INFO in production and DEBUG elsewhere.
func Setup() *slog.Logger {
	logger := slog.New(handler())
	slog.SetDefault(logger)
	return logger
}

func handler() slog.Handler {
	opts := &slog.HandlerOptions{
		Level:     level(),
		AddSource: os.Getenv("LOG_SOURCE") == "true",
	}
	switch format() {
	case "text":
		return slog.NewTextHandler(os.Stdout, opts)
	default:
		return slog.NewJSONHandler(os.Stdout, opts)
	}
}

func level() slog.Level {
	lvl := os.Getenv("LOG_LEVEL")
	if lvl == "" {
		if isProduction() {
			return slog.LevelInfo
		}
		return slog.LevelDebug
	}
	switch strings.ToUpper(lvl) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func format() string {
	if f := os.Getenv("LOG_FORMAT"); f != "" {
		return strings.ToLower(f)
	}
	if isProduction() {
		return "json"
	}
	return "text"
}

func isProduction() bool {
	for _, key := range []string{"ENV", "GO_ENV", "APP_ENV"} {
		if v := strings.ToLower(os.Getenv(key)); v != "" {
			return strings.HasPrefix(v, "prod")
		}
	}
	return os.Getenv("KUBERNETES_SERVICE_HOST") != ""
}
