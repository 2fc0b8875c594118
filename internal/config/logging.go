package config

import (
	"io"
	"log/slog"
	"os"
)

// SlogLevel maps LOG_LEVEL to a slog.Level. Unknown values mean info.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger returns the JSON logger written to stdout, tagged with the
// service name and environment.
func (c *Config) NewLogger() *slog.Logger {
	return c.newLoggerTo(os.Stdout)
}

func (c *Config) newLoggerTo(w io.Writer) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: c.SlogLevel()})
	return slog.New(handler).With(
		slog.String("service", c.Service),
		slog.String("environment", c.Environment),
	)
}
