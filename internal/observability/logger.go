// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package observability builds the zerolog loggers handed to each component.
package observability

import (
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/europe-pmc/pkg/types"
)

// DefaultLoggingConfig returns console output at info level.
func DefaultLoggingConfig() types.LoggingConfig {
	return types.LoggingConfig{
		Level:  "info",
		Format: "console",
	}
}

// NewLogger creates a zerolog logger writing to w. Console format renders
// human-friendly lines; any other format emits JSON.
func NewLogger(cfg types.LoggingConfig, w io.Writer) zerolog.Logger {
	out := w
	if f := strings.ToLower(cfg.Format); f == "" || f == "console" || f == "pretty" {
		out = zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: time.TimeOnly,
		}
	}

	return zerolog.New(out).
		Level(ParseLevel(cfg.Level)).
		With().
		Timestamp().
		Logger()
}

// ParseLevel converts a level name to a zerolog.Level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// WithComponent tags a logger with the component name, mirroring the
// named loggers of the command line tool ("EuropePMC", "Download").
func WithComponent(logger zerolog.Logger, name string) zerolog.Logger {
	return logger.With().Str("component", name).Logger()
}
