// Package logging configures zerolog for the planner binaries.
package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup configures the global logger for environment and returns it.
// Development logs at debug level, everything else at info.
func Setup(environment string) zerolog.Logger {
	return SetupWithWriter(environment, os.Stderr)
}

// SetupWithWriter is Setup writing human-readable lines to w. Production
// writes JSON lines instead.
func SetupWithWriter(environment string, w io.Writer) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level := zerolog.InfoLevel
	var out io.Writer = zerolog.ConsoleWriter{Out: w}
	switch environment {
	case "development":
		level = zerolog.DebugLevel
	case "production":
		out = w
	}

	logger := zerolog.New(out).With().Timestamp().Logger().Level(level)
	log.Logger = logger
	return logger
}

// ParseLevel overrides the level of logger when lvl is set ("debug",
// "warn", ...). Unknown levels leave the logger unchanged.
func ParseLevel(logger zerolog.Logger, lvl string) zerolog.Logger {
	if lvl == "" {
		return logger
	}
	parsed, err := zerolog.ParseLevel(lvl)
	if err != nil {
		logger.Warn().Str("level", lvl).Msg("unknown log level, keeping default")
		return logger
	}
	return logger.Level(parsed)
}
