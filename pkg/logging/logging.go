package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Setup configures the process-wide logger. Console output goes to stderr so
// command stdout stays machine-readable; jsonOut switches to structured JSON.
func Setup(level string, jsonOut bool) zerolog.Logger {
	var writer io.Writer = os.Stderr
	if !jsonOut {
		writer = zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.Kitchen,
		}
	}

	logger := zerolog.New(writer).With().Timestamp().Logger()
	return logger.Level(parseLevel(level))
}

// Component returns a child logger tagged with the component name.
func Component(logger zerolog.Logger, name string) zerolog.Logger {
	return logger.With().Str("component", name).Logger()
}

func parseLevel(level string) zerolog.Level {
	switch level {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
