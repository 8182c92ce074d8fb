package logger

import (
	"os"

	"github.com/rs/zerolog"
)

// New returns the root application logger writing JSON to stdout.
func New(level zerolog.Level) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	return zerolog.New(os.Stdout).
		With().
		Timestamp().
		Logger().
		Level(level)
}
