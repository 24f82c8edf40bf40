package logging

import (
	"io"
	"strings"

	"github.com/rs/zerolog"
)

// Levels accepted by --logging-level
var Levels = []string{"debug", "info", "error"}

// ParseLevel maps a --logging-level value to a zerolog level.
// Anything unrecognized falls back to error, the CLI default.
func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	default:
		return zerolog.ErrorLevel
	}
}

// New builds the console logger used by every command
func New(level string, w io.Writer) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: w, NoColor: true, TimeFormat: "15:04:05"}).
		Level(ParseLevel(level)).
		With().
		Timestamp().
		Logger()
}
