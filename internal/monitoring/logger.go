// Package monitoring holds the diagnostic logger used outside the decode core.
package monitoring

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the structured logger behind Logf and Debugf.
var Logger = newLogger(os.Stderr, "rcintent", zerolog.InfoLevel)

// Logf is the package-level diagnostic logger. It defaults to an info-level
// zerolog message but may be replaced by SetLogger. Tests or production code
// can redirect or mute it.
var Logf func(format string, v ...interface{}) = func(format string, v ...interface{}) {
	Logger.Info().Msgf(format, v...)
}

// Debugf logs at debug level; it is silent unless Init enabled verbose output.
var Debugf func(format string, v ...interface{}) = func(format string, v ...interface{}) {
	Logger.Debug().Msgf(format, v...)
}

func newLogger(out io.Writer, app string, level zerolog.Level) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339,
	}
	return zerolog.New(output).Level(level).With().Timestamp().Str("app", app).Logger()
}

// Init configures Logger for a command. verbose enables debug messages.
func Init(app string, verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	Logger = newLogger(os.Stderr, app, level)
	return Logger
}

// SetLogger replaces the package logger. Passing nil will set a no-op logger
// for both Logf and Debugf.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		Debugf = func(string, ...interface{}) {}
		return
	}
	Logf = f
	Debugf = f
}
