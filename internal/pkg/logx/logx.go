/*
Package logx provides a structured logging wrapper based on zerolog.

It initializes the global logger, picks the output format (console or JSON) from the
environment, hands out component-scoped child loggers, and offers key-value helpers
for the Debug, Info, Warn, Error and Fatal levels.
*/
package logx

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitGlobalLogger initializes the global zerolog instance.
// Development: Debug level, human-readable console output on stderr.
// Production: Info level, JSON on stdout.
// All logs include a Unix timestamp and caller information.
func InitGlobalLogger(isDevelopment bool) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	if isDevelopment {
		logger = logger.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			NoColor:    false,
			TimeFormat: time.RFC3339,
		})
		logger = logger.Level(zerolog.DebugLevel)
	} else {
		logger = logger.Level(zerolog.InfoLevel)
	}

	log.Logger = logger.With().Caller().Logger()
}

// Logger returns a pointer to the global zerolog.Logger instance.
func Logger() *zerolog.Logger {
	return &log.Logger
}

// Component returns a child of the global logger tagged with the given component name.
func Component(name string) zerolog.Logger {
	return Logger().With().Str("component", name).Logger()
}

// checkFields validates that fields holds key-value pairs.
// An odd count is logged and the fields are dropped so zerolog does not panic.
func checkFields(level string, fields []any) []any {
	if len(fields)%2 != 0 {
		Logger().Warn().
			Int("fields_count", len(fields)).
			Str("log_level", level).
			Msgf("Logx call (%s) received odd number of fields: %v. Fields ignored.", level, fields)
		return nil
	}
	return fields
}

// Debug records a log message at the Debug level.
func Debug(msg string, fields ...any) {
	fields = checkFields("Debug", fields)

	Logger().Debug().
		Fields(fields).
		CallerSkipFrame(1).
		Msg(msg)
}

// Info records a log message at the Info level.
// It accepts a message string and an optional key-value field list.
func Info(msg string, fields ...any) {
	fields = checkFields("Info", fields)

	Logger().Info().
		Fields(fields).
		CallerSkipFrame(1).
		Msg(msg)
}

// Warn records a log message at the Warn level.
func Warn(msg string, fields ...any) {
	fields = checkFields("Warn", fields)

	Logger().Warn().
		Fields(fields).
		CallerSkipFrame(1).
		Msg(msg)
}

// Error records a log message at the Error level together with err.
func Error(err error, msg string, fields ...any) {
	fields = checkFields("Error", fields)

	Logger().Error().
		Err(err).
		Fields(fields).
		CallerSkipFrame(1).
		Msg(msg)
}

// Fatal records a log message at the Fatal level and then calls os.Exit(1).
func Fatal(err error, msg string, fields ...any) {
	fields = checkFields("Fatal", fields)

	Logger().Fatal().
		Err(err).
		Fields(fields).
		CallerSkipFrame(1).
		Msg(msg)
}
