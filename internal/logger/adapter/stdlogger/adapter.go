// Package stdlogger adapts the global zerolog logger to the classic
// printf-style logging interface expected by libraries that take a standard
// logger (for example gorm's logger.Writer).
package stdlogger

import (
	"github.com/rs/zerolog/log"
)

// Logger writes printf-style messages through the global zerolog logger.
type Logger struct{}

// New creates a new standard logger adapter. Output destinations and levels
// follow whatever logger.Init configured.
func New() *Logger {
	return &Logger{}
}

// Debugf logs a formatted message at debug level.
func (l *Logger) Debugf(format string, v ...interface{}) {
	log.Debug().Msgf(format, v...)
}

// Infof logs a formatted message at info level.
func (l *Logger) Infof(format string, v ...interface{}) {
	log.Info().Msgf(format, v...)
}

// Warningf logs a formatted message at warn level.
func (l *Logger) Warningf(format string, v ...interface{}) {
	log.Warn().Msgf(format, v...)
}

// Errorf logs a formatted message at error level.
func (l *Logger) Errorf(format string, v ...interface{}) {
	log.Error().Msgf(format, v...)
}

// Printf logs a formatted message at info level. It satisfies interfaces
// that expect the standard library log signature.
func (l *Logger) Printf(format string, v ...interface{}) {
	log.Info().Msgf(format, v...)
}
