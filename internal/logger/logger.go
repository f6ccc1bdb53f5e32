// Package logger provides structured logging for the lisa tools
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog with archive-specific helpers
type Logger struct {
	zlog zerolog.Logger
}

// Config holds logger configuration
type Config struct {
	Level      string // debug, info, warn, error, disabled
	Pretty     bool   // human-readable console output
	Output     io.Writer
	WithCaller bool
}

// ParseLevel maps a level name to a zerolog level. Unknown names give info.
func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off", "none":
		return zerolog.Disabled
	}
	return zerolog.InfoLevel
}

// NewLogger creates a new structured logger
func NewLogger(cfg Config) *Logger {
	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		}
	}

	zlog := zerolog.New(output).
		Level(ParseLevel(cfg.Level)).
		With().
		Timestamp().
		Str("service", "lisa").
		Logger()

	if cfg.WithCaller {
		zlog = zlog.With().Caller().Logger()
	}
	return &Logger{zlog: zlog}
}

// Zerolog returns the underlying zerolog logger
func (l *Logger) Zerolog() zerolog.Logger {
	return l.zlog
}

// Debug starts a debug event
func (l *Logger) Debug() *zerolog.Event {
	return l.zlog.Debug()
}

// Component returns a logger tagged with a component name
func (l *Logger) Component(name string) *Logger {
	return &Logger{zlog: l.zlog.With().Str("component", name).Logger()}
}

// LogCommand logs completion of a CLI command
func (l *Logger) LogCommand(name string, duration time.Duration, err error) {
	event := l.zlog.Debug()
	if err != nil {
		event = l.zlog.Error().Err(err)
	}
	event.
		Str("command", name).
		Dur("duration_ms", duration).
		Msg("command completed")
}
