// Package logger provides structured logging for the application using zap.
package logger

import (
	"fmt"

	"go.uber.org/zap"
)

// Logger wraps a zap.Logger so callers can defer initialization
// until configuration has been parsed.
type Logger struct {
	// Log is the underlying zap logger. It is a no-op until Init is called.
	Log *zap.Logger
}

// New returns a Logger with a no-op zap logger installed.
func New() *Logger {
	return &Logger{Log: zap.NewNop()}
}

// Init replaces the no-op logger with a production zap logger at the given
// level ("debug", "info", "warn", "error"). It returns an error if the level
// string is not recognized or the logger cannot be built.
func (l *Logger) Init(level string) error {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return fmt.Errorf("parse log level: %w", err)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = lvl

	log, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}

	l.Log = log
	return nil
}
