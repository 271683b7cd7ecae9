// Package logging provides per-component structured logging for the
// watcher. Logs go to stdout so container platforms pick them up; output
// is unbuffered line-oriented console format.
package logging

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	root     *zap.Logger
	rootOnce sync.Once
	rootErr  error
)

// Init configures the process-wide logger. Call once at startup; if it is
// never called, the first NewLogger falls back to the non-debug defaults.
func Init(debug bool) error {
	rootOnce.Do(func() {
		root, rootErr = build(debug)
	})
	return rootErr
}

func build(debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.OutputPaths = []string{"stdout"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, nil
}

// Logger is a named component logger.
type Logger struct {
	s         *zap.SugaredLogger
	component string
}

// NewLogger returns a logger for a specific component.
func NewLogger(component string) *Logger {
	rootOnce.Do(func() {
		root, rootErr = build(false)
	})
	if root == nil {
		// Config build failed; keep callers functional with a no-op.
		return &Logger{s: zap.NewNop().Sugar(), component: component}
	}
	return &Logger{
		s:         root.Named(component).Sugar(),
		component: component,
	}
}

// Debugf logs a debug-level message.
func (l *Logger) Debugf(format string, v ...interface{}) { l.s.Debugf(format, v...) }

// Infof logs an info-level message.
func (l *Logger) Infof(format string, v ...interface{}) { l.s.Infof(format, v...) }

// Warnf logs a warning-level message.
func (l *Logger) Warnf(format string, v ...interface{}) { l.s.Warnf(format, v...) }

// Errorf logs an error-level message.
func (l *Logger) Errorf(format string, v ...interface{}) { l.s.Errorf(format, v...) }

// Sync flushes buffered log entries.
func (l *Logger) Sync() error { return l.s.Sync() }
