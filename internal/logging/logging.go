package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is a thin wrapper around a sugared zap logger.
type Logger struct {
	*zap.SugaredLogger
}

// NewLogger creates a production JSON logger writing to stdout.
func NewLogger() *Logger {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stdout"}
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	base, err := cfg.Build()
	if err != nil {
		// Config is static; Build only fails on bad sink paths.
		panic(err)
	}
	return &Logger{SugaredLogger: base.Sugar()}
}

// NewNop returns a logger that discards everything. Used in tests.
func NewNop() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar()}
}

// Named returns a logger scoped to the given component name.
func (l *Logger) Named(name string) *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger.Named(name)}
}

// Info logs an informational message with key-value pairs.
func (l *Logger) Info(msg string, kv ...interface{}) {
	l.Infow(msg, kv...)
}

// Warn logs a warning message with key-value pairs.
func (l *Logger) Warn(msg string, kv ...interface{}) {
	l.Warnw(msg, kv...)
}

// Error logs an error message with key-value pairs.
func (l *Logger) Error(msg string, kv ...interface{}) {
	l.Errorw(msg, kv...)
}

// Debug logs a debug message with key-value pairs.
func (l *Logger) Debug(msg string, kv ...interface{}) {
	l.Debugw(msg, kv...)
}
