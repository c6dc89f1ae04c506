// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package log

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the structured logger handed to every component
type Logger interface {
	Debug(msg string, fields ...zap.Field)
	Info(msg string, fields ...zap.Field)
	Warn(msg string, fields ...zap.Field)
	Error(msg string, fields ...zap.Field)
	With(fields ...zap.Field) Logger
	Sync() error
}

// zapLogger wraps a zap.Logger
type zapLogger struct {
	log *zap.Logger
}

// New creates a new production logger at info level
func New() Logger {
	return NewWithLevel("info")
}

// Output formats accepted by NewWithFormat
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// NewWithLevel creates a new production logger with specific level
func NewWithLevel(level string) Logger {
	return NewWithFormat(level, FormatJSON)
}

// NewWithFormat creates a logger at level. FormatConsole selects the human
// readable development encoder; anything else logs JSON.
func NewWithFormat(level, format string) Logger {
	config := zap.NewProductionConfig()
	if format == FormatConsole {
		config = zap.NewDevelopmentConfig()
	}
	config.Level = zap.NewAtomicLevelAt(parseLevel(level))
	config.Sampling = nil

	log, err := config.Build()
	if err != nil {
		return &noOpLogger{}
	}

	return &zapLogger{log: log.Named("bidagent")}
}

// FromZap wraps an existing zap logger
func FromZap(l *zap.Logger) Logger {
	if l == nil {
		return &noOpLogger{}
	}
	return &zapLogger{log: l}
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// NoOp returns a no-op logger
func NoOp() Logger {
	return &noOpLogger{}
}

func (l *zapLogger) Debug(msg string, fields ...zap.Field) { l.log.Debug(msg, fields...) }
func (l *zapLogger) Info(msg string, fields ...zap.Field)  { l.log.Info(msg, fields...) }
func (l *zapLogger) Warn(msg string, fields ...zap.Field)  { l.log.Warn(msg, fields...) }
func (l *zapLogger) Error(msg string, fields ...zap.Field) { l.log.Error(msg, fields...) }

// With returns a child logger carrying the given fields
func (l *zapLogger) With(fields ...zap.Field) Logger {
	return &zapLogger{log: l.log.With(fields...)}
}

// Sync flushes any buffered log entries
func (l *zapLogger) Sync() error {
	return l.log.Sync()
}

// noOpLogger is a logger that does nothing
type noOpLogger struct{}

func (n *noOpLogger) Debug(msg string, fields ...zap.Field) {}
func (n *noOpLogger) Info(msg string, fields ...zap.Field)  {}
func (n *noOpLogger) Warn(msg string, fields ...zap.Field)  {}
func (n *noOpLogger) Error(msg string, fields ...zap.Field) {}
func (n *noOpLogger) With(fields ...zap.Field) Logger      { return n }
func (n *noOpLogger) Sync() error                          { return nil }

// Field helpers so callers need not import zap directly

func String(key, val string) zap.Field {
	return zap.String(key, val)
}

func Int(key string, val int) zap.Field {
	return zap.Int(key, val)
}

func Float64(key string, val float64) zap.Field {
	return zap.Float64(key, val)
}

func Bool(key string, val bool) zap.Field {
	return zap.Bool(key, val)
}

func Stringer(key string, val interface{ String() string }) zap.Field {
	return zap.Stringer(key, val)
}

func Error(err error) zap.Field {
	return zap.Error(err)
}
