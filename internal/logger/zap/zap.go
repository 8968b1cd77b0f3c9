package zap

import (
	"fmt"

	"go.uber.org/zap"
)

type Logger struct {
	*zap.Logger
}

func NewLogger(logger *zap.Logger) *Logger {
	return &Logger{
		Logger: logger.WithOptions(zap.AddCallerSkip(2)),
	}
}

func (l *Logger) Error(msg string, fields []any) {
	l.Logger.Error(msg, zapFields(fields)...)
}

func (l *Logger) Info(msg string, fields []any) {
	l.Logger.Info(msg, zapFields(fields)...)
}

func (l *Logger) Debug(msg string, fields []any) {
	l.Logger.Debug(msg, zapFields(fields)...)
}

// Trace maps onto debug; zap has no finer level.
func (l *Logger) Trace(msg string, fields []any) {
	l.Logger.Debug(msg, zapFields(fields)...)
}

func zapFields(fields []any) []zap.Field {
	zfs := make([]zap.Field, 0, len(fields)/2)

	for i := 0; i+1 < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			continue
		}
		switch val := fields[i+1].(type) {
		case error:
			zfs = append(zfs, zap.NamedError(key, val))
		case fmt.Stringer:
			zfs = append(zfs, zap.String(key, val.String()))
		default:
			zfs = append(zfs, zap.Any(key, val))
		}
	}

	return zfs
}
