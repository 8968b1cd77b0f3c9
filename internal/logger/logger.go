// Package logger is a small level filter in front of a pluggable structured
// logging backend. Arguments are alternating key/value pairs.
package logger

import (
	"errors"
	"fmt"
	"io"
	"os"

	"portfolio/internal/logger/noop"
	zaplog "portfolio/internal/logger/zap"
	zerologlog "portfolio/internal/logger/zerolog"

	"github.com/rs/zerolog"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	levelTrace = iota - 2
	levelDebug
	levelInfo
	levelError
)

const (
	BackendZerolog = "zerolog"
	BackendZap     = "zap"
	BackendNoop    = "noop"
)

var (
	ErrInvalidLevel   = errors.New("invalid log level")
	ErrInvalidBackend = errors.New("invalid log backend")
)

type (
	External interface {
		Error(string, []any)
		Info(string, []any)
		Debug(string, []any)
		Trace(string, []any)
	}

	Logger struct {
		ext External
		lvl int
	}
)

func parseLevel(level string) (int, error) {
	switch level {
	case "trace":
		return levelTrace, nil
	case "debug":
		return levelDebug, nil
	case "info":
		return levelInfo, nil
	case "error":
		return levelError, nil
	default:
		return 0, ErrInvalidLevel
	}
}

// ValidLevel reports whether level is one of trace, debug, info, error.
func ValidLevel(level string) bool {
	_, err := parseLevel(level)
	return err == nil
}

// ValidBackend reports whether backend names a known implementation.
func ValidBackend(backend string) bool {
	switch backend {
	case BackendZerolog, BackendZap, BackendNoop:
		return true
	default:
		return false
	}
}

func New(ext External) Logger {
	return Logger{ext: ext}
}

func NewWithLevel(ext External, level string) (Logger, error) {
	lvl, err := parseLevel(level)
	if err != nil {
		return Logger{}, err
	}

	l := New(ext)
	l.lvl = lvl

	return l, nil
}

// Nop discards everything.
func Nop() Logger {
	return New(noop.NewLogger())
}

// Build constructs a logger for the named backend writing to w.
func Build(backend, level string, w io.Writer) (Logger, error) {
	if w == nil {
		w = os.Stderr
	}

	var ext External
	switch backend {
	case BackendZerolog:
		zl := zerolog.New(zerolog.ConsoleWriter{Out: w}).
			Level(zerolog.TraceLevel).
			With().Timestamp().Logger()
		ext = zerologlog.NewLogger(zl)
	case BackendZap:
		core := zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.Lock(zapcore.AddSync(w)),
			zapcore.DebugLevel,
		)
		ext = zaplog.NewLogger(zap.New(core, zap.AddCaller()))
	case BackendNoop:
		ext = noop.NewLogger()
	default:
		return Logger{}, fmt.Errorf("%w: %q", ErrInvalidBackend, backend)
	}

	return NewWithLevel(ext, level)
}

func (l Logger) enabled(lvl int) bool {
	return l.ext != nil && l.lvl <= lvl
}

func (l Logger) Trace(msg string, args ...any) {
	if !l.enabled(levelTrace) {
		return
	}

	l.ext.Trace(msg, args)
}

func (l Logger) Debug(msg string, args ...any) {
	if !l.enabled(levelDebug) {
		return
	}

	l.ext.Debug(msg, args)
}

func (l Logger) Info(msg string, args ...any) {
	if !l.enabled(levelInfo) {
		return
	}

	l.ext.Info(msg, args)
}

func (l Logger) Error(msg string, args ...any) {
	if !l.enabled(levelError) {
		return
	}

	l.ext.Error(msg, args)
}

func (l Logger) DebugFunc(f func() (string, []any)) {
	if !l.enabled(levelDebug) {
		return
	}

	l.ext.Debug(f())
}
