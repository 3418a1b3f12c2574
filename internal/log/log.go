// Package log wraps zap so that every threshca component logs through the
// same structured, leveled interface instead of reaching for the stdlib
// logger directly.
package log

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// log is the concrete implementation of Logger.
type log struct {
	*zap.SugaredLogger
}

// Logger is the logging interface every threshca package depends on.
//
//nolint:interfacebloat // mirrors the sugared zap surface on purpose
type Logger interface {
	Debug(keyvals ...interface{})
	Info(keyvals ...interface{})
	Warn(keyvals ...interface{})
	Error(keyvals ...interface{})
	Fatal(keyvals ...interface{})
	Debugw(msg string, keyvals ...interface{})
	Infow(msg string, keyvals ...interface{})
	Warnw(msg string, keyvals ...interface{})
	Errorw(msg string, keyvals ...interface{})
	Fatalw(msg string, keyvals ...interface{})
	With(args ...interface{}) Logger
	Named(s string) Logger
	AddCallerSkip(skip int) Logger
}

const (
	DebugLevel = int(zapcore.DebugLevel)
	InfoLevel  = int(zapcore.InfoLevel)
	WarnLevel  = int(zapcore.WarnLevel)
	ErrorLevel = int(zapcore.ErrorLevel)
	FatalLevel = int(zapcore.FatalLevel)
)

// DefaultLevel is the level DefaultLogger builds its logger at, unless the
// THRESHCA_LOG_LEVEL environment variable holds a valid level, which takes
// precedence. Both are read once, on the first call to DefaultLogger; New
// always uses the level it is given.
var DefaultLevel = InfoLevel

func (l *log) With(args ...interface{}) Logger {
	return &log{l.SugaredLogger.With(args...)}
}

func (l *log) Named(s string) Logger {
	return &log{l.SugaredLogger.Named(s)}
}

func (l *log) AddCallerSkip(skip int) Logger {
	return &log{l.WithOptions(zap.AddCallerSkip(skip))}
}

// New builds a Logger writing JSON to stderr at the given level.
func New(level int) Logger {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.Level(level))
	cfg.OutputPaths = []string{"stderr"}
	zl, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		// zap's production config is self-consistent; this would only fail
		// on an unwritable stderr, in which case fall back to a no-op core.
		zl = zap.NewNop()
	}
	return &log{zl.Sugar()}
}

var (
	defaultOnce sync.Once
	defaultLog  Logger
)

// DefaultLogger returns a process-wide Logger, built once and memoized.
func DefaultLogger() Logger {
	defaultOnce.Do(func() {
		lvl := DefaultLevel
		if v := os.Getenv("THRESHCA_LOG_LEVEL"); v != "" {
			if parsed, err := zapcore.ParseLevel(v); err == nil {
				lvl = int(parsed)
			}
		}
		defaultLog = New(lvl)
	})
	return defaultLog
}
