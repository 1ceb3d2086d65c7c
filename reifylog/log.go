// Package reifylog wraps zap the way erigon-lib/log/v3 wraps its own
// backend: a thin, leveled, structured facade so call sites never import
// zap's logger types beyond its zap.Field constructors.
package reifylog

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is a structured, leveled sink. Each method writes through the
// zap core synchronously; Logger adds no buffering or background
// delivery of its own.
type Logger struct {
	z *zap.Logger
}

var (
	defaultOnce sync.Once
	defaultLog  *Logger
)

// Default returns the process-wide logger, built lazily on first use.
func Default() *Logger {
	defaultOnce.Do(func() {
		defaultLog = New(zapcore.InfoLevel)
	})
	return defaultLog
}

// New builds a Logger writing JSON lines to stderr at the given level.
func New(level zapcore.Level) *Logger {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.OutputPaths = []string{"stderr"}
	z, err := cfg.Build()
	if err != nil {
		// Logger construction failing is itself not something the
		// engine can recover from usefully; fall back to a no-op core
		// rather than panic during package init paths.
		z = zap.NewNop()
		_ = os.Stderr
	}
	return &Logger{z: z}
}

// Named scopes a child logger under an additional name segment, e.g.
// reifylog.Default().Named("cdc").Named("shard-3").
func (l *Logger) Named(name string) *Logger {
	return &Logger{z: l.z.Named(name)}
}

// With attaches structured fields to every subsequent call on the
// returned logger.
func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{z: l.z.With(fields...)}
}

func (l *Logger) Debug(msg string, fields ...zap.Field) { l.z.Debug(msg, fields...) }
func (l *Logger) Info(msg string, fields ...zap.Field)  { l.z.Info(msg, fields...) }
func (l *Logger) Warn(msg string, fields ...zap.Field)  { l.z.Warn(msg, fields...) }
func (l *Logger) Error(msg string, fields ...zap.Field) { l.z.Error(msg, fields...) }

// Sync flushes any buffered log entries. Best-effort: callers typically
// invoke this once at process shutdown and ignore the error, since most
// terminal/stderr sinks return ENOTTY-style errors harmlessly on Sync.
func (l *Logger) Sync() error { return l.z.Sync() }
