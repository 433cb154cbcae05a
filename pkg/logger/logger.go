// Package logger provides the process-wide structured logger. The
// call-site shape (Init/Debug/Info/Error with printf-style formatting) is
// kept stable on purpose so the rest of the codebase doesn't need to know
// it's backed by zap underneath.
package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var base *zap.SugaredLogger

// Init builds the process logger with its level taken from LOG_LEVEL
// (debug, info, error; defaults to info).
func Init() {
	level := parseLevel(os.Getenv("LOG_LEVEL"))

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		// Build only fails on a malformed config, which cfg never is;
		// fall back to a bare production logger rather than panic.
		logger = zap.NewExample()
	}
	base = logger.Sugar()
}

func parseLevel(s string) zapcore.Level {
	switch strings.ToLower(s) {
	case "debug":
		return zapcore.DebugLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func ensureInit() *zap.SugaredLogger {
	if base == nil {
		Init()
	}
	return base
}

// Debug logs a debug message, visible only when LOG_LEVEL=debug.
func Debug(format string, v ...interface{}) { ensureInit().Debugf(format, v...) }

// Info logs an info message.
func Info(format string, v ...interface{}) { ensureInit().Infof(format, v...) }

// Error always logs.
func Error(format string, v ...interface{}) { ensureInit().Errorf(format, v...) }

// Sync flushes any buffered log entries; call it once before process exit.
func Sync() {
	if base != nil {
		_ = base.Sync()
	}
}
