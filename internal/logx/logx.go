// Package logx centralizes structured logging, parallel to how the
// teacher centralizes colored console output in its own small internal
// package. ZV_LOG selects the level; at debug, error values logged
// with Err carry their full chain (spec.md §7: "internal backtraces
// are emitted only when log level is trace/debug").
package logx

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu     sync.Mutex
	logger *zap.Logger
)

// Init builds the package-level logger from the ZV_LOG environment
// variable. Safe to call multiple times; the last call wins. An
// unrecognized level falls back to "info" and logs a warning once.
func Init(levelStr string) {
	mu.Lock()
	defer mu.Unlock()

	level, err := parseLevel(levelStr)

	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "ts"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewConsoleEncoder(cfg)

	core := zapcore.NewCore(encoder, zapcore.AddSync(os.Stderr), level)
	logger = zap.New(core)

	if err != nil {
		logger.Warn("unrecognized ZV_LOG level, defaulting to info", zap.String("value", levelStr))
	}
}

func parseLevel(s string) (zapcore.Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "", "info":
		return zapcore.InfoLevel, nil
	case "debug", "trace":
		return zapcore.DebugLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, errBadLevel
	}
}

var errBadLevel = &badLevelError{}

type badLevelError struct{}

func (*badLevelError) Error() string { return "unrecognized log level" }

// L returns the package-level logger, initializing it with defaults
// from the environment on first use.
func L() *zap.Logger {
	mu.Lock()
	initialized := logger != nil
	mu.Unlock()
	if !initialized {
		Init(os.Getenv("ZV_LOG"))
	}
	mu.Lock()
	defer mu.Unlock()
	return logger
}

// Sync flushes any buffered log entries; call before process exit.
func Sync() {
	mu.Lock()
	defer mu.Unlock()
	if logger != nil {
		_ = logger.Sync()
	}
}
