package logger

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu sync.RWMutex
	// Logger is the process-wide logger; use Get to read it.
	Logger *zap.Logger
)

// Init initializes the global logger.
// level overrides the environment default when non-empty ("debug", "info", "warn", "error").
func Init(env, level string) error {
	var config zap.Config

	if env == "production" {
		config = zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	} else {
		config = zap.NewDevelopmentConfig()
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	if level != "" {
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			return err
		}
		config.Level = zap.NewAtomicLevelAt(lvl)
	}

	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	built, err := config.Build()
	if err != nil {
		return err
	}

	Replace(built)
	return nil
}

// Replace swaps the global logger. Tests use it to install zap.NewNop or an observer.
func Replace(l *zap.Logger) {
	mu.Lock()
	Logger = l
	mu.Unlock()
}

// Sync flushes any buffered log entries
func Sync() {
	if l := current(); l != nil {
		_ = l.Sync()
	}
}

// Get returns the global logger instance
func Get() *zap.Logger {
	if l := current(); l != nil {
		return l
	}
	// Fallback to a basic logger if not initialized
	l, _ := zap.NewDevelopment()
	return l
}

// Named returns the global logger scoped to a component name.
func Named(component string) *zap.Logger {
	return Get().Named(component)
}

func current() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return Logger
}
