package util

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logger *zap.Logger

// InitLogger initializes the global logger. level overrides the environment
// default when it names a valid zap level.
func InitLogger(env, level string) error {
	var err error
	var config zap.Config

	if env == "production" {
		config = zap.NewProductionConfig()
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	if level != "" {
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			return err
		}
		config.Level = zap.NewAtomicLevelAt(lvl)
	}

	logger, err = config.Build()
	if err != nil {
		return err
	}

	zap.ReplaceGlobals(logger)
	return nil
}

// SetLogger replaces the global logger, e.g. with zap.NewNop() in tests.
func SetLogger(l *zap.Logger) {
	logger = l
}

// GetLogger returns the global logger
func GetLogger() *zap.Logger {
	if logger == nil {
		logger, _ = zap.NewDevelopment()
	}
	return logger
}

// SyncLogger flushes any buffered log entries
func SyncLogger() {
	if logger != nil {
		_ = logger.Sync()
	}
}
