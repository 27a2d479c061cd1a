// Package logging constructs the structured logger (SPEC_FULL.md §7.1),
// via go.uber.org/zap, that the cmd/ entry points build and pass to the
// HTTP layer.
package logging

import "go.uber.org/zap"

// Config selects the logger's output shape.
type Config struct {
	// Development enables human-readable, colorized console output
	// instead of JSON. Set from envconfig's ENV=development.
	Development bool
	// Level is one of "debug", "info", "warn", "error".
	Level string
}

// New builds a *zap.Logger per cfg. Callers should defer Sync() on the
// returned logger.
func New(cfg Config) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	var zapCfg zap.Config
	if cfg.Development {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}
	zapCfg.Level = level

	return zapCfg.Build()
}
