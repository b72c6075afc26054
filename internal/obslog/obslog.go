// Package obslog constructs the zap logger used across every
// component (replication loop, transport, storage, HTTP surface).
// Keeping construction in one place means every binary and every test
// helper gets the same encoding and level conventions.
package obslog

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config controls the logger's level and encoding.
type Config struct {
	// Level is one of "debug", "info", "warn", "error". Empty defaults
	// to "info".
	Level string
	// Development enables human-readable console output instead of
	// JSON, mirroring zap's development preset.
	Development bool
}

// New builds a *zap.Logger from cfg.
func New(cfg Config) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			return nil, err
		}
	}

	if cfg.Development {
		zc := zap.NewDevelopmentConfig()
		zc.Level = zap.NewAtomicLevelAt(level)
		return zc.Build()
	}

	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

// Nop returns a logger that discards everything, for tests and
// embedders that don't want replication-loop chatter.
func Nop() *zap.Logger { return zap.NewNop() }
