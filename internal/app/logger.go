package app

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/jmars319/Bow-Wows-Dog-Spa/internal/config"
)

// NewLogger builds a JSON logger for production and a colored console
// logger everywhere else, at the level and output named in cfg.
func NewLogger(c *config.Config) (*zap.Logger, error) {
	var zc zap.Config
	if c.IsProduction() {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	if raw := strings.TrimSpace(c.Log.Level); raw != "" {
		lvl, err := zapcore.ParseLevel(raw)
		if err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
		zc.Level = zap.NewAtomicLevelAt(lvl)
	}
	out := strings.TrimSpace(c.Log.Output)
	if out == "" {
		out = "stdout"
	}
	zc.OutputPaths = []string{out}
	zc.InitialFields = map[string]any{"env": strings.ToLower(strings.TrimSpace(c.Env))}

	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}
