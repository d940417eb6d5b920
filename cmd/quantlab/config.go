package main

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/MatiasVigueraBarrientos/quant-research-lab/internal/config"
)

// loadConfig reads --config, or falls back to defaults
func loadConfig(log *zap.Logger) (*config.Config, error) {
	if cfgFile == "" {
		log.Warn("no config file specified, using defaults")
		return config.Defaults(), nil
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}
