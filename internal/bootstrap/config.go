package bootstrap

import (
	"fmt"

	"github.com/jonesrussell/goharvest/internal/config"
	"github.com/jonesrussell/goharvest/internal/logger"
)

// LoadConfig loads and validates configuration from the given path. An empty
// path falls back to CONFIG_PATH or config.yml.
func LoadConfig(path string) (*config.Config, error) {
	if path == "" {
		path = config.GetConfigPath("config.yml")
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// CreateLogger creates a logger instance from configuration.
func CreateLogger(cfg *config.Config, version string) (logger.Logger, error) {
	log, err := logger.NewLogger(cfg.Debug)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	return log.With(
		logger.String("service", "goharvest"),
		logger.String("version", version),
	), nil
}
