package app

import "github.com/mstepanenko/sprintdesk/pkg/logger"

// ConfigureLogging initialises the global logger from configuration.
func ConfigureLogging(cfg *Config) error {
	level := "info"
	if cfg != nil && cfg.Server.LogLevel != "" {
		level = cfg.Server.LogLevel
	}
	return logger.Init(level)
}
