package app

import (
	"smartlaunch/internal/config"
)

// Config holds the application configuration
type Config struct {
	// Debug forces debug logging regardless of logging.level.
	Debug bool

	// Custom configuration path (optional)
	// When empty, ~/.config/smartlaunch is used
	ConfigPath string

	// Port overrides server.port when non-zero.
	Port int

	// Loaded configuration. When set before NewApplication, loading is skipped.
	SmartLaunchConfig *config.SmartLaunchConfig
}

// NewConfig creates a new application configuration
func NewConfig(debug bool, configPath string, port int) *Config {
	return &Config{
		Debug:      debug,
		ConfigPath: configPath,
		Port:       port,
	}
}
