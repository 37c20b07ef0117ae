package app

import (
	"context"
	"fmt"
	"os"

	"smartlaunch/internal/config"
	"smartlaunch/pkg/logging"
)

// Application represents the main application structure that bootstraps and
// runs the launch service.
//
// The Application follows a two-phase initialization pattern:
//  1. Bootstrap phase: load configuration, initialize logging, wire services
//  2. Execution phase: serve HTTP until the context is cancelled or a signal arrives
//
// Example usage:
//
//	cfg := app.NewConfig(false, "", 0)
//	application, err := app.NewApplication(ctx, cfg)
//	if err != nil {
//	    return fmt.Errorf("failed to create application: %w", err)
//	}
//	return application.Run(ctx)
type Application struct {
	config   *Config
	services *Services
}

// NewApplication creates and initializes a new application instance.
//
//  1. Configures CLI logging so that loading problems are visible
//  2. Loads config.yaml (unless cfg.SmartLaunchConfig is preset) and applies the port override
//  3. Validates the result
//  4. Re-initializes logging with the configured level and format
//  5. Wires stores, resolver, orchestrator, exchanger, handlers and the HTTP server
//
// ctx bounds connection checks made during wiring, such as the Redis ping.
func NewApplication(ctx context.Context, cfg *Config) (*Application, error) {
	bootLevel := logging.LevelInfo
	if cfg.Debug {
		bootLevel = logging.LevelDebug
	}
	logging.InitForCLI(bootLevel, os.Stderr)

	if cfg.SmartLaunchConfig == nil {
		configPath := cfg.ConfigPath
		if configPath == "" {
			configPath = config.GetDefaultConfigPathOrPanic()
		}
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			logging.Error("Bootstrap", err, "Failed to load configuration from path: %s", configPath)
			return nil, fmt.Errorf("failed to load configuration from path %s: %w", configPath, err)
		}
		cfg.SmartLaunchConfig = &loaded
	}

	if cfg.Port != 0 {
		cfg.SmartLaunchConfig.Server.Port = cfg.Port
	}

	if err := cfg.SmartLaunchConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if err := initLogging(cfg); err != nil {
		return nil, err
	}

	services, err := InitializeServices(ctx, cfg)
	if err != nil {
		logging.Error("Bootstrap", err, "Failed to initialize services")
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	return &Application{
		config:   cfg,
		services: services,
	}, nil
}

func initLogging(cfg *Config) error {
	level, err := logging.ParseLevel(cfg.SmartLaunchConfig.Logging.Level)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	if cfg.Debug {
		level = logging.LevelDebug
	}
	logging.Init(level, cfg.SmartLaunchConfig.Logging.Format, os.Stderr)
	return nil
}

// Services returns the wired components.
func (a *Application) Services() *Services {
	return a.services
}

// Run serves until ctx is cancelled, SIGINT or SIGTERM arrives, or the
// listener fails, then shuts down within server.shutdownTimeout.
func (a *Application) Run(ctx context.Context) error {
	return runServer(ctx, a.services, a.config.SmartLaunchConfig.Server.ShutdownTimeout)
}
