package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"smartlaunch/internal/app"
)

// serveDebug enables verbose logging regardless of logging.level.
var serveDebug bool

// serveConfigPath specifies a custom configuration directory path.
// The directory should contain config.yaml.
var serveConfigPath string

// servePort overrides server.port when non-zero.
var servePort int

// serveCmd starts the launch service.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the SMART launch service",
	Long: `Starts the HTTP service that handles SMART on FHIR launches.

Endpoints:
  GET /auth/launch?iss=&launch=   EHR launch
  GET /auth/standalone            standalone launch against fhir.baseUrl
  GET /auth/callback              authorization code redirect target
  GET /patients/import?session=   patient read after a successful callback
  GET /health                     liveness
  GET /metrics                    Prometheus metrics

Configuration:
  smartlaunch loads config.yaml from ~/.config/smartlaunch, or from the
  directory given with --config-path. SMART_CLIENT_ID, SMART_REDIRECT_URI,
  SMART_FHIR_BASE_URL, SMART_TOKEN_URL, SMART_REDIS_ADDR and
  SMART_REDIS_PASSWORD override values from the file.

The service runs until interrupted (Ctrl+C or SIGTERM) and then drains
in-flight requests before exiting.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

// runServe is the main entry point for the serve command
func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg := app.NewConfig(serveDebug, serveConfigPath, servePort)

	application, err := app.NewApplication(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	return application.Run(ctx)
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&serveDebug, "debug", false, "Enable debug logging")
	serveCmd.Flags().StringVar(&serveConfigPath, "config-path", "", "Configuration directory containing config.yaml (default ~/.config/smartlaunch)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides server.port)")
}
