package cmd

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"smartlaunch/internal/config"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid arguments).
	ExitCodeError = 1
	// ExitCodeConfigInvalid indicates config.yaml could not be read, parsed or validated.
	ExitCodeConfigInvalid = 2
	// ExitCodeEndpointFallback indicates discover --strict fell back to the default endpoint.
	ExitCodeEndpointFallback = 3
)

// rootCmd represents the base command for the smartlaunch application.
// It is the entry point when the application is called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "smartlaunch",
	Short: "SMART on FHIR launch and authorization service",
	Long: `smartlaunch runs the SMART on FHIR app launch flow: it discovers the
authorization endpoint of a FHIR server, sends the browser to it with a
PKCE-protected authorization request, and exchanges the returned code for
an access token with patient context.`,
	// SilenceUsage prevents Cobra from printing the usage message on errors that are handled by the application.
	SilenceUsage: true,
}

// SetVersion sets the version for the root command.
// This function is typically called from the main package to inject the application version at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application.
// This function is called by main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "smartlaunch version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(getExitCode(err))
	}
}

// getExitCode determines the appropriate exit code based on the error type.
func getExitCode(err error) int {
	var cfgErr *config.ConfigurationError
	if errors.As(err, &cfgErr) {
		return ExitCodeConfigInvalid
	}

	var validationErrs config.ValidationErrors
	if errors.As(err, &validationErrs) {
		return ExitCodeConfigInvalid
	}

	var fallbackErr *FallbackError
	if errors.As(err, &fallbackErr) {
		return ExitCodeEndpointFallback
	}

	return ExitCodeError
}

func init() {
	rootCmd.AddCommand(newVersionCmd())
}
