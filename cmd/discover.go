package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/briandowns/spinner"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"smartlaunch/internal/oauth"
	"smartlaunch/pkg/logging"
	pkgstrings "smartlaunch/pkg/strings"
)

// Output formats for discover.
const (
	outputTable = "table"
	outputJSON  = "json"
)

var (
	discoverTimeout  time.Duration
	discoverQuiet    bool
	discoverFallback string
	discoverOutput   string
	discoverStrict   bool
	discoverDebug    bool
)

// FallbackError is returned by discover --strict when the capability document
// did not yield an authorization endpoint.
type FallbackError struct {
	BaseURL string
	Err     error
}

func (e *FallbackError) Error() string {
	return fmt.Sprintf("no authorization endpoint discovered for %s: %v", e.BaseURL, e.Err)
}

func (e *FallbackError) Unwrap() error {
	return e.Err
}

// DiscoveryResult is the JSON form of a discover run.
type DiscoveryResult struct {
	BaseURL               string `json:"baseUrl"`
	AuthorizationEndpoint string `json:"authorizationEndpoint"`
	Outcome               string `json:"outcome"`
	Reason                string `json:"reason,omitempty"`
}

var discoverCmd = &cobra.Command{
	Use:   "discover <fhir-base-url>",
	Short: "Resolve the authorization endpoint of a FHIR server",
	Long: `Fetches <fhir-base-url>/metadata and reads the authorize URL from the
SMART oauth-uris security extension, the same lookup the service performs
on every launch. When the document cannot be used, the fallback endpoint is
shown together with the reason.

Use --strict to exit with code 3 when the fallback was used.`,
	Args: cobra.ExactArgs(1),
	RunE: runDiscover,
}

func runDiscover(cmd *cobra.Command, args []string) error {
	if discoverOutput != outputTable && discoverOutput != outputJSON {
		return fmt.Errorf("unsupported output format %q (use %s or %s)", discoverOutput, outputTable, outputJSON)
	}

	level := logging.LevelError
	if discoverDebug {
		level = logging.LevelDebug
	}
	logging.InitForCLI(level, cmd.ErrOrStderr())

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	baseURL := args[0]
	resolver := oauth.NewCapabilityResolver(oauth.CapabilityResolverOptions{
		FallbackURL:    discoverFallback,
		RequestTimeout: discoverTimeout,
	})

	var s *spinner.Spinner
	if !discoverQuiet && discoverOutput == outputTable {
		s = spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(cmd.ErrOrStderr()))
		s.Suffix = " Fetching capability statement..."
		s.Start()
	}

	res := resolver.Resolve(ctx, baseURL)

	if s != nil {
		s.Stop()
	}

	result := DiscoveryResult{
		BaseURL:               baseURL,
		AuthorizationEndpoint: res.URL,
		Outcome:               "resolved",
	}
	if res.Fallback {
		result.Outcome = "fallback"
		if res.Err != nil {
			result.Reason = res.Err.Error()
		}
	}

	var err error
	switch discoverOutput {
	case outputJSON:
		err = writeDiscoveryJSON(cmd.OutOrStdout(), result)
	default:
		writeDiscoveryTable(cmd.OutOrStdout(), result)
	}
	if err != nil {
		return err
	}

	if discoverStrict && res.Fallback {
		return &FallbackError{BaseURL: baseURL, Err: res.Err}
	}
	return nil
}

func writeDiscoveryJSON(w io.Writer, result DiscoveryResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func writeDiscoveryTable(w io.Writer, result DiscoveryResult) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)

	t.AppendHeader(table.Row{
		text.FgHiCyan.Sprint("FIELD"),
		text.FgHiCyan.Sprint("VALUE"),
	})

	outcome := text.FgGreen.Sprint(result.Outcome)
	if result.Outcome == "fallback" {
		outcome = text.FgYellow.Sprint(result.Outcome)
	}

	t.AppendRow(table.Row{"FHIR base URL", result.BaseURL})
	t.AppendRow(table.Row{"Authorization endpoint", result.AuthorizationEndpoint})
	t.AppendRow(table.Row{"Outcome", outcome})
	if result.Reason != "" {
		t.AppendRow(table.Row{"Reason", text.FgHiBlack.Sprint(pkgstrings.Truncate(result.Reason, pkgstrings.DefaultReasonMaxLen))})
	}

	t.Render()
}

func init() {
	rootCmd.AddCommand(discoverCmd)

	discoverCmd.Flags().DurationVar(&discoverTimeout, "timeout", oauth.DefaultRequestTimeout, "Timeout for the metadata request")
	discoverCmd.Flags().BoolVarP(&discoverQuiet, "quiet", "q", false, "Suppress the progress spinner")
	discoverCmd.Flags().StringVar(&discoverFallback, "fallback", "", "Fallback authorization endpoint (default "+oauth.DefaultFallbackAuthorizeURL+")")
	discoverCmd.Flags().StringVarP(&discoverOutput, "output", "o", outputTable, "Output format: table or json")
	discoverCmd.Flags().BoolVar(&discoverStrict, "strict", false, "Exit with code 3 if the fallback endpoint was used")
	discoverCmd.Flags().BoolVar(&discoverDebug, "debug", false, "Enable debug logging")
}
