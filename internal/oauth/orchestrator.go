package oauth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"smartlaunch/internal/metrics"
	"smartlaunch/pkg/logging"
	pkgoauth "smartlaunch/pkg/oauth"
)

// Requested scopes per entry mode.
const (
	LaunchScope     = "launch launch/patient openid fhiruser profile patient/*.read"
	StandaloneScope = "launch/patient openid fhiruser profile patient/*.read"
)

// EndpointResolver finds the authorization endpoint of a FHIR server.
// *CapabilityResolver implements it.
type EndpointResolver interface {
	Resolve(ctx context.Context, baseURL string) Resolution
}

// AuthorizationRequest describes one initiated authorization. Only the
// state/verifier pair outlives the call that created it.
type AuthorizationRequest struct {
	State         string `json:"state"`
	CodeVerifier  string `json:"-"`
	CodeChallenge string `json:"code_challenge"`
	Scope         string `json:"scope"`
	Launch        string `json:"launch,omitempty"`
	FHIRBaseURL   string `json:"aud"`

	// AuthorizationEndpoint is where the user is sent; EndpointFallback
	// tells whether it came from configuration rather than the server.
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	EndpointFallback      bool   `json:"endpoint_fallback"`

	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
}

// OrchestratorConfig holds the client registration used in every request.
type OrchestratorConfig struct {
	ClientID           string
	RedirectURI        string
	DefaultFHIRBaseURL string
	Metrics            *metrics.Metrics
}

// Orchestrator builds authorization requests: resolve the endpoint, create a
// PKCE pair, remember the verifier under the state, and assemble the URL.
type Orchestrator struct {
	resolver EndpointResolver
	store    VerifierStore
	cfg      OrchestratorConfig

	generatePKCE func() (*pkgoauth.PKCEChallenge, error)
	newState     func() string
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(resolver EndpointResolver, store VerifierStore, cfg OrchestratorConfig) *Orchestrator {
	return &Orchestrator{
		resolver:     resolver,
		store:        store,
		cfg:          cfg,
		generatePKCE: pkgoauth.GeneratePKCE,
		newState:     uuid.NewString,
	}
}

// BuildAuthorizationURL prepares an authorization for fhirBaseURL and returns
// the URL to redirect the user to. Any failure is an *AuthorizationBuildError
// and leaves nothing usable behind; a fallback endpoint is not a failure.
func (o *Orchestrator) BuildAuthorizationURL(ctx context.Context, fhirBaseURL, state, scope, launch string) (string, error) {
	req, err := o.Prepare(ctx, fhirBaseURL, state, scope, launch)
	if err != nil {
		return "", err
	}
	return req.URL, nil
}

// Prepare is BuildAuthorizationURL returning the full request description.
func (o *Orchestrator) Prepare(ctx context.Context, fhirBaseURL, state, scope, launch string) (*AuthorizationRequest, error) {
	if fhirBaseURL == "" {
		return nil, &AuthorizationBuildError{Step: StepRequest, Err: errEmptyBaseURL}
	}
	if state == "" {
		return nil, &AuthorizationBuildError{Step: StepRequest, Err: errors.New("state is empty")}
	}

	resolution := o.resolver.Resolve(ctx, fhirBaseURL)

	pkce, err := o.generatePKCE()
	if err != nil {
		return nil, &AuthorizationBuildError{Step: StepPKCE, Err: err}
	}

	if err := o.store.Put(ctx, state, pkce.CodeVerifier); err != nil {
		return nil, &AuthorizationBuildError{Step: StepStore, Err: err}
	}

	authURL := BuildAuthorizationURL(
		resolution.URL,
		o.cfg.ClientID,
		o.cfg.RedirectURI,
		scope,
		state,
		fhirBaseURL,
		pkce.CodeChallenge,
		launch,
	)

	logging.Debug("OAuth", "Prepared authorization for aud=%s state=%s (fallback=%t)",
		fhirBaseURL, logging.TruncateID(state), resolution.Fallback)

	return &AuthorizationRequest{
		State:                 state,
		CodeVerifier:          pkce.CodeVerifier,
		CodeChallenge:         pkce.CodeChallenge,
		Scope:                 scope,
		Launch:                launch,
		FHIRBaseURL:           fhirBaseURL,
		AuthorizationEndpoint: resolution.URL,
		EndpointFallback:      resolution.Fallback,
		URL:                   authURL,
		CreatedAt:             time.Now(),
	}, nil
}

// Launch starts an EHR launch: iss is the FHIR base URL and launch the
// context token handed over by the EHR.
func (o *Orchestrator) Launch(ctx context.Context, iss, launch string) (*AuthorizationRequest, error) {
	req, err := o.Prepare(ctx, iss, o.newState(), LaunchScope, launch)
	o.record(metrics.ModeLaunch, err)
	return req, err
}

// Standalone starts a standalone launch against the configured FHIR server.
func (o *Orchestrator) Standalone(ctx context.Context) (*AuthorizationRequest, error) {
	req, err := o.Prepare(ctx, o.cfg.DefaultFHIRBaseURL, o.newState(), StandaloneScope, "")
	o.record(metrics.ModeStandalone, err)
	return req, err
}

func (o *Orchestrator) record(mode string, err error) {
	if err != nil {
		o.cfg.Metrics.AuthorizationRequest(mode, metrics.ResultFailure)
		return
	}
	o.cfg.Metrics.AuthorizationRequest(mode, metrics.ResultSuccess)
}
