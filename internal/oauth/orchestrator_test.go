package oauth

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartlaunch/internal/metrics"
	pkgoauth "smartlaunch/pkg/oauth"
)

type staticResolver struct {
	res   Resolution
	calls []string
}

func (r *staticResolver) Resolve(_ context.Context, baseURL string) Resolution {
	r.calls = append(r.calls, baseURL)
	return r.res
}

type failingVerifierStore struct{}

func (failingVerifierStore) Put(context.Context, string, string) error {
	return errors.New("store unavailable")
}

func (failingVerifierStore) Take(context.Context, string) (string, error) {
	return "", errors.New("store unavailable")
}

func newTestOrchestrator(t *testing.T, res Resolution) (*Orchestrator, *MemoryVerifierStore, *staticResolver) {
	t.Helper()
	store := NewMemoryVerifierStore(0)
	t.Cleanup(store.Stop)
	resolver := &staticResolver{res: res}
	o := NewOrchestrator(resolver, store, OrchestratorConfig{
		ClientID:           "client-1",
		RedirectURI:        "http://localhost:8080/auth/callback",
		DefaultFHIRBaseURL: "https://fhir.default.org/R4",
	})
	return o, store, resolver
}

func TestOrchestrator_BuildAuthorizationURL(t *testing.T) {
	o, store, resolver := newTestOrchestrator(t, Resolution{URL: "https://auth.example.org/authorize"})

	got, err := o.BuildAuthorizationURL(context.Background(), "https://fhir.test", "state-1", "s", "L1")
	require.NoError(t, err)

	assert.Equal(t, []string{"https://fhir.test"}, resolver.calls)
	assert.True(t, strings.HasPrefix(got, "https://auth.example.org/authorize?"))

	u, err := url.Parse(got)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "client-1", q.Get("client_id"))
	assert.Equal(t, "http://localhost:8080/auth/callback", q.Get("redirect_uri"))
	assert.Equal(t, "s", q.Get("scope"))
	assert.Equal(t, "state-1", q.Get("state"))
	assert.Equal(t, "https://fhir.test", q.Get("aud"))
	assert.Equal(t, "S256", q.Get("code_challenge_method"))
	assert.Equal(t, "L1", q.Get("launch"))

	verifier, err := store.Take(context.Background(), "state-1")
	require.NoError(t, err)
	assert.Equal(t, pkgoauth.GenerateChallenge(verifier), q.Get("code_challenge"))
	assert.NotContains(t, got, verifier, "the verifier must not be transmitted")
}

func TestOrchestrator_Launch(t *testing.T) {
	o, store, _ := newTestOrchestrator(t, Resolution{URL: "https://auth.example.org/authorize"})

	req, err := o.Launch(context.Background(), "https://fhir.test", "L1")
	require.NoError(t, err)

	_, err = uuid.Parse(req.State)
	assert.NoError(t, err)
	assert.Equal(t, LaunchScope, req.Scope)
	assert.Equal(t, "L1", req.Launch)
	assert.Equal(t, "https://fhir.test", req.FHIRBaseURL)
	assert.True(t, strings.HasSuffix(req.URL, "&launch=L1"))
	assert.Equal(t, pkgoauth.GenerateChallenge(req.CodeVerifier), req.CodeChallenge)

	verifier, err := store.Take(context.Background(), req.State)
	require.NoError(t, err)
	assert.Equal(t, req.CodeVerifier, verifier)
}

func TestOrchestrator_Standalone(t *testing.T) {
	o, _, resolver := newTestOrchestrator(t, Resolution{URL: "https://auth.example.org/authorize"})

	req, err := o.Standalone(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"https://fhir.default.org/R4"}, resolver.calls)
	assert.Equal(t, StandaloneScope, req.Scope)
	assert.Empty(t, req.Launch)
	assert.NotContains(t, req.URL, "launch=")
}

func TestOrchestrator_FreshStatePerRequest(t *testing.T) {
	o, store, _ := newTestOrchestrator(t, Resolution{URL: "https://auth.example.org/authorize"})

	a, err := o.Standalone(context.Background())
	require.NoError(t, err)
	b, err := o.Standalone(context.Background())
	require.NoError(t, err)

	assert.NotEqual(t, a.State, b.State)
	assert.NotEqual(t, a.CodeVerifier, b.CodeVerifier)
	assert.Equal(t, 2, store.Len())
}

func TestOrchestrator_FallbackIsNotAnError(t *testing.T) {
	o, _, _ := newTestOrchestrator(t, Resolution{
		URL:      DefaultFallbackAuthorizeURL,
		Fallback: true,
		Err:      &EndpointResolutionError{BaseURL: "https://fhir.test", Err: errMissingExtension},
	})

	req, err := o.Launch(context.Background(), "https://fhir.test", "L1")
	require.NoError(t, err)
	assert.True(t, req.EndpointFallback)
	assert.True(t, strings.HasPrefix(req.URL, DefaultFallbackAuthorizeURL+"?"))
}

func TestOrchestrator_Failures(t *testing.T) {
	t.Run("pkce failure", func(t *testing.T) {
		o, store, _ := newTestOrchestrator(t, Resolution{URL: "https://a/authorize"})
		o.generatePKCE = func() (*pkgoauth.PKCEChallenge, error) {
			return nil, &pkgoauth.PKCEGenerationError{Err: errors.New("no entropy")}
		}

		_, err := o.BuildAuthorizationURL(context.Background(), "https://fhir.test", "state-1", "s", "")

		var buildErr *AuthorizationBuildError
		require.True(t, errors.As(err, &buildErr))
		assert.Equal(t, StepPKCE, buildErr.Step)

		var pkceErr *pkgoauth.PKCEGenerationError
		assert.True(t, errors.As(err, &pkceErr))
		assert.Equal(t, 0, store.Len(), "nothing is stored when generation fails")
	})

	t.Run("store failure", func(t *testing.T) {
		o := NewOrchestrator(&staticResolver{res: Resolution{URL: "https://a/authorize"}}, failingVerifierStore{}, OrchestratorConfig{})

		_, err := o.BuildAuthorizationURL(context.Background(), "https://fhir.test", "state-1", "s", "")

		var buildErr *AuthorizationBuildError
		require.True(t, errors.As(err, &buildErr))
		assert.Equal(t, StepStore, buildErr.Step)
		assert.Contains(t, err.Error(), "store unavailable")
	})

	t.Run("missing base URL", func(t *testing.T) {
		o, _, resolver := newTestOrchestrator(t, Resolution{URL: "https://a/authorize"})

		_, err := o.Launch(context.Background(), "", "L1")

		var buildErr *AuthorizationBuildError
		require.True(t, errors.As(err, &buildErr))
		assert.Equal(t, StepRequest, buildErr.Step)
		assert.Empty(t, resolver.calls)
	})

	t.Run("missing state", func(t *testing.T) {
		o, _, _ := newTestOrchestrator(t, Resolution{URL: "https://a/authorize"})

		_, err := o.BuildAuthorizationURL(context.Background(), "https://fhir.test", "", "s", "")

		var buildErr *AuthorizationBuildError
		require.True(t, errors.As(err, &buildErr))
		assert.Equal(t, StepRequest, buildErr.Step)
	})
}

func TestOrchestrator_Metrics(t *testing.T) {
	store := NewMemoryVerifierStore(0)
	defer store.Stop()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	o := NewOrchestrator(&staticResolver{res: Resolution{URL: "https://a/authorize"}}, store, OrchestratorConfig{
		DefaultFHIRBaseURL: "https://fhir.test",
		Metrics:            m,
	})

	_, err := o.Standalone(context.Background())
	require.NoError(t, err)
	_, err = o.Launch(context.Background(), "", "L1")
	require.Error(t, err)

	count, err := testutil.GatherAndCount(reg, "smartlaunch_authorization_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
