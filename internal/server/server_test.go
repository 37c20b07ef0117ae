package server

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartlaunch/internal/metrics"
)

type fakeFlow struct {
	calls []string
}

func (f *fakeFlow) HandleLaunch(w http.ResponseWriter, r *http.Request) {
	f.calls = append(f.calls, "launch")
	http.Redirect(w, r, "https://auth.example.org/authorize", http.StatusFound)
}

func (f *fakeFlow) HandleStandalone(w http.ResponseWriter, _ *http.Request) {
	f.calls = append(f.calls, "standalone")
	w.WriteHeader(http.StatusFound)
}

func (f *fakeFlow) HandleCallback(w http.ResponseWriter, _ *http.Request) {
	f.calls = append(f.calls, "callback")
	w.WriteHeader(http.StatusOK)
}

func newTestServer(t *testing.T, cfg Config) *Server {
	t.Helper()
	srv, err := New(cfg)
	require.NoError(t, err)
	return srv
}

func serve(srv *Server, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestNew_RequiresFlowHandler(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestRoutes(t *testing.T) {
	flow := &fakeFlow{}
	srv := newTestServer(t, Config{Flow: flow})

	assert.Equal(t, http.StatusFound, serve(srv, http.MethodGet, "/auth/launch?iss=x&launch=y").Code)
	assert.Equal(t, http.StatusFound, serve(srv, http.MethodGet, "/auth/standalone").Code)
	assert.Equal(t, http.StatusOK, serve(srv, http.MethodGet, "/auth/callback?code=c&state=s").Code)
	assert.Equal(t, []string{"launch", "standalone", "callback"}, flow.calls)
}

func TestRoutes_MethodNotAllowed(t *testing.T) {
	flow := &fakeFlow{}
	srv := newTestServer(t, Config{Flow: flow})

	rec := serve(srv, http.MethodPost, "/auth/callback")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Empty(t, flow.calls)
}

func TestRoutes_UnknownPath(t *testing.T) {
	srv := newTestServer(t, Config{Flow: &fakeFlow{}})
	assert.Equal(t, http.StatusNotFound, serve(srv, http.MethodGet, "/patients/import").Code)
}

func TestImportRoute(t *testing.T) {
	var hit bool
	srv := newTestServer(t, Config{
		Flow:       &fakeFlow{},
		ImportPath: "/patients/import",
		Import: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hit = true
			assert.Equal(t, "abc", r.URL.Query().Get("session"))
		}),
	})

	rec := serve(srv, http.MethodGet, "/patients/import?session=abc")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, hit)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, Config{Flow: &fakeFlow{}})

	rec := serve(srv, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	m.EndpointResolution(metrics.OutcomeFallback)

	srv := newTestServer(t, Config{Flow: &fakeFlow{}, Gatherer: reg})

	rec := serve(srv, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `smartlaunch_endpoint_resolutions_total{outcome="fallback"} 1`)
}

func TestMetricsEndpoint_DisabledWithoutGatherer(t *testing.T) {
	srv := newTestServer(t, Config{Flow: &fakeFlow{}})
	assert.Equal(t, http.StatusNotFound, serve(srv, http.MethodGet, "/metrics").Code)
}

func TestStartShutdown(t *testing.T) {
	srv := newTestServer(t, Config{Addr: "127.0.0.1:0", Flow: &fakeFlow{}})
	require.NoError(t, srv.Start())
	assert.NotEqual(t, "127.0.0.1:0", srv.Addr())

	resp, err := http.Get("http://" + srv.Addr() + "/health")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(string(body), "ok"))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))

	select {
	case err := <-srv.Err():
		t.Fatalf("unexpected serve error: %v", err)
	default:
	}
}

func TestStart_AddressInUse(t *testing.T) {
	first := newTestServer(t, Config{Addr: "127.0.0.1:0", Flow: &fakeFlow{}})
	require.NoError(t, first.Start())
	t.Cleanup(func() { _ = first.Shutdown(context.Background()) })

	second := newTestServer(t, Config{Addr: first.Addr(), Flow: &fakeFlow{}})
	assert.Error(t, second.Start())
}

func TestShutdown_NotStarted(t *testing.T) {
	srv := newTestServer(t, Config{Flow: &fakeFlow{}})
	assert.NoError(t, srv.Shutdown(context.Background()))
}
