package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"smartlaunch/internal/oauth"
	"smartlaunch/pkg/logging"
)

const (
	// DefaultReadHeaderTimeout is the default timeout for reading request headers.
	DefaultReadHeaderTimeout = 10 * time.Second
	// DefaultWriteTimeout is the default timeout for writing responses. It
	// must cover a capability fetch plus a token exchange.
	DefaultWriteTimeout = 60 * time.Second
	// DefaultIdleTimeout is the default idle timeout for keepalive connections.
	DefaultIdleTimeout = 120 * time.Second
)

// Route paths served by the launch service.
const (
	PathLaunch     = "/auth/launch"
	PathStandalone = "/auth/standalone"
	PathCallback   = "/auth/callback"
	PathHealth     = "/health"
	PathMetrics    = "/metrics"
)

// FlowHandler serves the authorization endpoints.
type FlowHandler interface {
	HandleLaunch(w http.ResponseWriter, r *http.Request)
	HandleStandalone(w http.ResponseWriter, r *http.Request)
	HandleCallback(w http.ResponseWriter, r *http.Request)
}

// Config wires handlers and listener settings into a Server.
type Config struct {
	Addr string

	Flow FlowHandler

	// Import serves ImportPath. Both must be set for the route to exist.
	Import     http.Handler
	ImportPath string

	// Gatherer backs /metrics. nil disables the endpoint.
	Gatherer prometheus.Gatherer
}

// Server is the HTTP front of the launch service.
type Server struct {
	addr    string
	handler http.Handler
	errCh   chan error

	mu         sync.Mutex
	httpServer *http.Server
	listener   net.Listener
}

// New creates a Server and registers its routes. Nothing listens until Start.
func New(cfg Config) (*Server, error) {
	if cfg.Flow == nil {
		return nil, fmt.Errorf("flow handler is required")
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET "+PathLaunch, cfg.Flow.HandleLaunch)
	mux.HandleFunc("GET "+PathStandalone, cfg.Flow.HandleStandalone)
	mux.HandleFunc("GET "+PathCallback, cfg.Flow.HandleCallback)

	if cfg.Import != nil && cfg.ImportPath != "" {
		mux.Handle("GET "+cfg.ImportPath, cfg.Import)
	}

	mux.HandleFunc("GET "+PathHealth, handleHealth)

	if cfg.Gatherer != nil {
		mux.Handle("GET "+PathMetrics, promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	return &Server{
		addr:    cfg.Addr,
		handler: logRequests(mux),
		errCh:   make(chan error, 1),
	}, nil
}

// Handler returns the routed handler, for use with httptest.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start binds the listener and serves in the background. Serve failures are
// reported on Err.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}

	httpServer := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: DefaultReadHeaderTimeout,
		WriteTimeout:      DefaultWriteTimeout,
		IdleTimeout:       DefaultIdleTimeout,
	}

	s.mu.Lock()
	s.listener = listener
	s.httpServer = httpServer
	s.mu.Unlock()

	go func() {
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			select {
			case s.errCh <- err:
			default:
			}
		}
	}()

	logging.Info("Server", "Listening on http://%s", listener.Addr())
	return nil
}

// Addr returns the bound address once started, otherwise the configured one.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Err receives a serve error if the server stops unexpectedly.
func (s *Server) Err() <-chan error {
	return s.errCh
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	httpServer := s.httpServer
	s.mu.Unlock()
	if httpServer == nil {
		return nil
	}
	logging.Info("Server", "Shutting down")
	return httpServer.Shutdown(ctx)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	oauth.SetSecurityHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// logRequests logs method, path and status at debug level. Query strings
// carry codes and state and are never logged.
func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logging.Debug("Server", "%s %s -> %d (%s)", r.Method, r.URL.Path, rec.status, time.Since(start).Round(time.Millisecond))
	})
}
