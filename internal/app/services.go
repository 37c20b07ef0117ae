package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"smartlaunch/internal/config"
	"smartlaunch/internal/fhir"
	"smartlaunch/internal/metrics"
	"smartlaunch/internal/oauth"
	"smartlaunch/internal/server"
	"smartlaunch/pkg/logging"
)

// Services holds all initialized components used by the application.
//
// Components are created in dependency order:
//  1. Metrics registry
//  2. Verifier store (memory or Redis) and session store
//  3. Capability resolver, orchestrator and token exchanger
//  4. FHIR client and HTTP handlers
//  5. HTTP server
type Services struct {
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics

	Verifiers oauth.VerifierStore
	Sessions  *oauth.SessionStore

	Resolver     *oauth.CapabilityResolver
	Orchestrator *oauth.Orchestrator
	Exchanger    *oauth.TokenExchanger

	FHIR *fhir.Client

	Server *server.Server

	closers []func()
}

// InitializeServices wires every component from cfg.SmartLaunchConfig, which
// must already be loaded and validated.
func InitializeServices(ctx context.Context, cfg *Config) (*Services, error) {
	sc := cfg.SmartLaunchConfig
	s := &Services{}

	s.Registry = metrics.NewRegistry()
	s.Metrics = metrics.New(s.Registry)

	verifiers, closeVerifiers, err := newVerifierStore(ctx, sc.VerifierStore)
	if err != nil {
		return nil, err
	}
	s.Verifiers = verifiers
	s.closers = append(s.closers, closeVerifiers)

	s.Sessions = oauth.NewSessionStore(sc.Sessions.TTL)
	s.closers = append(s.closers, s.Sessions.Stop)

	s.Resolver = oauth.NewCapabilityResolver(oauth.CapabilityResolverOptions{
		FallbackURL:    sc.OAuth.FallbackAuthorizeURL,
		RequestTimeout: sc.OAuth.RequestTimeout,
		Metrics:        s.Metrics,
	})

	s.Orchestrator = oauth.NewOrchestrator(s.Resolver, s.Verifiers, oauth.OrchestratorConfig{
		ClientID:           sc.OAuth.ClientID,
		RedirectURI:        sc.OAuth.RedirectURI,
		DefaultFHIRBaseURL: sc.FHIR.BaseURL,
		Metrics:            s.Metrics,
	})

	s.Exchanger = oauth.NewTokenExchanger(s.Verifiers, oauth.TokenExchangerConfig{
		TokenURL:       sc.OAuth.TokenURL,
		ClientID:       sc.OAuth.ClientID,
		RedirectURI:    sc.OAuth.RedirectURI,
		RequestTimeout: sc.OAuth.RequestTimeout,
		Metrics:        s.Metrics,
	})

	s.FHIR = fhir.NewClient(sc.FHIR.BaseURL, http.DefaultTransport, sc.FHIR.RequestTimeout)

	flow := oauth.NewHandler(oauth.HandlerConfig{
		Authorizer: s.Orchestrator,
		Exchanger:  s.Exchanger,
		Sessions:   s.Sessions,
		ImportPath: oauth.DefaultImportPath,
		Metrics:    s.Metrics,
	})

	s.Server, err = server.New(server.Config{
		Addr:       sc.Server.Addr(),
		Flow:       flow,
		Import:     fhir.NewImportHandler(s.Sessions, s.FHIR),
		ImportPath: oauth.DefaultImportPath,
		Gatherer:   s.Registry,
	})
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to create server: %w", err)
	}

	logging.Info("Services", "Initialized (verifier store: %s, FHIR server: %s)", sc.VerifierStore.Type, sc.FHIR.BaseURL)
	return s, nil
}

// Close stops background goroutines and releases store connections.
func (s *Services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

func newVerifierStore(ctx context.Context, cfg config.VerifierStoreConfig) (oauth.VerifierStore, func(), error) {
	switch cfg.Type {
	case config.VerifierStoreRedis:
		store, err := oauth.NewRedisVerifierStore(ctx, oauth.RedisConfig{
			Addr:      cfg.Redis.Addr,
			Username:  cfg.Redis.Username,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			KeyPrefix: cfg.Redis.KeyPrefix,
			TTL:       cfg.TTL,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect verifier store: %w", err)
		}
		return store, func() {
			if err := store.Close(); err != nil {
				logging.Warn("Services", "Failed to close Redis verifier store: %v", err)
			}
		}, nil
	case config.VerifierStoreMemory, "":
		store := oauth.NewMemoryVerifierStore(cfg.TTL)
		return store, store.Stop, nil
	default:
		return nil, nil, fmt.Errorf("unknown verifier store type %q", cfg.Type)
	}
}
