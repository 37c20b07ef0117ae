package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "smartlaunch"

// Authorization modes.
const (
	ModeLaunch     = "launch"
	ModeStandalone = "standalone"
)

// Result labels shared by the counters below.
const (
	ResultSuccess          = "success"
	ResultFailure          = "failure"
	ResultVerifierNotFound = "verifier_not_found"
	ResultEmptyResponse    = "empty_response"
	ResultFailed           = "failed"
	ResultProviderError    = "provider_error"
	ResultInvalidRequest   = "invalid_request"
	ResultPatient          = "patient"
	ResultNoPatient        = "no_patient"
)

// Endpoint resolution outcomes.
const (
	OutcomeResolved = "resolved"
	OutcomeFallback = "fallback"
)

// Metrics holds the counters for the launch and callback flow.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	authorizationRequests *prometheus.CounterVec
	endpointResolutions   *prometheus.CounterVec
	tokenExchanges        *prometheus.CounterVec
	callbacks             *prometheus.CounterVec
}

// New creates the counters and registers them with reg. A nil reg leaves the
// counters unregistered, which is what most unit tests want.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		authorizationRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "authorization_requests_total",
			Help:      "Authorization URLs built, by launch mode and result.",
		}, []string{"mode", "result"}),
		endpointResolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "endpoint_resolutions_total",
			Help:      "Authorization endpoint lookups, by outcome.",
		}, []string{"outcome"}),
		tokenExchanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_exchanges_total",
			Help:      "Authorization code exchanges, by result.",
		}, []string{"result"}),
		callbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "callbacks_total",
			Help:      "Authorization callbacks handled, by result.",
		}, []string{"result"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.authorizationRequests,
			m.endpointResolutions,
			m.tokenExchanges,
			m.callbacks,
		)
	}
	return m
}

// NewRegistry returns a registry preloaded with the Go runtime and process
// collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// AuthorizationRequest counts one attempt to build an authorization URL.
func (m *Metrics) AuthorizationRequest(mode, result string) {
	if m == nil {
		return
	}
	m.authorizationRequests.WithLabelValues(mode, result).Inc()
}

// EndpointResolution counts one capability lookup.
func (m *Metrics) EndpointResolution(outcome string) {
	if m == nil {
		return
	}
	m.endpointResolutions.WithLabelValues(outcome).Inc()
}

// TokenExchange counts one code exchange.
func (m *Metrics) TokenExchange(result string) {
	if m == nil {
		return
	}
	m.tokenExchanges.WithLabelValues(result).Inc()
}

// Callback counts one callback request.
func (m *Metrics) Callback(result string) {
	if m == nil {
		return
	}
	m.callbacks.WithLabelValues(result).Inc()
}
