package oauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"smartlaunch/internal/metrics"
	"smartlaunch/pkg/logging"
)

// DefaultImportPath is where the callback sends the browser once a patient
// was selected.
const DefaultImportPath = "/patients/import"

// Authorizer starts authorization flows. *Orchestrator implements it.
type Authorizer interface {
	Launch(ctx context.Context, iss, launch string) (*AuthorizationRequest, error)
	Standalone(ctx context.Context) (*AuthorizationRequest, error)
}

// CodeExchanger redeems authorization codes. *TokenExchanger implements it.
type CodeExchanger interface {
	Exchange(ctx context.Context, code, state string) (*Credential, error)
}

// HandlerConfig wires the HTTP handler.
type HandlerConfig struct {
	Authorizer Authorizer
	Exchanger  CodeExchanger
	Sessions   *SessionStore

	// ImportPath overrides DefaultImportPath.
	ImportPath string

	Metrics *metrics.Metrics
}

// Handler serves the launch, standalone and callback endpoints.
type Handler struct {
	authorizer Authorizer
	exchanger  CodeExchanger
	sessions   *SessionStore
	importPath string
	metrics    *metrics.Metrics
}

// NewHandler creates a new HTTP handler for the authorization flow.
func NewHandler(cfg HandlerConfig) *Handler {
	importPath := cfg.ImportPath
	if importPath == "" {
		importPath = DefaultImportPath
	}
	return &Handler{
		authorizer: cfg.Authorizer,
		exchanger:  cfg.Exchanger,
		sessions:   cfg.Sessions,
		importPath: importPath,
		metrics:    cfg.Metrics,
	}
}

// HandleLaunch handles an EHR launch: GET /auth/launch?launch=&iss=.
func (h *Handler) HandleLaunch(w http.ResponseWriter, r *http.Request) {
	iss := r.URL.Query().Get("iss")
	launch := r.URL.Query().Get("launch")

	if iss == "" {
		logging.Warn("OAuth", "Launch request without iss parameter")
		writeText(w, http.StatusBadRequest, "Launch failed: No iss parameter received")
		return
	}

	logging.Info("OAuth", "EHR launch for iss=%s", iss)

	req, err := h.authorizer.Launch(r.Context(), iss, launch)
	if err != nil {
		logging.Error("OAuth", err, "Failed to build authorization URL for iss=%s", iss)
		writeText(w, http.StatusInternalServerError, "Failed to build authorization URL")
		return
	}

	h.redirect(w, r, req.URL)
}

// HandleStandalone handles GET /auth/standalone.
func (h *Handler) HandleStandalone(w http.ResponseWriter, r *http.Request) {
	req, err := h.authorizer.Standalone(r.Context())
	if err != nil {
		logging.Error("OAuth", err, "Failed to build standalone authorization URL")
		writeText(w, http.StatusInternalServerError, "Failed to build authorization URL")
		return
	}

	h.redirect(w, r, req.URL)
}

// HandleCallback handles the redirect back from the authorization server.
func (h *Handler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	code := query.Get("code")
	state := query.Get("state")
	errorParam := query.Get("error")
	errorDesc := query.Get("error_description")

	if errorParam != "" {
		logging.Warn("OAuth", "Authorization server returned error: %s - %s", errorParam, errorDesc)
		h.metrics.Callback(metrics.ResultProviderError)
		msg := "Authorization failed with error: " + errorParam
		if errorDesc != "" {
			msg += " (" + errorDesc + ")"
		}
		writeText(w, http.StatusBadRequest, msg)
		return
	}

	if code == "" {
		logging.Warn("OAuth", "Callback without authorization code")
		h.metrics.Callback(metrics.ResultInvalidRequest)
		writeText(w, http.StatusBadRequest, "Authorization failed: No authorization code received")
		return
	}
	if state == "" {
		logging.Warn("OAuth", "Callback without state parameter")
		h.metrics.Callback(metrics.ResultInvalidRequest)
		writeText(w, http.StatusBadRequest, "Authorization failed: No state parameter received")
		return
	}

	cred, err := h.exchanger.Exchange(r.Context(), code, state)
	if err != nil {
		if errors.Is(err, ErrVerifierNotFound) {
			h.metrics.Callback(metrics.ResultVerifierNotFound)
			writeText(w, http.StatusBadRequest, "Authorization failed: invalid or expired session")
			return
		}
		logging.Error("OAuth", err, "Failed to exchange authorization code for state=%s", logging.TruncateID(state))
		h.metrics.Callback(metrics.ResultFailed)
		writeText(w, http.StatusBadRequest, "Authorization failed: "+err.Error())
		return
	}

	if !cred.HasPatient() {
		logging.Info("OAuth", "Authorization completed without patient context")
		h.metrics.Callback(metrics.ResultNoPatient)
		writeText(w, http.StatusOK, "Authorization successful! No patient context available.")
		return
	}

	sessionID := h.sessions.Create(cred)
	logging.Info("OAuth", "Authorization completed, session=%s", logging.TruncateID(sessionID))
	h.metrics.Callback(metrics.ResultPatient)

	h.redirect(w, r, h.importPath+"?session="+url.QueryEscape(sessionID))
}

func (h *Handler) redirect(w http.ResponseWriter, r *http.Request, location string) {
	SetSecurityHeaders(w)
	http.Redirect(w, r, location, http.StatusFound)
}

// SetSecurityHeaders sets the headers every response of this service carries.
func SetSecurityHeaders(w http.ResponseWriter) {
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("Content-Security-Policy", "default-src 'none'")
	w.Header().Set("Referrer-Policy", "no-referrer")
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
}

func writeText(w http.ResponseWriter, status int, msg string) {
	SetSecurityHeaders(w)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = fmt.Fprint(w, msg)
}
