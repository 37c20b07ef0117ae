package oauth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"smartlaunch/internal/metrics"
	"smartlaunch/pkg/logging"
)

// DefaultTokenURL is the token endpoint used when none is configured.
const DefaultTokenURL = "https://fhir.epic.com/interconnect-fhir-oauth/oauth2/token"

// maxTokenResponseSize caps how much of a token response is read.
const maxTokenResponseSize = 1 << 20

// TokenExchangerConfig configures a TokenExchanger.
type TokenExchangerConfig struct {
	TokenURL    string
	ClientID    string
	RedirectURI string

	// HTTPClient used for token requests (nil uses a default client).
	HTTPClient *http.Client

	// RequestTimeout bounds a single token request (0 = DefaultRequestTimeout).
	RequestTimeout time.Duration

	Metrics *metrics.Metrics
}

// TokenExchanger redeems authorization codes. It consumes the verifier stored
// for the callback state before contacting the token endpoint, so a state can
// be redeemed at most once whatever the outcome.
type TokenExchanger struct {
	store VerifierStore
	cfg   TokenExchangerConfig
	now   func() time.Time
}

// NewTokenExchanger creates a TokenExchanger.
func NewTokenExchanger(store VerifierStore, cfg TokenExchangerConfig) *TokenExchanger {
	if cfg.TokenURL == "" {
		cfg.TokenURL = DefaultTokenURL
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.RequestTimeout}
	}
	return &TokenExchanger{store: store, cfg: cfg, now: time.Now}
}

// Exchange trades code for a Credential using the verifier stored under state.
//
// Errors: ErrVerifierNotFound when the state is unknown, consumed or expired
// (no request is sent); otherwise a *TokenExchangeError, which wraps
// ErrEmptyTokenResponse when the endpoint returned no body.
func (e *TokenExchanger) Exchange(ctx context.Context, code, state string) (*Credential, error) {
	verifier, err := e.store.Take(ctx, state)
	if err != nil {
		if errors.Is(err, ErrVerifierNotFound) {
			logging.Warn("OAuth", "No pending authorization for state=%s", logging.TruncateID(state))
			e.cfg.Metrics.TokenExchange(metrics.ResultVerifierNotFound)
			return nil, ErrVerifierNotFound
		}
		e.cfg.Metrics.TokenExchange(metrics.ResultFailed)
		return nil, &TokenExchangeError{Err: fmt.Errorf("failed to load verifier: %w", err)}
	}

	cred, err := e.redeem(ctx, code, verifier)
	switch {
	case err == nil:
		e.cfg.Metrics.TokenExchange(metrics.ResultSuccess)
	case errors.Is(err, ErrEmptyTokenResponse):
		e.cfg.Metrics.TokenExchange(metrics.ResultEmptyResponse)
	default:
		e.cfg.Metrics.TokenExchange(metrics.ResultFailed)
	}
	return cred, err
}

func (e *TokenExchanger) redeem(ctx context.Context, code, verifier string) (*Credential, error) {
	data := url.Values{}
	data.Set("grant_type", "authorization_code")
	data.Set("code", code)
	data.Set("redirect_uri", e.cfg.RedirectURI)
	data.Set("client_id", e.cfg.ClientID)
	data.Set("code_verifier", verifier)

	ctx, cancel := context.WithTimeout(ctx, e.cfg.RequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.TokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, &TokenExchangeError{Err: fmt.Errorf("failed to create token request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := e.cfg.HTTPClient.Do(req)
	if err != nil {
		return nil, &TokenExchangeError{Err: fmt.Errorf("token request failed: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTokenResponseSize))
	if err != nil {
		return nil, &TokenExchangeError{StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read token response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// The body can carry provider hints; keep it out of the error.
		logging.Debug("OAuth", "Token exchange failed: status=%d body=%s", resp.StatusCode, string(body))
		return nil, &TokenExchangeError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("token endpoint returned status %d", resp.StatusCode),
		}
	}

	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return nil, &TokenExchangeError{StatusCode: resp.StatusCode, Err: ErrEmptyTokenResponse}
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var payload map[string]interface{}
	if err := dec.Decode(&payload); err != nil {
		return nil, &TokenExchangeError{StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to parse token response: %w", err)}
	}

	cred := credentialFromPayload(payload, e.now())
	if cred.AccessToken.IsEmpty() {
		return nil, &TokenExchangeError{StatusCode: resp.StatusCode, Err: errors.New("token response has no access_token")}
	}

	logging.Debug("OAuth", "Exchanged code for token (type=%s, expires_in=%d, patient=%t)",
		cred.TokenType, cred.ExpiresIn, cred.HasPatient())

	return cred, nil
}
