package oauth

import (
	"errors"
	"fmt"
)

var (
	// ErrVerifierNotFound is returned when no pending verifier exists for a
	// state: it was never stored, was already consumed, or has expired.
	ErrVerifierNotFound = errors.New("no pending authorization for state")

	// ErrEmptyTokenResponse is returned when the token endpoint answered
	// without a body.
	ErrEmptyTokenResponse = errors.New("empty token response")
)

// Build steps reported by AuthorizationBuildError.
const (
	StepRequest = "request"
	StepPKCE    = "pkce"
	StepStore   = "store"
)

// AuthorizationBuildError aborts construction of an authorization URL.
// No redirect is issued when it is returned.
type AuthorizationBuildError struct {
	Step string
	Err  error
}

func (e *AuthorizationBuildError) Error() string {
	return fmt.Sprintf("failed to build authorization URL (%s): %v", e.Step, e.Err)
}

func (e *AuthorizationBuildError) Unwrap() error {
	return e.Err
}

// TokenExchangeError wraps any failure of the code-for-token request.
// StatusCode is zero when no response was received.
type TokenExchangeError struct {
	StatusCode int
	Err        error
}

func (e *TokenExchangeError) Error() string {
	return fmt.Sprintf("token exchange failed: %v", e.Err)
}

func (e *TokenExchangeError) Unwrap() error {
	return e.Err
}

// EndpointResolutionError describes why the authorization endpoint could not
// be read from a capability document. It is only ever attached to a fallback
// Resolution; callers never receive it as a returned error.
type EndpointResolutionError struct {
	BaseURL string
	Err     error
}

func (e *EndpointResolutionError) Error() string {
	return fmt.Sprintf("resolve authorization endpoint for %s: %v", e.BaseURL, e.Err)
}

func (e *EndpointResolutionError) Unwrap() error {
	return e.Err
}
