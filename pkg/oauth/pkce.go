package oauth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/oauth2"
)

const (
	// pkceVerifierBytes is the number of random bytes for the PKCE code verifier.
	// 32 bytes encode to a 43 character verifier, the RFC 7636 minimum.
	pkceVerifierBytes = 32

	// stateBytes is the number of random bytes for the OAuth state parameter.
	stateBytes = 32

	// ChallengeMethodS256 is the only PKCE method this module supports.
	ChallengeMethodS256 = "S256"
)

// randReader is the entropy source; tests replace it to simulate failures.
var randReader io.Reader = rand.Reader

// PKCEChallenge holds a verifier together with its derived challenge.
type PKCEChallenge struct {
	// CodeVerifier is the secret kept server-side until the token exchange.
	CodeVerifier string `json:"-"`

	// CodeChallenge is sent in the authorization request.
	CodeChallenge string `json:"code_challenge"`

	// CodeChallengeMethod is always "S256".
	CodeChallengeMethod string `json:"code_challenge_method"`
}

// PKCEGenerationError reports a failure of the underlying cryptographic
// primitives. It is not retryable.
type PKCEGenerationError struct {
	Err error
}

func (e *PKCEGenerationError) Error() string {
	return fmt.Sprintf("failed to generate PKCE verifier: %v", e.Err)
}

func (e *PKCEGenerationError) Unwrap() error {
	return e.Err
}

// GenerateVerifier returns a new code verifier: 32 random bytes, base64url
// encoded without padding.
func GenerateVerifier() (string, error) {
	verifierBytes := make([]byte, pkceVerifierBytes)
	if _, err := io.ReadFull(randReader, verifierBytes); err != nil {
		return "", &PKCEGenerationError{Err: err}
	}
	return base64.RawURLEncoding.EncodeToString(verifierBytes), nil
}

// GenerateChallenge derives the S256 challenge for a verifier:
// base64url(SHA-256(verifier)) without padding.
func GenerateChallenge(verifier string) string {
	return oauth2.S256ChallengeFromVerifier(verifier)
}

// GeneratePKCE generates a new PKCE code verifier and challenge.
func GeneratePKCE() (*PKCEChallenge, error) {
	verifier, err := GenerateVerifier()
	if err != nil {
		return nil, err
	}

	return &PKCEChallenge{
		CodeVerifier:        verifier,
		CodeChallenge:       GenerateChallenge(verifier),
		CodeChallengeMethod: ChallengeMethodS256,
	}, nil
}

// VerifyChallenge reports whether challenge is the S256 challenge of verifier.
// The comparison runs in constant time.
func VerifyChallenge(verifier, challenge string) bool {
	if verifier == "" || challenge == "" {
		return false
	}
	expected := GenerateChallenge(verifier)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(challenge)) == 1
}

// GenerateState returns 32 random bytes, base64url-encoded, for callers that
// want an opaque state. The launch service itself issues UUID states.
func GenerateState() (string, error) {
	b := make([]byte, stateBytes)
	if _, err := io.ReadFull(randReader, b); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(b), nil
}
