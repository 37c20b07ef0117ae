// Package oauth implements the SMART-on-FHIR authorization code flow with PKCE.
//
// # Flow
//
//  1. A launch request arrives, either from an EHR (/auth/launch with iss and
//     launch) or standalone (/auth/standalone).
//  2. CapabilityResolver fetches <iss>/metadata and reads the authorize URL
//     from the oauth-uris security extension. If that fails for any reason the
//     configured fallback endpoint is used and the failure is only logged.
//  3. Orchestrator generates a PKCE pair, stores the verifier under a fresh
//     state in a VerifierStore and redirects the browser to the URL built by
//     BuildAuthorizationURL.
//  4. The authorization server redirects back to /auth/callback.
//     TokenExchanger takes the verifier for the returned state (removing it)
//     and redeems the code at the token endpoint.
//  5. If the token response names a patient, the Credential is put into the
//     SessionStore and the browser continues to /patients/import.
//
// # Components
//
//   - VerifierStore: state to verifier mapping with single-use Take.
//     MemoryVerifierStore for one process, RedisVerifierStore for replicas.
//   - CapabilityResolver: endpoint discovery with fallback, returns Resolution.
//   - Orchestrator: builds authorization requests (Launch, Standalone).
//   - TokenExchanger: code for token exchange.
//   - SessionStore: short-lived credential storage after the callback.
//   - Handler: HTTP endpoints.
//
// # Security
//
// Verifiers never leave the process except in the token request. A state can
// be redeemed once; a failed exchange consumes it too. Verifiers expire after
// DefaultVerifierTTL and sessions after DefaultSessionTTL.
//
// Access, refresh and id tokens are held as RedactedToken, so formatting a
// Credential or logging it never prints the secrets. State values and session
// ids are truncated in log lines.
//
// # Errors
//
//   - ErrVerifierNotFound: unknown, consumed or expired state (HTTP 400).
//   - *TokenExchangeError: the token request failed; wraps
//     ErrEmptyTokenResponse for an empty body (HTTP 400).
//   - *AuthorizationBuildError: no redirect could be built (HTTP 500).
//   - *EndpointResolutionError: only found in Resolution.Err.
package oauth
