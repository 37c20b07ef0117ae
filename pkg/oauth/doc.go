// Package oauth holds the PKCE primitives used by the SMART launch flow.
//
// A verifier is 32 bytes from crypto/rand, base64url encoded without padding.
// The challenge is the S256 transform of the verifier. Only the challenge
// leaves the process; the verifier is kept until the code exchange.
//
//	pkce, err := oauth.GeneratePKCE()
//	if err != nil {
//	    return err // *oauth.PKCEGenerationError
//	}
//	// send pkce.CodeChallenge, keep pkce.CodeVerifier
package oauth
