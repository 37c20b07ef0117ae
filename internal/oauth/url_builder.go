package oauth

import (
	"net/url"
	"strings"

	pkgoauth "smartlaunch/pkg/oauth"
)

// BuildAuthorizationURL assembles the SMART authorization request URL.
//
// Parameters are emitted in a fixed order: response_type, client_id,
// redirect_uri, scope, state, aud, code_challenge, code_challenge_method and,
// only when launch is non-empty, launch. Every value is query-escaped. If
// authEndpoint already carries a query, the parameters are appended to it.
func BuildAuthorizationURL(authEndpoint, clientID, redirectURI, scope, state, audience, codeChallenge, launch string) string {
	var b strings.Builder
	b.WriteString(authEndpoint)

	sep := "?"
	if strings.Contains(authEndpoint, "?") {
		sep = "&"
		if strings.HasSuffix(authEndpoint, "?") || strings.HasSuffix(authEndpoint, "&") {
			sep = ""
		}
	}

	add := func(key, value string) {
		b.WriteString(sep)
		b.WriteString(key)
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(value))
		sep = "&"
	}

	add("response_type", "code")
	add("client_id", clientID)
	add("redirect_uri", redirectURI)
	add("scope", scope)
	add("state", state)
	add("aud", audience)
	add("code_challenge", codeChallenge)
	add("code_challenge_method", pkgoauth.ChallengeMethodS256)
	if launch != "" {
		add("launch", launch)
	}

	return b.String()
}
