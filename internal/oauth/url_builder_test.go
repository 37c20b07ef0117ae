package oauth

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildAuthorizationURL_WithoutLaunch(t *testing.T) {
	got := BuildAuthorizationURL("https://a/authorize", "c1", "http://cb", "s", "st1", "https://fhir", "ch1", "")

	for _, want := range []string{
		"response_type=code",
		"client_id=c1",
		"scope=s",
		"state=st1",
		"code_challenge=ch1",
		"code_challenge_method=S256",
	} {
		assert.Contains(t, got, want)
	}
	assert.NotContains(t, got, "launch=")
	assert.True(t, strings.HasPrefix(got, "https://a/authorize?response_type=code&"))
}

func TestBuildAuthorizationURL_LaunchIsLast(t *testing.T) {
	got := BuildAuthorizationURL("https://a/authorize", "c1", "http://cb", "s", "st1", "https://fhir", "ch1", "L1")

	assert.True(t, strings.HasSuffix(got, "&launch=L1"), got)
}

func TestBuildAuthorizationURL_ParameterOrder(t *testing.T) {
	got := BuildAuthorizationURL("https://a/authorize", "c1", "http://cb", "s", "st1", "https://fhir", "ch1", "L1")

	u, err := url.Parse(got)
	require.NoError(t, err)

	var keys []string
	for _, pair := range strings.Split(u.RawQuery, "&") {
		keys = append(keys, strings.SplitN(pair, "=", 2)[0])
	}
	assert.Equal(t, []string{
		"response_type", "client_id", "redirect_uri", "scope", "state",
		"aud", "code_challenge", "code_challenge_method", "launch",
	}, keys)
}

func TestBuildAuthorizationURL_EncodesValues(t *testing.T) {
	scope := "launch launch/patient openid fhiruser profile patient/*.read"
	redirect := "http://localhost:8080/auth/callback?x=1&y=2"
	audience := "https://fhir.example.org/api/FHIR/R4"

	got := BuildAuthorizationURL("https://a/authorize", "client id", redirect, scope, "st/1+", audience, "ch_-1", "a&b=c")

	assert.NotContains(t, got, "launch/patient")
	assert.NotContains(t, got, "callback?x=1")

	u, err := url.Parse(got)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "client id", q.Get("client_id"))
	assert.Equal(t, redirect, q.Get("redirect_uri"))
	assert.Equal(t, scope, q.Get("scope"))
	assert.Equal(t, "st/1+", q.Get("state"))
	assert.Equal(t, audience, q.Get("aud"))
	assert.Equal(t, "a&b=c", q.Get("launch"))
}

func TestBuildAuthorizationURL_EndpointWithQuery(t *testing.T) {
	tests := []struct {
		name     string
		endpoint string
		prefix   string
	}{
		{"existing parameter", "https://a/authorize?tenant=x", "https://a/authorize?tenant=x&response_type=code"},
		{"trailing question mark", "https://a/authorize?", "https://a/authorize?response_type=code"},
		{"trailing ampersand", "https://a/authorize?tenant=x&", "https://a/authorize?tenant=x&response_type=code"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := BuildAuthorizationURL(tc.endpoint, "c1", "http://cb", "s", "st1", "https://fhir", "ch1", "")
			assert.True(t, strings.HasPrefix(got, tc.prefix), got)

			u, err := url.Parse(got)
			require.NoError(t, err)
			assert.Equal(t, "st1", u.Query().Get("state"))
		})
	}
}
