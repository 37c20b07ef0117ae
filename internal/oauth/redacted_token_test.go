package oauth

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedactedToken_Formatting(t *testing.T) {
	token := NewRedactedToken("super-secret-token-12345")

	assert.Equal(t, "super-secret-token-12345", token.Value())

	tests := []struct {
		format string
		want   string
	}{
		{"%s", "[REDACTED]"},
		{"%v", "[REDACTED]"},
		{"%+v", "[REDACTED]"},
		{"%#v", "oauth.RedactedToken{[REDACTED]}"},
	}
	for _, tc := range tests {
		t.Run(tc.format, func(t *testing.T) {
			assert.Equal(t, tc.want, fmt.Sprintf(tc.format, token))
		})
	}
}

func TestRedactedToken_IsEmpty(t *testing.T) {
	assert.True(t, NewRedactedToken("").IsEmpty())
	assert.True(t, RedactedToken{}.IsEmpty())
	assert.False(t, NewRedactedToken("value").IsEmpty())
}

func TestRedactedToken_Marshalling(t *testing.T) {
	token := NewRedactedToken("secret-value")

	data, err := json.Marshal(token)
	require.NoError(t, err)
	assert.Equal(t, `"[REDACTED]"`, string(data))

	text, err := token.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "[REDACTED]", string(text))
}

func TestRedactedToken_Slog(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	logger.Info("issued", "access_token", NewRedactedToken("secret-value"))

	assert.NotContains(t, buf.String(), "secret-value")
	assert.Contains(t, buf.String(), `"access_token":"[REDACTED]"`)
}

func TestCredential_NeverLeaksTokens(t *testing.T) {
	cred := &Credential{
		AccessToken:  NewRedactedToken("access-secret"),
		RefreshToken: NewRedactedToken("refresh-secret"),
		IDToken:      NewRedactedToken("id-secret"),
		TokenType:    "Bearer",
		PatientID:    "123",
	}

	outputs := []string{
		fmt.Sprintf("%v", cred),
		fmt.Sprintf("%+v", *cred),
		fmt.Sprintf("%#v", *cred),
		fmt.Errorf("exchange produced %v", cred).Error(),
	}
	data, err := json.Marshal(cred)
	require.NoError(t, err)
	outputs = append(outputs, string(data))

	for _, out := range outputs {
		for _, secret := range []string{"access-secret", "refresh-secret", "id-secret"} {
			assert.False(t, strings.Contains(out, secret), "output leaked %s: %s", secret, out)
		}
	}
}
