package oauth

import "log/slog"

const redacted = "[REDACTED]"

// RedactedToken holds a bearer secret (access, refresh or id token) that
// must never reach logs or serialized output.
//
// Every formatting path prints "[REDACTED]": fmt verbs, text and JSON
// marshalling, and slog attributes. Value returns the secret itself and is
// only meant for building outbound Authorization headers.
//
//	cred.AccessToken.String() // "[REDACTED]"
//	cred.AccessToken.Value()  // the token
type RedactedToken struct {
	value string
}

// NewRedactedToken wraps value.
func NewRedactedToken(value string) RedactedToken {
	return RedactedToken{value: value}
}

// Value returns the raw token.
func (t RedactedToken) Value() string {
	return t.value
}

// IsEmpty reports whether no token is held.
func (t RedactedToken) IsEmpty() bool {
	return t.value == ""
}

func (t RedactedToken) String() string {
	return redacted
}

func (t RedactedToken) GoString() string {
	return "oauth.RedactedToken{" + redacted + "}"
}

// LogValue keeps the token out of structured log records.
func (t RedactedToken) LogValue() slog.Value {
	return slog.StringValue(redacted)
}

func (t RedactedToken) MarshalText() ([]byte, error) {
	return []byte(redacted), nil
}

func (t RedactedToken) MarshalJSON() ([]byte, error) {
	return []byte(`"` + redacted + `"`), nil
}
