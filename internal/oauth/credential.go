package oauth

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// Credential is the result of a successful code exchange.
// AccessToken is never empty. PatientID is empty when the authorization
// carried no patient context.
type Credential struct {
	AccessToken  RedactedToken `json:"access_token"`
	TokenType    string        `json:"token_type,omitempty"`
	ExpiresIn    int64         `json:"expires_in,omitempty"`
	ExpiresAt    time.Time     `json:"expires_at,omitzero"`
	Scope        string        `json:"scope,omitempty"`
	RefreshToken RedactedToken `json:"refresh_token"`
	IDToken      RedactedToken `json:"id_token"`

	// SMART launch context
	PatientID   string `json:"patient,omitempty"`
	EncounterID string `json:"encounter,omitempty"`
}

// HasPatient reports whether the token response selected a patient.
func (c *Credential) HasPatient() bool {
	return c != nil && c.PatientID != ""
}

// IsExpired reports whether the access token expires within margin.
// Credentials without an expiry never expire.
func (c *Credential) IsExpired(margin time.Duration) bool {
	if c.ExpiresAt.IsZero() {
		return false
	}
	return time.Now().Add(margin).After(c.ExpiresAt)
}

// maxExpiresIn caps expires_in (seconds) so that ExpiresAt cannot overflow.
const maxExpiresIn = int64(10 * 365 * 24 * 60 * 60)

// credentialFromPayload maps a decoded token response onto a Credential.
// Unknown keys are ignored and malformed optional values are left empty.
func credentialFromPayload(payload map[string]interface{}, now time.Time) *Credential {
	cred := &Credential{
		AccessToken:  NewRedactedToken(stringField(payload, "access_token")),
		TokenType:    stringField(payload, "token_type"),
		Scope:        stringField(payload, "scope"),
		RefreshToken: NewRedactedToken(stringField(payload, "refresh_token")),
		IDToken:      NewRedactedToken(stringField(payload, "id_token")),
		PatientID:    stringField(payload, "patient"),
		EncounterID:  stringField(payload, "encounter"),
	}

	if expiresIn, ok := intField(payload, "expires_in"); ok && expiresIn > 0 {
		expiresIn = min(expiresIn, maxExpiresIn)
		cred.ExpiresIn = expiresIn
		cred.ExpiresAt = now.Add(time.Duration(expiresIn) * time.Second)
	}
	return cred
}

func stringField(payload map[string]interface{}, key string) string {
	switch v := payload[key].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	default:
		return ""
	}
}

func intField(payload map[string]interface{}, key string) (int64, bool) {
	switch v := payload[key].(type) {
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n, true
		}
		if f, err := v.Float64(); err == nil && f >= math.MinInt64 && f < math.MaxInt64 {
			return int64(f), true
		}
	case string:
		if n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			return n, true
		}
	}
	return 0, false
}
