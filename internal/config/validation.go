package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// ValidationError represents a validation error with context
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (ve ValidationError) Error() string {
	if ve.Field == "" {
		return ve.Message
	}
	return fmt.Sprintf("field '%s': %s", ve.Field, ve.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for multiple validation errors
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}
	if len(ve) == 1 {
		return ve[0].Error()
	}

	var messages []string
	for _, err := range ve {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(messages, "; "))
}

// HasErrors returns true if there are any validation errors
func (ve ValidationErrors) HasErrors() bool {
	return len(ve) > 0
}

// Add adds a new validation error
func (ve *ValidationErrors) Add(field, message string, value ...interface{}) {
	var val interface{}
	if len(value) > 0 {
		val = value[0]
	}
	*ve = append(*ve, ValidationError{
		Field:   field,
		Value:   val,
		Message: message,
	})
}

// addErr appends err if it is a ValidationError.
func (ve *ValidationErrors) addErr(err error) {
	if err == nil {
		return
	}
	if v, ok := err.(ValidationError); ok {
		*ve = append(*ve, v)
		return
	}
	ve.Add("", err.Error())
}

// ValidateRequired checks if a required string field is not empty
func ValidateRequired(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return ValidationError{
			Field:   field,
			Value:   value,
			Message: "is required",
		}
	}
	return nil
}

// ValidateAbsoluteURL checks that value is an absolute http(s) URL.
func ValidateAbsoluteURL(field, value string) error {
	if err := ValidateRequired(field, value); err != nil {
		return err
	}
	u, err := url.Parse(value)
	if err != nil || !u.IsAbs() || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return ValidationError{
			Field:   field,
			Value:   value,
			Message: "must be an absolute http or https URL",
		}
	}
	return nil
}

// ValidateOneOf checks if a value is in a list of allowed values
func ValidateOneOf(field, value string, allowed []string) error {
	for _, allowedValue := range allowed {
		if value == allowedValue {
			return nil
		}
	}
	return ValidationError{
		Field:   field,
		Value:   value,
		Message: fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", ")),
	}
}

// ValidatePositiveDuration checks that d is greater than zero.
func ValidatePositiveDuration(field string, d time.Duration) error {
	if d <= 0 {
		return ValidationError{
			Field:   field,
			Value:   d,
			Message: "must be a positive duration",
		}
	}
	return nil
}

// Validate checks the whole configuration and returns ValidationErrors
// listing every problem, or nil.
func (c SmartLaunchConfig) Validate() error {
	var errs ValidationErrors

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs.Add("server.port", "must be between 1 and 65535", c.Server.Port)
	}
	errs.addErr(ValidatePositiveDuration("server.shutdownTimeout", c.Server.ShutdownTimeout))

	errs.addErr(ValidateRequired("oauth.clientId", c.OAuth.ClientID))
	errs.addErr(ValidateAbsoluteURL("oauth.redirectUri", c.OAuth.RedirectURI))
	errs.addErr(ValidateAbsoluteURL("oauth.tokenUrl", c.OAuth.TokenURL))
	errs.addErr(ValidateAbsoluteURL("oauth.fallbackAuthorizeUrl", c.OAuth.FallbackAuthorizeURL))
	errs.addErr(ValidatePositiveDuration("oauth.requestTimeout", c.OAuth.RequestTimeout))

	errs.addErr(ValidateAbsoluteURL("fhir.baseUrl", c.FHIR.BaseURL))
	errs.addErr(ValidatePositiveDuration("fhir.requestTimeout", c.FHIR.RequestTimeout))

	errs.addErr(ValidateOneOf("verifierStore.type", c.VerifierStore.Type,
		[]string{VerifierStoreMemory, VerifierStoreRedis}))
	errs.addErr(ValidatePositiveDuration("verifierStore.ttl", c.VerifierStore.TTL))
	if c.VerifierStore.Type == VerifierStoreRedis {
		errs.addErr(ValidateRequired("verifierStore.redis.addr", c.VerifierStore.Redis.Addr))
		if c.VerifierStore.Redis.DB < 0 {
			errs.Add("verifierStore.redis.db", "must not be negative", c.VerifierStore.Redis.DB)
		}
	}

	errs.addErr(ValidatePositiveDuration("sessions.ttl", c.Sessions.TTL))

	errs.addErr(ValidateOneOf("logging.level", strings.ToLower(c.Logging.Level),
		[]string{"debug", "info", "warn", "error"}))
	errs.addErr(ValidateOneOf("logging.format", c.Logging.Format, []string{"text", "json"}))

	if errs.HasErrors() {
		return errs
	}
	return nil
}

// Addr returns host:port for the HTTP listener.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
