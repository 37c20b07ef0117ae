package config

import (
	"time"

	"smartlaunch/internal/oauth"
)

const (
	DefaultHost            = "localhost"
	DefaultPort            = 8080
	DefaultShutdownTimeout = 10 * time.Second

	// DefaultTokenURL is the token endpoint used when none is configured.
	DefaultTokenURL = oauth.DefaultTokenURL

	// DefaultFallbackAuthorizeURL is used when a capability statement does not
	// name an authorization endpoint.
	DefaultFallbackAuthorizeURL = oauth.DefaultFallbackAuthorizeURL

	DefaultRequestTimeout = oauth.DefaultRequestTimeout
	DefaultVerifierTTL    = oauth.DefaultVerifierTTL
	DefaultSessionTTL     = oauth.DefaultSessionTTL
	DefaultRedisKeyPrefix = oauth.DefaultRedisKeyPrefix

	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
)

// GetDefaultConfig returns default configuration. Client id, redirect URI and
// FHIR base URL have no sensible default and must be configured.
func GetDefaultConfig() SmartLaunchConfig {
	return SmartLaunchConfig{
		Server: ServerConfig{
			Host:            DefaultHost,
			Port:            DefaultPort,
			ShutdownTimeout: DefaultShutdownTimeout,
		},
		OAuth: OAuthConfig{
			TokenURL:             DefaultTokenURL,
			FallbackAuthorizeURL: DefaultFallbackAuthorizeURL,
			RequestTimeout:       DefaultRequestTimeout,
		},
		FHIR: FHIRConfig{
			RequestTimeout: DefaultRequestTimeout,
		},
		VerifierStore: VerifierStoreConfig{
			Type: VerifierStoreMemory,
			TTL:  DefaultVerifierTTL,
			Redis: RedisConfig{
				KeyPrefix: DefaultRedisKeyPrefix,
			},
		},
		Sessions: SessionsConfig{
			TTL: DefaultSessionTTL,
		},
		Logging: LoggingConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
