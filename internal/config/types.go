package config

import "time"

// SmartLaunchConfig is the top-level configuration structure for smartlaunch.
type SmartLaunchConfig struct {
	Server        ServerConfig        `yaml:"server"`
	OAuth         OAuthConfig         `yaml:"oauth"`
	FHIR          FHIRConfig          `yaml:"fhir"`
	VerifierStore VerifierStoreConfig `yaml:"verifierStore"`
	Sessions      SessionsConfig      `yaml:"sessions"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// ServerConfig defines where the HTTP server listens.
type ServerConfig struct {
	Host            string        `yaml:"host,omitempty"`            // Host to bind to (default: localhost)
	Port            int           `yaml:"port,omitempty"`            // Port to listen on (default: 8080)
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout,omitempty"` // Grace period for in-flight requests (default: 10s)
}

// OAuthConfig holds the client registration and authorization server endpoints.
type OAuthConfig struct {
	ClientID             string        `yaml:"clientId,omitempty"`
	RedirectURI          string        `yaml:"redirectUri,omitempty"`
	TokenURL             string        `yaml:"tokenUrl,omitempty"`
	FallbackAuthorizeURL string        `yaml:"fallbackAuthorizeUrl,omitempty"`
	RequestTimeout       time.Duration `yaml:"requestTimeout,omitempty"`
}

// FHIRConfig points at the FHIR server used for standalone launches and
// resource reads.
type FHIRConfig struct {
	BaseURL        string        `yaml:"baseUrl,omitempty"`
	RequestTimeout time.Duration `yaml:"requestTimeout,omitempty"`
}

// Verifier store backends.
const (
	VerifierStoreMemory = "memory"
	VerifierStoreRedis  = "redis"
)

// VerifierStoreConfig selects where pending PKCE verifiers are kept.
type VerifierStoreConfig struct {
	Type  string        `yaml:"type,omitempty"` // memory or redis (default: memory)
	TTL   time.Duration `yaml:"ttl,omitempty"`  // default: 10m
	Redis RedisConfig   `yaml:"redis,omitempty"`
}

// RedisConfig is used when VerifierStoreConfig.Type is redis.
type RedisConfig struct {
	Addr      string `yaml:"addr,omitempty"`
	Username  string `yaml:"username,omitempty"`
	Password  string `yaml:"password,omitempty"`
	DB        int    `yaml:"db,omitempty"`
	KeyPrefix string `yaml:"keyPrefix,omitempty"`
}

// SessionsConfig bounds how long a credential is held after the callback.
type SessionsConfig struct {
	TTL time.Duration `yaml:"ttl,omitempty"` // default: 30m
}

// LoggingConfig controls the process logger.
type LoggingConfig struct {
	Level  string `yaml:"level,omitempty"`  // debug, info, warn, error
	Format string `yaml:"format,omitempty"` // text or json
}
