// Package config provides configuration management for smartlaunch.
//
// Configuration is read from config.yaml in a single directory. The default
// directory is ~/.config/smartlaunch; commands accept --config-path to use
// another one. A missing file means defaults.
//
// # Example
//
//	server:
//	  host: 0.0.0.0
//	  port: 8080
//	oauth:
//	  clientId: my-client
//	  redirectUri: http://localhost:8080/auth/callback
//	fhir:
//	  baseUrl: https://fhir.example.org/api/FHIR/R4
//	verifierStore:
//	  type: redis
//	  redis:
//	    addr: localhost:6379
//
// # Environment
//
// SMART_CLIENT_ID, SMART_REDIRECT_URI, SMART_FHIR_BASE_URL, SMART_TOKEN_URL,
// SMART_REDIS_ADDR and SMART_REDIS_PASSWORD override the file.
//
// LoadConfig does not validate; callers run Validate, which reports every
// problem at once as ValidationErrors.
package config
