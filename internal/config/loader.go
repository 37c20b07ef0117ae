package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"smartlaunch/pkg/logging"
)

const (
	userConfigDir  = ".config/smartlaunch"
	configFileName = "config.yaml"
)

// Environment variables that override values from config.yaml.
const (
	EnvClientID      = "SMART_CLIENT_ID"
	EnvRedirectURI   = "SMART_REDIRECT_URI"
	EnvFHIRBaseURL   = "SMART_FHIR_BASE_URL"
	EnvTokenURL      = "SMART_TOKEN_URL"
	EnvRedisAddr     = "SMART_REDIS_ADDR"
	EnvRedisPassword = "SMART_REDIS_PASSWORD"
)

// lookupEnv is replaced in tests.
var lookupEnv = os.LookupEnv

func GetDefaultConfigPathOrPanic() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		panic(fmt.Errorf("could not determine user config directory: %w", err))
	}

	return filepath.Join(homeDir, userConfigDir)
}

// LoadConfig loads config.yaml from configPath on top of the defaults and
// applies environment overrides. A missing file is not an error.
// The result is not validated; call Validate.
func LoadConfig(configPath string) (SmartLaunchConfig, error) {
	configFilePath := filepath.Join(configPath, configFileName)
	config := GetDefaultConfig()

	data, err := os.ReadFile(configFilePath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		logging.Info("ConfigLoader", "No config.yaml found at %s, using defaults", configFilePath)
	case err != nil:
		return SmartLaunchConfig{}, &ConfigurationError{
			FilePath:  configFilePath,
			FileName:  configFileName,
			ErrorType: ErrorTypeIO,
			Message:   "failed to read configuration file",
			Details:   err.Error(),
			Suggestions: []string{
				"Check that the file is readable by the current user",
			},
		}
	default:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return SmartLaunchConfig{}, &ConfigurationError{
				FilePath:   configFilePath,
				FileName:   configFileName,
				ErrorType:  ErrorTypeParse,
				Message:    "malformed YAML",
				Details:    err.Error(),
				LineNumber: yamlErrorLine(err),
				Suggestions: []string{
					"Durations are written as strings such as \"10s\" or \"30m\"",
					"Keys are camelCase, e.g. clientId, redirectUri, baseUrl",
				},
			}
		}
		logging.Info("ConfigLoader", "Loaded configuration from %s", configFilePath)
	}

	applyEnvOverrides(&config)
	return config, nil
}

func applyEnvOverrides(cfg *SmartLaunchConfig) {
	overrides := []struct {
		name   string
		target *string
	}{
		{EnvClientID, &cfg.OAuth.ClientID},
		{EnvRedirectURI, &cfg.OAuth.RedirectURI},
		{EnvFHIRBaseURL, &cfg.FHIR.BaseURL},
		{EnvTokenURL, &cfg.OAuth.TokenURL},
		{EnvRedisAddr, &cfg.VerifierStore.Redis.Addr},
		{EnvRedisPassword, &cfg.VerifierStore.Redis.Password},
	}

	for _, o := range overrides {
		if v, ok := lookupEnv(o.name); ok && strings.TrimSpace(v) != "" {
			*o.target = strings.TrimSpace(v)
			logging.Debug("ConfigLoader", "Applied override from %s", o.name)
		}
	}
}

// yamlErrorLine extracts the first "line N" reference of a yaml.v3 error.
func yamlErrorLine(err error) int {
	var typeErr *yaml.TypeError
	msg := err.Error()
	if errors.As(err, &typeErr) && len(typeErr.Errors) > 0 {
		msg = typeErr.Errors[0]
	}
	var line int
	if i := strings.Index(msg, "line "); i >= 0 {
		_, _ = fmt.Sscanf(msg[i:], "line %d", &line)
	}
	return line
}
