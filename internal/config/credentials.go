package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
)

// PlaceholderAPIKey is used when no credential can be found. Requests made
// with it fail at the provider, which keeps startup working for local
// experiments with a single missing key.
const PlaceholderAPIKey = "YOUR_API_KEY"

// KeySource reports where a resolved API key came from.
type KeySource string

const (
	KeyFromConfig  KeySource = "config"
	KeyFromEnv     KeySource = "env"
	KeyPlaceholder KeySource = "placeholder"
	KeyNotRequired KeySource = "none"
)

// DefaultAPIKeyEnv maps provider names to the environment variable read when
// an entry sets neither api_key nor api_key_env. Providers absent from the
// map (local servers) need no key.
var DefaultAPIKeyEnv = map[string]string{
	"openai":     "OPENAI_API_KEY",
	"deepgram":   "DEEPGRAM_API_KEY",
	"gemini":     "GOOGLE_API_KEY",
	"anthropic":  "ANTHROPIC_API_KEY",
	"deepseek":   "DEEPSEEK_API_KEY",
	"mistral":    "MISTRAL_API_KEY",
	"groq":       "GROQ_API_KEY",
	"elevenlabs": "ELEVENLABS_API_KEY",
}

// ResolveAPIKey returns the credential for e: the explicit api_key, then the
// environment variable (api_key_env or the provider default), then
// [PlaceholderAPIKey]. getenv is usually os.Getenv.
func (e ProviderEntry) ResolveAPIKey(getenv func(string) string) (string, KeySource) {
	if e.APIKey != "" {
		return e.APIKey, KeyFromConfig
	}
	envName := e.APIKeyEnv
	if envName == "" {
		envName = DefaultAPIKeyEnv[e.Name]
	}
	if envName == "" {
		return "", KeyNotRequired
	}
	if v := getenv(envName); v != "" {
		return v, KeyFromEnv
	}
	return PlaceholderAPIKey, KeyPlaceholder
}

// KeyEnvName returns the environment variable consulted for e, or "".
func (e ProviderEntry) KeyEnvName() string {
	if e.APIKeyEnv != "" {
		return e.APIKeyEnv
	}
	return DefaultAPIKeyEnv[e.Name]
}

// LoadEnvFile loads KEY=VALUE pairs from path into the process environment
// without overriding variables that are already set. A missing file is only
// an error when required is true.
func LoadEnvFile(path string, required bool) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if !required && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: load env file %q: %w", path, err)
	}
	return nil
}
