// Package config provides the configuration schema, loader, credential
// resolution and provider registry for the harmonizer.
package config

import "github.com/MrWong99/harmonizer/internal/menu"

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure.
// It is typically loaded from a YAML or TOML file using [Load].
type Config struct {
	App       AppConfig       `yaml:"app" toml:"app"`
	Providers ProvidersConfig `yaml:"providers" toml:"providers"`
	Playback  PlaybackConfig  `yaml:"playback" toml:"playback"`
	Telemetry TelemetryConfig `yaml:"telemetry" toml:"telemetry"`

	// Catalog overrides the built-in language, tone and voice tables. When
	// nil, [menu.DefaultCatalog] is used.
	Catalog *menu.Catalog `yaml:"catalog" toml:"catalog"`
}

// AppConfig holds the run-level settings.
type AppConfig struct {
	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level" toml:"log_level"`

	// InputPath is the recorded sample to harmonize.
	InputPath string `yaml:"input_path" toml:"input_path"`

	// OutputPath is where the synthesized MP3 is written.
	OutputPath string `yaml:"output_path" toml:"output_path"`

	// Loop asks to process another sample after each run.
	Loop bool `yaml:"loop" toml:"loop"`
}

// ProvidersConfig declares which provider implementation to use for each
// pipeline stage. Each entry selects a named provider registered in the
// [Registry].
type ProvidersConfig struct {
	STT ProviderEntry `yaml:"stt" toml:"stt"`
	LLM ProviderEntry `yaml:"llm" toml:"llm"`
	TTS ProviderEntry `yaml:"tts" toml:"tts"`
}

// ProviderEntry is the common configuration block shared by all provider
// types. The Name field is used to look up the constructor in the [Registry].
type ProviderEntry struct {
	// Name selects the registered provider implementation (e.g., "openai",
	// "deepgram", "gemini").
	Name string `yaml:"name" toml:"name"`

	// APIKey is the authentication key for the provider's API. Prefer
	// APIKeyEnv or the provider's default environment variable.
	APIKey string `yaml:"api_key" toml:"api_key"`

	// APIKeyEnv names the environment variable holding the key. Empty means
	// the provider default (see [DefaultAPIKeyEnv]).
	APIKeyEnv string `yaml:"api_key_env" toml:"api_key_env"`

	// BaseURL overrides the provider's default API endpoint.
	BaseURL string `yaml:"base_url" toml:"base_url"`

	// Model selects a specific model within the provider.
	Model string `yaml:"model" toml:"model"`

	// Options holds provider-specific values not covered by the fields above
	// (e.g., "language", "output_format", "timeout").
	Options map[string]any `yaml:"options" toml:"options"`

	// Fallbacks are tried in order when this provider fails.
	Fallbacks []ProviderEntry `yaml:"fallbacks" toml:"fallbacks"`
}

// PlaybackConfig selects how the synthesized file is played.
type PlaybackConfig struct {
	// Disabled skips playback; the file is still written.
	Disabled bool `yaml:"disabled" toml:"disabled"`

	// Command is the player executable. Empty auto-detects one on PATH.
	Command string `yaml:"command" toml:"command"`

	// Args are passed before the file path. Ignored when Command is empty.
	Args []string `yaml:"args" toml:"args"`
}

// TelemetryConfig controls metrics exposure.
type TelemetryConfig struct {
	// MetricsAddr is the listen address of the Prometheus /metrics endpoint
	// (e.g., ":9464"). Empty disables the endpoint.
	MetricsAddr string `yaml:"metrics_addr" toml:"metrics_addr"`
}

// MenuCatalog returns the configured catalog or the built-in one.
func (c *Config) MenuCatalog() menu.Catalog {
	if c.Catalog != nil {
		return *c.Catalog
	}
	return menu.DefaultCatalog()
}
