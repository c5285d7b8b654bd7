package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Format identifies a configuration file syntax.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// Defaults applied by [ApplyDefaults].
const (
	DefaultInputPath  = "audio_samples/accented_input1.mp3"
	DefaultOutputPath = "output.mp3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"stt": {"openai", "deepgram", "whisper"},
	"llm": {"gemini", "openai", "anthropic", "ollama", "deepseek", "mistral", "groq", "llamacpp", "llamafile"},
	"tts": {"elevenlabs", "openai"},
}

// defaultProviders is the stage setup used when a stage is not configured.
var defaultProviders = ProvidersConfig{
	STT: ProviderEntry{Name: "openai", Model: "whisper-1"},
	LLM: ProviderEntry{Name: "gemini", Model: "gemini-1.5-flash"},
	TTS: ProviderEntry{Name: "elevenlabs", Model: "eleven_multilingual_v2"},
}

// Default returns a configuration that reproduces the stock behaviour:
// OpenAI transcription, Gemini rewriting and ElevenLabs synthesis.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills unset fields of cfg in place. A provider stage with an
// empty name is replaced by the default entry as a whole.
func ApplyDefaults(cfg *Config) {
	if cfg.App.LogLevel == "" {
		cfg.App.LogLevel = LogInfo
	}
	if cfg.App.InputPath == "" {
		cfg.App.InputPath = DefaultInputPath
	}
	if cfg.App.OutputPath == "" {
		cfg.App.OutputPath = DefaultOutputPath
	}
	if cfg.Providers.STT.Name == "" {
		cfg.Providers.STT = defaultProviders.STT
	}
	if cfg.Providers.LLM.Name == "" {
		cfg.Providers.LLM = defaultProviders.LLM
	}
	if cfg.Providers.TTS.Name == "" {
		cfg.Providers.TTS = defaultProviders.TTS
	}
}

// FormatFor picks the syntax from the file extension. Anything that is not
// ".toml" is read as YAML.
func FormatFor(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return FormatTOML
	}
	return FormatYAML
}

// Load reads the configuration file at path, applies defaults and validates
// the result. A missing file yields an error matching os.ErrNotExist.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f, FormatFor(path))
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a config in the given format from r, applies
// defaults and validates the result. Unknown fields are rejected.
func LoadFromReader(r io.Reader, format Format) (*Config, error) {
	cfg := &Config{}
	switch format {
	case FormatTOML:
		dec := toml.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(cfg); err != nil {
			var strict *toml.StrictMissingError
			if errors.As(err, &strict) {
				return nil, fmt.Errorf("config: decode toml: %s", strict.String())
			}
			return nil, fmt.Errorf("config: decode toml: %w", err)
		}
	case FormatYAML, "":
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("config: decode yaml: %w", err)
		}
	default:
		return nil, fmt.Errorf("config: unsupported format %q", format)
	}

	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.App.LogLevel != "" && !cfg.App.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("app.log_level %q is invalid; valid values: debug, info, warn, error", cfg.App.LogLevel))
	}

	errs = append(errs, validateEntry("stt", "providers.stt", cfg.Providers.STT)...)
	errs = append(errs, validateEntry("llm", "providers.llm", cfg.Providers.LLM)...)
	errs = append(errs, validateEntry("tts", "providers.tts", cfg.Providers.TTS)...)

	if len(cfg.Playback.Args) > 0 && cfg.Playback.Command == "" {
		errs = append(errs, errors.New("playback.args requires playback.command"))
	}

	if cfg.Catalog != nil {
		if err := cfg.Catalog.Validate(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// validateEntry checks one provider entry and its fallbacks.
func validateEntry(kind, prefix string, e ProviderEntry) []error {
	var errs []error
	if e.Name == "" {
		errs = append(errs, fmt.Errorf("%s.name is required", prefix))
	} else {
		validateProviderName(kind, e.Name)
	}
	if e.APIKey != "" && e.APIKeyEnv != "" {
		errs = append(errs, fmt.Errorf("%s: api_key and api_key_env are mutually exclusive", prefix))
	}
	for i, fb := range e.Fallbacks {
		fbPrefix := fmt.Sprintf("%s.fallbacks[%d]", prefix, i)
		if len(fb.Fallbacks) > 0 {
			errs = append(errs, fmt.Errorf("%s: nested fallbacks are not supported", fbPrefix))
		}
		errs = append(errs, validateEntry(kind, fbPrefix, fb)...)
	}
	return errs
}

// validateProviderName logs a warning if name is not found in the
// [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	known, ok := ValidProviderNames[kind]
	if !ok || slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name, may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
