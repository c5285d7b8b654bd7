package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/MrWong99/harmonizer/internal/config"
	"github.com/MrWong99/harmonizer/internal/observe"
	"github.com/MrWong99/harmonizer/internal/resilience"
	"github.com/MrWong99/harmonizer/pkg/provider/llm"
	"github.com/MrWong99/harmonizer/pkg/provider/llm/anyllm"
	oallm "github.com/MrWong99/harmonizer/pkg/provider/llm/openai"
	"github.com/MrWong99/harmonizer/pkg/provider/stt"
	"github.com/MrWong99/harmonizer/pkg/provider/stt/deepgram"
	oastt "github.com/MrWong99/harmonizer/pkg/provider/stt/openai"
	"github.com/MrWong99/harmonizer/pkg/provider/stt/whisper"
	"github.com/MrWong99/harmonizer/pkg/provider/tts"
	"github.com/MrWong99/harmonizer/pkg/provider/tts/elevenlabs"
	oatts "github.com/MrWong99/harmonizer/pkg/provider/tts/openai"
)

// ── Provider wiring ───────────────────────────────────────────────────────────

// anyllmBackends are the LLM names served through any-llm-go. "openai" has a
// native implementation and is registered separately.
var anyllmBackends = []string{
	"gemini", "anthropic", "ollama", "deepseek", "mistral", "groq", "llamacpp", "llamafile",
}

// registerBuiltinProviders wires all built-in provider factories into reg.
// Factories receive entries whose APIKey has already been resolved.
func registerBuiltinProviders(reg *config.Registry) {
	// ── STT ───────────────────────────────────────────────────────────────────

	reg.RegisterSTT("openai", func(entry config.ProviderEntry) (stt.Provider, error) {
		var opts []oastt.Option
		if entry.Model != "" {
			opts = append(opts, oastt.WithModel(entry.Model))
		}
		if entry.BaseURL != "" {
			opts = append(opts, oastt.WithBaseURL(entry.BaseURL))
		}
		if d := optDuration(entry.Options, "timeout"); d > 0 {
			opts = append(opts, oastt.WithTimeout(d))
		}
		return oastt.New(entry.APIKey, opts...)
	})

	reg.RegisterSTT("deepgram", func(entry config.ProviderEntry) (stt.Provider, error) {
		var opts []deepgram.Option
		if entry.Model != "" {
			opts = append(opts, deepgram.WithModel(entry.Model))
		}
		if lang := optString(entry.Options, "language"); lang != "" {
			opts = append(opts, deepgram.WithLanguage(lang))
		}
		if entry.BaseURL != "" {
			opts = append(opts, deepgram.WithBaseURL(entry.BaseURL))
		}
		return deepgram.New(entry.APIKey, opts...)
	})

	// whisper is a local whisper.cpp server; it uses BaseURL, not an API key.
	reg.RegisterSTT("whisper", func(entry config.ProviderEntry) (stt.Provider, error) {
		var opts []whisper.Option
		if entry.Model != "" {
			opts = append(opts, whisper.WithModel(entry.Model))
		}
		if lang := optString(entry.Options, "language"); lang != "" {
			opts = append(opts, whisper.WithLanguage(lang))
		}
		if d := optDuration(entry.Options, "timeout"); d > 0 {
			opts = append(opts, whisper.WithTimeout(d))
		}
		return whisper.New(entry.BaseURL, opts...)
	})

	// ── LLM ───────────────────────────────────────────────────────────────────

	reg.RegisterLLM("openai", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []oallm.Option
		if entry.BaseURL != "" {
			opts = append(opts, oallm.WithBaseURL(entry.BaseURL))
		}
		if org := optString(entry.Options, "organization"); org != "" {
			opts = append(opts, oallm.WithOrganization(org))
		}
		if d := optDuration(entry.Options, "timeout"); d > 0 {
			opts = append(opts, oallm.WithTimeout(d))
		}
		return oallm.New(entry.APIKey, entry.Model, opts...)
	})

	// The any-llm-go backends share the same pattern: optional APIKey +
	// optional BaseURL. Local servers simply resolve no key.
	for _, providerName := range anyllmBackends {
		reg.RegisterLLM(providerName, func(entry config.ProviderEntry) (llm.Provider, error) {
			var opts []anyllmlib.Option
			if entry.APIKey != "" {
				opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
			}
			if entry.BaseURL != "" {
				opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
			}
			return anyllm.New(providerName, entry.Model, opts...)
		})
	}

	// ── TTS ───────────────────────────────────────────────────────────────────

	reg.RegisterTTS("elevenlabs", func(entry config.ProviderEntry) (tts.Provider, error) {
		var opts []elevenlabs.Option
		if entry.Model != "" {
			opts = append(opts, elevenlabs.WithModel(entry.Model))
		}
		if outputFmt := optString(entry.Options, "output_format"); outputFmt != "" {
			opts = append(opts, elevenlabs.WithOutputFormat(outputFmt))
		}
		if entry.BaseURL != "" {
			opts = append(opts, elevenlabs.WithBaseURL(entry.BaseURL))
		}
		stability, okS := optFloat(entry.Options, "stability")
		similarity, okB := optFloat(entry.Options, "similarity_boost")
		if okS || okB {
			if !okS {
				stability = 0.5
			}
			if !okB {
				similarity = 0.75
			}
			opts = append(opts, elevenlabs.WithVoiceSettings(stability, similarity))
		}
		return elevenlabs.New(entry.APIKey, opts...)
	})

	reg.RegisterTTS("openai", func(entry config.ProviderEntry) (tts.Provider, error) {
		var opts []oatts.Option
		if entry.Model != "" {
			opts = append(opts, oatts.WithModel(entry.Model))
		}
		if entry.BaseURL != "" {
			opts = append(opts, oatts.WithBaseURL(entry.BaseURL))
		}
		if d := optDuration(entry.Options, "timeout"); d > 0 {
			opts = append(opts, oatts.WithTimeout(d))
		}
		return oatts.New(entry.APIKey, opts...)
	})

	for _, kind := range []string{"stt", "llm", "tts"} {
		for _, name := range reg.Names(kind) {
			slog.Debug("registered provider", "kind", kind, "name", name)
		}
	}
}

// providerSet is what the pipeline consumes: one provider per stage and the
// name each is reported under.
type providerSet struct {
	STT stt.Provider
	LLM llm.Provider
	TTS tts.Provider

	STTName string
	LLMName string
	TTSName string
}

// buildProviders instantiates the providers named in cfg. Stages with
// fallbacks are wrapped in the matching resilience type.
func buildProviders(cfg *config.Config, reg *config.Registry, getenv func(string) string, m *observe.Metrics) (*providerSet, error) {
	ps := &providerSet{
		STTName: cfg.Providers.STT.Name,
		LLMName: cfg.Providers.LLM.Name,
		TTSName: cfg.Providers.TTS.Name,
	}

	// STT
	sttP, err := createEntry("stt", cfg.Providers.STT, getenv, reg.CreateSTT)
	if err != nil {
		return nil, err
	}
	if fbs := cfg.Providers.STT.Fallbacks; len(fbs) > 0 {
		group := resilience.NewSTTFallback(sttP, ps.STTName, fallbackConfig("stt", m))
		for _, fb := range fbs {
			p, err := createEntry("stt", fb, getenv, reg.CreateSTT)
			if err != nil {
				return nil, err
			}
			group.AddFallback(fb.Name, p)
		}
		slog.Info("provider fallback chain", "kind", "stt", "order", group.Names())
		sttP = group
	}
	ps.STT = sttP

	// LLM
	llmP, err := createEntry("llm", cfg.Providers.LLM, getenv, reg.CreateLLM)
	if err != nil {
		return nil, err
	}
	if fbs := cfg.Providers.LLM.Fallbacks; len(fbs) > 0 {
		group := resilience.NewLLMFallback(llmP, ps.LLMName, fallbackConfig("llm", m))
		for _, fb := range fbs {
			p, err := createEntry("llm", fb, getenv, reg.CreateLLM)
			if err != nil {
				return nil, err
			}
			group.AddFallback(fb.Name, p)
		}
		slog.Info("provider fallback chain", "kind", "llm", "order", group.Names())
		llmP = group
	}
	ps.LLM = llmP

	// TTS
	ttsP, err := createEntry("tts", cfg.Providers.TTS, getenv, reg.CreateTTS)
	if err != nil {
		return nil, err
	}
	if fbs := cfg.Providers.TTS.Fallbacks; len(fbs) > 0 {
		group := resilience.NewTTSFallback(ttsP, ps.TTSName, fallbackConfig("tts", m))
		for _, fb := range fbs {
			p, err := createEntry("tts", fb, getenv, reg.CreateTTS)
			if err != nil {
				return nil, err
			}
			group.AddFallback(fb.Name, p)
		}
		slog.Info("provider fallback chain", "kind", "tts", "order", group.Names())
		ttsP = group
	}
	ps.TTS = ttsP

	return ps, nil
}

// createEntry resolves the entry's credential and calls create.
func createEntry[P any](kind string, entry config.ProviderEntry, getenv func(string) string, create func(config.ProviderEntry) (P, error)) (P, error) {
	key, src := entry.ResolveAPIKey(getenv)
	switch src {
	case config.KeyPlaceholder:
		slog.Warn("no API key found, using placeholder; requests will be rejected",
			"kind", kind,
			"name", entry.Name,
			"env", entry.KeyEnvName(),
		)
	case config.KeyFromEnv:
		slog.Debug("api key loaded from environment", "kind", kind, "name", entry.Name, "env", entry.KeyEnvName())
	}
	entry.APIKey = key

	p, err := create(entry)
	if err != nil {
		var zero P
		if errors.Is(err, config.ErrProviderNotRegistered) {
			return zero, fmt.Errorf("create %s provider: %w", kind, err)
		}
		return zero, fmt.Errorf("create %s provider %q: %w", kind, entry.Name, err)
	}
	slog.Info("provider created", "kind", kind, "name", entry.Name, "model", entry.Model)
	return p, nil
}

// fallbackConfig counts and logs every failed attempt of a fallback chain.
func fallbackConfig(kind string, m *observe.Metrics) resilience.FallbackConfig {
	return resilience.FallbackConfig{
		OnError: func(name string, err error) {
			m.RecordProviderError(context.Background(), name, kind)
			slog.Warn("provider attempt failed", "kind", kind, "name", name, "err", err)
		},
	}
}

// listVoices prints the voices the TTS provider offers.
func listVoices(ctx context.Context, ps *providerSet, w io.Writer) error {
	voices, err := ps.TTS.ListVoices(ctx)
	if err != nil {
		return err
	}
	if len(voices) == 0 {
		fmt.Fprintf(w, "%s offers no voices\n", ps.TTSName)
		return nil
	}
	for _, v := range voices {
		fmt.Fprintf(w, "%-24s %s\n", v.ID, v.Name)
	}
	return nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// optString extracts a string value from a provider Options map[string]any.
// Returns "" if the map is nil, the key is absent, or the value is not a string.
func optString(opts map[string]any, key string) string {
	if opts == nil {
		return ""
	}
	v, ok := opts[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}

// optDuration parses a Go duration string ("30s") from opts. Invalid or
// missing values yield 0.
func optDuration(opts map[string]any, key string) time.Duration {
	s := optString(opts, key)
	if s == "" {
		return 0
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		slog.Warn("ignoring invalid duration option", "key", key, "value", s, "err", err)
		return 0
	}
	return d
}

// optFloat reads a number from opts. YAML and TOML decode integers and
// floats into different types, so both are accepted.
func optFloat(opts map[string]any, key string) (float64, bool) {
	switch v := opts[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}
