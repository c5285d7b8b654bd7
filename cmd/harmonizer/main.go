// Command harmonizer transcribes a recorded speech sample, rewrites it into a
// chosen language and tone, and speaks the result with a chosen voice.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/harmonizer/internal/config"
	"github.com/MrWong99/harmonizer/internal/harmonizer"
	"github.com/MrWong99/harmonizer/internal/health"
	"github.com/MrWong99/harmonizer/internal/menu"
	"github.com/MrWong99/harmonizer/internal/observe"
	"github.com/MrWong99/harmonizer/internal/playback"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout))
}

// cliFlags holds the parsed command line.
type cliFlags struct {
	configPath string
	envFile    string
	input      string
	output     string
	language   string
	tone       string
	voice      string
	loop       bool
	noPlay     bool
	listVoices bool

	// set records which flags were given explicitly.
	set map[string]bool
}

func parseFlags(args []string, errOut io.Writer) (*cliFlags, error) {
	f := &cliFlags{set: make(map[string]bool)}
	fs := flag.NewFlagSet("harmonizer", flag.ContinueOnError)
	fs.SetOutput(errOut)
	fs.StringVar(&f.configPath, "config", "harmonizer.yaml", "path to the YAML or TOML configuration file")
	fs.StringVar(&f.envFile, "env-file", ".env", "dotenv file with provider credentials")
	fs.StringVar(&f.input, "input", "", "audio sample to harmonize (overrides app.input_path)")
	fs.StringVar(&f.output, "output", "", "where to write the synthesized MP3 (overrides app.output_path)")
	fs.StringVar(&f.language, "language", "", "language menu key; skips the language prompt")
	fs.StringVar(&f.tone, "tone", "", "tone menu number; skips the tone prompt")
	fs.StringVar(&f.voice, "voice", "", "voice menu key; skips the voice prompt")
	fs.BoolVar(&f.loop, "loop", false, "ask to process another sample after each run")
	fs.BoolVar(&f.noPlay, "no-play", false, "write the output file without playing it")
	fs.BoolVar(&f.listVoices, "list-voices", false, "print the voices offered by the TTS provider and exit")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	fs.Visit(func(fl *flag.Flag) { f.set[fl.Name] = true })
	return f, nil
}

// preset returns the menu choices given on the command line.
func (f *cliFlags) preset() menu.Preset {
	return menu.Preset{Language: f.language, Tone: f.tone, Voice: f.voice}
}

// loadConfig reads the config file. A missing file is only an error when the
// path was given explicitly; otherwise the defaults are used.
func loadConfig(f *cliFlags) (*config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if errors.Is(err, os.ErrNotExist) && !f.set["config"] {
		return config.Default(), nil
	}
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyFlags lets command-line values override the config file.
func applyFlags(cfg *config.Config, f *cliFlags) {
	if f.input != "" {
		cfg.App.InputPath = f.input
	}
	if f.output != "" {
		cfg.App.OutputPath = f.output
	}
	if f.set["loop"] {
		cfg.App.Loop = f.loop
	}
	if f.noPlay {
		cfg.Playback.Disabled = true
	}
}

func run(args []string, stdin io.Reader, stdout io.Writer) int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	flags, err := parseFlags(args, os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	// ── Credentials & configuration ───────────────────────────────────────────
	if err := config.LoadEnvFile(flags.envFile, flags.set["env-file"]); err != nil {
		fmt.Fprintf(os.Stderr, "harmonizer: %v\n", err)
		return 1
	}

	cfg, err := loadConfig(flags)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "harmonizer: config file %q not found; copy configs/example.yaml to get started\n", flags.configPath)
		} else {
			fmt.Fprintf(os.Stderr, "harmonizer: %v\n", err)
		}
		return 1
	}
	applyFlags(cfg, flags)

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.App.LogLevel)
	slog.SetDefault(logger)

	slog.Info("harmonizer starting",
		"version", version,
		"config", flags.configPath,
		"input", cfg.App.InputPath,
		"output", cfg.App.OutputPath,
		"log_level", cfg.App.LogLevel,
	)

	// ── Input sample ──────────────────────────────────────────────────────────
	// Checked before telemetry, providers or the player are set up.
	if !flags.listVoices {
		if err := harmonizer.CheckInput(cfg.App.InputPath); err != nil {
			fmt.Fprintf(stdout, "File not found at %s. Exiting.\n", cfg.App.InputPath)
			slog.Debug("input missing", "err", err)
			return 0
		}
	}

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	tel, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceVersion: version})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()
	metrics := observe.DefaultMetrics()

	// ── Providers ─────────────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	providers, err := buildProviders(cfg, reg, os.Getenv, metrics)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}

	if flags.listVoices {
		if err := listVoices(ctx, providers, stdout); err != nil {
			slog.Error("failed to list voices", "err", err)
			return 1
		}
		return 0
	}

	player, err := newPlayer(cfg.Playback)
	if err != nil {
		slog.Error("no audio player available; use -no-play or set playback.command", "err", err)
		return 1
	}

	pipeline := harmonizer.New(providers.STT, providers.LLM, providers.TTS,
		harmonizer.WithInputPath(cfg.App.InputPath),
		harmonizer.WithOutputPath(cfg.App.OutputPath),
		harmonizer.WithPlayer(player),
		harmonizer.WithConsole(stdout),
		harmonizer.WithMetrics(metrics),
		harmonizer.WithProviderNames(providers.STTName, providers.LLMName, providers.TTSName),
	)

	prompter := menu.NewPrompter(stdin, stdout, cfg.MenuCatalog())

	// ── Session + metrics endpoint ────────────────────────────────────────────
	sessionCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(sessionCtx)

	if addr := cfg.Telemetry.MetricsAddr; addr != "" {
		healthz := newHealthHandler(cfg, providers)
		g.Go(func() error {
			return observe.ServeMetrics(gctx, addr, observe.MetricsHandler(tel.Gatherer, metrics, healthz.Register))
		})
	}
	g.Go(func() error {
		defer cancel()
		return session(gctx, pipeline, prompter, flags.preset(), cfg.App.Loop)
	})

	err = g.Wait()
	switch {
	case err == nil:
		return 0
	case errors.Is(err, harmonizer.ErrInputNotFound):
		return 0
	case errors.Is(err, context.Canceled) && ctx.Err() != nil:
		slog.Info("interrupted, stopping")
		return 0
	default:
		slog.Error("harmonization failed", "err", err)
		return 1
	}
}

// session runs the menus and the pipeline once, or repeatedly in loop mode.
func session(ctx context.Context, p *harmonizer.Pipeline, prompter *menu.Prompter, preset menu.Preset, loop bool) error {
	for {
		sel, err := ask(ctx, func() (menu.Selection, error) { return prompter.Select(preset) })
		if err != nil {
			return fmt.Errorf("read selection: %w", err)
		}

		res, err := p.Run(ctx, sel)
		if err != nil {
			return err
		}
		slog.Debug("run complete", "run_id", res.RunID, "bytes", res.BytesWritten)

		if !loop {
			return nil
		}
		again, err := ask(ctx, func() (bool, error) { return prompter.Confirm("Process another sample? [y/N]") })
		if errors.Is(err, menu.ErrNoInput) {
			return nil
		}
		if err != nil {
			return err
		}
		if !again {
			return nil
		}
	}
}

// ask runs a console read on its own goroutine so that an interrupt does not
// wait for the user to press Enter. The abandoned read ends with the process.
func ask[T any](ctx context.Context, read func() (T, error)) (T, error) {
	type answer struct {
		v   T
		err error
	}
	ch := make(chan answer, 1)
	go func() {
		v, err := read()
		ch <- answer{v, err}
	}()
	select {
	case a := <-ch:
		return a.v, a.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// newHealthHandler builds the readiness probes served next to /metrics.
func newHealthHandler(cfg *config.Config, ps *providerSet) *health.Handler {
	chains := make(map[string]health.BreakerStates)
	for stage, p := range map[string]any{"stt": ps.STT, "llm": ps.LLM, "tts": ps.TTS} {
		if c, ok := p.(health.BreakerStates); ok {
			chains[stage] = c
		}
	}
	return health.New(
		health.InputExists(cfg.App.InputPath),
		health.OutputWritable(cfg.App.OutputPath),
		health.ProvidersAvailable(chains),
	)
}

// newPlayer picks the playback backend from the config.
func newPlayer(cfg config.PlaybackConfig) (playback.Player, error) {
	if cfg.Disabled {
		return playback.Nop{}, nil
	}
	cmd, err := playback.New(cfg.Command, cfg.Args)
	if err != nil {
		return nil, err
	}
	slog.Debug("audio player selected", "command", cmd.String())
	return cmd, nil
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
