// Package harmonizer runs the accent harmonization pipeline: transcribe a
// recorded sample, rewrite the transcript into the chosen language and tone,
// synthesize it with the chosen voice, save the MP3 and play it.
//
// The pipeline is strictly sequential. Every stage is timed, counted per
// provider and wrapped in an OpenTelemetry span; every run gets a UUID.
package harmonizer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/MrWong99/harmonizer/internal/menu"
	"github.com/MrWong99/harmonizer/internal/observe"
	"github.com/MrWong99/harmonizer/internal/playback"
	"github.com/MrWong99/harmonizer/pkg/audio"
	"github.com/MrWong99/harmonizer/pkg/provider/llm"
	"github.com/MrWong99/harmonizer/pkg/provider/stt"
	"github.com/MrWong99/harmonizer/pkg/provider/tts"
)

// ErrInputNotFound is returned by [Pipeline.Run] and [Pipeline.CheckInput]
// when the input sample does not exist. No provider is contacted in that case.
var ErrInputNotFound = errors.New("harmonizer: input file not found")

const (
	defaultInputPath  = "audio_samples/accented_input1.mp3"
	defaultOutputPath = "output.mp3"
)

// Result describes one completed run.
type Result struct {
	// RunID identifies the run in logs and traces.
	RunID string

	// Transcript is the recognised text of the input sample.
	Transcript string

	// Adapted is the rewritten text that was synthesized. It may hold one of
	// the text generation failure messages.
	Adapted string

	// OutputPath is where the synthesized audio was written.
	OutputPath string

	// BytesWritten is the size of the output file.
	BytesWritten int64
}

// Pipeline wires one provider per stage. It is safe to call Run repeatedly
// but not concurrently, since runs share the output file.
type Pipeline struct {
	stt    stt.Provider
	llm    llm.Provider
	tts    tts.Provider
	player playback.Player

	sttName string
	llmName string
	ttsName string

	inputPath  string
	outputPath string
	console    io.Writer
	metrics    *observe.Metrics
	newID      func() string
}

// Option is a functional option for configuring a Pipeline during construction.
type Option func(*Pipeline)

// WithPlayer sets the player used after synthesis. Default: [playback.Nop].
func WithPlayer(p playback.Player) Option {
	return func(h *Pipeline) { h.player = p }
}

// WithInputPath sets the sample to harmonize.
// Default: "audio_samples/accented_input1.mp3".
func WithInputPath(path string) Option {
	return func(h *Pipeline) { h.inputPath = path }
}

// WithOutputPath sets where the synthesized MP3 is written. Default: "output.mp3".
func WithOutputPath(path string) Option {
	return func(h *Pipeline) { h.outputPath = path }
}

// WithConsole sets the writer for user-facing progress text. Default: os.Stdout.
func WithConsole(w io.Writer) Option {
	return func(h *Pipeline) { h.console = w }
}

// WithMetrics sets the metric instruments. Default: [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(h *Pipeline) { h.metrics = m }
}

// WithProviderNames sets the provider labels used in metrics and spans.
func WithProviderNames(sttName, llmName, ttsName string) Option {
	return func(h *Pipeline) {
		h.sttName, h.llmName, h.ttsName = sttName, llmName, ttsName
	}
}

// WithRunIDs overrides the run ID generator. Default: random UUIDs.
func WithRunIDs(fn func() string) Option {
	return func(h *Pipeline) { h.newID = fn }
}

// New constructs a Pipeline backed by the given providers.
func New(sttP stt.Provider, llmP llm.Provider, ttsP tts.Provider, opts ...Option) *Pipeline {
	h := &Pipeline{
		stt:        sttP,
		llm:        llmP,
		tts:        ttsP,
		player:     playback.Nop{},
		sttName:    "stt",
		llmName:    "llm",
		ttsName:    "tts",
		inputPath:  defaultInputPath,
		outputPath: defaultOutputPath,
		console:    os.Stdout,
		newID:      func() string { return uuid.NewString() },
	}
	for _, o := range opts {
		o(h)
	}
	if h.metrics == nil {
		h.metrics = observe.DefaultMetrics()
	}
	return h
}

// InputPath returns the configured input sample path.
func (h *Pipeline) InputPath() string { return h.inputPath }

// OutputPath returns the configured output file path.
func (h *Pipeline) OutputPath() string { return h.outputPath }

// CheckInput verifies that the pipeline's input sample exists. The returned
// error wraps [ErrInputNotFound].
func (h *Pipeline) CheckInput() error { return CheckInput(h.inputPath) }

// CheckInput reports whether the sample at path exists, before any pipeline
// or provider is built. The returned error wraps [ErrInputNotFound].
func CheckInput(path string) error {
	if !audio.Exists(path) {
		return fmt.Errorf("%w: %s", ErrInputNotFound, path)
	}
	return nil
}

// Run executes transcription, adaptation, synthesis and playback for sel.
//
// A missing input file prints "File not found at <path>. Exiting." and
// returns an error wrapping [ErrInputNotFound] before any provider call.
// Adaptation failures do not stop the run; their message is synthesized in
// place of the rewrite.
func (h *Pipeline) Run(ctx context.Context, sel menu.Selection) (res *Result, err error) {
	runID := h.newID()
	ctx = observe.WithRunID(ctx, runID)
	ctx, span := observe.StartSpan(ctx, "harmonizer.run",
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.String("language", sel.Language.Code),
			attribute.String("tone", sel.Tone),
			attribute.String("voice.id", sel.Voice.ID),
		),
	)
	start := time.Now()
	defer func() {
		status := observe.StatusOK
		if err != nil {
			status = observe.StatusError
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		h.metrics.RecordRun(ctx, status, time.Since(start))
		span.End()
	}()

	log := observe.Logger(ctx)

	if err := h.CheckInput(); err != nil {
		h.printf("File not found at %s. Exiting.\n", h.inputPath)
		return nil, err
	}
	h.metrics.RecordSelection(ctx, sel.Language.Code, sel.Tone)
	log.Info("harmonization started",
		"input", h.inputPath,
		"language", sel.Language.Name,
		"tone", sel.Tone,
		"voice", sel.Voice.Description,
	)

	h.printf("\nTranscribing audio...\n")
	original, err := h.Transcribe(ctx, h.inputPath, sel.Language.Code)
	if err != nil {
		return nil, err
	}
	h.printf("\nOriginal Transcript:\n%s\n", original)

	adapted := h.Adapt(ctx, original, sel.Language.Name, sel.Tone)
	h.printf("\nAdapted Transcript:\n%s\n", adapted)

	n, err := h.GenerateAndPlay(ctx, adapted, sel.Voice.ID)
	res = &Result{
		RunID:        runID,
		Transcript:   original,
		Adapted:      adapted,
		OutputPath:   h.outputPath,
		BytesWritten: n,
	}
	if err != nil {
		return res, err
	}

	log.Info("harmonization finished",
		"output", h.outputPath,
		"bytes", n,
		"duration", time.Since(start),
	)
	return res, nil
}

// printf writes progress text to the console, ignoring write errors.
func (h *Pipeline) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(h.console, format, args...)
}
