package harmonizer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/MrWong99/harmonizer/internal/observe"
	"github.com/MrWong99/harmonizer/pkg/audio"
	"github.com/MrWong99/harmonizer/pkg/provider/llm"
	"github.com/MrWong99/harmonizer/pkg/provider/stt"
	"github.com/MrWong99/harmonizer/pkg/types"
)

// Messages returned by [Pipeline.Adapt] instead of a rewrite.
const (
	adaptErrorPrefix = "Error from text generation: "
	NoUsableContent  = "Text generation returned no usable content."
)

// promptTemplate is filled with language, tone, language and the transcript.
const promptTemplate = "Translate and rewrite the following English sentence into %s using a %s tone. " +
	"Preserve the core message, make sure that only the translation is generated nothing else " +
	"and make it sound natural for a native %s speaker:\n\n%s"

// BuildPrompt returns the rewrite instruction for text.
func BuildPrompt(text, language, tone string) string {
	return fmt.Sprintf(promptTemplate, language, tone, language, text)
}

// AdaptError formats a text generation failure the way [Pipeline.Adapt]
// reports it.
func AdaptError(err error) string {
	return adaptErrorPrefix + err.Error()
}

// Transcribe reads the sample at path and returns the recognised text.
// languageCode is an ISO-639-1 hint; empty lets the provider detect it.
func (h *Pipeline) Transcribe(ctx context.Context, path, languageCode string) (text string, err error) {
	ctx, end := h.stage(ctx, observe.StageTranscribe, h.sttName, "stt",
		attribute.String("language", languageCode))
	defer func() { end(err) }()

	sample, err := audio.ReadSample(path)
	if err != nil {
		return "", fmt.Errorf("harmonizer: transcribe: %w", err)
	}

	tr, err := h.stt.Transcribe(ctx, stt.Request{
		Audio:       sample.Data,
		Filename:    sample.Filename,
		ContentType: sample.ContentType,
		Language:    languageCode,
	})
	if err != nil {
		return "", fmt.Errorf("harmonizer: transcribe %s: %w", path, err)
	}

	observe.Logger(ctx).Debug("transcription received",
		"chars", len(tr.Text),
		"confidence", tr.Confidence,
		"language", tr.Language,
	)
	return tr.Text, nil
}

// Adapt rewrites text into language with the given tone.
//
// Adapt never fails: a provider error yields "Error from text generation:
// <err>" and an empty answer yields [NoUsableContent]. Both are returned as
// the adapted text and logged.
func (h *Pipeline) Adapt(ctx context.Context, text, language, tone string) string {
	var err error
	ctx, end := h.stage(ctx, observe.StageAdapt, h.llmName, "llm",
		attribute.String("language", language),
		attribute.String("tone", tone),
	)
	defer func() { end(err) }()

	req := llm.CompletionRequest{
		Messages: []types.Message{{Role: "user", Content: BuildPrompt(text, language, tone)}},
	}

	h.printf("\nSending prompt to text generation...\n")
	var out string
	if h.llm.Capabilities().SupportsStreaming {
		out, err = h.streamCompletion(ctx, req)
	} else {
		var resp *llm.CompletionResponse
		resp, err = h.llm.Complete(ctx, req)
		if err == nil && resp != nil {
			out = resp.Content
		}
	}

	log := observe.Logger(ctx)
	if err != nil {
		log.Error("text generation failed", "provider", h.llmName, "err", err)
		return AdaptError(err)
	}
	out = strings.TrimSpace(out)
	if out == "" {
		err = errors.New("empty completion")
		log.Warn("text generation returned no content", "provider", h.llmName)
		return NoUsableContent
	}
	h.printf("Adapted response received.\n")
	return out
}

// streamCompletion concatenates the text of every chunk.
func (h *Pipeline) streamCompletion(ctx context.Context, req llm.CompletionRequest) (string, error) {
	ch, err := h.llm.StreamCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for chunk := range ch {
		if chunk.FinishReason == llm.FinishReasonError {
			return "", errors.New(chunk.Text)
		}
		sb.WriteString(chunk.Text)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// GenerateAndPlay synthesizes text with voiceID, writes the audio stream to
// the output path and plays the file. It returns the number of bytes written.
func (h *Pipeline) GenerateAndPlay(ctx context.Context, text, voiceID string) (n int64, err error) {
	h.printf("\nGenerating audio with voice ID %s...\n", voiceID)

	synthCtx, end := h.stage(ctx, observe.StageSynthesize, h.ttsName, "tts",
		attribute.String("voice.id", voiceID))
	n, err = h.synthesize(synthCtx, text, voiceID)
	end(err)
	if err != nil {
		return n, err
	}
	h.metrics.RecordAudioBytes(ctx, n)
	h.printf("Audio saved to %s\n", h.outputPath)

	playCtx, span := observe.StartSpan(ctx, "harmonizer.playback")
	defer span.End()
	if err := h.player.Play(playCtx, h.outputPath); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return n, fmt.Errorf("harmonizer: play %s: %w", h.outputPath, err)
	}
	return n, nil
}

func (h *Pipeline) synthesize(ctx context.Context, text, voiceID string) (int64, error) {
	voice := types.VoiceProfile{ID: voiceID, Provider: h.ttsName}
	stream, err := h.tts.Synthesize(ctx, text, voice)
	if err != nil {
		return 0, fmt.Errorf("harmonizer: synthesize: %w", err)
	}
	defer stream.Close()

	n, err := audio.WriteFile(h.outputPath, stream)
	if err != nil {
		return n, fmt.Errorf("harmonizer: save audio: %w", err)
	}
	return n, nil
}

// stage opens a span for one provider call and returns a function that
// records its outcome: duration histogram, request counter, error counter
// and span status.
func (h *Pipeline) stage(ctx context.Context, stage, provider, kind string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	attrs = append(attrs,
		attribute.String("provider", provider),
		attribute.String("stage", stage),
	)
	ctx, span := observe.StartSpan(ctx, "harmonizer."+stage, trace.WithAttributes(attrs...))
	start := time.Now()

	return ctx, func(err error) {
		elapsed := time.Since(start)
		h.metrics.RecordStage(ctx, stage, elapsed)
		status := observe.StatusOK
		if err != nil {
			status = observe.StatusError
			h.metrics.RecordProviderError(ctx, provider, kind)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		h.metrics.RecordProviderRequest(ctx, provider, kind, status)
		observe.Logger(ctx).Debug("stage finished",
			"stage", stage,
			"provider", provider,
			"duration", elapsed,
			"status", status,
		)
		span.End()
	}
}
