// Package observe provides application-wide observability primitives for the
// harmonizer: OpenTelemetry metrics, tracing, trace-aware logging and the HTTP
// handler that exposes metrics to Prometheus.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is installed by [InitProvider] so that metrics can be
// scraped via the standard /metrics endpoint served by [MetricsHandler]. A
// package-level default [Metrics] instance ([DefaultMetrics]) is provided for
// convenience; tests should use [NewMetrics] with a custom
// [metric.MeterProvider] to avoid cross-test pollution.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all harmonizer metrics.
const meterName = "github.com/MrWong99/harmonizer"

// Pipeline stage names used as the "stage" attribute.
const (
	StageTranscribe = "transcribe"
	StageAdapt      = "adapt"
	StageSynthesize = "synthesize"
	StagePlayback   = "playback"
)

// Request status values used as the "status" attribute.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// STTDuration tracks speech-to-text transcription latency.
	STTDuration metric.Float64Histogram

	// LLMDuration tracks text adaptation latency.
	LLMDuration metric.Float64Histogram

	// TTSDuration tracks synthesis latency, measured until the output file
	// is fully written.
	TTSDuration metric.Float64Histogram

	// RunDuration tracks the end-to-end latency of one harmonization run.
	RunDuration metric.Float64Histogram

	// --- Counters ---

	// ProviderRequests counts provider API calls. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...), attribute.String("status", ...)
	ProviderRequests metric.Int64Counter

	// ProviderErrors counts provider errors. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...)
	ProviderErrors metric.Int64Counter

	// Runs counts completed harmonization runs. Use with attribute:
	//   attribute.String("status", ...)
	Runs metric.Int64Counter

	// Selections counts menu choices. Use with attributes:
	//   attribute.String("language", ...), attribute.String("tone", ...)
	Selections metric.Int64Counter

	// AudioBytes counts bytes written to output files.
	AudioBytes metric.Int64Counter

	// --- HTTP ---

	// HTTPRequestDuration tracks telemetry endpoint latency. Use with attributes:
	//   attribute.String("route", ...), attribute.String("status", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds). Cloud
// transcription and synthesis of a short sample takes seconds, not
// milliseconds.
var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.STTDuration, err = m.Float64Histogram("harmonizer.stt.duration",
		metric.WithDescription("Latency of speech-to-text transcription."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.LLMDuration, err = m.Float64Histogram("harmonizer.llm.duration",
		metric.WithDescription("Latency of transcript adaptation."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TTSDuration, err = m.Float64Histogram("harmonizer.tts.duration",
		metric.WithDescription("Latency of text-to-speech synthesis including the file write."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.RunDuration, err = m.Float64Histogram("harmonizer.run.duration",
		metric.WithDescription("End-to-end latency of one harmonization run."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.ProviderRequests, err = m.Int64Counter("harmonizer.provider.requests",
		metric.WithDescription("Total provider API requests by provider, kind, and status."),
	); err != nil {
		return nil, err
	}
	if met.ProviderErrors, err = m.Int64Counter("harmonizer.provider.errors",
		metric.WithDescription("Total provider errors by provider and kind."),
	); err != nil {
		return nil, err
	}
	if met.Runs, err = m.Int64Counter("harmonizer.runs",
		metric.WithDescription("Total harmonization runs by status."),
	); err != nil {
		return nil, err
	}
	if met.Selections, err = m.Int64Counter("harmonizer.selections",
		metric.WithDescription("Total menu selections by language and tone."),
	); err != nil {
		return nil, err
	}
	if met.AudioBytes, err = m.Int64Counter("harmonizer.audio.bytes",
		metric.WithDescription("Total bytes of synthesized audio written."),
		metric.WithUnit("By"),
	); err != nil {
		return nil, err
	}

	if met.HTTPRequestDuration, err = m.Float64Histogram("harmonizer.http.request.duration",
		metric.WithDescription("Telemetry endpoint latency by route and status."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Call [InitProvider] first if the instruments should be exported.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordProviderRequest records a provider request counter increment with the
// standard attribute set.
func (m *Metrics) RecordProviderRequest(ctx context.Context, provider, kind, status string) {
	m.ProviderRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
			attribute.String("status", status),
		),
	)
}

// RecordProviderError records a provider error counter increment.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, kind string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
		),
	)
}

// RecordStage records the latency of one pipeline stage. Unknown stages are
// ignored.
func (m *Metrics) RecordStage(ctx context.Context, stage string, d time.Duration) {
	var h metric.Float64Histogram
	switch stage {
	case StageTranscribe:
		h = m.STTDuration
	case StageAdapt:
		h = m.LLMDuration
	case StageSynthesize:
		h = m.TTSDuration
	default:
		return
	}
	h.Record(ctx, d.Seconds())
}

// RecordRun records the outcome and latency of a harmonization run.
func (m *Metrics) RecordRun(ctx context.Context, status string, d time.Duration) {
	m.Runs.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
	m.RunDuration.Record(ctx, d.Seconds())
}

// RecordSelection records the language and tone chosen in the menus.
func (m *Metrics) RecordSelection(ctx context.Context, languageCode, tone string) {
	m.Selections.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("language", languageCode),
			attribute.String("tone", tone),
		),
	)
}

// RecordAudioBytes records the size of a written output file.
func (m *Metrics) RecordAudioBytes(ctx context.Context, n int64) {
	if n <= 0 {
		return
	}
	m.AudioBytes.Add(ctx, n)
}
