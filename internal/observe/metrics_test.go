package observe

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// newTestMetrics returns a Metrics instance backed by a ManualReader for
// programmatic metric inspection.
func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

// collect gathers all metric data from the reader.
func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

// findMetric searches for a metric by name across all scope metrics.
func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

// sumPoint returns the value of the data point of counter name carrying the
// attribute key=value.
func sumPoint(t *testing.T, rm metricdata.ResourceMetrics, name, key, value string) int64 {
	t.Helper()
	met := findMetric(rm, name)
	if met == nil {
		t.Fatalf("metric %q not found", name)
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("metric %q is not a sum", name)
	}
	for _, dp := range sum.DataPoints {
		if v, ok := dp.Attributes.Value(attribute.Key(key)); ok && v.AsString() == value {
			return dp.Value
		}
	}
	t.Fatalf("metric %q: data point with %s=%s not found", name, key, value)
	return 0
}

func TestNewMetrics_CreatesWithoutError(t *testing.T) {
	m, _ := newTestMetrics(t)
	if m == nil {
		t.Fatal("NewMetrics returned nil")
	}
}

func TestRecordStage(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	for _, stage := range []string{StageTranscribe, StageAdapt, StageSynthesize} {
		m.RecordStage(ctx, stage, 120*time.Millisecond)
		m.RecordStage(ctx, stage, 2*time.Second)
	}
	// Not a timed stage; must not panic or record anywhere.
	m.RecordStage(ctx, StagePlayback, time.Second)

	rm := collect(t, reader)

	for _, name := range []string{
		"harmonizer.stt.duration",
		"harmonizer.llm.duration",
		"harmonizer.tts.duration",
	} {
		t.Run(name, func(t *testing.T) {
			met := findMetric(rm, name)
			if met == nil {
				t.Fatalf("metric %q not found", name)
			}
			hist, ok := met.Data.(metricdata.Histogram[float64])
			if !ok {
				t.Fatalf("metric %q is not a histogram", name)
			}
			if len(hist.DataPoints) == 0 {
				t.Fatalf("metric %q has no data points", name)
			}
			if got := hist.DataPoints[0].Count; got != 2 {
				t.Errorf("sample count = %d, want 2", got)
			}
		})
	}
}

func TestCounterIncrement(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordProviderRequest(ctx, "gemini", "llm", StatusOK)
	m.RecordProviderRequest(ctx, "gemini", "llm", StatusOK)
	m.RecordProviderRequest(ctx, "gemini", "llm", StatusError)

	rm := collect(t, reader)
	if got := sumPoint(t, rm, "harmonizer.provider.requests", "status", StatusOK); got != 2 {
		t.Errorf("ok requests = %d, want 2", got)
	}
	if got := sumPoint(t, rm, "harmonizer.provider.requests", "status", StatusError); got != 1 {
		t.Errorf("error requests = %d, want 1", got)
	}
}

func TestProviderErrorsCounter(t *testing.T) {
	m, reader := newTestMetrics(t)
	m.RecordProviderError(context.Background(), "elevenlabs", "tts")

	rm := collect(t, reader)
	if got := sumPoint(t, rm, "harmonizer.provider.errors", "provider", "elevenlabs"); got != 1 {
		t.Errorf("counter value = %d, want 1", got)
	}
}

func TestRecordRun(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordRun(ctx, StatusOK, 3*time.Second)
	m.RecordRun(ctx, StatusError, time.Second)
	m.RecordRun(ctx, StatusOK, 4*time.Second)

	rm := collect(t, reader)
	if got := sumPoint(t, rm, "harmonizer.runs", "status", StatusOK); got != 2 {
		t.Errorf("ok runs = %d, want 2", got)
	}
	met := findMetric(rm, "harmonizer.run.duration")
	if met == nil {
		t.Fatal("run duration metric not found")
	}
	hist := met.Data.(metricdata.Histogram[float64])
	if got := hist.DataPoints[0].Count; got != 3 {
		t.Errorf("run duration count = %d, want 3", got)
	}
}

func TestRecordSelectionAndBytes(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordSelection(ctx, "es", "casual")
	m.RecordSelection(ctx, "es", "formal")
	m.RecordAudioBytes(ctx, 2048)
	m.RecordAudioBytes(ctx, 0)

	rm := collect(t, reader)
	if got := sumPoint(t, rm, "harmonizer.selections", "tone", "casual"); got != 1 {
		t.Errorf("casual selections = %d, want 1", got)
	}
	met := findMetric(rm, "harmonizer.audio.bytes")
	if met == nil {
		t.Fatal("audio bytes metric not found")
	}
	sum := met.Data.(metricdata.Sum[int64])
	if got := sum.DataPoints[0].Value; got != 2048 {
		t.Errorf("audio bytes = %d, want 2048", got)
	}
}

func TestHTTPRequestDuration(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.HTTPRequestDuration.Record(ctx, 0.05,
		metric.WithAttributes(
			attribute.String("route", "GET /metrics"),
			attribute.String("status", "200"),
		),
	)

	rm := collect(t, reader)
	met := findMetric(rm, "harmonizer.http.request.duration")
	if met == nil {
		t.Fatal("metric not found")
	}
	hist, ok := met.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatal("metric is not a histogram")
	}
	if len(hist.DataPoints) == 0 {
		t.Fatal("no data points")
	}
	if got := hist.DataPoints[0].Count; got != 1 {
		t.Errorf("sample count = %d, want 1", got)
	}
}

func TestDefaultMetrics_ReturnsSameInstance(t *testing.T) {
	a := DefaultMetrics()
	b := DefaultMetrics()
	if a != b {
		t.Error("DefaultMetrics returned different pointers")
	}
}
