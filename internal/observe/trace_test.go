package observe

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// useTracer installs an in-memory tracer provider as the global one.
func useTracer(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exp := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	orig := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(orig) })
	return exp
}

// captureLogs routes the default slog logger into a buffer for the test.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	orig := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(orig) })
	return &buf
}

func TestStartSpan_StagesNestUnderRun(t *testing.T) {
	exp := useTracer(t)

	ctx, run := StartSpan(context.Background(), "harmonizer.run")
	stageCtx, stage := StartSpan(ctx, "harmonizer.transcribe")
	if CorrelationID(stageCtx) != CorrelationID(ctx) {
		t.Errorf("stage trace %q differs from run trace %q", CorrelationID(stageCtx), CorrelationID(ctx))
	}
	stage.End()
	run.End()

	spans := exp.GetSpans()
	if len(spans) != 2 {
		t.Fatalf("recorded %d spans, want 2", len(spans))
	}
	transcribe, harmonize := spans[0], spans[1]
	if transcribe.Name != "harmonizer.transcribe" || harmonize.Name != "harmonizer.run" {
		t.Fatalf("span names = %q, %q", transcribe.Name, harmonize.Name)
	}
	if transcribe.Parent.SpanID() != harmonize.SpanContext.SpanID() {
		t.Error("transcribe span is not a child of the run span")
	}
}

func TestCorrelationID(t *testing.T) {
	if got := CorrelationID(context.Background()); got != "" {
		t.Errorf("CorrelationID without span = %q, want empty", got)
	}

	useTracer(t)
	ctx, span := StartSpan(context.Background(), "harmonizer.run")
	defer span.End()
	if got, want := CorrelationID(ctx), span.SpanContext().TraceID().String(); got != want {
		t.Errorf("CorrelationID = %q, want %q", got, want)
	}
}

func TestRunID(t *testing.T) {
	ctx := context.Background()
	if got := RunID(ctx); got != "" {
		t.Errorf("RunID(background) = %q, want empty", got)
	}
	ctx = WithRunID(ctx, "run-42")
	if got := RunID(ctx); got != "run-42" {
		t.Errorf("RunID = %q, want run-42", got)
	}
}

func TestLogger(t *testing.T) {
	useTracer(t)

	tests := []struct {
		name    string
		ctx     func() context.Context
		want    []string
		notWant []string
	}{
		{
			name:    "plain context",
			ctx:     context.Background,
			notWant: []string{"run_id", "trace_id", "span_id"},
		},
		{
			name:    "run id only",
			ctx:     func() context.Context { return WithRunID(context.Background(), "run-7") },
			want:    []string{"run_id=run-7"},
			notWant: []string{"trace_id"},
		},
		{
			name: "run inside a stage span",
			ctx: func() context.Context {
				ctx, span := StartSpan(WithRunID(context.Background(), "run-8"), "harmonizer.synthesize")
				span.End()
				return ctx
			},
			want: []string{"run_id=run-8", "trace_id=", "span_id="},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := captureLogs(t)
			Logger(tt.ctx()).Info("stage finished")

			out := buf.String()
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("log line missing %q: %s", w, out)
				}
			}
			for _, nw := range tt.notWant {
				if strings.Contains(out, nw) {
					t.Errorf("log line should not contain %q: %s", nw, out)
				}
			}
		})
	}
}
