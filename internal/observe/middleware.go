package observe

import (
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// unmatchedRoute labels requests that no registered route serves.
const unmatchedRoute = "unmatched"

// statusWriter remembers the status code written by the handler.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// instrument serves mux and records every request against the route pattern
// that matched it ("GET /metrics", "GET /readyz", ...). Requests for unknown
// paths share the "unmatched" route so the label set stays bounded no matter
// what a scanner asks for.
//
// Each request gets a server span, an X-Correlation-ID response header
// carrying its trace ID, and one sample in [Metrics.HTTPRequestDuration].
func instrument(m *Metrics, mux *http.ServeMux) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		_, route := mux.Handler(r)
		if route == "" {
			route = unmatchedRoute
		}

		ctx, span := StartSpan(r.Context(), "telemetry "+route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				semconv.HTTPRequestMethodKey.String(r.Method),
				semconv.HTTPRoute(route),
			),
		)
		defer span.End()

		if cid := CorrelationID(ctx); cid != "" {
			w.Header().Set("X-Correlation-ID", cid)
		}

		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		mux.ServeHTTP(sw, r.WithContext(ctx))

		elapsed := time.Since(start)
		span.SetAttributes(semconv.HTTPResponseStatusCode(sw.status))
		m.HTTPRequestDuration.Record(ctx, elapsed.Seconds(),
			metric.WithAttributes(
				attribute.String("route", route),
				attribute.String("status", strconv.Itoa(sw.status)),
			),
		)

		// Scrapers poll every few seconds.
		Logger(ctx).Debug("telemetry request served",
			"route", route,
			"path", r.URL.Path,
			"status", sw.status,
			"duration", elapsed,
		)
	})
}
