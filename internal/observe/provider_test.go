package observe

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

func TestInitProvider_ExposesMetrics(t *testing.T) {
	origMP := otel.GetMeterProvider()
	origTP := otel.GetTracerProvider()
	t.Cleanup(func() {
		otel.SetMeterProvider(origMP)
		otel.SetTracerProvider(origTP)
	})

	ctx := context.Background()
	tel, err := InitProvider(ctx, ProviderConfig{ServiceVersion: "test"})
	if err != nil {
		t.Fatalf("InitProvider: %v", err)
	}
	t.Cleanup(func() { _ = tel.Shutdown(context.Background()) })

	m, err := NewMetrics(otel.GetMeterProvider())
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	m.RecordRun(ctx, StatusOK, 2*time.Second)
	m.RecordProviderRequest(ctx, "openai", "stt", StatusOK)

	srv := httptest.NewServer(MetricsHandler(tel.Gatherer, m))
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	for _, want := range []string{"harmonizer_runs", "harmonizer_provider_requests"} {
		if !strings.Contains(string(body), want) {
			t.Errorf("scrape output missing %q", want)
		}
	}
	if resp.Header.Get("X-Correlation-ID") == "" {
		t.Error("metrics response missing X-Correlation-ID")
	}
}

func TestNewResource(t *testing.T) {
	res, err := newResource(ProviderConfig{ServiceName: "harmonizer", ServiceVersion: "1.2.3"})
	if err != nil {
		t.Fatalf("newResource: %v", err)
	}
	if res.SchemaURL() != semconv.SchemaURL {
		t.Errorf("SchemaURL = %q, want %q", res.SchemaURL(), semconv.SchemaURL)
	}
	want := map[attribute.Key]string{
		semconv.ServiceNameKey:          "harmonizer",
		semconv.ServiceVersionKey:       "1.2.3",
		semconv.TelemetrySDKLanguageKey: "go",
	}
	for k, v := range want {
		got, ok := res.Set().Value(k)
		if !ok || got.AsString() != v {
			t.Errorf("%s = %q (present %v), want %q", k, got.AsString(), ok, v)
		}
	}
}

func TestMetricsHandler_UnknownPath(t *testing.T) {
	m, _ := newTestMetrics(t)
	h := MetricsHandler(prometheus.NewRegistry(), m)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/other", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestMetricsHandler_ExtraRoutes(t *testing.T) {
	m, _ := newTestMetrics(t)
	h := MetricsHandler(prometheus.NewRegistry(), m, func(mux *http.ServeMux) {
		mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, "ok")
		})
	})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Errorf("GET /healthz = %d %q, want 200 \"ok\"", rec.Code, rec.Body.String())
	}
}

func TestServe_StopsOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- serve(ctx, ln, http.NotFoundHandler())
	}()

	resp, err := http.Get("http://" + ln.Addr().String() + "/")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("serve returned %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
}

func TestServeMetrics_BadAddr(t *testing.T) {
	err := ServeMetrics(context.Background(), "not-an-addr", http.NotFoundHandler())
	if err == nil {
		t.Fatal("expected listen error, got nil")
	}
}
