package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestInitTracer(t *testing.T) {
	tests := []struct {
		name        string
		serviceName string
		endpoint    string
	}{
		{"valid configuration", "nestling-api", "localhost:4318"},
		{"empty service name still succeeds", "", "localhost:4318"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			tp, err := InitTracer(ctx, tt.serviceName, tt.endpoint)
			if err != nil {
				t.Fatalf("InitTracer() error = %v", err)
			}
			if tp == nil {
				t.Fatal("InitTracer() returned nil provider")
			}
			if err := Shutdown(ctx, tp); err != nil {
				t.Errorf("Shutdown() error = %v", err)
			}
		})
	}
}

func TestShutdownNilProvider(t *testing.T) {
	if err := Shutdown(context.Background(), nil); err != nil {
		t.Errorf("Shutdown(nil) error = %v", err)
	}
}

// TestTraceContextPropagation verifies incoming traceparent headers continue
// the caller's trace through the mux instrumentation.
func TestTraceContextPropagation(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	r := mux.NewRouter()
	r.Use(otelmux.Middleware("nestling-api"))
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name        string
		traceParent string
		wantTraceID string
	}{
		{
			name: "starts a fresh trace",
		},
		{
			name:        "continues the caller trace",
			traceParent: "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01",
			wantTraceID: "4bf92f3577b34da6a3ce929d0e0e4736",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exporter.Reset()

			req := httptest.NewRequest("GET", "/healthz", nil)
			if tt.traceParent != "" {
				req.Header.Set("traceparent", tt.traceParent)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			spans := exporter.GetSpans()
			if len(spans) != 1 {
				t.Fatalf("recorded %d spans, want 1", len(spans))
			}
			if tt.wantTraceID != "" {
				got := spans[0].SpanContext.TraceID().String()
				if got != tt.wantTraceID {
					t.Errorf("trace ID = %s, want %s", got, tt.wantTraceID)
				}
			}
		})
	}
}
