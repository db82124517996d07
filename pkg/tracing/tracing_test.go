package tracing

import (
	"context"
	"testing"
)

func TestInitTracerWithoutEndpoint(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	t.Setenv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", "")
	t.Setenv("OTEL_SERVICE_NAME", "test-svc")

	tp, tracer, err := InitTracer(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer tp.Shutdown(context.Background())

	_, span := tracer.Start(context.Background(), "probe")
	if !span.SpanContext().IsValid() {
		t.Fatal("expected recording span with valid context")
	}
	span.End()
}
