package tracing

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultServiceName = "market-pulse"
	tracerName         = "market-pulse"
)

// InitTracer installs a global tracer provider exporting over OTLP/gRPC.
// The exporter honours the standard OTEL_EXPORTER_OTLP_* variables; without
// an endpoint spans are recorded but never exported.
func InitTracer(ctx context.Context) (*sdktrace.TracerProvider, trace.Tracer, error) {
	service := strings.TrimSpace(os.Getenv("OTEL_SERVICE_NAME"))
	if service == "" {
		service = defaultServiceName
	}
	res := resource.NewSchemaless(attribute.String("service.name", service))

	opts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	if endpointConfigured() {
		exporter, err := otlptracegrpc.New(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("create otlp exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exporter))
	}

	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	return tp, tp.Tracer(tracerName), nil
}

func endpointConfigured() bool {
	return os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != "" || os.Getenv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT") != ""
}
