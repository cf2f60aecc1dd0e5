package traces

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Configuration for the OTLP trace exporter. Tracing stays disabled
// when the endpoint is empty.
type Configuration struct {
	Endpoint string
	Insecure bool
}

type Tracer struct {
	logger   *slog.Logger
	provider *sdktrace.TracerProvider
}

// New configures the global tracer provider with an OTLP/HTTP exporter.
// It returns a nil Tracer when tracing is disabled.
func New(ctx context.Context, logger *slog.Logger, config Configuration) (*Tracer, error) {
	if config.Endpoint == "" {
		return nil, nil
	}
	options := []otlptracehttp.Option{otlptracehttp.WithEndpoint(config.Endpoint)}
	if config.Insecure {
		options = append(options, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptracehttp.New(ctx, options...)
	if err != nil {
		return nil, fmt.Errorf("fail to create the OTLP trace exporter: %w", err)
	}
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName("sloscope"),
		)),
	)
	otel.SetTracerProvider(provider)
	logger.Info(fmt.Sprintf("tracing enabled, exporting to %s", config.Endpoint))
	return &Tracer{logger: logger, provider: provider}, nil
}

// Stop flushes and shuts down the tracer provider.
func (t *Tracer) Stop() error {
	if t == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return t.provider.Shutdown(ctx)
}
