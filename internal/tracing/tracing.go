// Package tracing provides OpenTelemetry distributed tracing setup and span
// helpers for the feed service.
package tracing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// Exporter types.
const (
	ExporterOTLPGRPC = "otlp-grpc"
	ExporterOTLPHTTP = "otlp-http"
)

// exporterDialTimeout bounds exporter construction, not span export.
const exporterDialTimeout = 10 * time.Second

// Configuration errors.
var (
	ErrMissingServiceName = errors.New("tracing: service name is required")
	ErrInvalidSampleRate  = errors.New("tracing: sampling rate must be between 0 and 1")
	ErrUnknownExporter    = errors.New("tracing: unknown exporter")
)

// Config holds the configuration for distributed tracing.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Enabled        bool
	Environment    string

	// ExporterType is ExporterOTLPGRPC or ExporterOTLPHTTP (default).
	ExporterType string
	OTLPEndpoint string

	// SamplingRate is the fraction of new root traces to sample (0.0 to 1.0).
	// Requests arriving with a sampled parent are always recorded.
	SamplingRate float64

	// InsecureMode disables TLS for the OTLP connection (dev only).
	InsecureMode bool
}

func (c Config) validate() error {
	if c.ServiceName == "" {
		return ErrMissingServiceName
	}
	if !(c.SamplingRate >= 0 && c.SamplingRate <= 1) {
		return fmt.Errorf("%w: got %v", ErrInvalidSampleRate, c.SamplingRate)
	}
	if _, ok := exporters[c.exporterType()]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownExporter, c.ExporterType)
	}
	return nil
}

func (c Config) exporterType() string {
	if c.ExporterType == "" {
		return ExporterOTLPHTTP
	}
	return c.ExporterType
}

// exporters builds a span exporter per supported type.
var exporters = map[string]func(context.Context, Config) (sdktrace.SpanExporter, error){
	ExporterOTLPHTTP: func(ctx context.Context, cfg Config) (sdktrace.SpanExporter, error) {
		var opts []otlptracehttp.Option
		if cfg.OTLPEndpoint != "" {
			opts = append(opts, otlptracehttp.WithEndpoint(cfg.OTLPEndpoint))
		}
		if cfg.InsecureMode {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		return otlptracehttp.New(ctx, opts...)
	},
	ExporterOTLPGRPC: func(ctx context.Context, cfg Config) (sdktrace.SpanExporter, error) {
		var opts []otlptracegrpc.Option
		if cfg.OTLPEndpoint != "" {
			opts = append(opts, otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint))
		}
		if cfg.InsecureMode {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		return otlptracegrpc.New(ctx, opts...)
	},
}

// Provider owns the SDK tracer provider installed as the global provider.
type Provider struct {
	tp     *sdktrace.TracerProvider
	logger *slog.Logger
}

// NewProvider validates cfg, builds the exporter and installs a global tracer
// provider with W3C trace context propagation. A disabled config returns a
// no-op Provider and leaves the global no-op tracer in place. logger may be nil.
func NewProvider(ctx context.Context, cfg Config, logger *slog.Logger) (*Provider, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if !cfg.Enabled {
		logger.Info("tracing disabled")
		return &Provider{logger: logger}, nil
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			semconv.DeploymentEnvironment(cfg.Environment),
			attribute.String("environment", cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("tracing resource: %w", err)
	}

	dialCtx, cancel := context.WithTimeout(ctx, exporterDialTimeout)
	defer cancel()
	exporter, err := exporters[cfg.exporterType()](dialCtx, cfg)
	if err != nil {
		return nil, fmt.Errorf("tracing exporter %s: %w", cfg.exporterType(), err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(rootSampler(cfg.SamplingRate))),
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.Info("tracing initialized",
		slog.String("exporter", cfg.exporterType()),
		slog.String("endpoint", cfg.OTLPEndpoint),
		slog.Float64("sampling_rate", cfg.SamplingRate),
	)
	return &Provider{tp: tp, logger: logger}, nil
}

// rootSampler picks the sampler for traces that start in this service.
func rootSampler(rate float64) sdktrace.Sampler {
	switch {
	case rate >= 1:
		return sdktrace.AlwaysSample()
	case rate <= 0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.TraceIDRatioBased(rate)
	}
}

// Shutdown flushes pending spans and stops the tracer provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.tp == nil {
		return nil
	}
	if err := p.tp.Shutdown(ctx); err != nil {
		return fmt.Errorf("tracing shutdown: %w", err)
	}
	p.logger.Info("tracer provider stopped")
	return nil
}

// IsEnabled reports whether spans are exported.
func (p *Provider) IsEnabled() bool {
	return p.tp != nil
}
