// SPDX-License-Identifier: BSD-3-Clause

package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"
	oteltrace "go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// Provider owns the OpenTelemetry trace, metric, and log providers for
// one process and registers them globally so every package's
// otel.Tracer call resolves to them.
type Provider struct {
	config        *Config
	traceProvider *trace.TracerProvider
	meterProvider *sdkmetric.MeterProvider
	logProvider   *log.LoggerProvider
	resource      *resource.Resource
}

// NewProvider builds a Provider from opts, wires the configured
// exporters, and installs the result as the process-global providers
// and text-map propagator.
func NewProvider(opts ...Option) (*Provider, error) {
	config := DefaultConfig()
	for _, opt := range opts {
		opt(config)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(config.serviceName),
			semconv.ServiceVersion(config.serviceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("build resource: %w", err)
	}

	p := &Provider{config: config, resource: res}

	if config.enableTraces {
		if err := p.setupTraces(); err != nil {
			return nil, fmt.Errorf("%w: traces: %w", ErrExporterSetupFailed, err)
		}
		otel.SetTracerProvider(p.traceProvider)
	}
	if config.enableMetrics {
		if err := p.setupMetrics(); err != nil {
			return nil, fmt.Errorf("%w: metrics: %w", ErrExporterSetupFailed, err)
		}
		otel.SetMeterProvider(p.meterProvider)
	}
	if config.enableLogs {
		if err := p.setupLogs(); err != nil {
			return nil, fmt.Errorf("%w: logs: %w", ErrExporterSetupFailed, err)
		}
		global.SetLoggerProvider(p.logProvider)
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return p, nil
}

// Tracer returns a tracer from this provider, or a noop tracer when
// the traces signal is disabled.
func (p *Provider) Tracer(name string) oteltrace.Tracer {
	if p.traceProvider == nil {
		return tracenoop.NewTracerProvider().Tracer(name)
	}
	return p.traceProvider.Tracer(name)
}

// Meter returns a meter from this provider, or a noop meter when the
// metrics signal is disabled.
func (p *Provider) Meter(name string) metric.Meter {
	if p.meterProvider == nil {
		return metricnoop.NewMeterProvider().Meter(name)
	}
	return p.meterProvider.Meter(name)
}

// Logger returns the process logger annotated with name. Log records
// flow to the log provider through the slog bridge configured in the
// log package.
func (p *Provider) Logger(name string) *slog.Logger {
	return slog.Default().With("component", name)
}

// Shutdown flushes and stops every configured signal.
func (p *Provider) Shutdown(ctx context.Context) error {
	var errs []error
	if p.traceProvider != nil {
		errs = append(errs, p.traceProvider.Shutdown(ctx))
	}
	if p.meterProvider != nil {
		errs = append(errs, p.meterProvider.Shutdown(ctx))
	}
	if p.logProvider != nil {
		errs = append(errs, p.logProvider.Shutdown(ctx))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", ErrShutdownFailed, err)
	}
	return nil
}

func validateConfig(config *Config) error {
	switch config.exporterType {
	case NoOp:
	case OTLPHTTP:
		if config.httpEndpoint == "" {
			return ErrMissingEndpoint
		}
	case OTLPgRPC:
		if config.grpcEndpoint == "" {
			return ErrMissingEndpoint
		}
	case Dual:
		if config.httpEndpoint == "" || config.grpcEndpoint == "" {
			return ErrMissingEndpoint
		}
	default:
		return ErrInvalidExporterType
	}

	if config.serviceName == "" {
		return fmt.Errorf("service name cannot be empty")
	}
	if config.samplingRatio < 0.0 || config.samplingRatio > 1.0 {
		return fmt.Errorf("sampling ratio must be in [0, 1], got %f", config.samplingRatio)
	}
	return nil
}

func (p *Provider) wantsHTTP() bool {
	return p.config.exporterType == OTLPHTTP || p.config.exporterType == Dual
}

func (p *Provider) wantsGRPC() bool {
	return p.config.exporterType == OTLPgRPC || p.config.exporterType == Dual
}

func (p *Provider) setupTraces() error {
	opts := []trace.TracerProviderOption{
		trace.WithResource(p.resource),
		trace.WithSampler(trace.TraceIDRatioBased(p.config.samplingRatio)),
	}

	if p.wantsHTTP() {
		httpOpts := []otlptracehttp.Option{
			otlptracehttp.WithEndpoint(p.config.httpEndpoint),
			otlptracehttp.WithHeaders(p.config.headers),
			otlptracehttp.WithTimeout(p.config.timeout),
		}
		if p.config.insecure {
			httpOpts = append(httpOpts, otlptracehttp.WithInsecure())
		}
		exporter, err := otlptracehttp.New(context.Background(), httpOpts...)
		if err != nil {
			return err
		}
		opts = append(opts, trace.WithBatcher(exporter, trace.WithBatchTimeout(p.config.batchTimeout)))
	}
	if p.wantsGRPC() {
		grpcOpts := []otlptracegrpc.Option{
			otlptracegrpc.WithEndpoint(p.config.grpcEndpoint),
			otlptracegrpc.WithHeaders(p.config.headers),
			otlptracegrpc.WithTimeout(p.config.timeout),
		}
		if p.config.insecure {
			grpcOpts = append(grpcOpts, otlptracegrpc.WithInsecure())
		}
		exporter, err := otlptracegrpc.New(context.Background(), grpcOpts...)
		if err != nil {
			return err
		}
		opts = append(opts, trace.WithBatcher(exporter, trace.WithBatchTimeout(p.config.batchTimeout)))
	}

	p.traceProvider = trace.NewTracerProvider(opts...)
	return nil
}

func (p *Provider) setupMetrics() error {
	opts := []sdkmetric.Option{sdkmetric.WithResource(p.resource)}

	if p.wantsHTTP() {
		httpOpts := []otlpmetrichttp.Option{
			otlpmetrichttp.WithEndpoint(p.config.httpEndpoint),
			otlpmetrichttp.WithHeaders(p.config.headers),
			otlpmetrichttp.WithTimeout(p.config.timeout),
		}
		if p.config.insecure {
			httpOpts = append(httpOpts, otlpmetrichttp.WithInsecure())
		}
		exporter, err := otlpmetrichttp.New(context.Background(), httpOpts...)
		if err != nil {
			return err
		}
		opts = append(opts, sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(p.config.batchTimeout))))
	}
	if p.wantsGRPC() {
		grpcOpts := []otlpmetricgrpc.Option{
			otlpmetricgrpc.WithEndpoint(p.config.grpcEndpoint),
			otlpmetricgrpc.WithHeaders(p.config.headers),
			otlpmetricgrpc.WithTimeout(p.config.timeout),
		}
		if p.config.insecure {
			grpcOpts = append(grpcOpts, otlpmetricgrpc.WithInsecure())
		}
		exporter, err := otlpmetricgrpc.New(context.Background(), grpcOpts...)
		if err != nil {
			return err
		}
		opts = append(opts, sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(p.config.batchTimeout))))
	}

	p.meterProvider = sdkmetric.NewMeterProvider(opts...)
	return nil
}

func (p *Provider) setupLogs() error {
	opts := []log.LoggerProviderOption{log.WithResource(p.resource)}

	if p.wantsHTTP() {
		httpOpts := []otlploghttp.Option{
			otlploghttp.WithEndpoint(p.config.httpEndpoint),
			otlploghttp.WithHeaders(p.config.headers),
			otlploghttp.WithTimeout(p.config.timeout),
		}
		if p.config.insecure {
			httpOpts = append(httpOpts, otlploghttp.WithInsecure())
		}
		exporter, err := otlploghttp.New(context.Background(), httpOpts...)
		if err != nil {
			return err
		}
		opts = append(opts, log.WithProcessor(log.NewBatchProcessor(exporter)))
	}
	if p.wantsGRPC() {
		grpcOpts := []otlploggrpc.Option{
			otlploggrpc.WithEndpoint(p.config.grpcEndpoint),
			otlploggrpc.WithHeaders(p.config.headers),
			otlploggrpc.WithTimeout(p.config.timeout),
		}
		if p.config.insecure {
			grpcOpts = append(grpcOpts, otlploggrpc.WithInsecure())
		}
		exporter, err := otlploggrpc.New(context.Background(), grpcOpts...)
		if err != nil {
			return err
		}
		opts = append(opts, log.WithProcessor(log.NewBatchProcessor(exporter)))
	}

	p.logProvider = log.NewLoggerProvider(opts...)
	return nil
}
