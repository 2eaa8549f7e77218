// SPDX-License-Identifier: BSD-3-Clause

package telemetry

import "time"

// ExporterType selects where generated telemetry goes.
type ExporterType int

const (
	// NoOp generates telemetry (so spans propagate) but exports nothing.
	NoOp ExporterType = iota
	// OTLPHTTP exports via OTLP over HTTP.
	OTLPHTTP
	// OTLPgRPC exports via OTLP over gRPC.
	OTLPgRPC
	// Dual exports via both HTTP and gRPC.
	Dual
)

// Config holds the configuration for the telemetry provider.
type Config struct {
	exporterType   ExporterType
	httpEndpoint   string
	grpcEndpoint   string
	headers        map[string]string
	timeout        time.Duration
	batchTimeout   time.Duration
	serviceName    string
	serviceVersion string
	enableMetrics  bool
	enableTraces   bool
	enableLogs     bool
	insecure       bool
	samplingRatio  float64
}

// DefaultConfig exports nothing: on a BMC the collector endpoint is a
// deployment decision, and a service that finds none configured still
// generates spans so request context propagates across the bus.
func DefaultConfig() *Config {
	return &Config{
		exporterType:   NoOp,
		timeout:        30 * time.Second,
		batchTimeout:   5 * time.Second,
		serviceName:    "nodemgr",
		serviceVersion: "1.0.0",
		enableMetrics:  true,
		enableTraces:   true,
		enableLogs:     true,
		samplingRatio:  1.0,
		headers:        make(map[string]string),
	}
}

// Option modifies the telemetry configuration.
type Option func(*Config)

// WithServiceName sets the service name stamped on every signal.
func WithServiceName(name string) Option {
	return func(c *Config) {
		c.serviceName = name
	}
}

// WithServiceVersion sets the service version resource attribute.
func WithServiceVersion(version string) Option {
	return func(c *Config) {
		c.serviceVersion = version
	}
}

// WithHeaders sets additional headers sent to the OTLP endpoint.
func WithHeaders(headers map[string]string) Option {
	return func(c *Config) {
		c.headers = headers
	}
}

// WithTimeout bounds each export call.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.timeout = timeout
	}
}

// WithBatchTimeout sets how long spans/metrics buffer before export.
func WithBatchTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.batchTimeout = timeout
	}
}

// WithMetrics enables or disables the metrics signal.
func WithMetrics(enabled bool) Option {
	return func(c *Config) {
		c.enableMetrics = enabled
	}
}

// WithTraces enables or disables the traces signal.
func WithTraces(enabled bool) Option {
	return func(c *Config) {
		c.enableTraces = enabled
	}
}

// WithLogs enables or disables the logs signal.
func WithLogs(enabled bool) Option {
	return func(c *Config) {
		c.enableLogs = enabled
	}
}

// WithInsecure allows plaintext connections to the OTLP endpoint.
func WithInsecure(insecure bool) Option {
	return func(c *Config) {
		c.insecure = insecure
	}
}

// WithSamplingRatio sets the trace sampling ratio, clamped to [0, 1].
func WithSamplingRatio(ratio float64) Option {
	return func(c *Config) {
		if ratio < 0.0 {
			ratio = 0.0
		}
		if ratio > 1.0 {
			ratio = 1.0
		}
		c.samplingRatio = ratio
	}
}

// WithOTLPHTTP configures OTLP export over HTTP to endpoint.
func WithOTLPHTTP(endpoint string) Option {
	return func(c *Config) {
		c.exporterType = OTLPHTTP
		c.httpEndpoint = endpoint
	}
}

// WithOTLPgRPC configures OTLP export over gRPC to endpoint.
func WithOTLPgRPC(endpoint string) Option {
	return func(c *Config) {
		c.exporterType = OTLPgRPC
		c.grpcEndpoint = endpoint
	}
}

// WithDualOTLP configures export over both transports at once.
func WithDualOTLP(httpEndpoint, grpcEndpoint string) Option {
	return func(c *Config) {
		c.exporterType = Dual
		c.httpEndpoint = httpEndpoint
		c.grpcEndpoint = grpcEndpoint
	}
}
