// SPDX-License-Identifier: BSD-3-Clause

package telemetry

import "errors"

var (
	// ErrInvalidConfiguration indicates the telemetry configuration is unusable.
	ErrInvalidConfiguration = errors.New("invalid telemetry configuration")
	// ErrInvalidExporterType indicates an unknown ExporterType value.
	ErrInvalidExporterType = errors.New("invalid exporter type")
	// ErrMissingEndpoint indicates an exporter was selected without an endpoint.
	ErrMissingEndpoint = errors.New("missing exporter endpoint")
	// ErrExporterSetupFailed indicates an exporter could not be constructed.
	ErrExporterSetupFailed = errors.New("exporter setup failed")
	// ErrShutdownFailed indicates one or more providers failed to flush on shutdown.
	ErrShutdownFailed = errors.New("telemetry shutdown failed")
)
