// SPDX-License-Identifier: BSD-3-Clause

// Package telemetry wires the OpenTelemetry SDK for the node manager:
// trace, metric, and log providers, and the propagator that lets a
// façade request's span continue the caller's trace. The services span
// their Run and each façade request; the device-manager tick and the
// async executors are not traced and record no metrics.
//
// Setup installs the configured providers globally and returns the
// shutdown hook:
//
//	shutdown, err := telemetry.Setup(ctx,
//		telemetry.WithServiceName("nodemgr"),
//		telemetry.WithOTLPgRPC("collector:4317"),
//	)
//	if err != nil {
//		return err
//	}
//	defer shutdown(context.Background())
//
// With no exporter configured the default is NoOp: spans still exist
// and propagate across NATS requests (GetCtxFromReq), but nothing
// leaves the process. That keeps the BMC's steady-state overhead at
// effectively zero until a collector endpoint is deployed.
package telemetry
