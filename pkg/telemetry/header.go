// SPDX-License-Identifier: BSD-3-Clause

package telemetry

import (
	"context"

	"github.com/nats-io/nats.go/micro"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// GetCtxFromReq extracts the caller's trace context from a NATS micro
// request's headers. Facade handlers run under this context so a
// policy-layer span continues into the device layer. With no trace
// headers present it returns a fresh background-derived context.
func GetCtxFromReq(req micro.Request) context.Context {
	return otel.GetTextMapPropagator().Extract(context.Background(), propagation.HeaderCarrier(req.Headers()))
}
