// SPDX-License-Identifier: BSD-3-Clause

// Package service defines the contract every long-running daemon in
// this repository satisfies: the embedded IPC bus and the node manager
// itself are both run as Services by the operator binary.
package service

import (
	"context"

	"github.com/nats-io/nats.go"
)

// Service is a long-running process. Run blocks until the service
// stops; a non-nil error asks the supervisor to restart it, nil means
// the service completed and should not be restarted.
type Service interface {
	// Name returns the service's unique name on this system.
	Name() string

	// Run starts the service and blocks. ipcConn provides the
	// in-process NATS connection the service communicates over.
	Run(ctx context.Context, ipcConn nats.InProcessConnProvider) error
}
