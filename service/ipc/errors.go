// SPDX-License-Identifier: BSD-3-Clause

package ipc

import "errors"

var (
	// ErrServiceAlreadyStarted indicates Run was called more than once.
	ErrServiceAlreadyStarted = errors.New("ipc service already started")
	// ErrInvalidConfiguration indicates the service configuration is invalid.
	ErrInvalidConfiguration = errors.New("invalid ipc service configuration")
	// ErrServerCreationFailed indicates the embedded NATS server could not be constructed.
	ErrServerCreationFailed = errors.New("failed to create nats server")
	// ErrServerTimeout indicates the server did not become ready within the startup timeout.
	ErrServerTimeout = errors.New("nats server startup timeout")
	// ErrConnectionNotAvailable indicates GetConnProvider was asked for a connection before the server exists.
	ErrConnectionNotAvailable = errors.New("ipc connection not available")
	// ErrServerNotReady indicates the server did not accept connections within the wait period.
	ErrServerNotReady = errors.New("nats server not ready for connections")
	// ErrInProcessConnFailed indicates the in-process connection could not be created.
	ErrInProcessConnFailed = errors.New("failed to create in-process connection")
)
