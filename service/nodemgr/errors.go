// SPDX-License-Identifier: BSD-3-Clause

package nodemgr

import "errors"

var (
	// ErrServiceAlreadyStarted indicates Run was called more than once.
	ErrServiceAlreadyStarted = errors.New("nodemgr service already started")
	// ErrInvalidConfiguration indicates the service configuration is invalid.
	ErrInvalidConfiguration = errors.New("invalid nodemgr configuration")
	// ErrNATSConnectionFailed indicates the in-process NATS connection failed.
	ErrNATSConnectionFailed = errors.New("failed to connect to NATS")
	// ErrMicroServiceCreationFailed indicates micro.AddService failed.
	ErrMicroServiceCreationFailed = errors.New("failed to create micro service")
	// ErrEndpointRegistrationFailed indicates an endpoint failed to register.
	ErrEndpointRegistrationFailed = errors.New("failed to register endpoint")
	// ErrDeviceManagerInstallFailed indicates device manager installation failed.
	ErrDeviceManagerInstallFailed = errors.New("failed to install device manager")
)
