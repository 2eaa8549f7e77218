// SPDX-License-Identifier: BSD-3-Clause

package log

import "errors"

var (
	// ErrLoggerInitialization indicates a failure during logger initialization.
	ErrLoggerInitialization = errors.New("failed to initialize logger")
	// ErrNATSLogger indicates a failure in the NATS logger adapter.
	ErrNATSLogger = errors.New("NATS logger adapter error")
)
