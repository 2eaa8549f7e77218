// SPDX-License-Identifier: BSD-3-Clause

package state

import "errors"

var (
	// ErrInvalidConfig indicates that the state machine configuration is invalid.
	ErrInvalidConfig = errors.New("invalid state machine configuration")
	// ErrInvalidTrigger indicates that the specified trigger is not valid for the current state.
	ErrInvalidTrigger = errors.New("invalid trigger")
	// ErrInvalidTransition indicates that the requested state transition is not allowed.
	ErrInvalidTransition = errors.New("invalid state transition")
	// ErrNotStarted indicates that a trigger was fired before Start.
	ErrNotStarted = errors.New("state machine not started")
)
