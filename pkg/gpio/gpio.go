// SPDX-License-Identifier: BSD-3-Clause

//go:build linux
// +build linux

package gpio

import (
	"errors"
	"fmt"
	"os"

	"github.com/warthog618/go-gpiocdev"
)

// State is the observed level of a line. Unknown covers read errors and
// lines whose driver cannot report a level, and maps to an unavailable
// sensor reading rather than a value.
type State int

const (
	StateLow State = iota
	StateHigh
	StateUnknown
)

func (s State) String() string {
	switch s {
	case StateLow:
		return "low"
	case StateHigh:
		return "high"
	default:
		return "unknown"
	}
}

// RequestLineByNumber requests one line on chip by offset. The platform
// provider enumerates lines by walking chip metadata, so offsets are
// already resolved by the time a request is made.
func RequestLineByNumber(chip string, lineNumber int, opts ...Option) (*gpiocdev.Line, error) {
	if chip == "" {
		return nil, fmt.Errorf("%w: chip path cannot be empty", ErrInvalidValue)
	}
	if lineNumber < 0 {
		return nil, fmt.Errorf("%w: line number cannot be negative", ErrInvalidValue)
	}

	defaultOpts := []gpiocdev.LineReqOption{gpiocdev.WithConsumer("nodemgr")}
	gpiocdevOpts := append(defaultOpts, convertOptions(opts)...)

	line, err := gpiocdev.RequestLine(chip, lineNumber, gpiocdevOpts...)
	if err != nil {
		return nil, mapGpiocdevError(err, fmt.Sprintf("request line %d from chip '%s'", lineNumber, chip))
	}

	return line, nil
}

// ReadState reads a requested line's current level.
func ReadState(line *gpiocdev.Line) State {
	v, err := line.Value()
	if err != nil {
		return StateUnknown
	}
	switch v {
	case 0:
		return StateLow
	case 1:
		return StateHigh
	default:
		return StateUnknown
	}
}

func mapGpiocdevError(err error, details string) error {
	switch {
	case errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("%w: %s: %w", ErrLineNotFound, details, err)
	case errors.Is(err, os.ErrPermission):
		return fmt.Errorf("%w: %s: %w", ErrAccessDenied, details, err)
	case errors.Is(err, gpiocdev.ErrClosed):
		return fmt.Errorf("%w: %s: %w", ErrLineClosed, details, err)
	default:
		return fmt.Errorf("%w: %s: %w", ErrOperationFailed, details, err)
	}
}
