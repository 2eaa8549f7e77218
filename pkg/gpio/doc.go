// SPDX-License-Identifier: BSD-3-Clause

// Package gpio wraps github.com/warthog618/go-gpiocdev for the node
// manager's input lines: the platform-prefixed status lines its GPIO
// provider enumerates, the host-reset line, and the latched
// smart-throttle interrupt.
//
//	line, err := gpio.RequestLineByNumber("gpiochip0", 42, gpio.AsInput())
//	if err != nil {
//		return err
//	}
//	defer line.Close()
//	switch gpio.ReadState(line) {
//	case gpio.StateHigh:
//		...
//	}
//
// ReadState folds read errors into StateUnknown so callers map them to
// an unavailable reading instead of branching on error classes; the
// sentinels in errors.go classify request-time failures only.
package gpio
