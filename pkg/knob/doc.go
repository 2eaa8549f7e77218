// SPDX-License-Identifier: BSD-3-Clause

// Package knob implements the Knob Set: the actuators the device
// manager drives each tick to enforce power and thermal setpoints.
// Every Knob accepts a plain setpoint through Set, compares it against
// its own last-written value on Tick, and writes the difference out
// asynchronously through the shared Executor — never blocking the
// primary tick goroutine. Which setpoint wins when several callers
// compete is the policy layer's concern, not a knob's.
package knob
