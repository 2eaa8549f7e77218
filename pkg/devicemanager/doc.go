// SPDX-License-Identifier: BSD-3-Clause

// Package devicemanager wires the Sensor Set, Reading Set, and Knob Set
// together into the single tick-driven pipeline the rest of the system
// talks to. One primary goroutine calls Tick in a loop; every
// sensor and knob I/O operation happens off that goroutine through the
// shared async executors, and Tick only ever touches already-completed
// results.
package devicemanager
