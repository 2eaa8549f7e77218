// SPDX-License-Identifier: BSD-3-Clause

// Package sensorreading implements the Sensor Reading Store: one
// SensorReading entity per (sensor kind, device index) key, each backed
// by a small state machine that tracks whether the underlying hardware
// is present and producing valid data, and fans out the resulting events
// to whatever Readings and Knobs subscribed to it.
package sensorreading
