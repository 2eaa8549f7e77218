// SPDX-License-Identifier: BSD-3-Clause

// Package model defines the data types shared by every layer of the node
// manager device pipeline: sensor kinds, reading kinds, knob kinds, the
// tagged-union sensor value, device indices, and status/event/health enums.
//
// None of these types carry behavior beyond small, total methods (String,
// Matches, As*); the pipeline logic that interprets them lives in
// pkg/sensorreading, pkg/sensor, pkg/reading, and pkg/knob.
package model
