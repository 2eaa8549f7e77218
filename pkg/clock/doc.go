// SPDX-License-Identifier: BSD-3-Clause

// Package clock injects time into the device pipeline so that every
// timeout-driven behavior (reading availability grace, delta-sensor
// elapsed time, discovery period) can be tested without sleeping.
package clock
