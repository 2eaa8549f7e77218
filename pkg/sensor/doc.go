// SPDX-License-Identifier: BSD-3-Clause

// Package sensor implements the Sensor Set: the concrete sensor
// kinds that read one piece of hardware state per tick and publish the
// outcome to a sensorreading.Store entry. Every Sensor is read-only and
// knows nothing about Readings or Knobs; it only observes.
package sensor
