// SPDX-License-Identifier: BSD-3-Clause

// Package reading implements the Reading Set: the fused, logical
// observables consumers outside the core subscribe to. Every Reading
// fuses one or more sensorreading.SensorReading entities on each tick
// and reports a binary available/unavailable event stream to its
// subscribers, de-duplicated against the last event sent. A one-shot
// 20-second startup window quiets the very first unavailable event so a
// platform still discovering its sensors doesn't open with a storm of
// missing-reading noise; after the first event, transitions report on
// the tick they happen.
package reading
