// SPDX-License-Identifier: BSD-3-Clause

// Package hwmon accesses the Linux hardware-monitoring sysfs tree the
// node manager's file-backed sensors and knobs live in. Attribute files
// hold one decimal integer in micro- or milli-units; reads trim and
// return the raw text, and the Micro/Milli scale constants convert to
// the canonical watt and joule units the reading layer publishes.
//
// Discovery walks a configurable root (DefaultHwmonPath in production,
// a temp directory in tests) with ListDevicesInPathCtx and matches
// attribute names per device with ListAttributesCtx; the file provider
// turns those matches into (sensor-kind, device-index) entries.
//
//	devices, err := hwmon.ListDevicesInPathCtx(ctx, hwmon.DefaultHwmonPath)
//	attrs, err := hwmon.ListAttributesCtx(ctx, devices[0], `^power\d+_average$`)
//	raw, err := hwmon.ReadStringCtx(ctx, filepath.Join(devices[0], attrs[0]))
//
// Errors wrap the sentinels in errors.go; a missing file maps to
// ErrFileNotFound so sensors can distinguish an absent backend
// (unavailable) from a present-but-unreadable one (invalid).
package hwmon
