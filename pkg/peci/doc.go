// SPDX-License-Identifier: BSD-3-Clause

// Package peci implements the Platform Environment Control Interface
// request/response framing used to read CPU package telemetry and
// capability registers over the platform's management bus.
//
// PECI itself is carried as raw SMBus block transactions on this
// platform: a request frame is written as an I2C block write, the
// completion code and response payload are read back as an I2C block
// read. pkg/peci owns the frame layout and per-CPU-generation command
// dispatch; pkg/i2c owns the underlying ioctl transport.
package peci
