// SPDX-License-Identifier: BSD-3-Clause

// Package i2c provides the raw Linux i2c-dev transactions the node
// manager's CPU-management-bus transport rides on. Frames travel as
// plain block writes and reads against /dev/i2c-N character devices:
// the caller selects the slave address, writes the command byte plus
// request payload, and reads the completion code plus response payload
// back.
//
//	if err := i2c.WriteBlock("/dev/i2c-4", 0x30, cmd, payload); err != nil {
//		return err
//	}
//	raw, err := i2c.ReadBlock("/dev/i2c-4", 0x30, cmd, respLen+1)
//
// Each call opens the device, performs one transaction, and closes it
// again, so no descriptor is shared between calls and no descriptor
// cache is kept here.
//
// All functions are safe for concurrent use on distinct devices. Errors
// wrap the sentinel values in errors.go so callers can errors.Is on the
// failure class without parsing message text.
package i2c
