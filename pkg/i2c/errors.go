// SPDX-License-Identifier: BSD-3-Clause

package i2c

import "errors"

var (
	// ErrDeviceOpenFailed indicates the I2C character device could not be opened.
	ErrDeviceOpenFailed = errors.New("failed to open I2C device")
	// ErrSlaveAddressFailed indicates the slave address could not be selected.
	ErrSlaveAddressFailed = errors.New("failed to set I2C slave address")
	// ErrWriteFailed indicates a bus write did not complete.
	ErrWriteFailed = errors.New("I2C write failed")
	// ErrReadFailed indicates a bus read did not complete.
	ErrReadFailed = errors.New("I2C read failed")
)
