// SPDX-License-Identifier: BSD-3-Clause

package hwmon

import "errors"

var (
	// ErrInvalidPath indicates an empty or malformed attribute path.
	ErrInvalidPath = errors.New("invalid hwmon path")
	// ErrInvalidValue indicates a malformed attribute pattern or value.
	ErrInvalidValue = errors.New("invalid hwmon value")
	// ErrFileNotFound indicates the attribute file does not exist.
	ErrFileNotFound = errors.New("hwmon file not found")
	// ErrPermissionDenied indicates the attribute file is not accessible.
	ErrPermissionDenied = errors.New("hwmon permission denied")
	// ErrIOFailed indicates an underlying read or write error.
	ErrIOFailed = errors.New("hwmon I/O failed")
	// ErrOperationTimeout indicates the context expired before the operation ran.
	ErrOperationTimeout = errors.New("hwmon operation timed out")
)
