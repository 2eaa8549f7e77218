// SPDX-License-Identifier: BSD-3-Clause

package hwmon

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

const (
	// DefaultHwmonPath is the default path to hwmon devices in sysfs.
	DefaultHwmonPath = "/sys/class/hwmon"
)

// Unit scales between hwmon's integer attribute units and the canonical
// units readings and knobs are expressed in. Power attributes are
// microwatts, energy attributes are microjoules, and power-cap files
// take milliwatts.
const (
	MicroToUnit = 1e-6
	MilliToUnit = 1e-3
	UnitToMicro = 1e6
	UnitToMilli = 1e3
)

var hwmonDirPattern = regexp.MustCompile(`^hwmon\d+$`)

// ReadStringCtx reads a hwmon attribute file and returns its content
// with surrounding whitespace trimmed.
func ReadStringCtx(ctx context.Context, path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: path cannot be empty", ErrInvalidPath)
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrOperationTimeout, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", mapFileError(err, path)
	}

	return strings.TrimSpace(string(data)), nil
}

// WriteStringCtx writes value to a hwmon attribute file. Power-cap
// files interpret "0" as "no cap".
func WriteStringCtx(ctx context.Context, path, value string) error {
	if path == "" {
		return fmt.Errorf("%w: path cannot be empty", ErrInvalidPath)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrOperationTimeout, err)
	}

	if err := os.WriteFile(path, []byte(value), 0o600); err != nil {
		return mapFileError(err, path)
	}

	return nil
}

// ListDevicesInPathCtx returns the hwmonN device directories below
// hwmonPath, following symlinks the way sysfs lays them out.
func ListDevicesInPathCtx(ctx context.Context, hwmonPath string) ([]string, error) {
	if hwmonPath == "" {
		return nil, fmt.Errorf("%w: hwmon path cannot be empty", ErrInvalidPath)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOperationTimeout, err)
	}

	entries, err := os.ReadDir(hwmonPath)
	if err != nil {
		return nil, mapFileError(err, hwmonPath)
	}

	var devices []string
	for _, entry := range entries {
		if !hwmonDirPattern.MatchString(entry.Name()) {
			continue
		}
		devicePath := filepath.Join(hwmonPath, entry.Name())
		if stat, err := os.Stat(devicePath); err == nil && stat.IsDir() {
			devices = append(devices, devicePath)
		}
	}

	return devices, nil
}

// ListAttributesCtx returns the attribute file names directly inside
// devicePath that match pattern. An empty pattern matches everything.
func ListAttributesCtx(ctx context.Context, devicePath, pattern string) ([]string, error) {
	if devicePath == "" {
		return nil, fmt.Errorf("%w: device path cannot be empty", ErrInvalidPath)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOperationTimeout, err)
	}

	entries, err := os.ReadDir(devicePath)
	if err != nil {
		return nil, mapFileError(err, devicePath)
	}

	var regex *regexp.Regexp
	if pattern != "" {
		regex, err = regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid pattern '%s': %w", ErrInvalidValue, pattern, err)
		}
	}

	var attributes []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if regex == nil || regex.MatchString(entry.Name()) {
			attributes = append(attributes, entry.Name())
		}
	}

	return attributes, nil
}

func mapFileError(err error, path string) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %s", ErrFileNotFound, path)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %s", ErrPermissionDenied, path)
	default:
		return fmt.Errorf("%w: %s: %w", ErrIOFailed, path, err)
	}
}
