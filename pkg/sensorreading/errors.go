// SPDX-License-Identifier: BSD-3-Clause

package sensorreading

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidKey    = errors.New("sensorreading: device index AllDevices is not a valid storage key")
	ErrAlreadyExists = errors.New("sensorreading: entity already exists")
)

func errInvalidKey(key Key) error {
	return fmt.Errorf("%w: %s", ErrInvalidKey, key)
}

func errAlreadyExists(key Key) error {
	return fmt.Errorf("%w: %s", ErrAlreadyExists, key)
}
