// SPDX-License-Identifier: BSD-3-Clause

package i2c

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// I2C ioctl commands.
const (
	i2cSlave = 0x0703
	i2cSMBus = 0x0720
)

// SMBus transaction directions and protocols.
const (
	smbusWrite = 0
	smbusQuick = 0
)

// smbusIoctlData is the kernel's i2c_smbus_ioctl_data layout.
type smbusIoctlData struct {
	readWrite uint8
	command   uint8
	size      uint32
	data      uintptr
}

func openSlave(devicePath string, slaveAddr uint8) (*os.File, error) {
	file, err := os.OpenFile(devicePath, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrDeviceOpenFailed, devicePath, err)
	}

	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, file.Fd(), i2cSlave, uintptr(slaveAddr)); errno != 0 {
		file.Close()
		return nil, fmt.Errorf("%w: set slave address 0x%02x on %s: %w", ErrSlaveAddressFailed, slaveAddr, devicePath, errno)
	}

	return file, nil
}

// WriteBlock writes register followed by data to the device at slaveAddr
// in one bus transaction. The node manager uses this to push a composed
// CPU-management request frame onto the side-band bus.
func WriteBlock(devicePath string, slaveAddr uint8, register uint8, data []byte) error {
	file, err := openSlave(devicePath, slaveAddr)
	if err != nil {
		return err
	}
	defer file.Close()

	buf := make([]byte, len(data)+1)
	buf[0] = register
	copy(buf[1:], data)

	if _, err := file.Write(buf); err != nil {
		return fmt.Errorf("%w: write block to register 0x%02x: %w", ErrWriteFailed, register, err)
	}

	return nil
}

// ReadBlock writes register then reads length bytes back from the device
// at slaveAddr. The first byte of a CPU-management response read this
// way is the completion code, followed by the payload.
func ReadBlock(devicePath string, slaveAddr uint8, register uint8, length int) ([]byte, error) {
	file, err := openSlave(devicePath, slaveAddr)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	if _, err := file.Write([]byte{register}); err != nil {
		return nil, fmt.Errorf("%w: write register address 0x%02x: %w", ErrWriteFailed, register, err)
	}

	data := make([]byte, length)
	if _, err := file.Read(data); err != nil {
		return nil, fmt.Errorf("%w: read block from register 0x%02x: %w", ErrReadFailed, register, err)
	}

	return data, nil
}

// DeviceExists probes slaveAddr with an SMBus quick write and reports
// whether anything acknowledged it.
func DeviceExists(devicePath string, slaveAddr uint8) bool {
	file, err := openSlave(devicePath, slaveAddr)
	if err != nil {
		return false
	}
	defer file.Close()

	probe := smbusIoctlData{
		readWrite: smbusWrite,
		command:   0,
		size:      smbusQuick,
		data:      0,
	}

	_, _, errno := unix.Syscall(unix.SYS_IOCTL, file.Fd(), i2cSMBus, uintptr(unsafe.Pointer(&probe)))
	return errno == 0
}
