// SPDX-License-Identifier: BSD-3-Clause

package peci

import (
	"context"
	"fmt"

	"github.com/u-bmc/nodemgr/pkg/i2c"
)

// Transport sends one PECI Request over the wire and returns the decoded
// Response. Production code uses Bus; tests substitute a fake.
type Transport interface {
	Do(ctx context.Context, req Request) (Response, error)
}

// Bus is the Transport implementation for this platform: PECI frames
// travel as raw SMBus block writes/reads on an I2C adapter, addressed to
// the CPU's PECI client address.
type Bus struct {
	DevicePath string
}

// NewBus returns a Transport bound to the given I2C device node, e.g.
// "/dev/i2c-4".
func NewBus(devicePath string) *Bus {
	return &Bus{DevicePath: devicePath}
}

func (b *Bus) Do(ctx context.Context, req Request) (Response, error) {
	select {
	case <-ctx.Done():
		return Response{}, ctx.Err()
	default:
	}

	frame := encodeFrame(req)
	if len(frame) < 1 {
		return Response{}, fmt.Errorf("peci: empty request frame")
	}

	if err := i2c.WriteBlock(b.DevicePath, req.ClientAddr, frame[0], frame[1:]); err != nil {
		return Response{}, fmt.Errorf("peci: write request to client 0x%02x: %w", req.ClientAddr, err)
	}

	raw, err := i2c.ReadBlock(b.DevicePath, req.ClientAddr, frame[0], req.ReadLen+1)
	if err != nil {
		return Response{}, fmt.Errorf("peci: read response from client 0x%02x: %w", req.ClientAddr, err)
	}
	if len(raw) == 0 {
		return Response{}, fmt.Errorf("peci: empty response from client 0x%02x", req.ClientAddr)
	}

	return Response{
		Completion: CompletionCode(raw[0]),
		Data:       raw[1:],
	}, nil
}

// encodeFrame lays out a Request as the command byte followed by the
// index, little-endian parameter, and any write payload — the fixed
// PECI frame layout for RdPkgConfig/WrPkgConfig.
func encodeFrame(req Request) []byte {
	frame := []byte{byte(req.Cmd), byte(req.Index), byte(req.Param), byte(req.Param >> 8)}
	return append(frame, req.WriteData...)
}
