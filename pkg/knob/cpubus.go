// SPDX-License-Identifier: BSD-3-Clause

package knob

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/u-bmc/nodemgr/pkg/peci"
	"github.com/u-bmc/nodemgr/pkg/sensorreading"
)

// RatioKnob writes a single-byte ratio register over the CPU management
// bus — the turbo ratio limit and PROCHOT assertion ratio knobs both
// take this shape.
type RatioKnob struct {
	base
	transport  peci.Transport
	clientAddr uint8
	index      peci.PkgConfigIndex
	param      uint16
	resetValue float64
}

// NewRatioKnob returns a knob writing a one-byte ratio value to index
// on the CPU at clientAddr.
func NewRatioKnob(k Key, transport peci.Transport, clientAddr uint8, index peci.PkgConfigIndex, param uint16, resetValue float64) *RatioKnob {
	return &RatioKnob{base: newBase(k), transport: transport, clientAddr: clientAddr, index: index, param: param, resetValue: resetValue}
}

func (k *RatioKnob) Tick(ctx context.Context, exec *Executor, store *sensorreading.Store) {
	if !store.IsCPUPresent(k.key.Index) {
		k.clearWritten()
		return
	}
	value, ok := k.nextWrite(k.resetValue)
	if !ok {
		return
	}

	exec.Schedule(k.key, func(ctx context.Context) (Result, error) {
		req := peci.WritePkgConfigRequest(k.clientAddr, k.index, k.param, []byte{byte(value)})
		resp, err := k.transport.Do(ctx, req)
		if err != nil {
			return Result{Err: err}, nil
		}
		if !resp.Completion.Ok() {
			return Result{Err: fmt.Errorf("knob: peci completion 0x%02x", resp.Completion)}, nil
		}
		return Result{}, nil
	})
}

// reservedMask16 masks the bits a HWPM preference/bias/override register
// reserves: writes that would set any of them are rejected outright
// rather than sent, so undocumented MSR bits are never touched.
type reservedMask16 uint16

// PreferenceKnob writes a masked 16-bit value to an MSR over the CPU
// management bus — HWPM preference, HWPM bias, and HWPM preference
// override are all this shape, differing only in msr and reservedMask.
type PreferenceKnob struct {
	base
	transport    peci.Transport
	clientAddr   uint8
	core         uint8
	msr          uint16
	reservedMask reservedMask16
	resetValue   float64
}

// NewPreferenceKnob returns a knob writing to msr on core, rejecting any
// value that sets a bit in reservedMask.
func NewPreferenceKnob(k Key, transport peci.Transport, clientAddr, core uint8, msr uint16, reservedMask uint16, resetValue float64) *PreferenceKnob {
	return &PreferenceKnob{base: newBase(k), transport: transport, clientAddr: clientAddr, core: core, msr: msr, reservedMask: reservedMask16(reservedMask), resetValue: resetValue}
}

// Set validates value against the register's width and reserved bits
// before recording it. A value that would touch a reserved bit is a
// caller error and is rejected outright, never queued or retried.
func (k *PreferenceKnob) Set(value float64) error {
	if value < 0 || value > float64(^uint16(0)) || value != float64(uint16(value)) {
		return fmt.Errorf("knob %s: value %v does not fit a 16-bit register", k.key, value)
	}
	if uint16(value)&uint16(k.reservedMask) != 0 {
		return fmt.Errorf("knob %s: value 0x%04x sets reserved bits 0x%04x", k.key, uint16(value), uint16(k.reservedMask))
	}
	return k.base.Set(value)
}

func (k *PreferenceKnob) Tick(ctx context.Context, exec *Executor, store *sensorreading.Store) {
	if !store.IsCPUPresent(k.key.Index) {
		k.clearWritten()
		return
	}
	value, ok := k.nextWrite(k.resetValue)
	if !ok {
		return
	}

	raw := uint16(value)
	exec.Schedule(k.key, func(ctx context.Context) (Result, error) {
		data := make([]byte, 2)
		binary.LittleEndian.PutUint16(data, raw)
		req := peci.WriteIAMSRRequest(k.clientAddr, k.core, k.msr, data)
		resp, err := k.transport.Do(ctx, req)
		if err != nil {
			return Result{Err: err}, nil
		}
		if !resp.Completion.Ok() {
			return Result{Err: fmt.Errorf("knob: peci completion 0x%02x", resp.Completion)}, nil
		}
		return Result{}, nil
	})
}
