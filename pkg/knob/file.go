// SPDX-License-Identifier: BSD-3-Clause

package knob

import (
	"context"
	"strconv"

	"github.com/u-bmc/nodemgr/pkg/hwmon"
	"github.com/u-bmc/nodemgr/pkg/sensorreading"
)

// FileKnob writes a power-limit setpoint to a hwmon-style cap file,
// gated on a power-state sensor being On and the knob's own socket
// being populated before any write is attempted — a RAPL domain with no
// CPU behind it has nothing to cap. The raw integer written is the
// target multiplied by scale (watts to milliwatts for power-cap files),
// clamped to the bounds configured with WithRawBounds; a raw value of 0
// means "no cap" at the hardware level.
type FileKnob struct {
	base
	path       string
	scale      float64 // multiplies the reconciled watt value before writing
	resetValue float64
	gateKey    sensorreading.Key

	minRaw int64
	maxRaw int64
}

// FileKnobOption adjusts optional FileKnob behavior at construction.
type FileKnobOption func(*FileKnob)

// WithRawBounds clamps the raw integer written to the cap file to
// [minRaw, maxRaw]. The reset value bypasses the clamp so a reset can
// always restore the hardware's "no cap" state.
func WithRawBounds(minRaw, maxRaw int64) FileKnobOption {
	return func(k *FileKnob) {
		k.minRaw = minRaw
		k.maxRaw = maxRaw
	}
}

// NewFileKnob returns a knob writing to path, gated on the sensor at
// gateKey reporting a powered-on state. resetValue is written on Reset.
func NewFileKnob(k Key, path string, scale, resetValue float64, gateKey sensorreading.Key, opts ...FileKnobOption) *FileKnob {
	fk := &FileKnob{base: newBase(k), path: path, scale: scale, resetValue: resetValue, gateKey: gateKey}
	for _, opt := range opts {
		opt(fk)
	}
	return fk
}

func (k *FileKnob) Tick(ctx context.Context, exec *Executor, store *sensorreading.Store) {
	if k.path == "" || !store.IsPowerStateOn(k.gateKey.Index) || !store.IsCPUPresent(k.key.Index) {
		k.clearWritten()
		return
	}
	value, ok := k.nextWrite(k.resetValue)
	if !ok {
		return
	}

	raw := int64(value * k.scale)
	if value != k.resetValue && k.maxRaw > k.minRaw {
		if raw < k.minRaw {
			raw = k.minRaw
		}
		if raw > k.maxRaw {
			raw = k.maxRaw
		}
	}

	exec.Schedule(k.key, func(ctx context.Context) (Result, error) {
		if err := hwmon.WriteStringCtx(ctx, k.path, strconv.FormatInt(raw, 10)); err != nil {
			return Result{Err: err}, nil
		}
		return Result{}, nil
	})
}
