// SPDX-License-Identifier: BSD-3-Clause

package knob

import (
	"context"

	"github.com/u-bmc/nodemgr/pkg/provider"
	"github.com/u-bmc/nodemgr/pkg/sensorreading"
)

// AcceleratorEffecter names one of the four writable properties an
// accelerator power-limit knob actuates over the object service: the
// long-window limit and its tau, and the short-window limit and its
// tau.
type AcceleratorEffecter string

const (
	EffecterPL1    AcceleratorEffecter = "pl1_watts"
	EffecterPL1Tau AcceleratorEffecter = "pl1_tau_seconds"
	EffecterPL2    AcceleratorEffecter = "pl2_watts"
	EffecterPL2Tau AcceleratorEffecter = "pl2_tau_seconds"
)

// AcceleratorKnob writes one accelerator power-limit effecter over the
// object service, gated on the accelerator's power state being On.
type AcceleratorKnob struct {
	base
	om         provider.ObjectManager
	path       string
	effecter   AcceleratorEffecter
	resetValue float64
}

// NewAcceleratorKnob returns a knob that writes effecter on the object
// at path through om, gated on k.Index's accelerator power-state sensor
// being On.
func NewAcceleratorKnob(k Key, om provider.ObjectManager, path string, effecter AcceleratorEffecter, resetValue float64) *AcceleratorKnob {
	return &AcceleratorKnob{base: newBase(k), om: om, path: path, effecter: effecter, resetValue: resetValue}
}

func (k *AcceleratorKnob) Tick(ctx context.Context, exec *Executor, store *sensorreading.Store) {
	if k.path == "" || !store.IsAcceleratorPowerOn(k.key.Index) {
		k.clearWritten()
		return
	}
	value, ok := k.nextWrite(k.resetValue)
	if !ok {
		return
	}

	exec.Schedule(k.key, func(ctx context.Context) (Result, error) {
		if err := k.om.SetProperty(ctx, k.path, string(k.effecter), value); err != nil {
			return Result{Err: err}, nil
		}
		return Result{}, nil
	})
}

// PlatformKnob writes one platform-level property over the object
// service, gated on the host (not accelerator) power state being On and
// on at least the primary socket being populated — the DC platform
// power limit setpoint takes this shape, since it actuates the chassis
// as a whole rather than one accelerator slot.
type PlatformKnob struct {
	base
	om         provider.ObjectManager
	path       string
	property   string
	resetValue float64
}

// NewPlatformKnob returns a knob that writes property on the object at
// path through om, gated on k.Index's host power-state sensor being On.
func NewPlatformKnob(k Key, om provider.ObjectManager, path, property string, resetValue float64) *PlatformKnob {
	return &PlatformKnob{base: newBase(k), om: om, path: path, property: property, resetValue: resetValue}
}

func (k *PlatformKnob) Tick(ctx context.Context, exec *Executor, store *sensorreading.Store) {
	if k.path == "" || !store.IsPowerStateOn(k.key.Index) || !store.IsCPUPresent(k.key.Index) {
		k.clearWritten()
		return
	}
	value, ok := k.nextWrite(k.resetValue)
	if !ok {
		return
	}

	exec.Schedule(k.key, func(ctx context.Context) (Result, error) {
		if err := k.om.SetProperty(ctx, k.path, k.property, value); err != nil {
			return Result{Err: err}, nil
		}
		return Result{}, nil
	})
}
