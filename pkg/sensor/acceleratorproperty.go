// SPDX-License-Identifier: BSD-3-Clause

package sensor

import (
	"context"

	"github.com/u-bmc/nodemgr/pkg/model"
	"github.com/u-bmc/nodemgr/pkg/provider"
	"github.com/u-bmc/nodemgr/pkg/sensorreading"
)

// AcceleratorPropertySensor reads one property off an accelerator
// entity's last-known snapshot in an AcceleratorProvider.
// Unlike BusPropertySensor it never itself calls the object manager: the
// provider's own background poll/push loop keeps the snapshot current,
// so a tick is a plain map lookup and never blocks.
type AcceleratorPropertySensor struct {
	base
	provider *provider.AcceleratorProvider
	path     string
	property string
	decode   Decode
}

// NewAcceleratorPropertySensor returns a sensor reading property of the
// accelerator entity at path from p's snapshot.
func NewAcceleratorPropertySensor(key sensorreading.Key, p *provider.AcceleratorProvider, path, property string, decode Decode) *AcceleratorPropertySensor {
	return &AcceleratorPropertySensor{base: base{key: key}, provider: p, path: path, property: property, decode: decode}
}

func (s *AcceleratorPropertySensor) Tick(ctx context.Context, exec *Executor) {
	exec.Schedule(s.key, func(ctx context.Context) (Result, error) {
		entity, ok := s.provider.Entity(s.path)
		if !ok {
			return Result{Present: false}, nil
		}

		raw, ok := entity.Properties[s.property]
		if !ok {
			return Result{Present: true, Valid: false}, nil
		}

		value, ok := s.decode(raw)
		return Result{Present: true, Valid: ok, Value: value}, nil
	})
}

// DecodeAcceleratorPowerState decodes a string "on"/"off" property into
// a model.AcceleratorPowerState value.
func DecodeAcceleratorPowerState(raw any) (model.Value, bool) {
	s, ok := raw.(string)
	if !ok {
		return model.Unset, false
	}
	switch s {
	case "on":
		return model.FromAcceleratorPowerState(model.AcceleratorPowerStateOn), true
	case "off":
		return model.FromAcceleratorPowerState(model.AcceleratorPowerStateOff), true
	default:
		return model.Unset, false
	}
}
