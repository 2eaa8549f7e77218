// SPDX-License-Identifier: BSD-3-Clause

package sensor

import (
	"context"

	"github.com/u-bmc/nodemgr/pkg/model"
	"github.com/u-bmc/nodemgr/pkg/provider"
	"github.com/u-bmc/nodemgr/pkg/sensorreading"
)

// Decode turns a raw property value into a model.Value, reporting
// whether it decoded to a valid reading.
type Decode func(raw any) (model.Value, bool)

// BusPropertySensor reads one property of one object-manager entity,
// such as the host chassis power state or the platform power state.
type BusPropertySensor struct {
	base
	om       provider.ObjectManager
	path     string
	property string
	decode   Decode
}

// NewBusPropertySensor returns a sensor reading property of the object
// at path through om.
func NewBusPropertySensor(key sensorreading.Key, om provider.ObjectManager, path, property string, decode Decode) *BusPropertySensor {
	return &BusPropertySensor{base: base{key: key}, om: om, path: path, property: property, decode: decode}
}

func (s *BusPropertySensor) Tick(ctx context.Context, exec *Executor) {
	exec.Schedule(s.key, func(ctx context.Context) (Result, error) {
		objects, err := s.om.GetManagedObjects(ctx, s.path)
		if err != nil {
			return Result{Present: false}, nil
		}

		for _, obj := range objects {
			if obj.Path != s.path {
				continue
			}
			raw, ok := obj.Properties[s.property]
			if !ok {
				return Result{Present: true, Valid: false}, nil
			}
			value, ok := s.decode(raw)
			return Result{Present: true, Valid: ok, Value: value}, nil
		}

		return Result{Present: false}, nil
	})
}

// DecodePowerState decodes a string "on"/"off" property into a
// model.PowerState value.
func DecodePowerState(raw any) (model.Value, bool) {
	s, ok := raw.(string)
	if !ok {
		return model.Unset, false
	}
	switch s {
	case "on":
		return model.FromPowerState(model.PowerStateOn), true
	case "off":
		return model.FromPowerState(model.PowerStateOff), true
	default:
		return model.Unset, false
	}
}

// DecodeFloat64 decodes a numeric property into a float64 value.
func DecodeFloat64(raw any) (model.Value, bool) {
	switch v := raw.(type) {
	case float64:
		return model.FromFloat64(v), true
	case int:
		return model.FromFloat64(float64(v)), true
	default:
		return model.Unset, false
	}
}
