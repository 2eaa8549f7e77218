// SPDX-License-Identifier: BSD-3-Clause

package reading

import (
	"github.com/u-bmc/nodemgr/pkg/model"
	"github.com/u-bmc/nodemgr/pkg/sensorreading"
)

// Efficiency reports DC platform power as a percentage of AC platform
// power — the platform's instantaneous power-supply efficiency.
type Efficiency struct {
	ACKey sensorreading.Key
	DCKey sensorreading.Key
}

func (f Efficiency) Fuse(store *sensorreading.Store) (model.Value, bool) {
	acVal, ok := store.GetIfGood(f.ACKey)
	if !ok {
		return model.Unset, false
	}
	dcVal, ok := store.GetIfGood(f.DCKey)
	if !ok {
		return model.Unset, false
	}
	ac, ok := acVal.AsFloat64()
	if !ok || ac <= 0 {
		return model.Unset, false
	}
	dc, ok := dcVal.AsFloat64()
	if !ok {
		return model.Unset, false
	}
	return model.FromFloat64(100 * dc / ac), true
}

// ACPlatformLimit translates a DC power-limit knob setpoint into its AC
// equivalent by dividing through the platform's current efficiency
// reading, so consumers outside the core can reason about AC-side
// headroom even though the knob itself only ever writes DC values.
type ACPlatformLimit struct {
	DCLimitKey sensorreading.Key
	Efficiency *Reading
}

func (f ACPlatformLimit) Fuse(store *sensorreading.Store) (model.Value, bool) {
	dcLimitVal, ok := store.GetIfGood(f.DCLimitKey)
	if !ok {
		return model.Unset, false
	}
	dcLimit, ok := dcLimitVal.AsFloat64()
	if !ok {
		return model.Unset, false
	}
	effVal, ok := f.Efficiency.Value()
	if !ok {
		return model.Unset, false
	}
	eff, ok := effVal.AsFloat64()
	if !ok || eff <= 0 {
		return model.Unset, false
	}
	return model.FromFloat64(dcLimit / (eff / 100)), true
}
