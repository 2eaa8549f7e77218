// SPDX-License-Identifier: BSD-3-Clause

package reading

import (
	"github.com/u-bmc/nodemgr/pkg/model"
	"github.com/u-bmc/nodemgr/pkg/sensorreading"
)

// CPUUtilization converts the raw C0-residency sample PECI returns into
// a percentage: C0Delta per unit of Duration, relative to the core's
// PeakC0Capacity, capped at 100.
type CPUUtilization struct {
	Key sensorreading.Key
}

func (f CPUUtilization) Fuse(store *sensorreading.Store) (model.Value, bool) {
	v, ok := store.GetIfGood(f.Key)
	if !ok {
		return model.Unset, false
	}
	sample, ok := v.AsCPUUtilization()
	if !ok || sample.Duration == 0 {
		return model.Unset, false
	}

	denom := sample.Duration
	if sample.PeakC0Capacity > 0 {
		denom = sample.Duration * sample.PeakC0Capacity
	}
	pct := 100 * float64(sample.C0Delta) / float64(denom)
	if pct > 100 {
		pct = 100
	}
	return model.FromFloat64(pct), true
}
