// SPDX-License-Identifier: BSD-3-Clause

package reading

import (
	"github.com/u-bmc/nodemgr/pkg/clock"
	"github.com/u-bmc/nodemgr/pkg/model"
	"github.com/u-bmc/nodemgr/pkg/sensorreading"
)

// NewPassThrough returns a Reading that republishes sensorKey unchanged
// under kind/index — the common case for readings with exactly one
// source.
func NewPassThrough(kind model.ReadingKind, index model.DeviceIndex, c clock.Clock, sensorKey sensorreading.Key) *Reading {
	return New(kind, index, c, PassThrough{Key: sensorKey})
}

// NewDelta returns a Reading over a monotonically-counting sensor,
// reporting the per-tick increase with wraparound at max — used to
// derive power from the CPU/DRAM energy counters.
func NewDelta(kind model.ReadingKind, index model.DeviceIndex, c clock.Clock, sensorKey sensorreading.Key, max float64) *Reading {
	return New(kind, index, c, &Delta{Key: sensorKey, Max: max})
}

// NewHistoricalMax returns a Reading tracking the highest value Source
// has ever produced, e.g. a PSU's lifetime peak input power.
func NewHistoricalMax(kind model.ReadingKind, index model.DeviceIndex, c clock.Clock, sensorKey sensorreading.Key) *Reading {
	return New(kind, index, c, &RunningMax{Key: sensorKey})
}

// NewMultiSourceReading returns a Reading over a priority-ordered list
// of sensors, reporting the highest-priority currently-valid source and
// an EventReadingSourceChanged whenever the active source changes.
func NewMultiSourceReading(kind model.ReadingKind, index model.DeviceIndex, c clock.Clock, sensorKeys []sensorreading.Key) *Reading {
	return New(kind, index, c, NewMultiSource(sensorKeys))
}

// NewCPUPresence returns a Reading carrying a bitmask of which CPU
// sockets currently identify on the management bus.
func NewCPUPresence(index model.DeviceIndex, c clock.Clock, cpuIDKeys []sensorreading.Key) *Reading {
	return New(model.ReadingKindCPUPresence, index, c, Presence{Keys: cpuIDKeys})
}

// NewAcceleratorPresence returns a Reading carrying a bitmask of which
// accelerator slots currently report a power state over the object
// service.
func NewAcceleratorPresence(index model.DeviceIndex, c clock.Clock, acceleratorKeys []sensorreading.Key) *Reading {
	return New(model.ReadingKindAcceleratorPresence, index, c, Presence{Keys: acceleratorKeys})
}

// NewPlatformPowerEfficiency returns a Reading computing DC platform
// power as a percentage of AC platform power.
func NewPlatformPowerEfficiency(index model.DeviceIndex, c clock.Clock, acKey, dcKey sensorreading.Key) *Reading {
	return New(model.ReadingKindPlatformPowerEfficiency, index, c, Efficiency{ACKey: acKey, DCKey: dcKey})
}

// NewACPlatformPowerLimit returns a Reading translating the DC platform
// power-limit knob's setpoint into its AC equivalent via efficiency.
func NewACPlatformPowerLimit(index model.DeviceIndex, c clock.Clock, dcLimitKey sensorreading.Key, efficiency *Reading) *Reading {
	return New(model.ReadingKindACPlatformPowerLimit, index, c, ACPlatformLimit{DCLimitKey: dcLimitKey, Efficiency: efficiency})
}

// NewCPUUtilizationReading returns a Reading computing a CPU core's
// busy-percentage from its raw PECI utilization sample sensor.
func NewCPUUtilizationReading(index model.DeviceIndex, c clock.Clock, sampleKey sensorreading.Key) *Reading {
	return New(model.ReadingKindCPUUtilization, index, c, CPUUtilization{Key: sampleKey})
}

// NewSmartThrottleInterrupt returns a Reading republishing the latched
// smart-throttle interrupt line's status unchanged.
func NewSmartThrottleInterrupt(index model.DeviceIndex, c clock.Clock, lineKey sensorreading.Key) *Reading {
	return New(model.ReadingKindSmartThrottleInterrupt, index, c, PassThrough{Key: lineKey})
}

// NewMaxOf returns a Reading reporting the largest currently-valid value
// across sensorKeys, e.g. the hottest of several redundant inlet
// temperature sensors.
func NewMaxOf(kind model.ReadingKind, index model.DeviceIndex, c clock.Clock, sensorKeys []sensorreading.Key) *Reading {
	return New(kind, index, c, MaxOf{Keys: sensorKeys})
}

// NewMinOf returns a Reading reporting the smallest currently-valid
// value across sensorKeys.
func NewMinOf(kind model.ReadingKind, index model.DeviceIndex, c clock.Clock, sensorKeys []sensorreading.Key) *Reading {
	return New(kind, index, c, MinOf{Keys: sensorKeys})
}

// NewAverage returns a Reading reporting the arithmetic mean of every
// currently-valid source in sensorKeys, e.g. rail current averaged
// across redundant PSUs.
func NewAverage(kind model.ReadingKind, index model.DeviceIndex, c clock.Clock, sensorKeys []sensorreading.Key) *Reading {
	return New(kind, index, c, Average{Keys: sensorKeys})
}

// NewDeltaTotal returns the all-devices companion of NewDelta: the sum
// of every source's per-tick increase, each with its own previous
// sample and wraparound at max.
func NewDeltaTotal(kind model.ReadingKind, c clock.Clock, sensorKeys []sensorreading.Key, max float64) *Reading {
	return New(kind, model.AllDevices, c, &DeltaTotal{Keys: sensorKeys, Max: max})
}

// NewHistoricalMaxTotal returns the all-devices companion of
// NewHistoricalMax: the sum of every source's historical maximum.
func NewHistoricalMaxTotal(kind model.ReadingKind, c clock.Clock, sensorKeys []sensorreading.Key) *Reading {
	return New(kind, model.AllDevices, c, &RunningMaxTotal{Keys: sensorKeys})
}
