// SPDX-License-Identifier: BSD-3-Clause

package model

import "fmt"

// ValueKind discriminates the payload carried by a Value.
type ValueKind int

const (
	ValueKindUnset ValueKind = iota
	ValueKindFloat64
	ValueKindUint8
	ValueKindUint32
	ValueKindCPUUtilization
	ValueKindPowerState
	ValueKindAcceleratorPowerState
	ValueKindSmartThrottleStatus
)

// PowerState mirrors the host chassis power state a bus-property sensor
// observes.
type PowerState int

const (
	PowerStateUnknown PowerState = iota
	PowerStateOff
	PowerStateOn
)

func (s PowerState) String() string {
	switch s {
	case PowerStateOff:
		return "off"
	case PowerStateOn:
		return "on"
	default:
		return "unknown"
	}
}

// AcceleratorPowerState mirrors the power state an accelerator entity
// reports through the object-manager interface.
type AcceleratorPowerState int

const (
	AcceleratorPowerStateUnknown AcceleratorPowerState = iota
	AcceleratorPowerStateOff
	AcceleratorPowerStateOn
)

func (s AcceleratorPowerState) String() string {
	switch s {
	case AcceleratorPowerStateOff:
		return "off"
	case AcceleratorPowerStateOn:
		return "on"
	default:
		return "unknown"
	}
}

// SmartThrottleStatus mirrors the latched interrupt state of the smart
// throttle line.
type SmartThrottleStatus int

const (
	SmartThrottleStatusInactive SmartThrottleStatus = iota
	SmartThrottleStatusActive
)

func (s SmartThrottleStatus) String() string {
	if s == SmartThrottleStatusActive {
		return "active"
	}
	return "inactive"
}

// CPUUtilization is the three-field CPU-bus utilization sample the CPU
// utilization reading computes a percentage from: the
// delta in C0 residency counter ticks since the previous sample, the wall
// time over which that delta accumulated, and the peak C0 capacity the
// delta is normalized against.
type CPUUtilization struct {
	C0Delta        uint64
	Duration       uint64 // nanoseconds
	PeakC0Capacity uint64
}

// Value is a tagged union over the sensor value types the pipeline
// needs: a Kind discriminant plus one populated payload field.
type Value struct {
	Kind ValueKind

	f64      float64
	u8       uint8
	u32      uint32
	cpuUtil  CPUUtilization
	power    PowerState
	accel    AcceleratorPowerState
	throttle SmartThrottleStatus
}

// Unset is the zero Value: no sensor has produced a reading yet.
var Unset = Value{Kind: ValueKindUnset}

func FromFloat64(v float64) Value { return Value{Kind: ValueKindFloat64, f64: v} }
func FromUint8(v uint8) Value     { return Value{Kind: ValueKindUint8, u8: v} }
func FromUint32(v uint32) Value   { return Value{Kind: ValueKindUint32, u32: v} }

func FromCPUUtilization(v CPUUtilization) Value {
	return Value{Kind: ValueKindCPUUtilization, cpuUtil: v}
}

func FromPowerState(v PowerState) Value {
	return Value{Kind: ValueKindPowerState, power: v}
}

func FromAcceleratorPowerState(v AcceleratorPowerState) Value {
	return Value{Kind: ValueKindAcceleratorPowerState, accel: v}
}

func FromSmartThrottleStatus(v SmartThrottleStatus) Value {
	return Value{Kind: ValueKindSmartThrottleStatus, throttle: v}
}

func (v Value) AsFloat64() (float64, bool) {
	if v.Kind != ValueKindFloat64 {
		return 0, false
	}
	return v.f64, true
}

func (v Value) AsUint8() (uint8, bool) {
	if v.Kind != ValueKindUint8 {
		return 0, false
	}
	return v.u8, true
}

func (v Value) AsUint32() (uint32, bool) {
	if v.Kind != ValueKindUint32 {
		return 0, false
	}
	return v.u32, true
}

func (v Value) AsCPUUtilization() (CPUUtilization, bool) {
	if v.Kind != ValueKindCPUUtilization {
		return CPUUtilization{}, false
	}
	return v.cpuUtil, true
}

func (v Value) AsPowerState() (PowerState, bool) {
	if v.Kind != ValueKindPowerState {
		return PowerStateUnknown, false
	}
	return v.power, true
}

func (v Value) AsAcceleratorPowerState() (AcceleratorPowerState, bool) {
	if v.Kind != ValueKindAcceleratorPowerState {
		return AcceleratorPowerStateUnknown, false
	}
	return v.accel, true
}

func (v Value) AsSmartThrottleStatus() (SmartThrottleStatus, bool) {
	if v.Kind != ValueKindSmartThrottleStatus {
		return SmartThrottleStatusInactive, false
	}
	return v.throttle, true
}

func (v Value) String() string {
	switch v.Kind {
	case ValueKindUnset:
		return "unset"
	case ValueKindFloat64:
		return fmt.Sprintf("%g", v.f64)
	case ValueKindUint8:
		return fmt.Sprintf("%d", v.u8)
	case ValueKindUint32:
		return fmt.Sprintf("%d", v.u32)
	case ValueKindCPUUtilization:
		return fmt.Sprintf("c0_delta=%d duration=%dns peak=%d", v.cpuUtil.C0Delta, v.cpuUtil.Duration, v.cpuUtil.PeakC0Capacity)
	case ValueKindPowerState:
		return v.power.String()
	case ValueKindAcceleratorPowerState:
		return v.accel.String()
	case ValueKindSmartThrottleStatus:
		return v.throttle.String()
	default:
		return "unknown"
	}
}
