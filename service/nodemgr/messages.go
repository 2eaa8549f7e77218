// SPDX-License-Identifier: BSD-3-Clause

package nodemgr

import (
	"github.com/u-bmc/nodemgr/pkg/devicemanager"
	"github.com/u-bmc/nodemgr/pkg/model"
)

// wireValue is the JSON-over-NATS representation of a model.Value: one
// populated field selected by kind, since the tagged union's payload
// fields aren't exported.
type wireValue struct {
	Kind string `json:"kind"`

	Float64 float64 `json:"float64,omitempty"`
	Uint8   uint8   `json:"uint8,omitempty"`
	Uint32  uint32  `json:"uint32,omitempty"`

	C0Delta        uint64 `json:"c0_delta,omitempty"`
	Duration       uint64 `json:"duration_ns,omitempty"`
	PeakC0Capacity uint64 `json:"peak_c0_capacity,omitempty"`

	PowerState            string `json:"power_state,omitempty"`
	AcceleratorPowerState string `json:"accelerator_power_state,omitempty"`
	SmartThrottleStatus   string `json:"smart_throttle_status,omitempty"`
}

func toWireValue(v model.Value) wireValue {
	w := wireValue{Kind: v.Kind.String()}
	switch v.Kind {
	case model.ValueKindFloat64:
		w.Float64, _ = v.AsFloat64()
	case model.ValueKindUint8:
		w.Uint8, _ = v.AsUint8()
	case model.ValueKindUint32:
		w.Uint32, _ = v.AsUint32()
	case model.ValueKindCPUUtilization:
		u, _ := v.AsCPUUtilization()
		w.C0Delta, w.Duration, w.PeakC0Capacity = u.C0Delta, u.Duration, u.PeakC0Capacity
	case model.ValueKindPowerState:
		s, _ := v.AsPowerState()
		w.PowerState = s.String()
	case model.ValueKindAcceleratorPowerState:
		s, _ := v.AsAcceleratorPowerState()
		w.AcceleratorPowerState = s.String()
	case model.ValueKindSmartThrottleStatus:
		s, _ := v.AsSmartThrottleStatus()
		w.SmartThrottleStatus = s.String()
	}
	return w
}

// setKnobRequest/setKnobResponse back SubjectNodeMgrSetKnob.
type setKnobRequest struct {
	Kind  int     `json:"kind"`
	Index uint8   `json:"index"`
	Value float64 `json:"value"`
}

type setKnobResponse struct {
	Error string `json:"error,omitempty"`
}

// resetKnobRequest/resetKnobResponse back SubjectNodeMgrResetKnob.
type resetKnobRequest struct {
	Kind  int   `json:"kind"`
	Index uint8 `json:"index"`
}

type resetKnobResponse struct {
	Error string `json:"error,omitempty"`
}

// isKnobSetRequest/isKnobSetResponse back SubjectNodeMgrIsKnobSet.
type isKnobSetRequest struct {
	Kind  int   `json:"kind"`
	Index uint8 `json:"index"`
}

type isKnobSetResponse struct {
	Set   bool   `json:"set"`
	Error string `json:"error,omitempty"`
}

// findReadingRequest/findReadingResponse back SubjectNodeMgrFindReading.
type findReadingRequest struct {
	Kind  int   `json:"kind"`
	Index uint8 `json:"index"`
}

type findReadingResponse struct {
	Value     wireValue `json:"value"`
	Available bool      `json:"available"`
	Error     string    `json:"error,omitempty"`
}

// subscribeReadingRequest/subscribeReadingResponse back
// SubjectNodeMgrSubscribeReading. Events are delivered by publishing a
// readingEvent to ReplySubject for the lifetime of the server process;
// there is no unsubscribe handshake.
type subscribeReadingRequest struct {
	Kind         int    `json:"kind"`
	Index        uint8  `json:"index"`
	ReplySubject string `json:"reply_subject"`
}

type subscribeReadingResponse struct {
	Error string `json:"error,omitempty"`
}

type readingEvent struct {
	Kind  int       `json:"kind"`
	Index uint8     `json:"index"`
	Event string    `json:"event"`
	Value wireValue `json:"value"`
}

// healthResponse backs SubjectNodeMgrHealth. OK is true iff the
// DeviceManager reports model.HealthOK: no sensor stuck invalid
// and no knob with a failed last write.
type healthResponse struct {
	OK          bool `json:"ok"`
	SensorCount int  `json:"sensor_count"`
	KnobCount   int  `json:"knob_count"`
}

// reportStatusResponse backs SubjectNodeMgrReportStatus: a tree of
// per-component diagnostics.
type reportStatusResponse struct {
	LifecycleState string                          `json:"lifecycle_state"`
	Sensors        []devicemanager.ComponentStatus `json:"sensors"`
	Readings       []devicemanager.ComponentStatus `json:"readings"`
	Knobs          []devicemanager.ComponentStatus `json:"knobs"`
}
