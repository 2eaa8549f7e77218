// SPDX-License-Identifier: BSD-3-Clause

package sensor

import (
	"context"

	"github.com/warthog618/go-gpiocdev"

	"github.com/u-bmc/nodemgr/pkg/gpio"
	"github.com/u-bmc/nodemgr/pkg/model"
	"github.com/u-bmc/nodemgr/pkg/sensorreading"
)

// GPIOSensor reads one reserved input line's level each tick and
// reports it as a PowerState (high = on) unless configured active-low.
type GPIOSensor struct {
	base
	line      *gpiocdev.Line
	activeLow bool
}

// NewGPIOSensor returns a sensor reading the already-reserved line.
func NewGPIOSensor(key sensorreading.Key, line *gpiocdev.Line, activeLow bool) *GPIOSensor {
	return &GPIOSensor{base: base{key: key}, line: line, activeLow: activeLow}
}

func (s *GPIOSensor) Tick(ctx context.Context, exec *Executor) {
	exec.Schedule(s.key, func(ctx context.Context) (Result, error) {
		level := gpio.ReadState(s.line)
		if level == gpio.StateUnknown {
			return Result{Present: false}, nil
		}

		on := level == gpio.StateHigh
		if s.activeLow {
			on = !on
		}

		state := model.PowerStateOff
		if on {
			state = model.PowerStateOn
		}

		return Result{Present: true, Valid: true, Value: model.FromPowerState(state)}, nil
	})
}

// SmartThrottleStatusSensor reads the latched smart-throttle interrupt
// line: active (1) means the platform's SmaRT circuit has tripped.
type SmartThrottleStatusSensor struct {
	base
	line *gpiocdev.Line
}

// NewSmartThrottleStatusSensor returns a sensor reading the already-
// reserved smart-throttle interrupt line.
func NewSmartThrottleStatusSensor(key sensorreading.Key, line *gpiocdev.Line) *SmartThrottleStatusSensor {
	return &SmartThrottleStatusSensor{base: base{key: key}, line: line}
}

func (s *SmartThrottleStatusSensor) Tick(ctx context.Context, exec *Executor) {
	exec.Schedule(s.key, func(ctx context.Context) (Result, error) {
		level := gpio.ReadState(s.line)
		if level == gpio.StateUnknown {
			return Result{Present: false}, nil
		}

		status := model.SmartThrottleStatusInactive
		if level == gpio.StateHigh {
			status = model.SmartThrottleStatusActive
		}

		return Result{Present: true, Valid: true, Value: model.FromSmartThrottleStatus(status)}, nil
	})
}
