// SPDX-License-Identifier: BSD-3-Clause

package sensor

import (
	"context"
	"sync"

	"github.com/u-bmc/nodemgr/pkg/asyncexec"
	"github.com/u-bmc/nodemgr/pkg/model"
	"github.com/u-bmc/nodemgr/pkg/sensorreading"
)

// Result is what one background read produces: whether the backing
// device is present at all, and if so whether the value it produced
// validated.
type Result struct {
	Present bool
	Valid   bool
	Value   model.Value
}

// Executor is the shared async executor every Sensor submits its
// background reads through. Its key is the SensorReading key, so the
// "at most one pending task per key" rule applies directly.
type Executor = asyncexec.Executor[sensorreading.Key, Result]

// Sensor reads one piece of hardware state per tick and reports the
// outcome against its SensorReading key.
//
// The worker closure a Tick schedules performs I/O only and never
// touches the sensor's own fields; all bookkeeping (health, retry
// budgets) happens in HandleResult, which the device manager calls on
// the tick goroutine as it drains completed reads. That keeps every
// sensor field single-writer.
type Sensor interface {
	Key() sensorreading.Key
	// Tick submits a background read through exec if one isn't already
	// pending for this sensor's key. It never blocks and mutates nothing.
	Tick(ctx context.Context, exec *Executor)
	// HandleResult applies one completed read's outcome to the sensor's
	// bookkeeping and returns the effective result to publish to the
	// store — usually r itself, but a sensor riding out a transient
	// failure may substitute its last good value.
	HandleResult(r Result) Result
	// Health reflects whether the sensor's last read produced a usable
	// value. A removed backend is unavailable, not unhealthy.
	Health() model.Health
}

// base provides the Key/Health bookkeeping every concrete sensor
// shares. health is guarded because Health is served to facade request
// goroutines while HandleResult updates it from the tick goroutine.
type base struct {
	key sensorreading.Key

	mu     sync.Mutex
	health model.Health
}

func (b *base) Key() sensorreading.Key { return b.key }

func (b *base) Health() model.Health {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.health == model.HealthWarning {
		return model.HealthWarning
	}
	return model.HealthOK
}

func (b *base) setHealth(ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ok {
		b.health = model.HealthOK
	} else {
		b.health = model.HealthWarning
	}
}

// HandleResult is the default bookkeeping: a present backend that could
// not produce a usable value is a sensor fault, anything else is
// healthy. Sensors with retry state override this.
func (b *base) HandleResult(r Result) Result {
	b.setHealth(!(r.Present && !r.Valid))
	return r
}
