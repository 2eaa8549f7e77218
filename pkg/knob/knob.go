// SPDX-License-Identifier: BSD-3-Clause

package knob

import (
	"context"
	"fmt"
	"sync"

	"github.com/u-bmc/nodemgr/pkg/asyncexec"
	"github.com/u-bmc/nodemgr/pkg/model"
	"github.com/u-bmc/nodemgr/pkg/sensorreading"
)

// Key identifies one knob instance by what it actuates and which device
// it actuates it on.
type Key struct {
	Kind  model.KnobKind
	Index model.DeviceIndex
}

func (k Key) String() string {
	return fmt.Sprintf("%s[%d]", k.Kind, k.Index)
}

// Result is the outcome of one asynchronous knob write.
type Result struct {
	Err error
}

// Executor is the shared, single-pending-per-key async executor every
// Knob schedules its writes through.
type Executor = asyncexec.Executor[Key, Result]

// Knob is one actuator in the Knob Set. Set/Reset only record intent;
// the actual write happens on the next Tick, asynchronously.
type Knob interface {
	Key() Key
	// Set requests value be written. A value the knob cannot ever accept
	// (out of range, touching reserved register bits) fails fast with a
	// descriptive error and records nothing.
	Set(value float64) error
	// Reset clears any requested target and schedules a write of the
	// knob's reset (no-limit) value.
	Reset()
	// IsSet reports whether a limit is currently active.
	IsSet() bool
	Health() model.Health
	// Tick drives gating and scheduling. store is consulted for the
	// presence/power-state gates that decide whether a write is even
	// attempted this tick.
	Tick(ctx context.Context, exec *Executor, store *sensorreading.Store)
	// HandleResult updates health from one completed write's outcome.
	// The device manager calls this for every Result it drains from the
	// shared Executor whose key matches this knob.
	HandleResult(r Result)
}

// base holds the state every concrete Knob shares: the requested
// target, the last *confirmed* (write-completed) value, and health.
// written/hasValue back IsSet and only move on a completed write, never
// optimistically at submission time.
type base struct {
	key Key

	mu         sync.Mutex
	target     *float64
	reset      bool
	resetValue float64

	written  float64
	hasValue bool

	pending float64
	health  model.Health
}

func newBase(k Key) base {
	return base{key: k, health: model.HealthOK}
}

func (b *base) Key() Key { return b.key }

func (b *base) Set(value float64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	v := value
	b.target = &v
	b.reset = false
	return nil
}

func (b *base) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.target = nil
	b.reset = true
}

// IsSet reports whether the last confirmed write differs from the
// knob's reset default. A target that hasn't been written yet,
// or a write that failed and was cleared, does not count as set.
func (b *base) IsSet() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hasValue && b.written != b.resetValue
}

func (b *base) Health() model.Health {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.health
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

// HandleResult applies one completed write's outcome: on success, the
// value that was pending becomes the confirmed last-written value; on
// failure, last-written is cleared so the next Tick re-attempts it.
func (b *base) HandleResult(r Result) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if r.Err == nil {
		b.written = b.pending
		b.hasValue = true
		b.health = model.HealthOK
	} else {
		b.hasValue = false
		b.health = model.HealthWarning
	}
}

// nextWrite computes the value this tick should write, if any.
// endpoint-unavailable callers must call clearWritten instead; this is
// only reached when the endpoint is available. ok is false when the
// target already matches the last confirmed write, i.e. there is
// nothing to do this tick.
func (b *base) nextWrite(resetValue float64) (value float64, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.resetValue = resetValue

	var target float64
	switch {
	case b.reset:
		target = resetValue
	case b.target != nil:
		target = *b.target
	default:
		return 0, false
	}

	if b.hasValue && target == b.written {
		b.reset = false
		return 0, false
	}

	b.reset = false
	b.pending = target
	return target, true
}

// clearWritten drops the confirmed last-written value when the knob's
// endpoint is unavailable this tick, so IsSet reports false until a
// write succeeds again.
func (b *base) clearWritten() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hasValue = false
}
