// SPDX-License-Identifier: BSD-3-Clause

package sensorreading

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/u-bmc/nodemgr/pkg/clock"
	"github.com/u-bmc/nodemgr/pkg/model"
	"github.com/u-bmc/nodemgr/pkg/state"
)

// Key identifies one SensorReading entity.
type Key struct {
	Kind  model.SensorKind
	Index model.DeviceIndex
}

func (k Key) String() string {
	return fmt.Sprintf("%s[%s]", k.Kind, k.Index)
}

// Subscriber is notified whenever a SensorReading's status transitions
// and produces events.
type Subscriber func(key Key, events []model.Event, value model.Value)

// SensorReading tracks one sensor's current value and lifecycle status
// on top of the shared FSM wrapper.
type SensorReading struct {
	key   Key
	clock clock.Clock

	mu          sync.RWMutex
	fsm         *state.FSM
	value       model.Value
	lastValidAt time.Time

	subscribersMu sync.RWMutex
	subscribers   []Subscriber
}

func newSensorReading(key Key, c clock.Clock) (*SensorReading, error) {
	cfg := state.NewConfig(
		state.WithName(key.String()),
		state.WithInitialState(model.StatusUnset.String()),
		state.WithStates(
			model.StatusUnset.String(),
			model.StatusUnavailable.String(),
			model.StatusInvalid.String(),
			model.StatusValid.String(),
		),
		state.WithTransition(model.StatusUnset.String(), model.StatusValid.String(), model.StatusValid.String()),
		state.WithTransition(model.StatusUnset.String(), model.StatusInvalid.String(), model.StatusInvalid.String()),
		state.WithTransition(model.StatusUnset.String(), model.StatusUnavailable.String(), model.StatusUnavailable.String()),
		state.WithTransition(model.StatusUnavailable.String(), model.StatusValid.String(), model.StatusValid.String()),
		state.WithTransition(model.StatusUnavailable.String(), model.StatusInvalid.String(), model.StatusInvalid.String()),
		state.WithTransition(model.StatusInvalid.String(), model.StatusValid.String(), model.StatusValid.String()),
		state.WithTransition(model.StatusInvalid.String(), model.StatusUnavailable.String(), model.StatusUnavailable.String()),
		state.WithTransition(model.StatusValid.String(), model.StatusInvalid.String(), model.StatusInvalid.String()),
		state.WithTransition(model.StatusValid.String(), model.StatusUnavailable.String(), model.StatusUnavailable.String()),
	)

	fsm, err := state.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("sensorreading %s: %w", key, err)
	}

	return &SensorReading{key: key, clock: c, fsm: fsm, value: model.Unset}, nil
}

// Status returns the entity's current lifecycle status.
func (r *SensorReading) Status() model.Status {
	return statusFromString(r.fsm.CurrentState())
}

// Value returns the last accepted value and whether the entity is
// currently Valid.
func (r *SensorReading) Value() (model.Value, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.value, r.Status() == model.StatusValid
}

// LastValidAt returns when the entity last transitioned to, or remained
// in, StatusValid. Readings use this against the availability grace
// window.
func (r *SensorReading) LastValidAt() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastValidAt
}

// Key returns the entity's identity.
func (r *SensorReading) Key() Key { return r.key }

// Subscribe registers fn to be called on every status transition this
// entity makes from now on.
func (r *SensorReading) Subscribe(fn Subscriber) {
	r.subscribersMu.Lock()
	defer r.subscribersMu.Unlock()
	r.subscribers = append(r.subscribers, fn)
}

// Observe is called by the device manager, as it drains the owning
// Sensor's completed reads, with the outcome of that hardware read: whether the backing device is present,
// and if so whether its value validated. It drives the status machine
// and notifies subscribers of any resulting events.
func (r *SensorReading) Observe(ctx context.Context, present, valid bool, value model.Value) error {
	var target model.Status
	switch {
	case !present:
		target = model.StatusUnavailable
	case !valid:
		target = model.StatusInvalid
	default:
		target = model.StatusValid
	}

	r.mu.Lock()
	before := r.Status()
	if before == target {
		if target == model.StatusValid {
			r.value = value
			r.lastValidAt = r.clock.Now()
		}
		r.mu.Unlock()
		return nil
	}

	if err := r.fsm.Start(ctx); err != nil {
		r.mu.Unlock()
		return err
	}
	if err := r.fsm.Fire(ctx, target.String(), nil); err != nil {
		r.mu.Unlock()
		return fmt.Errorf("sensorreading %s: %s -> %s: %w", r.key, before, target, err)
	}
	if target == model.StatusValid {
		r.value = value
		r.lastValidAt = r.clock.Now()
	}
	r.mu.Unlock()

	events := model.TransitionEvents(before, target)
	if len(events) == 0 {
		return nil
	}
	r.subscribersMu.RLock()
	subs := append([]Subscriber(nil), r.subscribers...)
	r.subscribersMu.RUnlock()
	for _, sub := range subs {
		sub(r.key, events, value)
	}
	return nil
}

func statusFromString(s string) model.Status {
	switch s {
	case "valid":
		return model.StatusValid
	case "invalid":
		return model.StatusInvalid
	case "unavailable":
		return model.StatusUnavailable
	default:
		return model.StatusUnset
	}
}
