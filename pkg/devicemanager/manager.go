// SPDX-License-Identifier: BSD-3-Clause

package devicemanager

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/u-bmc/nodemgr/pkg/asyncexec"
	"github.com/u-bmc/nodemgr/pkg/clock"
	"github.com/u-bmc/nodemgr/pkg/knob"
	"github.com/u-bmc/nodemgr/pkg/model"
	"github.com/u-bmc/nodemgr/pkg/reading"
	"github.com/u-bmc/nodemgr/pkg/sensor"
	"github.com/u-bmc/nodemgr/pkg/sensorreading"
	"github.com/u-bmc/nodemgr/pkg/state"
)

type readingKey struct {
	Kind  model.ReadingKind
	Index model.DeviceIndex
}

// DeviceManager owns the Sensor Set, Reading Set, and Knob Set and
// drives them through one tick-ordered pipeline: sensors, then
// readings, then knobs.
type DeviceManager struct {
	clock      clock.Clock
	lifecycle  *state.FSM
	store      *sensorreading.Store
	sensorExec *sensor.Executor
	knobExec   *knob.Executor

	mu          sync.RWMutex
	sensors     []sensor.Sensor
	sensorByKey map[sensorreading.Key]sensor.Sensor
	readings    map[readingKey]*reading.Reading
	knobs       map[knob.Key]knob.Knob
}

// New returns a DeviceManager in the constructed state (Install moves it
// to installed) backed by c, with up to maxWorkers concurrent sensor/knob I/O operations in
// flight at any time.
func New(ctx context.Context, c clock.Clock, maxWorkers int) (*DeviceManager, error) {
	lifecycle, err := newLifecycle()
	if err != nil {
		return nil, err
	}

	return &DeviceManager{
		clock:       c,
		lifecycle:   lifecycle,
		store:       sensorreading.NewStore(c),
		sensorExec:  asyncexec.New[sensorreading.Key, sensor.Result](ctx, maxWorkers),
		knobExec:    asyncexec.New[knob.Key, knob.Result](ctx, maxWorkers),
		sensorByKey: make(map[sensorreading.Key]sensor.Sensor),
		readings:    make(map[readingKey]*reading.Reading),
		knobs:       make(map[knob.Key]knob.Knob),
	}, nil
}

// Store returns the Sensor Reading Store backing this manager, so
// callers building sensors/knobs ahead of Install (e.g. a knob that
// needs to read another sensor's last-known value, like the accelerator
// power-limit knob's max-capability clamp) can wire against it before
// the first Tick.
func (d *DeviceManager) Store() *sensorreading.Store {
	return d.store
}

// Install registers every sensor's backing SensorReading entity and
// takes ownership of the given sensors, readings, and knobs. It must be
// called once, before the first Tick.
func (d *DeviceManager) Install(ctx context.Context, sensors []sensor.Sensor, readings []*reading.Reading, knobs []knob.Knob) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, s := range sensors {
		if _, err := d.store.Create(s.Key()); err != nil {
			return fmt.Errorf("devicemanager: install sensor %s: %w", s.Key(), err)
		}
		d.sensorByKey[s.Key()] = s
	}
	d.sensors = append(d.sensors, sensors...)

	for _, r := range readings {
		d.readings[readingKey{Kind: r.Kind(), Index: r.Index()}] = r
	}

	for _, k := range knobs {
		d.knobs[k.Key()] = k
	}

	if err := d.lifecycle.Start(ctx); err != nil {
		return fmt.Errorf("devicemanager: start lifecycle: %w", err)
	}
	return d.lifecycle.Fire(ctx, "installed", nil)
}

// Tick runs one full pass of the pipeline: drain completed sensor
// reads and feed them to their SensorReading, re-fuse every Reading,
// then drive every Knob (scheduling its next write, if any) and drain
// completed knob writes. It never blocks on I/O itself.
func (d *DeviceManager) Tick(ctx context.Context) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.lifecycle.CurrentState() == "installed" {
		if err := d.lifecycle.Fire(ctx, "running", nil); err != nil {
			return fmt.Errorf("devicemanager: enter running: %w", err)
		}
	}

	for _, s := range d.sensors {
		s.Tick(ctx, d.sensorExec)
	}
	d.sensorExec.Poll(func(r asyncexec.Result[sensorreading.Key, sensor.Result]) {
		s, ok := d.sensorByKey[r.Key]
		if !ok {
			return
		}
		// HandleResult runs here, on the tick goroutine, so sensor
		// bookkeeping (health, retry budgets) stays single-writer; the
		// effective result it returns is what the store observes.
		eff := s.HandleResult(r.Value)
		entity, ok := d.store.Get(r.Key)
		if !ok {
			return
		}
		_ = entity.Observe(ctx, eff.Present, eff.Valid, eff.Value)
	})

	for _, r := range d.readings {
		r.Tick(ctx, d.store)
	}

	for _, k := range d.knobs {
		k.Tick(ctx, d.knobExec, d.store)
	}
	d.knobExec.Poll(func(r asyncexec.Result[knob.Key, knob.Result]) {
		if k, ok := d.knobs[r.Key]; ok {
			k.HandleResult(r.Value)
		}
	})

	return nil
}

// Shutdown resets every knob to its off/safe value and runs one final
// tick to flush those writes, then blocks until every scheduled write
// has actually completed: a knob's reset value must be on disk or on
// the bus by the time the manager is gone, not merely scheduled.
func (d *DeviceManager) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	if err := d.lifecycle.Fire(ctx, "shutting_down", nil); err != nil {
		d.mu.Unlock()
		return fmt.Errorf("devicemanager: enter shutting_down: %w", err)
	}
	for _, k := range d.knobs {
		k.Reset()
	}
	d.mu.Unlock()

	if err := d.Tick(ctx); err != nil {
		return err
	}
	if err := d.knobExec.Wait(); err != nil {
		return fmt.Errorf("devicemanager: flush reset writes: %w", err)
	}

	d.mu.Lock()
	d.knobExec.Poll(func(r asyncexec.Result[knob.Key, knob.Result]) {
		if k, ok := d.knobs[r.Key]; ok {
			k.HandleResult(r.Value)
		}
	})
	defer d.mu.Unlock()
	return d.lifecycle.Fire(ctx, "shutdown", nil)
}

// matchingKnobs returns every installed knob of kind whose index
// matches index; model.AllDevices fans out to every device of the
// kind.
func (d *DeviceManager) matchingKnobs(kind model.KnobKind, index model.DeviceIndex) []knob.Knob {
	var matched []knob.Knob
	for key, k := range d.knobs {
		if key.Kind == kind && key.Index.Matches(index) {
			matched = append(matched, k)
		}
	}
	return matched
}

// SetKnob requests value be applied to every knob of kind matching
// index. A value any matching knob rejects outright (reserved bits,
// out of range) fails the call; knobs that accepted it keep their
// recorded target.
func (d *DeviceManager) SetKnob(kind model.KnobKind, index model.DeviceIndex, value float64) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	matched := d.matchingKnobs(kind, index)
	if len(matched) == 0 {
		return fmt.Errorf("devicemanager: unknown knob %s[%s]", kind, index)
	}
	var errs []error
	for _, k := range matched {
		if err := k.Set(value); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ResetKnob clears any requested limit on every knob of kind matching
// index and schedules a write of each one's reset value.
func (d *DeviceManager) ResetKnob(kind model.KnobKind, index model.DeviceIndex) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	matched := d.matchingKnobs(kind, index)
	if len(matched) == 0 {
		return fmt.Errorf("devicemanager: unknown knob %s[%s]", kind, index)
	}
	for _, k := range matched {
		k.Reset()
	}
	return nil
}

// IsKnobSet reports whether a limit is currently active. For a concrete
// index this is the single knob's own state; for model.AllDevices it is
// true iff every matching knob reports set, since the façade treats a
// fanned-out index as addressing the whole group at once.
func (d *DeviceManager) IsKnobSet(kind model.KnobKind, index model.DeviceIndex) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	matched := d.matchingKnobs(kind, index)
	if len(matched) == 0 {
		return false, fmt.Errorf("devicemanager: unknown knob %s[%s]", kind, index)
	}
	for _, k := range matched {
		if !k.IsSet() {
			return false, nil
		}
	}
	return true, nil
}

// FindReading returns the current value of the reading identified by
// kind and index and whether it is currently available.
func (d *DeviceManager) FindReading(kind model.ReadingKind, index model.DeviceIndex) (model.Value, bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	r, ok := d.readings[readingKey{Kind: kind, Index: index}]
	if !ok {
		return model.Unset, false, fmt.Errorf("devicemanager: unknown reading %s[%s]", kind, index)
	}
	value, available := r.Value()
	return value, available, nil
}

// SubscribeReading registers fn against the reading identified by kind
// and index.
func (d *DeviceManager) SubscribeReading(kind model.ReadingKind, index model.DeviceIndex, fn reading.Subscriber) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	r, ok := d.readings[readingKey{Kind: kind, Index: index}]
	if !ok {
		return fmt.Errorf("devicemanager: unknown reading %s[%s]", kind, index)
	}
	r.Subscribe(fn)
	return nil
}

// LifecycleState returns the device manager's own lifecycle state
// (constructed, installed, running, shutting_down, shutdown).
func (d *DeviceManager) LifecycleState() string {
	return d.lifecycle.CurrentState()
}

// Health reports warning iff any installed sensor or knob is unhealthy
// (a sensor stuck in StatusInvalid, or a knob whose last write failed),
// else ok.
func (d *DeviceManager) Health() model.Health {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, s := range d.sensors {
		if s.Health() == model.HealthWarning {
			return model.HealthWarning
		}
	}
	for _, k := range d.knobs {
		if k.Health() == model.HealthWarning {
			return model.HealthWarning
		}
	}
	return model.HealthOK
}

// ComponentStatus is one entry in the tree ReportStatus returns: the
// per-component diagnostics the façade exposes to the policy layer.
type ComponentStatus struct {
	Kind      string  `json:"kind"`
	Index     uint8   `json:"index"`
	Health    string  `json:"health"`
	Set       bool    `json:"set,omitempty"`
	Available bool    `json:"available,omitempty"`
	Value     float64 `json:"value,omitempty"`
}

// ReportStatus returns a flat diagnostics tree of every sensor, reading,
// and knob's current state, for a caller to render or log.
func (d *DeviceManager) ReportStatus() ([]ComponentStatus, []ComponentStatus, []ComponentStatus) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	sensors := make([]ComponentStatus, 0, len(d.sensors))
	for _, s := range d.sensors {
		key := s.Key()
		sensors = append(sensors, ComponentStatus{
			Kind:   key.Kind.String(),
			Index:  uint8(key.Index),
			Health: s.Health().String(),
		})
	}

	readings := make([]ComponentStatus, 0, len(d.readings))
	for key, r := range d.readings {
		value, available := r.Value()
		f, _ := value.AsFloat64()
		readings = append(readings, ComponentStatus{
			Kind:      key.Kind.String(),
			Index:     uint8(key.Index),
			Available: available,
			Value:     f,
		})
	}

	knobs := make([]ComponentStatus, 0, len(d.knobs))
	for key, k := range d.knobs {
		knobs = append(knobs, ComponentStatus{
			Kind:   key.Kind.String(),
			Index:  uint8(key.Index),
			Health: k.Health().String(),
			Set:    k.IsSet(),
		})
	}

	return sensors, readings, knobs
}

// SensorCount returns the number of installed sensors.
func (d *DeviceManager) SensorCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.sensors)
}

// KnobCount returns the number of installed knobs.
func (d *DeviceManager) KnobCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.knobs)
}
