// SPDX-License-Identifier: BSD-3-Clause

package sensorreading

import (
	"sync"

	"github.com/u-bmc/nodemgr/pkg/clock"
	"github.com/u-bmc/nodemgr/pkg/model"
)

// Store owns every SensorReading entity in the device manager and is the
// single place Sensors publish to and Readings/Knobs read from.
type Store struct {
	clock clock.Clock

	mu       sync.RWMutex
	readings map[Key]*SensorReading
}

// NewStore returns an empty Store backed by the given clock.
func NewStore(c clock.Clock) *Store {
	return &Store{clock: c, readings: make(map[Key]*SensorReading)}
}

// Create registers a new SensorReading for key. It is an error to create
// the same key twice, and key.Index must not be model.AllDevices.
func (s *Store) Create(key Key) (*SensorReading, error) {
	if key.Index == model.AllDevices {
		return nil, errInvalidKey(key)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.readings[key]; exists {
		return nil, errAlreadyExists(key)
	}

	r, err := newSensorReading(key, s.clock)
	if err != nil {
		return nil, err
	}
	s.readings[key] = r
	return r, nil
}

// Delete removes key's entity, if any.
func (s *Store) Delete(key Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.readings, key)
}

// Get returns key's entity.
func (s *Store) Get(key Key) (*SensorReading, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.readings[key]
	return r, ok
}

// GetIfGood returns key's value only when the entity exists and is
// currently Valid.
func (s *Store) GetIfGood(key Key) (model.Value, bool) {
	r, ok := s.Get(key)
	if !ok {
		return model.Unset, false
	}
	return r.Value()
}

// ForEach calls fn for every entity whose key matches kind and the
// device index filter (a concrete index or model.AllDevices).
func (s *Store) ForEach(kind model.SensorKind, filter model.DeviceIndex, fn func(*SensorReading)) {
	s.mu.RLock()
	matched := make([]*SensorReading, 0, 4)
	for key, r := range s.readings {
		if key.Kind == kind && key.Index.Matches(filter) {
			matched = append(matched, r)
		}
	}
	s.mu.RUnlock()
	for _, r := range matched {
		fn(r)
	}
}

// Subscribe registers fn against every entity matching kind and filter,
// present now or created later.
func (s *Store) Subscribe(kind model.SensorKind, filter model.DeviceIndex, fn Subscriber) {
	s.ForEach(kind, filter, func(r *SensorReading) {
		r.Subscribe(fn)
	})
}

// IsPowerStateOn reports whether the host power state sensor at idx is
// Valid and On. Knobs use this to gate writes.
func (s *Store) IsPowerStateOn(idx model.DeviceIndex) bool {
	r, ok := s.Get(Key{Kind: model.SensorKindHostPowerState, Index: idx})
	if !ok {
		return false
	}
	v, valid := r.Value()
	if !valid {
		return false
	}
	state, ok := v.AsPowerState()
	return ok && state == model.PowerStateOn
}

// IsAcceleratorPowerOn reports whether the accelerator power state
// sensor at idx is Valid and On.
func (s *Store) IsAcceleratorPowerOn(idx model.DeviceIndex) bool {
	r, ok := s.Get(Key{Kind: model.SensorKindAcceleratorPowerState, Index: idx})
	if !ok {
		return false
	}
	v, valid := r.Value()
	if !valid {
		return false
	}
	state, ok := v.AsAcceleratorPowerState()
	return ok && state == model.AcceleratorPowerStateOn
}

// IsCPUPresent reports whether a CPU package power reading exists for
// idx with a status other than Unavailable, i.e. the socket is
// populated even if its current sample hasn't validated yet.
func (s *Store) IsCPUPresent(idx model.DeviceIndex) bool {
	r, ok := s.Get(Key{Kind: model.SensorKindCPUPackagePower, Index: idx})
	if !ok {
		return false
	}
	return r.Status() != model.StatusUnavailable
}
