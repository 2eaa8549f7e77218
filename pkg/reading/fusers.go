// SPDX-License-Identifier: BSD-3-Clause

package reading

import (
	"math"

	"github.com/u-bmc/nodemgr/pkg/model"
	"github.com/u-bmc/nodemgr/pkg/sensorreading"
)

// PassThrough republishes one SensorReading's value unchanged — the
// common case of a Reading that just gives a SensorReading an
// externally-addressable identity.
type PassThrough struct {
	Key sensorreading.Key
}

func (f PassThrough) Fuse(store *sensorreading.Store) (model.Value, bool) {
	return store.GetIfGood(f.Key)
}

// Wrap32 and Wrap64 are the rollover bounds for 32-bit hwmon milli-joule
// energy counters and 64-bit PECI sample counters respectively.
// Delta.Max isn't restricted to these: any device-specific rollover
// point works, including the non-power-of-two bound P5's example uses.
const (
	Wrap32 = float64(uint64(1) << 32)
	Wrap64 = float64(uint64(1)<<63) * 2 // 2^64; computed in float64 to avoid a uint64 overflow
)

// Delta reports the increase in a monotonically-counting source since
// the previous tick. When the counter has wrapped — the new sample is
// smaller than the last one — the reported delta is Max + current −
// previous rather than a negative number. The first tick
// after construction or after a source outage has no previous sample to
// diff against and reports not-ok.
type Delta struct {
	Key sensorreading.Key
	Max float64

	hasPrev bool
	prev    float64
}

func (f *Delta) Fuse(store *sensorreading.Store) (model.Value, bool) {
	v, ok := store.GetIfGood(f.Key)
	if !ok {
		f.hasPrev = false
		return model.Unset, false
	}

	var cur float64
	switch v.Kind {
	case model.ValueKindUint32:
		n, _ := v.AsUint32()
		cur = float64(n)
	case model.ValueKindFloat64:
		n, _ := v.AsFloat64()
		cur = n
	default:
		return model.Unset, false
	}

	if !f.hasPrev {
		f.prev = cur
		f.hasPrev = true
		return model.Unset, false
	}

	delta := cur - f.prev
	if delta < 0 {
		delta = f.Max + cur - f.prev
	}
	f.prev = cur
	return model.FromFloat64(delta), true
}

// RunningMax reports the highest value a source has ever produced since
// this fuser was constructed (e.g. historical peak PSU power).
type RunningMax struct {
	Key sensorreading.Key

	hasValue bool
	max      float64
}

func (f *RunningMax) Fuse(store *sensorreading.Store) (model.Value, bool) {
	v, ok := store.GetIfGood(f.Key)
	if !ok {
		if f.hasValue {
			return model.FromFloat64(f.max), true
		}
		return model.Unset, false
	}
	n, ok := v.AsFloat64()
	if !ok {
		return model.Unset, false
	}
	if !f.hasValue || n > f.max {
		f.max = n
		f.hasValue = true
	}
	return model.FromFloat64(f.max), true
}

// MaxOf reports the largest currently-valid value across Keys, e.g. the
// hottest of several redundant inlet temperature sensors.
type MaxOf struct {
	Keys []sensorreading.Key
}

func (f MaxOf) Fuse(store *sensorreading.Store) (model.Value, bool) {
	best := math.Inf(-1)
	found := false
	for _, key := range f.Keys {
		v, ok := store.GetIfGood(key)
		if !ok {
			continue
		}
		n, ok := v.AsFloat64()
		if !ok {
			continue
		}
		if n > best {
			best = n
		}
		found = true
	}
	if !found {
		return model.Unset, false
	}
	return model.FromFloat64(best), true
}

// MinOf reports the smallest currently-valid value across Keys.
type MinOf struct {
	Keys []sensorreading.Key
}

func (f MinOf) Fuse(store *sensorreading.Store) (model.Value, bool) {
	best := math.Inf(1)
	found := false
	for _, key := range f.Keys {
		v, ok := store.GetIfGood(key)
		if !ok {
			continue
		}
		n, ok := v.AsFloat64()
		if !ok {
			continue
		}
		if n < best {
			best = n
		}
		found = true
	}
	if !found {
		return model.Unset, false
	}
	return model.FromFloat64(best), true
}

// Average reports the arithmetic mean of every currently-valid source
// in Keys.
type Average struct {
	Keys []sensorreading.Key
}

func (f Average) Fuse(store *sensorreading.Store) (model.Value, bool) {
	var sum float64
	var count int
	for _, key := range f.Keys {
		v, ok := store.GetIfGood(key)
		if !ok {
			continue
		}
		n, ok := v.AsFloat64()
		if !ok {
			continue
		}
		sum += n
		count++
	}
	if count == 0 {
		return model.Unset, false
	}
	return model.FromFloat64(sum / float64(count)), true
}

// SourceChangeAware is implemented by fusers that need to tell the
// owning Reading a reading-source-changed event occurred this tick, in
// addition to the normal value they return.
type SourceChangeAware interface {
	SourceChanged() bool
}

// MultiSource reports the value of the highest-priority currently-valid
// source in its priority list, and flags a source change whenever the
// active source differs from the previous tick's.
type MultiSource struct {
	Keys []sensorreading.Key // in priority order, highest first

	activeIdx int
	changed   bool
}

func NewMultiSource(keys []sensorreading.Key) *MultiSource {
	return &MultiSource{Keys: keys, activeIdx: -1}
}

func (f *MultiSource) Fuse(store *sensorreading.Store) (model.Value, bool) {
	for i, key := range f.Keys {
		v, ok := store.GetIfGood(key)
		if !ok {
			continue
		}
		f.changed = i != f.activeIdx
		f.activeIdx = i
		return v, true
	}
	f.changed = f.activeIdx != -1
	f.activeIdx = -1
	return model.Unset, false
}

func (f *MultiSource) SourceChanged() bool {
	c := f.changed
	f.changed = false
	return c
}

// DeltaTotal sums per-device Delta behavior across Keys: each source
// keeps its own previous sample and wrap handling, and the fuser
// reports the sum of every source that produced a delta this tick. It
// backs the all-devices variant of a counter-derived reading, e.g.
// total CPU package power across sockets.
type DeltaTotal struct {
	Keys []sensorreading.Key
	Max  float64

	perKey map[sensorreading.Key]*Delta
}

func (f *DeltaTotal) Fuse(store *sensorreading.Store) (model.Value, bool) {
	if f.perKey == nil {
		f.perKey = make(map[sensorreading.Key]*Delta, len(f.Keys))
		for _, key := range f.Keys {
			f.perKey[key] = &Delta{Key: key, Max: f.Max}
		}
	}

	var sum float64
	var contributed bool
	for _, key := range f.Keys {
		v, ok := f.perKey[key].Fuse(store)
		if !ok {
			continue
		}
		n, ok := v.AsFloat64()
		if !ok {
			continue
		}
		sum += n
		contributed = true
	}
	if !contributed {
		return model.Unset, false
	}
	return model.FromFloat64(sum), true
}

// RunningMaxTotal sums per-device historical maxima across Keys — the
// all-devices variant of RunningMax, e.g. the sum of each PSU's peak
// input power.
type RunningMaxTotal struct {
	Keys []sensorreading.Key

	perKey map[sensorreading.Key]*RunningMax
}

func (f *RunningMaxTotal) Fuse(store *sensorreading.Store) (model.Value, bool) {
	if f.perKey == nil {
		f.perKey = make(map[sensorreading.Key]*RunningMax, len(f.Keys))
		for _, key := range f.Keys {
			f.perKey[key] = &RunningMax{Key: key}
		}
	}

	var sum float64
	var contributed bool
	for _, key := range f.Keys {
		v, ok := f.perKey[key].Fuse(store)
		if !ok {
			continue
		}
		n, ok := v.AsFloat64()
		if !ok {
			continue
		}
		sum += n
		contributed = true
	}
	if !contributed {
		return model.Unset, false
	}
	return model.FromFloat64(sum), true
}
