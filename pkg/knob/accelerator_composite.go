// SPDX-License-Identifier: BSD-3-Clause

package knob

import (
	"context"
	"sync"

	"github.com/u-bmc/nodemgr/pkg/asyncexec"
	"github.com/u-bmc/nodemgr/pkg/model"
	"github.com/u-bmc/nodemgr/pkg/provider"
	"github.com/u-bmc/nodemgr/pkg/sensorreading"
)

// Default effecter tau windows and the PL2/PL1 multiplier. PL1 holds
// the sustained limit over a long window; PL2 rides a short burst
// window at a fixed multiple of the target, clamped to the device's
// max capability. The concrete values follow the usual RAPL long/short
// window split.
const (
	DefaultPL1TauSeconds   = 28.0
	DefaultPL2TauSeconds   = 0.01
	DefaultShortMultiplier = 1.2
)

// CompositeAcceleratorKnob is the per-slot accelerator power-limit
// knob: one logical setpoint fanned out to four effecter writes
// (PL1, PL1-tau, PL2, PL2-tau), each a separate asynchronous call, that
// only reports itself "set at value V" once all four have confirmed a
// write derived from the same V. Unlike the single-effecter
// AcceleratorKnob, it owns a private per-effecter executor instead of
// the shared knob Executor: each effecter needs its own in-flight slot
// (I4 is per *effecter* here, not per logical knob), which the shared
// Executor's single (kind, index) key can't express.
type CompositeAcceleratorKnob struct {
	key             Key
	om              provider.ObjectManager
	maxCapability   func() (float64, bool)
	shortMultiplier float64
	pl1Tau          float64
	pl2Tau          float64

	mu         sync.Mutex
	path       string
	target     *float64
	reset      bool
	resetValue float64

	confirmedFor map[AcceleratorEffecter]float64
	committed    *float64
	lastFailed   bool

	// exec's result payload carries the target V each write was for, so
	// a completion is attributed to the round it was actually dispatched
	// for even if a later Set/Reset changed the target while it was
	// still in flight.
	exec *asyncexec.Executor[AcceleratorEffecter, float64]
}

// NewCompositeAcceleratorKnob returns a knob actuating all four
// accelerator power-limit effecters at path through om. maxCapability
// reads the device's current max-power-capability sensor value, used to
// clamp PL2 and, when resetValue is 0, as the fetched-once reset
// default.
func NewCompositeAcceleratorKnob(ctx context.Context, k Key, om provider.ObjectManager, path string, maxCapability func() (float64, bool), resetValue float64) *CompositeAcceleratorKnob {
	return &CompositeAcceleratorKnob{
		key:             k,
		om:              om,
		path:            path,
		maxCapability:   maxCapability,
		shortMultiplier: DefaultShortMultiplier,
		pl1Tau:          DefaultPL1TauSeconds,
		pl2Tau:          DefaultPL2TauSeconds,
		resetValue:      resetValue,
		confirmedFor:    make(map[AcceleratorEffecter]float64),
		exec:            asyncexec.New[AcceleratorEffecter, float64](ctx, 4),
	}
}

func (k *CompositeAcceleratorKnob) Key() Key { return k.key }

func (k *CompositeAcceleratorKnob) Set(value float64) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	v := value
	k.target = &v
	k.reset = false
	return nil
}

func (k *CompositeAcceleratorKnob) Reset() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.target = nil
	k.reset = true
}

// IsSet reports true once every effecter has confirmed a write derived
// from the same target V and V differs from the reset default.
func (k *CompositeAcceleratorKnob) IsSet() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.committed != nil && *k.committed != k.resetValue
}

func (k *CompositeAcceleratorKnob) Health() model.Health {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.lastFailed {
		return model.HealthWarning
	}
	return model.HealthOK
}

// effecterValues derives the four concrete effecter writes for target
// watt value v.
func (k *CompositeAcceleratorKnob) effecterValues(v float64) map[AcceleratorEffecter]float64 {
	maxCap, ok := k.maxCapability()
	if !ok {
		maxCap = v * k.shortMultiplier
	}
	pl2 := v * k.shortMultiplier
	if pl2 > maxCap {
		pl2 = maxCap
	}
	if pl2 < 0 {
		pl2 = 0
	}
	return map[AcceleratorEffecter]float64{
		EffecterPL1:    v,
		EffecterPL1Tau: k.pl1Tau,
		EffecterPL2:    pl2,
		EffecterPL2Tau: k.pl2Tau,
	}
}

func (k *CompositeAcceleratorKnob) Tick(ctx context.Context, _ *Executor, store *sensorreading.Store) {
	k.exec.Poll(func(r asyncexec.Result[AcceleratorEffecter, float64]) {
		k.mu.Lock()
		defer k.mu.Unlock()
		if r.Err != nil {
			k.lastFailed = true
			return
		}
		k.confirmedFor[r.Key] = r.Value
		if len(k.confirmedFor) == 4 {
			v := r.Value
			allMatch := true
			for _, cv := range k.confirmedFor {
				if cv != v {
					allMatch = false
					break
				}
			}
			if allMatch {
				k.committed = &v
				k.lastFailed = false
			}
		}
	})

	if k.path == "" || !store.IsAcceleratorPowerOn(k.key.Index) {
		k.mu.Lock()
		k.committed = nil
		k.mu.Unlock()
		return
	}

	k.mu.Lock()
	var target float64
	switch {
	case k.reset:
		if k.resetValue == 0 {
			if maxCap, ok := k.maxCapability(); ok {
				k.resetValue = maxCap
			}
		}
		target = k.resetValue
		k.reset = false
	case k.target != nil:
		target = *k.target
	default:
		k.mu.Unlock()
		return
	}
	if k.committed != nil && target == *k.committed {
		k.mu.Unlock()
		return
	}
	values := k.effecterValues(target)
	path := k.path
	om := k.om
	k.mu.Unlock()

	for effecter, value := range values {
		effecter, value := effecter, value
		k.exec.Schedule(effecter, func(ctx context.Context) (float64, error) {
			if err := om.SetProperty(ctx, path, string(effecter), value); err != nil {
				return 0, err
			}
			return target, nil
		})
	}
}

// HandleResult is unused: CompositeAcceleratorKnob drains its own
// private executor inside Tick, since its four effecter writes each
// need an independent in-flight slot the shared knob Executor's single
// (kind, index) key cannot express. The device manager still calls this
// for any stray result keyed to k.Key() on the shared executor, which
// never happens for this knob type, so it's a no-op.
func (k *CompositeAcceleratorKnob) HandleResult(Result) {}
