// SPDX-License-Identifier: BSD-3-Clause

package reading

import (
	"context"
	"sync"
	"time"

	"github.com/u-bmc/nodemgr/pkg/clock"
	"github.com/u-bmc/nodemgr/pkg/model"
	"github.com/u-bmc/nodemgr/pkg/sensorreading"
)

// AvailabilityGrace is the startup-quiet window measured from a
// Reading's construction: until it elapses, a reading that has never
// produced a value stays silent instead of spamming unavailable events
// while discovery is still settling. The window is one-shot — it exists
// only ahead of the first event ever reported. Once any event has been
// sent, later availability transitions report immediately, with no new
// grace period.
const AvailabilityGrace = 20 * time.Second

// Subscriber is notified when a Reading's externally-visible status
// changes.
type Subscriber func(kind model.ReadingKind, index model.DeviceIndex, event model.Event, value model.Value)

// Fuser computes one Reading's value for this tick from its subscribed
// SensorReadings. It returns ok=false when there is nothing valid to
// report (all sources missing/invalid).
type Fuser interface {
	Fuse(store *sensorreading.Store) (model.Value, bool)
}

// Reading is one entry in the Reading Set: a fused view over one or
// more sensors, with event dispatch de-duplicated per subscriber
// audience. A reading's value always tracks the current fuse outcome —
// a gap makes it unavailable on the very tick it happens; only the
// first-event grace delays the *event*, never the value.
type Reading struct {
	kind  model.ReadingKind
	index model.DeviceIndex
	clock clock.Clock
	fuse  Fuser

	constructedAt time.Time

	mu             sync.RWMutex
	status         model.Status
	value          model.Value
	firstEventSent bool
	lastEvent      model.Event

	subscribersMu sync.RWMutex
	subscribers   []Subscriber
}

// New returns a Reading identified by (kind, index) that fuses its
// sources on each Tick through fuse.
func New(kind model.ReadingKind, index model.DeviceIndex, c clock.Clock, fuse Fuser) *Reading {
	return &Reading{
		kind:          kind,
		index:         index,
		clock:         c,
		fuse:          fuse,
		constructedAt: c.Now(),
		status:        model.StatusUnset,
		value:         model.Unset,
	}
}

func (r *Reading) Kind() model.ReadingKind  { return r.kind }
func (r *Reading) Index() model.DeviceIndex { return r.index }

// Value returns the reading's last fused value and whether it is
// currently available to consumers.
func (r *Reading) Value() (model.Value, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.value, r.status == model.StatusValid
}

// Subscribe registers fn for this reading's future status transitions.
func (r *Reading) Subscribe(fn Subscriber) {
	r.subscribersMu.Lock()
	defer r.subscribersMu.Unlock()
	r.subscribers = append(r.subscribers, fn)
}

// Unsubscribe is a no-op placeholder matching the façade's surface:
// callers track their own Subscriber value and simply stop acting on
// it. A future revision may need a unique subscription handle if
// per-subscriber teardown becomes necessary.
func (r *Reading) Unsubscribe(Subscriber) {}

// Tick re-fuses the reading's sources and dispatches the binary
// available/unavailable event when it changes. The first event is
// special-cased: availability reports immediately, but an unavailable
// start stays quiet until AvailabilityGrace has elapsed since
// construction, so a platform still discovering its sensors doesn't
// open with a storm of missing-reading events. That startup quiet is
// the only grace there is — after the first event, every transition
// reports on the tick it happens.
func (r *Reading) Tick(ctx context.Context, store *sensorreading.Store) {
	value, ok := r.fuse.Fuse(store)

	r.mu.Lock()
	if ok {
		r.status = model.StatusValid
		r.value = value
	} else {
		r.status = model.StatusUnavailable
		r.value = model.Unset
	}

	nextEvent := model.EventReadingAvailable
	if !ok {
		nextEvent = model.EventReadingUnavailable
	}

	report := false
	switch {
	case r.firstEventSent:
		report = nextEvent != r.lastEvent
	case ok:
		report = true
	default:
		report = r.clock.Since(r.constructedAt) >= AvailabilityGrace
	}

	var events []model.Event
	if report {
		r.firstEventSent = true
		r.lastEvent = nextEvent
		events = append(events, nextEvent)
	}
	reportValue := r.value
	r.mu.Unlock()

	if sca, isSCA := r.fuse.(SourceChangeAware); isSCA && sca.SourceChanged() && ok {
		events = append(events, model.EventReadingSourceChanged)
	}
	if len(events) == 0 {
		return
	}
	r.dispatch(events, reportValue)
}

func (r *Reading) dispatch(events []model.Event, value model.Value) {
	r.subscribersMu.RLock()
	subs := append([]Subscriber(nil), r.subscribers...)
	r.subscribersMu.RUnlock()
	for _, event := range events {
		for _, sub := range subs {
			sub(r.kind, r.index, event, value)
		}
	}
}
