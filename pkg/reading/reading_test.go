// SPDX-License-Identifier: BSD-3-Clause

package reading_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/u-bmc/nodemgr/pkg/clock"
	"github.com/u-bmc/nodemgr/pkg/model"
	"github.com/u-bmc/nodemgr/pkg/reading"
	"github.com/u-bmc/nodemgr/pkg/sensorreading"
)

func TestReadingGoesUnavailableImmediatelyOnSourceGap(t *testing.T) {
	ctx := context.Background()
	c := clock.NewTest(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	store := sensorreading.NewStore(c)
	key := sensorreading.Key{Kind: model.SensorKindInletTemperature, Index: 0}
	sr, err := store.Create(key)
	require.NoError(t, err)

	r := reading.NewPassThrough(model.ReadingKindInletTemperature, 0, c, key)

	var events []model.Event
	r.Subscribe(func(kind model.ReadingKind, index model.DeviceIndex, event model.Event, value model.Value) {
		events = append(events, event)
	})

	require.NoError(t, sr.Observe(ctx, true, true, model.FromFloat64(30)))
	r.Tick(ctx, store)
	v, ok := r.Value()
	require.True(t, ok)
	got, _ := v.AsFloat64()
	assert.Equal(t, 30.0, got)

	require.NoError(t, sr.Observe(ctx, false, false, model.Unset))
	r.Tick(ctx, store)

	_, ok = r.Value()
	assert.False(t, ok, "a source gap makes the value unavailable on the tick it happens, never a held stale value")
	assert.Equal(t, []model.Event{model.EventReadingAvailable, model.EventReadingUnavailable}, events,
		"once the first event has been sent, a gap reports immediately, with no further grace")
}

func TestReadingStartupGraceIsOneShot(t *testing.T) {
	ctx := context.Background()
	c := clock.NewTest(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	store := sensorreading.NewStore(c)
	key := sensorreading.Key{Kind: model.SensorKindInletTemperature, Index: 0}
	sr, err := store.Create(key)
	require.NoError(t, err)

	r := reading.NewPassThrough(model.ReadingKindInletTemperature, 0, c, key)

	var events []model.Event
	r.Subscribe(func(kind model.ReadingKind, index model.DeviceIndex, event model.Event, value model.Value) {
		events = append(events, event)
	})

	// First gap: quiet until the startup window elapses, then exactly
	// one unavailable event.
	c.Advance(reading.AvailabilityGrace + time.Second)
	r.Tick(ctx, store)
	require.Equal(t, []model.Event{model.EventReadingUnavailable}, events)

	// Source recovers.
	require.NoError(t, sr.Observe(ctx, true, true, model.FromFloat64(30)))
	r.Tick(ctx, store)
	require.Equal(t, []model.Event{model.EventReadingUnavailable, model.EventReadingAvailable}, events)

	// Second gap: unavailable on the very next tick. The startup window
	// was consumed before the first event and never re-arms.
	require.NoError(t, sr.Observe(ctx, false, false, model.Unset))
	r.Tick(ctx, store)
	assert.Equal(t,
		[]model.Event{model.EventReadingUnavailable, model.EventReadingAvailable, model.EventReadingUnavailable},
		events,
		"a gap after recovery gets no new grace window")
	_, ok := r.Value()
	assert.False(t, ok)
}

func TestReadingDispatchesSubscribersOnTransition(t *testing.T) {
	ctx := context.Background()
	c := clock.NewTest(time.Now())
	store := sensorreading.NewStore(c)
	key := sensorreading.Key{Kind: model.SensorKindCPUID, Index: 0}
	sr, err := store.Create(key)
	require.NoError(t, err)

	r := reading.NewPassThrough(model.ReadingKindCPUUtilization, 0, c, key)

	var events []model.Event
	r.Subscribe(func(kind model.ReadingKind, index model.DeviceIndex, event model.Event, value model.Value) {
		events = append(events, event)
	})

	require.NoError(t, sr.Observe(ctx, true, true, model.FromUint32(1)))
	r.Tick(ctx, store)

	assert.Contains(t, events, model.EventReadingAvailable)
}

func TestReadingWithoutSensorFiresUnavailableExactlyOnceAfterGrace(t *testing.T) {
	ctx := context.Background()
	c := clock.NewTest(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	store := sensorreading.NewStore(c)
	key := sensorreading.Key{Kind: model.SensorKindInletTemperature, Index: 0}
	_, err := store.Create(key)
	require.NoError(t, err)

	r := reading.NewPassThrough(model.ReadingKindInletTemperature, 0, c, key)

	var events []model.Event
	r.Subscribe(func(kind model.ReadingKind, index model.DeviceIndex, event model.Event, value model.Value) {
		events = append(events, event)
	})

	for i := 0; i < 5; i++ {
		r.Tick(ctx, store)
		c.Advance(2 * time.Second)
	}
	assert.Empty(t, events, "no sensor has ever reported: nothing to notify during the startup grace")

	c.Advance(reading.AvailabilityGrace)
	r.Tick(ctx, store)
	assert.Equal(t, []model.Event{model.EventReadingUnavailable}, events)

	r.Tick(ctx, store)
	assert.Equal(t, []model.Event{model.EventReadingUnavailable}, events, "no duplicate consecutive reading_unavailable events")
}
