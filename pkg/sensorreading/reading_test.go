// SPDX-License-Identifier: BSD-3-Clause

package sensorreading_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/u-bmc/nodemgr/pkg/clock"
	"github.com/u-bmc/nodemgr/pkg/model"
	"github.com/u-bmc/nodemgr/pkg/sensorreading"
)

func TestObserveUnsetToValidFiresAppearedAndAvailable(t *testing.T) {
	ctx := context.Background()
	store := sensorreading.NewStore(clock.NewTest(time.Now()))
	key := sensorreading.Key{Kind: model.SensorKindCPUID, Index: 0}
	r, err := store.Create(key)
	require.NoError(t, err)

	var got []model.Event
	r.Subscribe(func(k sensorreading.Key, events []model.Event, value model.Value) {
		got = append(got, events...)
	})

	require.NoError(t, r.Observe(ctx, true, true, model.FromUint32(1)))

	assert.Equal(t, model.StatusValid, r.Status())
	assert.Equal(t, []model.Event{model.EventSensorAppeared, model.EventReadingAvailable}, got)
}

func TestObserveValidToUnavailableFiresDisappearedAndMissing(t *testing.T) {
	ctx := context.Background()
	store := sensorreading.NewStore(clock.NewTest(time.Now()))
	key := sensorreading.Key{Kind: model.SensorKindCPUID, Index: 0}
	r, err := store.Create(key)
	require.NoError(t, err)
	require.NoError(t, r.Observe(ctx, true, true, model.FromUint32(1)))

	var got []model.Event
	r.Subscribe(func(k sensorreading.Key, events []model.Event, value model.Value) {
		got = append(got, events...)
	})

	require.NoError(t, r.Observe(ctx, false, false, model.Unset))

	assert.Equal(t, model.StatusUnavailable, r.Status())
	assert.Equal(t, []model.Event{model.EventSensorDisappeared, model.EventReadingMissing}, got)
}

func TestObserveSameStatusFiresNoEvents(t *testing.T) {
	ctx := context.Background()
	store := sensorreading.NewStore(clock.NewTest(time.Now()))
	key := sensorreading.Key{Kind: model.SensorKindCPUID, Index: 0}
	r, err := store.Create(key)
	require.NoError(t, err)
	require.NoError(t, r.Observe(ctx, true, true, model.FromUint32(1)))

	called := false
	r.Subscribe(func(k sensorreading.Key, events []model.Event, value model.Value) {
		called = true
	})

	require.NoError(t, r.Observe(ctx, true, true, model.FromUint32(2)))
	assert.False(t, called, "remaining Valid is not a transition")

	v, ok := r.Value()
	require.True(t, ok)
	got, _ := v.AsUint32()
	assert.EqualValues(t, 2, got, "the value still updates even without a status transition")
}

func TestLastValidAtOnlyAdvancesOnValidObservations(t *testing.T) {
	ctx := context.Background()
	c := clock.NewTest(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	store := sensorreading.NewStore(c)
	key := sensorreading.Key{Kind: model.SensorKindCPUID, Index: 0}
	r, err := store.Create(key)
	require.NoError(t, err)

	require.NoError(t, r.Observe(ctx, true, true, model.FromUint32(1)))
	firstValid := r.LastValidAt()
	assert.Equal(t, c.Now(), firstValid)

	c.Advance(time.Minute)
	require.NoError(t, r.Observe(ctx, true, false, model.Unset))
	assert.Equal(t, firstValid, r.LastValidAt(), "an invalid observation does not move LastValidAt")
}
