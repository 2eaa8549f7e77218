// SPDX-License-Identifier: BSD-3-Clause

package knob_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/u-bmc/nodemgr/pkg/clock"
	"github.com/u-bmc/nodemgr/pkg/knob"
	"github.com/u-bmc/nodemgr/pkg/model"
	"github.com/u-bmc/nodemgr/pkg/sensorreading"
)

func TestCompositeAcceleratorKnobConvergesAllFourEffecters(t *testing.T) {
	ctx := context.Background()
	store := sensorreading.NewStore(clock.NewTest(time.Now()))
	gateKey := sensorreading.Key{Kind: model.SensorKindAcceleratorPowerState, Index: 0}
	gate, err := store.Create(gateKey)
	require.NoError(t, err)
	require.NoError(t, gate.Observe(ctx, true, true, model.FromAcceleratorPowerState(model.AcceleratorPowerStateOn)))

	om := newFakeObjectManager()
	maxCapability := func() (float64, bool) { return 300, true }
	k := knob.NewCompositeAcceleratorKnob(ctx, knob.Key{Kind: model.KnobKindAcceleratorPower, Index: 0}, om, "/xyz/accelerator0", maxCapability, 0)

	require.NoError(t, k.Set(150))
	require.Eventually(t, func() bool {
		k.Tick(ctx, nil, store)
		return k.IsSet()
	}, time.Second, time.Millisecond)

	pl1, ok := om.get("/xyz/accelerator0", string(knob.EffecterPL1))
	require.True(t, ok)
	assert.Equal(t, 150.0, pl1)

	pl2, ok := om.get("/xyz/accelerator0", string(knob.EffecterPL2))
	require.True(t, ok)
	assert.Equal(t, 150.0*knob.DefaultShortMultiplier, pl2)

	tau1, ok := om.get("/xyz/accelerator0", string(knob.EffecterPL1Tau))
	require.True(t, ok)
	assert.Equal(t, knob.DefaultPL1TauSeconds, tau1)

	assert.Equal(t, model.HealthOK, k.Health())
}

func TestCompositeAcceleratorKnobClampsPL2ToMaxCapability(t *testing.T) {
	ctx := context.Background()
	store := sensorreading.NewStore(clock.NewTest(time.Now()))
	gateKey := sensorreading.Key{Kind: model.SensorKindAcceleratorPowerState, Index: 0}
	gate, err := store.Create(gateKey)
	require.NoError(t, err)
	require.NoError(t, gate.Observe(ctx, true, true, model.FromAcceleratorPowerState(model.AcceleratorPowerStateOn)))

	om := newFakeObjectManager()
	maxCapability := func() (float64, bool) { return 100, true }
	k := knob.NewCompositeAcceleratorKnob(ctx, knob.Key{Kind: model.KnobKindAcceleratorPower, Index: 0}, om, "/xyz/accelerator0", maxCapability, 0)

	require.NoError(t, k.Set(150))
	require.Eventually(t, func() bool {
		k.Tick(ctx, nil, store)
		return k.IsSet()
	}, time.Second, time.Millisecond)

	pl2, ok := om.get("/xyz/accelerator0", string(knob.EffecterPL2))
	require.True(t, ok)
	assert.Equal(t, 100.0, pl2, "PL2 = 150*1.2 = 180, clamped down to the 100W max capability")
}

func TestCompositeAcceleratorKnobGatesOnAcceleratorPowerState(t *testing.T) {
	ctx := context.Background()
	store := sensorreading.NewStore(clock.NewTest(time.Now()))
	_, err := store.Create(sensorreading.Key{Kind: model.SensorKindAcceleratorPowerState, Index: 0})
	require.NoError(t, err)

	om := newFakeObjectManager()
	maxCapability := func() (float64, bool) { return 300, true }
	k := knob.NewCompositeAcceleratorKnob(ctx, knob.Key{Kind: model.KnobKindAcceleratorPower, Index: 0}, om, "/xyz/accelerator0", maxCapability, 0)

	require.NoError(t, k.Set(150))
	k.Tick(ctx, nil, store)

	_, ok := om.get("/xyz/accelerator0", string(knob.EffecterPL1))
	assert.False(t, ok, "accelerator power is off, no effecter writes should be scheduled")
	assert.False(t, k.IsSet())
}
