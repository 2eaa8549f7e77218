// SPDX-License-Identifier: BSD-3-Clause

package knob_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/u-bmc/nodemgr/pkg/asyncexec"
	"github.com/u-bmc/nodemgr/pkg/clock"
	"github.com/u-bmc/nodemgr/pkg/knob"
	"github.com/u-bmc/nodemgr/pkg/model"
	"github.com/u-bmc/nodemgr/pkg/provider"
	"github.com/u-bmc/nodemgr/pkg/sensorreading"
)

type fakeObjectManager struct {
	mu  sync.Mutex
	set map[string]any
}

func newFakeObjectManager() *fakeObjectManager {
	return &fakeObjectManager{set: make(map[string]any)}
}

func (f *fakeObjectManager) GetManagedObjects(ctx context.Context, pathPrefix string) ([]provider.ManagedObject, error) {
	return nil, nil
}

func (f *fakeObjectManager) SubscribePropertiesChanged(ctx context.Context, pathPrefix string, fn func(path string, changed map[string]any)) error {
	return nil
}

func (f *fakeObjectManager) SetProperty(ctx context.Context, path, property string, value any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.set[path+"#"+property] = value
	return nil
}

func (f *fakeObjectManager) get(path, property string) (any, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.set[path+"#"+property]
	return v, ok
}

func TestAcceleratorKnobGatesOnAcceleratorPowerState(t *testing.T) {
	ctx := context.Background()
	store := sensorreading.NewStore(clock.NewTest(time.Now()))
	gateKey := sensorreading.Key{Kind: model.SensorKindAcceleratorPowerState, Index: 0}
	gate, err := store.Create(gateKey)
	require.NoError(t, err)

	om := newFakeObjectManager()
	exec := asyncexec.New[knob.Key, knob.Result](ctx, 4)
	k := knob.NewAcceleratorKnob(knob.Key{Kind: model.KnobKindAcceleratorPower, Index: 0}, om, "/xyz/accelerator0", knob.EffecterPL1, 0)

	require.NoError(t, k.Set(150))
	k.Tick(ctx, exec, store)
	assert.False(t, exec.IsPending(k.Key()), "accelerator power is off, no write scheduled")

	require.NoError(t, gate.Observe(ctx, true, true, model.FromAcceleratorPowerState(model.AcceleratorPowerStateOn)))
	k.Tick(ctx, exec, store)
	drain(t, exec, k)

	v, ok := om.get("/xyz/accelerator0", string(knob.EffecterPL1))
	require.True(t, ok)
	assert.Equal(t, 150.0, v)
}

func TestAcceleratorKnobIgnoresHostPowerState(t *testing.T) {
	ctx := context.Background()
	store := sensorreading.NewStore(clock.NewTest(time.Now()))
	hostKey := sensorreading.Key{Kind: model.SensorKindHostPowerState, Index: 0}
	host, err := store.Create(hostKey)
	require.NoError(t, err)
	require.NoError(t, host.Observe(ctx, true, true, model.FromPowerState(model.PowerStateOn)))

	om := newFakeObjectManager()
	exec := asyncexec.New[knob.Key, knob.Result](ctx, 4)
	k := knob.NewAcceleratorKnob(knob.Key{Kind: model.KnobKindAcceleratorPower, Index: 0}, om, "/xyz/accelerator0", knob.EffecterPL1, 0)

	require.NoError(t, k.Set(150))
	k.Tick(ctx, exec, store)
	assert.False(t, exec.IsPending(k.Key()), "host power being on does not open the accelerator gate")
}

func TestPlatformKnobGatesOnHostPowerState(t *testing.T) {
	ctx := context.Background()
	store := sensorreading.NewStore(clock.NewTest(time.Now()))
	presentCPU(t, store, 0)
	hostKey := sensorreading.Key{Kind: model.SensorKindHostPowerState, Index: 0}
	host, err := store.Create(hostKey)
	require.NoError(t, err)

	om := newFakeObjectManager()
	exec := asyncexec.New[knob.Key, knob.Result](ctx, 4)
	k := knob.NewPlatformKnob(knob.Key{Kind: model.KnobKindDCPlatformPower, Index: 0}, om, "/xyz/chassis0", "dc_platform_power_limit", 0)

	require.NoError(t, k.Set(900))
	k.Tick(ctx, exec, store)
	assert.False(t, exec.IsPending(k.Key()), "host power is off, no write scheduled")

	require.NoError(t, host.Observe(ctx, true, true, model.FromPowerState(model.PowerStateOn)))
	k.Tick(ctx, exec, store)
	drain(t, exec, k)

	v, ok := om.get("/xyz/chassis0", "dc_platform_power_limit")
	require.True(t, ok)
	assert.Equal(t, 900.0, v)
}
