// SPDX-License-Identifier: BSD-3-Clause

package knob_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/u-bmc/nodemgr/pkg/asyncexec"
	"github.com/u-bmc/nodemgr/pkg/clock"
	"github.com/u-bmc/nodemgr/pkg/knob"
	"github.com/u-bmc/nodemgr/pkg/model"
	"github.com/u-bmc/nodemgr/pkg/sensorreading"
)

func drain(t *testing.T, exec *knob.Executor, k knob.Knob) {
	t.Helper()
	require.Eventually(t, func() bool {
		pending := false
		exec.Poll(func(r asyncexec.Result[knob.Key, knob.Result]) {
			if r.Key == k.Key() {
				k.HandleResult(r.Value)
				pending = true
			}
		})
		return pending
	}, time.Second, time.Millisecond)
}

func TestFileKnobGatesOnPowerState(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "power1_cap")
	require.NoError(t, os.WriteFile(path, []byte("0"), 0o644))

	ctx := context.Background()
	store := sensorreading.NewStore(clock.NewTest(time.Now()))
	presentCPU(t, store, 0)
	gateKey := sensorreading.Key{Kind: model.SensorKindHostPowerState, Index: 0}
	gate, err := store.Create(gateKey)
	require.NoError(t, err)

	exec := asyncexec.New[knob.Key, knob.Result](ctx, 4)
	k := knob.NewFileKnob(knob.Key{Kind: model.KnobKindCPUPackagePower, Index: 0}, path, 1e6, 0, gateKey)

	require.NoError(t, k.Set(50))
	k.Tick(ctx, exec, store)
	assert.False(t, exec.IsPending(k.Key()), "power is off, no write should be scheduled")

	require.NoError(t, gate.Observe(ctx, true, true, model.FromPowerState(model.PowerStateOn)))
	k.Tick(ctx, exec, store)
	drain(t, exec, k)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "50000000", string(raw))
	assert.Equal(t, model.HealthOK, k.Health())
}

func TestFileKnobReportsWarningOnWriteError(t *testing.T) {
	ctx := context.Background()
	store := sensorreading.NewStore(clock.NewTest(time.Now()))
	presentCPU(t, store, 0)
	gateKey := sensorreading.Key{Kind: model.SensorKindHostPowerState, Index: 0}
	gate, err := store.Create(gateKey)
	require.NoError(t, err)
	require.NoError(t, gate.Observe(ctx, true, true, model.FromPowerState(model.PowerStateOn)))

	exec := asyncexec.New[knob.Key, knob.Result](ctx, 4)
	k := knob.NewFileKnob(knob.Key{Kind: model.KnobKindCPUPackagePower, Index: 0}, "/nonexistent/dir/power1_cap", 1, 0, gateKey)

	require.NoError(t, k.Set(50))
	k.Tick(ctx, exec, store)
	drain(t, exec, k)

	assert.Equal(t, model.HealthWarning, k.Health())
	assert.False(t, k.IsSet(), "a failed write clears last-written, so the knob isn't considered set")
}

func TestFileKnobWriteFailureAfterSuccessClearsIsSet(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "power1_cap")
	require.NoError(t, os.WriteFile(path, []byte("0"), 0o644))

	ctx := context.Background()
	store := sensorreading.NewStore(clock.NewTest(time.Now()))
	presentCPU(t, store, 0)
	gateKey := sensorreading.Key{Kind: model.SensorKindHostPowerState, Index: 0}
	gate, err := store.Create(gateKey)
	require.NoError(t, err)
	require.NoError(t, gate.Observe(ctx, true, true, model.FromPowerState(model.PowerStateOn)))

	exec := asyncexec.New[knob.Key, knob.Result](ctx, 4)
	k := knob.NewFileKnob(knob.Key{Kind: model.KnobKindCPUPackagePower, Index: 0}, path, 1e6, 0, gateKey)

	require.NoError(t, k.Set(5))
	k.Tick(ctx, exec, store)
	drain(t, exec, k)
	require.True(t, k.IsSet())
	require.Equal(t, model.HealthOK, k.Health())

	require.NoError(t, os.Remove(path))
	require.NoError(t, os.Mkdir(path, 0o755)) // turn the path into a directory so the next write fails

	require.NoError(t, k.Set(6))
	k.Tick(ctx, exec, store)
	drain(t, exec, k)

	assert.Equal(t, model.HealthWarning, k.Health())
	assert.False(t, k.IsSet(), "the failed write to 6W clears last-written, even though 5W was confirmed earlier")
}

func TestFileKnobResetWritesResetValue(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "power1_cap")
	require.NoError(t, os.WriteFile(path, []byte("0"), 0o644))

	ctx := context.Background()
	store := sensorreading.NewStore(clock.NewTest(time.Now()))
	presentCPU(t, store, 0)
	gateKey := sensorreading.Key{Kind: model.SensorKindHostPowerState, Index: 0}
	gate, err := store.Create(gateKey)
	require.NoError(t, err)
	require.NoError(t, gate.Observe(ctx, true, true, model.FromPowerState(model.PowerStateOn)))

	exec := asyncexec.New[knob.Key, knob.Result](ctx, 4)
	k := knob.NewFileKnob(knob.Key{Kind: model.KnobKindCPUPackagePower, Index: 0}, path, 1, 250, gateKey)

	require.NoError(t, k.Set(50))
	assert.False(t, k.IsSet(), "not set until the write is confirmed")
	k.Tick(ctx, exec, store)
	drain(t, exec, k)
	require.True(t, k.IsSet(), "set once the write to a non-default value completed")

	k.Reset()
	k.Tick(ctx, exec, store)
	drain(t, exec, k)
	assert.False(t, k.IsSet())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "250", string(raw))
}

func TestFileKnobNoWriteWhenNothingPending(t *testing.T) {
	ctx := context.Background()
	store := sensorreading.NewStore(clock.NewTest(time.Now()))
	presentCPU(t, store, 0)
	gateKey := sensorreading.Key{Kind: model.SensorKindHostPowerState, Index: 0}
	gate, err := store.Create(gateKey)
	require.NoError(t, err)
	require.NoError(t, gate.Observe(ctx, true, true, model.FromPowerState(model.PowerStateOn)))

	exec := asyncexec.New[knob.Key, knob.Result](ctx, 4)
	k := knob.NewFileKnob(knob.Key{Kind: model.KnobKindCPUPackagePower, Index: 0}, "/should/not/be/touched", 1, 0, gateKey)

	k.Tick(ctx, exec, store)
	assert.False(t, exec.IsPending(k.Key()), "no limit set and no reset pending means nothing scheduled")
}

func TestFileKnobClampsRawWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "power1_cap")
	require.NoError(t, os.WriteFile(path, []byte("0"), 0o644))

	ctx := context.Background()
	store := sensorreading.NewStore(clock.NewTest(time.Now()))
	presentCPU(t, store, 0)
	gateKey := sensorreading.Key{Kind: model.SensorKindHostPowerState, Index: 0}
	gate, err := store.Create(gateKey)
	require.NoError(t, err)
	require.NoError(t, gate.Observe(ctx, true, true, model.FromPowerState(model.PowerStateOn)))

	exec := asyncexec.New[knob.Key, knob.Result](ctx, 4)
	k := knob.NewFileKnob(knob.Key{Kind: model.KnobKindCPUPackagePower, Index: 0}, path, 1e3, 0, gateKey,
		knob.WithRawBounds(1, 5_000_000))

	require.NoError(t, k.Set(5.0))
	k.Tick(ctx, exec, store)
	drain(t, exec, k)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "5000", string(raw), "5 W converts to 5000 mW inside the clamp window")

	require.NoError(t, k.Set(9e6))
	k.Tick(ctx, exec, store)
	drain(t, exec, k)

	raw, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "5000000", string(raw), "an out-of-range target clamps to the cap file's maximum")

	k.Reset()
	k.Tick(ctx, exec, store)
	drain(t, exec, k)

	raw, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "0", string(raw), "reset writes the uncapped value even though 0 is below the minimum")
}

func TestFileKnobGatesOnCPUPresence(t *testing.T) {
	ctx := context.Background()
	store := sensorreading.NewStore(clock.NewTest(time.Now()))
	gateKey := sensorreading.Key{Kind: model.SensorKindHostPowerState, Index: 0}
	gate, err := store.Create(gateKey)
	require.NoError(t, err)
	require.NoError(t, gate.Observe(ctx, true, true, model.FromPowerState(model.PowerStateOn)))

	exec := asyncexec.New[knob.Key, knob.Result](ctx, 4)
	k := knob.NewFileKnob(knob.Key{Kind: model.KnobKindCPUPackagePower, Index: 0}, "/should/not/be/touched", 1, 0, gateKey)

	require.NoError(t, k.Set(50))
	k.Tick(ctx, exec, store)
	assert.False(t, exec.IsPending(k.Key()), "the socket is unpopulated, so there is no RAPL domain to cap")
}
