// SPDX-License-Identifier: BSD-3-Clause

package devicemanager_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/u-bmc/nodemgr/pkg/clock"
	"github.com/u-bmc/nodemgr/pkg/devicemanager"
	"github.com/u-bmc/nodemgr/pkg/knob"
	"github.com/u-bmc/nodemgr/pkg/model"
	"github.com/u-bmc/nodemgr/pkg/provider"
	"github.com/u-bmc/nodemgr/pkg/sensor"
	"github.com/u-bmc/nodemgr/pkg/sensorreading"
)

// fakeObjectManager reports a single object with one fixed property,
// just enough to back a gate sensor.
type fakeObjectManager struct {
	path     string
	property string
	value    any
}

func (f *fakeObjectManager) GetManagedObjects(ctx context.Context, pathPrefix string) ([]provider.ManagedObject, error) {
	return []provider.ManagedObject{{Path: f.path, Properties: map[string]any{f.property: f.value}}}, nil
}

func (f *fakeObjectManager) SubscribePropertiesChanged(ctx context.Context, pathPrefix string, fn func(path string, changed map[string]any)) error {
	return nil
}

func (f *fakeObjectManager) SetProperty(ctx context.Context, path, property string, value any) error {
	return nil
}

// newKnobGateSensors returns the host-power-state sensor (powered on)
// and CPU package power sensors for sockets 0 and 1, which together
// open every file knob's write gate.
func newKnobGateSensors() (sensorreading.Key, []sensor.Sensor) {
	gateKey := sensorreading.Key{Kind: model.SensorKindHostPowerState, Index: 0}
	hostOM := &fakeObjectManager{path: "/chassis0", property: "power_state", value: "on"}
	host := sensor.NewBusPropertySensor(gateKey, hostOM, "/chassis0", "power_state", sensor.DecodePowerState)

	cpu0Key := sensorreading.Key{Kind: model.SensorKindCPUPackagePower, Index: 0}
	cpu0OM := &fakeObjectManager{path: "/cpu0", property: "power", value: 95.0}
	cpu0 := sensor.NewBusPropertySensor(cpu0Key, cpu0OM, "/cpu0", "power", sensor.DecodeFloat64)

	cpu1Key := sensorreading.Key{Kind: model.SensorKindCPUPackagePower, Index: 1}
	cpu1OM := &fakeObjectManager{path: "/cpu1", property: "power", value: 95.0}
	cpu1 := sensor.NewBusPropertySensor(cpu1Key, cpu1OM, "/cpu1", "power", sensor.DecodeFloat64)

	return gateKey, []sensor.Sensor{host, cpu0, cpu1}
}

// tickUntilSet drives the manager's pipeline until k reports set, or
// fails the test after a generous number of attempts. Knob writes
// complete on a background goroutine, so a single Tick isn't guaranteed
// to observe the result.
func tickUntilSet(t *testing.T, ctx context.Context, d *devicemanager.DeviceManager, kind model.KnobKind, index model.DeviceIndex) {
	t.Helper()
	require.Eventually(t, func() bool {
		require.NoError(t, d.Tick(ctx))
		set, err := d.IsKnobSet(kind, index)
		require.NoError(t, err)
		return set
	}, time.Second, time.Millisecond)
}

func TestSetAndForgetPowerCap(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "power1_cap")
	require.NoError(t, os.WriteFile(path, []byte("0"), 0o644))

	c := clock.NewTest(time.Now())
	d, err := devicemanager.New(ctx, c, 4)
	require.NoError(t, err)

	gateKey, gateSensors := newKnobGateSensors()
	k := knob.NewFileKnob(knob.Key{Kind: model.KnobKindCPUPackagePower, Index: 0}, path, 1e6, 0, gateKey)
	require.NoError(t, d.Install(ctx, gateSensors, nil, []knob.Knob{k}))

	require.NoError(t, d.SetKnob(model.KnobKindCPUPackagePower, 0, 5))

	tickUntilSet(t, ctx, d, model.KnobKindCPUPackagePower, 0)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "5000000", string(raw))
	assert.Equal(t, model.HealthOK, d.Health())
}

func TestShutdownResetsEveryKnob(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	pathA := filepath.Join(dir, "power1_cap")
	pathB := filepath.Join(dir, "power2_cap")
	require.NoError(t, os.WriteFile(pathA, []byte("0"), 0o644))
	require.NoError(t, os.WriteFile(pathB, []byte("0"), 0o644))

	c := clock.NewTest(time.Now())
	d, err := devicemanager.New(ctx, c, 4)
	require.NoError(t, err)

	gateKey, gateSensors := newKnobGateSensors()
	kA := knob.NewFileKnob(knob.Key{Kind: model.KnobKindCPUPackagePower, Index: 0}, pathA, 1e3, 0, gateKey)
	kB := knob.NewFileKnob(knob.Key{Kind: model.KnobKindCPUPackagePower, Index: 1}, pathB, 1e3, 0, gateKey)
	require.NoError(t, d.Install(ctx, gateSensors, nil, []knob.Knob{kA, kB}))

	require.NoError(t, d.SetKnob(model.KnobKindCPUPackagePower, 0, 666.999))
	require.NoError(t, d.SetKnob(model.KnobKindCPUPackagePower, 1, 9.966))
	tickUntilSet(t, ctx, d, model.KnobKindCPUPackagePower, 0)
	tickUntilSet(t, ctx, d, model.KnobKindCPUPackagePower, 1)

	require.NoError(t, d.Shutdown(ctx))

	rawA, err := os.ReadFile(pathA)
	require.NoError(t, err)
	assert.Equal(t, "0", string(rawA))

	rawB, err := os.ReadFile(pathB)
	require.NoError(t, err)
	assert.Equal(t, "0", string(rawB))
}

func TestSetKnobFansOutToAllDevices(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	pathA := filepath.Join(dir, "power1_cap")
	pathB := filepath.Join(dir, "power2_cap")
	require.NoError(t, os.WriteFile(pathA, []byte("0"), 0o644))
	require.NoError(t, os.WriteFile(pathB, []byte("0"), 0o644))

	c := clock.NewTest(time.Now())
	d, err := devicemanager.New(ctx, c, 4)
	require.NoError(t, err)

	gateKey, gateSensors := newKnobGateSensors()
	kA := knob.NewFileKnob(knob.Key{Kind: model.KnobKindCPUPackagePower, Index: 0}, pathA, 1, 0, gateKey)
	kB := knob.NewFileKnob(knob.Key{Kind: model.KnobKindCPUPackagePower, Index: 1}, pathB, 1, 0, gateKey)
	require.NoError(t, d.Install(ctx, gateSensors, nil, []knob.Knob{kA, kB}))

	require.NoError(t, d.SetKnob(model.KnobKindCPUPackagePower, model.AllDevices, 42))

	require.Eventually(t, func() bool {
		require.NoError(t, d.Tick(ctx))
		set, err := d.IsKnobSet(model.KnobKindCPUPackagePower, model.AllDevices)
		require.NoError(t, err)
		return set
	}, time.Second, time.Millisecond)

	rawA, err := os.ReadFile(pathA)
	require.NoError(t, err)
	assert.Equal(t, "42", string(rawA))
	rawB, err := os.ReadFile(pathB)
	require.NoError(t, err)
	assert.Equal(t, "42", string(rawB))
}
