// SPDX-License-Identifier: BSD-3-Clause

package sensor_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/u-bmc/nodemgr/pkg/asyncexec"
	"github.com/u-bmc/nodemgr/pkg/hwmon"
	"github.com/u-bmc/nodemgr/pkg/model"
	"github.com/u-bmc/nodemgr/pkg/sensor"
	"github.com/u-bmc/nodemgr/pkg/sensorreading"
)

// tickOnce schedules one read, waits for it to complete, and applies it
// through HandleResult the same way the device manager's drain loop
// does, returning the effective result the store would observe.
func tickOnce(t *testing.T, s sensor.Sensor, exec *sensor.Executor) sensor.Result {
	t.Helper()
	s.Tick(context.Background(), exec)

	var result sensor.Result
	require.Eventually(t, func() bool {
		got := false
		exec.Poll(func(r asyncexec.Result[sensorreading.Key, sensor.Result]) {
			if r.Key == s.Key() {
				result = s.HandleResult(r.Value)
				got = true
			}
		})
		return got
	}, time.Second, time.Millisecond)
	return result
}

func TestFileSensorScalesMicrowattsToWatts(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "power1_average")
	require.NoError(t, os.WriteFile(path, []byte("5000000\n"), 0o644))

	key := sensorreading.Key{Kind: model.SensorKindPSUPowerInput, Index: 0}
	exec := asyncexec.New[sensorreading.Key, sensor.Result](context.Background(), 2)
	s := sensor.NewFileSensor(key, path, hwmon.MicroToUnit)

	r := tickOnce(t, s, exec)
	require.True(t, r.Present)
	require.True(t, r.Valid)
	v, ok := r.Value.AsFloat64()
	require.True(t, ok)
	assert.InDelta(t, 5.0, v, 1e-9)
	assert.Equal(t, model.HealthOK, s.Health())
}

func TestFileSensorMissingFileIsUnavailableImmediately(t *testing.T) {
	key := sensorreading.Key{Kind: model.SensorKindPSUPowerInput, Index: 0}
	exec := asyncexec.New[sensorreading.Key, sensor.Result](context.Background(), 2)
	s := sensor.NewFileSensor(key, filepath.Join(t.TempDir(), "gone"), hwmon.MicroToUnit)

	r := tickOnce(t, s, exec)
	assert.False(t, r.Present, "an absent backend maps straight to unavailable, no retries")
	assert.Equal(t, model.HealthOK, s.Health(), "a removed device is not a sensor fault")
}

func TestFileSensorRidesOutTransientFailuresOnLastGoodValue(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "power1_average")
	require.NoError(t, os.WriteFile(path, []byte("7000000"), 0o644))

	key := sensorreading.Key{Kind: model.SensorKindPSUPowerInput, Index: 0}
	exec := asyncexec.New[sensorreading.Key, sensor.Result](context.Background(), 2)
	s := sensor.NewFileSensor(key, path, hwmon.MicroToUnit)

	r := tickOnce(t, s, exec)
	require.True(t, r.Valid)

	// Corrupt the file: the next two ticks keep publishing the last good
	// value, the third gives up and goes invalid.
	require.NoError(t, os.WriteFile(path, []byte("not-a-number"), 0o644))

	for i := 0; i < 2; i++ {
		r = tickOnce(t, s, exec)
		require.True(t, r.Present)
		require.True(t, r.Valid, "tick %d should still ride on the last good value", i+1)
		v, ok := r.Value.AsFloat64()
		require.True(t, ok)
		assert.InDelta(t, 7.0, v, 1e-9)
	}

	r = tickOnce(t, s, exec)
	assert.True(t, r.Present)
	assert.False(t, r.Valid, "the retry budget is exhausted")
	assert.Equal(t, model.HealthWarning, s.Health())

	// A successful read recovers and re-arms the budget.
	require.NoError(t, os.WriteFile(path, []byte("8000000"), 0o644))
	r = tickOnce(t, s, exec)
	require.True(t, r.Valid)
	v, ok := r.Value.AsFloat64()
	require.True(t, ok)
	assert.InDelta(t, 8.0, v, 1e-9)
	assert.Equal(t, model.HealthOK, s.Health())
}
