// SPDX-License-Identifier: BSD-3-Clause

package provider_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/u-bmc/nodemgr/pkg/model"
	"github.com/u-bmc/nodemgr/pkg/provider"
)

// writeDevice lays out one hwmon device directory. busDevice, when
// non-empty, becomes the basename of the device symlink target, the way
// sysfs links a hwmon class directory back to its backing bus device.
func writeDevice(t *testing.T, root, dir, name, busDevice string, attrs map[string]string) {
	t.Helper()
	devicePath := filepath.Join(root, dir)
	require.NoError(t, os.MkdirAll(devicePath, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(devicePath, "name"), []byte(name+"\n"), 0o644))
	for attr, value := range attrs {
		require.NoError(t, os.WriteFile(filepath.Join(devicePath, attr), []byte(value), 0o644))
	}
	if busDevice != "" {
		target := filepath.Join(root, "devices", busDevice)
		require.NoError(t, os.MkdirAll(target, 0o755))
		require.NoError(t, os.Symlink(target, filepath.Join(devicePath, "device")))
	}
}

func TestFileProviderIndexesByBusAddress(t *testing.T) {
	root := t.TempDir()
	// Two PSUs at PMBus addresses 0x58 and 0x59: indices 0 and 1
	// regardless of each driver's own attribute numbering.
	writeDevice(t, root, "hwmon0", "psu", "3-0058", map[string]string{
		"power1_input": "250000000",
	})
	writeDevice(t, root, "hwmon1", "psu", "3-0059", map[string]string{
		"power1_input":     "260000000",
		"power1_rated_max": "1200000000",
	})
	// A CPU socket at management-bus address 0x31: index 1.
	writeDevice(t, root, "hwmon2", "coretemp", "0-0031", map[string]string{
		"power1_average": "90000000",
		"power1_cap":     "0",
	})

	p := provider.NewFileProvider(root, provider.DefaultPathTemplates(), provider.DefaultKnobPathTemplates(), time.Hour)
	p.Scan(context.Background())

	psu := p.Entries(model.SensorKindPSUPowerInput)
	require.Len(t, psu, 2)
	byIndex := map[model.DeviceIndex]string{}
	for _, e := range psu {
		byIndex[e.Index] = e.Path
	}
	assert.Equal(t, filepath.Join(root, "hwmon0", "power1_input"), byIndex[0])
	assert.Equal(t, filepath.Join(root, "hwmon1", "power1_input"), byIndex[1])

	rated := p.Entries(model.SensorKindPSUPowerRatedMax)
	require.Len(t, rated, 1)
	assert.Equal(t, model.DeviceIndex(1), rated[0].Index)

	cpu := p.Entries(model.SensorKindCPUPackagePower)
	require.Len(t, cpu, 1)
	assert.Equal(t, model.DeviceIndex(1), cpu[0].Index, "address 0x31 minus the 0x30 base")

	caps := p.KnobEntries(model.KnobKindCPUPackagePower)
	require.Len(t, caps, 1)
	assert.Equal(t, model.DeviceIndex(1), caps[0].Index)
	assert.Equal(t, filepath.Join(root, "hwmon2", "power1_cap"), caps[0].Path)
}

func TestFileProviderFallsBackToAttributeNumberWithoutBusDevice(t *testing.T) {
	root := t.TempDir()
	writeDevice(t, root, "hwmon0", "psu", "", map[string]string{
		"power1_input": "250000000",
		"power2_input": "260000000",
	})

	p := provider.NewFileProvider(root, provider.DefaultPathTemplates(), provider.DefaultKnobPathTemplates(), time.Hour)
	p.Scan(context.Background())

	psu := p.Entries(model.SensorKindPSUPowerInput)
	require.Len(t, psu, 2)
	byIndex := map[model.DeviceIndex]string{}
	for _, e := range psu {
		byIndex[e.Index] = e.Path
	}
	assert.Equal(t, filepath.Join(root, "hwmon0", "power1_input"), byIndex[0],
		"a software hwmon device indexes by its attribute number, zero-based")
	assert.Equal(t, filepath.Join(root, "hwmon0", "power2_input"), byIndex[1])
}

func TestFileProviderIgnoresAddressesBelowFamilyBase(t *testing.T) {
	root := t.TempDir()
	writeDevice(t, root, "hwmon0", "psu", "3-0010", map[string]string{
		"power1_input": "1",
	})

	p := provider.NewFileProvider(root, provider.DefaultPathTemplates(), provider.DefaultKnobPathTemplates(), time.Hour)
	p.Scan(context.Background())
	assert.Empty(t, p.Entries(model.SensorKindPSUPowerInput),
		"an address below the family's base cannot map to a device index")
}

func TestFileProviderScanSkipsUnrelatedDevices(t *testing.T) {
	root := t.TempDir()
	writeDevice(t, root, "hwmon0", "unrelated", "3-0058", map[string]string{
		"power1_input": "1",
	})

	p := provider.NewFileProvider(root, provider.DefaultPathTemplates(), provider.DefaultKnobPathTemplates(), time.Hour)
	p.Scan(context.Background())
	assert.Empty(t, p.Entries(model.SensorKindPSUPowerInput))
	assert.Empty(t, p.KnobEntries(model.KnobKindDRAMPower))
}

func TestFileProviderRescanDropsStaleEntries(t *testing.T) {
	root := t.TempDir()
	writeDevice(t, root, "hwmon0", "psu", "3-0058", map[string]string{"power1_input": "1"})

	p := provider.NewFileProvider(root, provider.DefaultPathTemplates(), provider.DefaultKnobPathTemplates(), time.Hour)
	p.Scan(context.Background())
	require.Len(t, p.Entries(model.SensorKindPSUPowerInput), 1)

	require.NoError(t, os.RemoveAll(filepath.Join(root, "hwmon0")))
	p.Scan(context.Background())
	assert.Empty(t, p.Entries(model.SensorKindPSUPowerInput),
		"a mapping whose file disappeared is dropped on the next scan")
}

func TestFileProviderEntriesBeforeFirstScanAreEmpty(t *testing.T) {
	p := provider.NewFileProvider(t.TempDir(), provider.DefaultPathTemplates(), provider.DefaultKnobPathTemplates(), time.Hour)
	assert.Empty(t, p.Entries(model.SensorKindPSUPowerInput))
	assert.Empty(t, p.KnobEntries(model.KnobKindCPUPackagePower))
}
