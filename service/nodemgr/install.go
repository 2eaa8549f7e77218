// SPDX-License-Identifier: BSD-3-Clause

package nodemgr

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/u-bmc/nodemgr/pkg/clock"
	"github.com/u-bmc/nodemgr/pkg/hwmon"
	"github.com/u-bmc/nodemgr/pkg/knob"
	"github.com/u-bmc/nodemgr/pkg/model"
	"github.com/u-bmc/nodemgr/pkg/peci"
	"github.com/u-bmc/nodemgr/pkg/provider"
	"github.com/u-bmc/nodemgr/pkg/reading"
	"github.com/u-bmc/nodemgr/pkg/sensor"
	"github.com/u-bmc/nodemgr/pkg/sensorreading"
)

// peciClientAddr returns the PECI client address for CPU socket index,
// following the reference platform's convention of addressing sockets
// starting at 0x30.
func peciClientAddr(index model.DeviceIndex) uint8 {
	return 0x30 + uint8(index)
}

// platform is everything Install builds for one running instance: the
// sensors, readings, and knobs handed to the DeviceManager, plus the
// background discovery loops the caller must start alongside it.
type platform struct {
	sensors  []sensor.Sensor
	readings []*reading.Reading
	knobs    []knob.Knob

	// Bound while installing the per-source sensor groups, consumed by
	// the fused readings wired last so they can bind to their inputs.
	acPlatformPowerKey sensorreading.Key
	psuPowerKeys       []sensorreading.Key
	cpuEnergyKeys      []sensorreading.Key
	dramEnergyKeys     []sensorreading.Key
}

// buildPlatform constructs the concrete Sensor Set, Reading Set, and
// Knob Set for cfg's topology, grounded on the file, accelerator, and
// GPIO providers' already-populated snapshots. It performs one
// synchronous discovery pass on each provider before wiring sensors
// against their entries, since Install must see a stable topology
// before the first Tick.
func buildPlatform(
	ctx context.Context,
	c clock.Clock,
	cfg *config,
	store *sensorreading.Store,
	fileProvider *provider.FileProvider,
	accelProvider *provider.AcceleratorProvider,
	gpioProvider *provider.GPIOProvider,
	om provider.ObjectManager,
	transport peci.Transport,
) (*platform, error) {
	fileProvider.Scan(ctx)
	accelProvider.Refresh(ctx)

	p := &platform{}

	p.installPlatformBusSensors(c, om)
	p.installCPUs(c, cfg, transport)
	p.installDRAM(c, fileProvider)
	p.installPSUs(c, cfg, fileProvider)
	if err := p.installAccelerators(ctx, c, cfg, store, accelProvider, om); err != nil {
		return nil, err
	}
	if err := p.installGPIOs(c, gpioProvider); err != nil {
		return nil, err
	}
	p.installFileKnobs(ctx, fileProvider)
	p.installFusedReadings(c)

	return p, nil
}

// installFileKnobs wires one hwmon-cap-file knob per writable cap file
// the Hardware File Provider discovered. Cap files take integer
// milliwatts, so targets scale by hwmon.UnitToMilli; the clamp window
// comes from the sibling _cap_min/_cap_max attributes when the driver
// exposes them.
func (p *platform) installFileKnobs(ctx context.Context, fileProvider *provider.FileProvider) {
	gateKey := sensorreading.Key{Kind: model.SensorKindHostPowerState, Index: 0}

	for _, kind := range []model.KnobKind{model.KnobKindCPUPackagePower, model.KnobKindDRAMPower} {
		for _, e := range fileProvider.KnobEntries(kind) {
			key := knob.Key{Kind: kind, Index: e.Index}

			var opts []knob.FileKnobOption
			if minRaw, maxRaw, ok := readCapBounds(ctx, e.Path); ok {
				opts = append(opts, knob.WithRawBounds(minRaw, maxRaw))
			}

			p.knobs = append(p.knobs, knob.NewFileKnob(key, e.Path, hwmon.UnitToMilli, 0, gateKey, opts...))
		}
	}
}

// readCapBounds reads the _cap_min/_cap_max attributes that sit beside
// a _cap file. Drivers that don't publish bounds simply leave the knob
// unclamped.
func readCapBounds(ctx context.Context, capPath string) (minRaw, maxRaw int64, ok bool) {
	base := strings.TrimSuffix(capPath, "_cap")

	rawMin, err := hwmon.ReadStringCtx(ctx, base+"_cap_min")
	if err != nil {
		return 0, 0, false
	}
	rawMax, err := hwmon.ReadStringCtx(ctx, base+"_cap_max")
	if err != nil {
		return 0, 0, false
	}

	minRaw, errMin := strconv.ParseInt(rawMin, 10, 64)
	maxRaw, errMax := strconv.ParseInt(rawMax, 10, 64)
	if errMin != nil || errMax != nil || maxRaw <= minRaw {
		return 0, 0, false
	}

	return minRaw, maxRaw, true
}

// installFusedReadings wires the readings that bind across source
// groups, after every group has installed its sensors: the
// multi-source platform power and the all-devices PSU aggregates.
func (p *platform) installFusedReadings(c clock.Clock) {
	// Platform input power prefers the dedicated AC power sensor and
	// falls back to the highest-priority PSU input rail that still
	// reports, emitting a source-changed event whenever the active
	// source moves.
	sources := append([]sensorreading.Key{p.acPlatformPowerKey}, p.psuPowerKeys...)
	p.readings = append(p.readings, reading.NewMultiSourceReading(model.ReadingKindACPlatformPower, 0, c, sources))

	if len(p.psuPowerKeys) > 0 {
		p.readings = append(p.readings,
			reading.NewMaxOf(model.ReadingKindPSUPowerInputMax, model.AllDevices, c, p.psuPowerKeys),
			reading.NewMinOf(model.ReadingKindPSUPowerInputMin, model.AllDevices, c, p.psuPowerKeys),
			reading.NewAverage(model.ReadingKindPSUPowerInputAverage, model.AllDevices, c, p.psuPowerKeys),
			reading.NewHistoricalMaxTotal(model.ReadingKindPSUHistoricalMaxPower, c, p.psuPowerKeys),
		)
	}

	// All-devices totals over the counter-derived readings: platform-wide
	// CPU and DRAM power as the sum of every per-device delta.
	if len(p.cpuEnergyKeys) > 0 {
		p.readings = append(p.readings, reading.NewDeltaTotal(model.ReadingKindCPUPackagePower, c, p.cpuEnergyKeys, reading.Wrap32))
	}
	if len(p.dramEnergyKeys) > 0 {
		p.readings = append(p.readings, reading.NewDeltaTotal(model.ReadingKindDRAMPower, c, p.dramEnergyKeys, reading.Wrap32))
	}
}

// installPlatformBusSensors wires the single-instance chassis/platform
// observables that come from the object service rather than a
// per-device topology.
func (p *platform) installPlatformBusSensors(c clock.Clock, om provider.ObjectManager) {
	const chassisPath = "/xyz/openbmc_project/state/chassis0"
	const platformPath = "/xyz/openbmc_project/state/platform0"

	zero := model.DeviceIndex(0)

	hostPowerKey := sensorreading.Key{Kind: model.SensorKindHostPowerState, Index: zero}
	p.sensors = append(p.sensors, sensor.NewBusPropertySensor(hostPowerKey, om, chassisPath, "CurrentPowerState", sensor.DecodePowerState))

	platformPowerKey := sensorreading.Key{Kind: model.SensorKindPlatformPowerState, Index: zero}
	p.sensors = append(p.sensors, sensor.NewBusPropertySensor(platformPowerKey, om, platformPath, "CurrentPowerState", sensor.DecodePowerState))

	inletKey := sensorreading.Key{Kind: model.SensorKindInletTemperature, Index: zero}
	p.sensors = append(p.sensors, sensor.NewBusPropertySensor(inletKey, om, "/xyz/openbmc_project/sensors/temperature/inlet", "Value", sensor.DecodeFloat64))
	p.readings = append(p.readings, reading.NewPassThrough(model.ReadingKindInletTemperature, zero, c, inletKey))

	outletKey := sensorreading.Key{Kind: model.SensorKindOutletTemperature, Index: zero}
	p.sensors = append(p.sensors, sensor.NewBusPropertySensor(outletKey, om, "/xyz/openbmc_project/sensors/temperature/outlet", "Value", sensor.DecodeFloat64))
	p.readings = append(p.readings, reading.NewPassThrough(model.ReadingKindOutletTemperature, zero, c, outletKey))

	// The AC platform power reading itself is wired later as a
	// multi-source over this sensor plus the PSU input rails.
	acKey := sensorreading.Key{Kind: model.SensorKindACPlatformPower, Index: zero}
	p.sensors = append(p.sensors, sensor.NewBusPropertySensor(acKey, om, platformPath, "ACPower", sensor.DecodeFloat64))
	p.acPlatformPowerKey = acKey

	dcKey := sensorreading.Key{Kind: model.SensorKindDCPlatformPower, Index: zero}
	p.sensors = append(p.sensors, sensor.NewBusPropertySensor(dcKey, om, platformPath, "DCPower", sensor.DecodeFloat64))
	p.readings = append(p.readings, reading.NewPassThrough(model.ReadingKindDCPlatformPower, zero, c, dcKey))

	efficiency := reading.NewPlatformPowerEfficiency(zero, c, acKey, dcKey)
	p.readings = append(p.readings, efficiency)

	dcLimitKey := sensorreading.Key{Kind: model.SensorKindDCPlatformPowerLimit, Index: zero}
	p.sensors = append(p.sensors, sensor.NewBusPropertySensor(dcLimitKey, om, platformPath, "DCPowerLimit", sensor.DecodeFloat64))
	p.readings = append(p.readings, reading.NewPassThrough(model.ReadingKindDCPlatformPowerLimit, zero, c, dcLimitKey))
	p.readings = append(p.readings, reading.NewACPlatformPowerLimit(zero, c, dcLimitKey, efficiency))

	dcLimitKnobKey := knob.Key{Kind: model.KnobKindDCPlatformPower, Index: zero}
	p.knobs = append(p.knobs, knob.NewPlatformKnob(dcLimitKnobKey, om, platformPath, "DCPowerLimitSetpoint", 0))
}

// installCPUs wires one socket's worth of PECI-backed sensors, readings,
// and knobs per CPU index in cfg's topology.
func (p *platform) installCPUs(c clock.Clock, cfg *config, transport peci.Transport) {
	var cpuIDKeys []sensorreading.Key

	for i := 0; i < cfg.cpuCount; i++ {
		index := model.DeviceIndex(i)
		addr := peciClientAddr(index)

		cpuIDKey := sensorreading.Key{Kind: model.SensorKindCPUID, Index: index}
		cpuIDKeys = append(cpuIDKeys, cpuIDKey)
		p.sensors = append(p.sensors, sensor.NewCPUBusCapabilitySensor(cpuIDKey, transport, peci.Request{ClientAddr: addr, Cmd: peci.CommandGetDIB, ReadLen: 4}, 4))

		dieMaskKey := sensorreading.Key{Kind: model.SensorKindCPUDieMask, Index: index}
		p.sensors = append(p.sensors, sensor.NewCPUBusCapabilitySensor(dieMaskKey, transport, peci.Request{ClientAddr: addr, Cmd: peci.CommandRdPkgConfig, Index: peci.PkgConfigIndexDieMask, ReadLen: 1}, 1))

		maxTurboKey := sensorreading.Key{Kind: model.SensorKindCPUMaxTurboRatio, Index: index}
		p.sensors = append(p.sensors, sensor.NewCPUBusCapabilitySensor(maxTurboKey, transport, peci.TurboRatioRequest(addr, peci.CPUID(0)), 1))

		minOpKey := sensorreading.Key{Kind: model.SensorKindCPUMinOperatingRatio, Index: index}
		p.sensors = append(p.sensors, sensor.NewCPUBusCapabilitySensor(minOpKey, transport, peci.Request{ClientAddr: addr, Cmd: peci.CommandRdPkgConfig, Index: peci.PkgConfigIndexMinOperating, ReadLen: 1}, 1))

		maxOpKey := sensorreading.Key{Kind: model.SensorKindCPUMaxOperatingRatio, Index: index}
		p.sensors = append(p.sensors, sensor.NewCPUBusCapabilitySensor(maxOpKey, transport, peci.Request{ClientAddr: addr, Cmd: peci.CommandRdPkgConfig, Index: peci.PkgConfigIndexMaxOperating, ReadLen: 1}, 1))

		maxNonTurboKey := sensorreading.Key{Kind: model.SensorKindCPUMaxNonTurboRatio, Index: index}
		p.sensors = append(p.sensors, sensor.NewCPUBusCapabilitySensor(maxNonTurboKey, transport, peci.Request{ClientAddr: addr, Cmd: peci.CommandRdPkgConfig, Index: peci.PkgConfigIndexMaxNonTurbo, ReadLen: 1}, 1))

		utilKey := sensorreading.Key{Kind: model.SensorKindCPUUtilization, Index: index}
		p.sensors = append(p.sensors, sensor.NewCPUUtilizationSampleSensor(utilKey, transport, peci.Request{ClientAddr: addr, Cmd: peci.CommandRdPkgConfig, Index: peci.PkgConfigIndexUtilization, ReadLen: 20}))
		p.readings = append(p.readings, reading.NewCPUUtilizationReading(index, c, utilKey))

		energyKey := sensorreading.Key{Kind: model.SensorKindCPUPackagePower, Index: index}
		p.sensors = append(p.sensors, sensor.NewCPUBusSampleSensor(energyKey, transport, peci.Request{ClientAddr: addr, Cmd: peci.CommandRdPkgConfig, Index: peci.PkgConfigIndexPackageEnergy, ReadLen: 4}))
		p.readings = append(p.readings, reading.NewDelta(model.ReadingKindCPUPackagePower, index, c, energyKey, reading.Wrap32))
		p.readings = append(p.readings, reading.NewPassThrough(model.ReadingKindCPUEnergy, index, c, energyKey))
		p.cpuEnergyKeys = append(p.cpuEnergyKeys, energyKey)

		efficiencyKey := sensorreading.Key{Kind: model.SensorKindCPUEfficiency, Index: index}
		p.sensors = append(p.sensors, sensor.NewCPUBusSampleSensor(efficiencyKey, transport, peci.Request{ClientAddr: addr, Cmd: peci.CommandRdPkgConfig, Index: peci.PkgConfigIndexEfficiency, ReadLen: 4}))

		avgFreqKey := sensorreading.Key{Kind: model.SensorKindCPUAverageFrequency, Index: index}
		p.sensors = append(p.sensors, sensor.NewCPUBusSampleSensor(avgFreqKey, transport, peci.Request{ClientAddr: addr, Cmd: peci.CommandRdPkgConfig, Index: peci.PkgConfigIndexAvgFrequency, ReadLen: 4}))

		turboKnobKey := knob.Key{Kind: model.KnobKindTurboRatioLimit, Index: index}
		p.knobs = append(p.knobs, knob.NewRatioKnob(turboKnobKey, transport, addr, peci.PkgConfigIndexTurboRatio, 0, float64(cfg.turboRatioDefault)))

		prochotKnobKey := knob.Key{Kind: model.KnobKindProchotRatio, Index: index}
		p.knobs = append(p.knobs, knob.NewRatioKnob(prochotKnobKey, transport, addr, peci.PkgConfigIndexTDP, 0, float64(cfg.prochotDefault)))

		const (
			hwpmPreferenceMSR      = 0x774
			hwpmBiasMSR            = 0x1B0
			hwpmOverrideMSR        = 0x775
			hwpmPreferenceReserved = 0xFF00
			hwpmBiasReserved       = 0xFFF0
		)
		hwpmKnobKey := knob.Key{Kind: model.KnobKindHWPMPreference, Index: index}
		p.knobs = append(p.knobs, knob.NewPreferenceKnob(hwpmKnobKey, transport, addr, 0, hwpmPreferenceMSR, hwpmPreferenceReserved, 0))

		hwpmBiasKey := knob.Key{Kind: model.KnobKindHWPMBias, Index: index}
		p.knobs = append(p.knobs, knob.NewPreferenceKnob(hwpmBiasKey, transport, addr, 0, hwpmBiasMSR, hwpmBiasReserved, 0))

		hwpmOverrideKey := knob.Key{Kind: model.KnobKindHWPMPreferenceOverride, Index: index}
		p.knobs = append(p.knobs, knob.NewPreferenceKnob(hwpmOverrideKey, transport, addr, 0, hwpmOverrideMSR, hwpmPreferenceReserved, 0))
	}

	if len(cpuIDKeys) > 0 {
		p.readings = append(p.readings, reading.NewCPUPresence(model.AllDevices, c, cpuIDKeys))
	}
}

// installDRAM wires one DRAM domain's worth of hwmon-backed energy
// sensors per file the Hardware File Provider discovered, deriving
// instantaneous power from the 32-bit wrapping energy counter the same
// way the CPU package power reading does.
func (p *platform) installDRAM(c clock.Clock, fileProvider *provider.FileProvider) {
	entries := fileProvider.Entries(model.SensorKindDRAMEnergy)
	for _, e := range entries {
		key := sensorreading.Key{Kind: model.SensorKindDRAMEnergy, Index: e.Index}
		p.sensors = append(p.sensors, sensor.NewFileSensor(key, e.Path, hwmon.MicroToUnit))
		p.readings = append(p.readings, reading.NewDelta(model.ReadingKindDRAMPower, e.Index, c, key, reading.Wrap32))
		p.readings = append(p.readings, reading.NewPassThrough(model.ReadingKindDRAMEnergy, e.Index, c, key))
		p.dramEnergyKeys = append(p.dramEnergyKeys, key)
	}
}

// installPSUs wires one PSU's worth of hwmon-backed sensors/readings per
// file the Hardware File Provider discovered, bounded by the
// configured PSU count so a mislabeled hwmon node can't inflate the
// topology.
func (p *platform) installPSUs(c clock.Clock, cfg *config, fileProvider *provider.FileProvider) {
	for _, e := range fileProvider.Entries(model.SensorKindPSUPowerInput) {
		if int(e.Index) >= cfg.psuCount {
			continue
		}
		key := sensorreading.Key{Kind: model.SensorKindPSUPowerInput, Index: e.Index}
		p.sensors = append(p.sensors, sensor.NewFileSensor(key, e.Path, hwmon.MicroToUnit))
		p.readings = append(p.readings, reading.NewPassThrough(model.ReadingKindPSUPowerInput, e.Index, c, key))
		p.readings = append(p.readings, reading.NewHistoricalMax(model.ReadingKindPSUHistoricalMaxPower, e.Index, c, key))
		p.psuPowerKeys = append(p.psuPowerKeys, key)
	}

	for _, e := range fileProvider.Entries(model.SensorKindPSUPowerRatedMax) {
		if int(e.Index) >= cfg.psuCount {
			continue
		}
		key := sensorreading.Key{Kind: model.SensorKindPSUPowerRatedMax, Index: e.Index}
		p.sensors = append(p.sensors, sensor.NewFileSensor(key, e.Path, hwmon.MicroToUnit))
		p.readings = append(p.readings, reading.NewPassThrough(model.ReadingKindPSUPowerRatedMax, e.Index, c, key))
	}
}

// installAccelerators wires one accelerator slot's worth of object-
// service-backed sensors/readings/knobs per entity the Accelerator
// Entity Provider discovered.
func (p *platform) installAccelerators(ctx context.Context, c clock.Clock, cfg *config, store *sensorreading.Store, accelProvider *provider.AcceleratorProvider, om provider.ObjectManager) error {
	entities := accelProvider.Entities()
	if len(entities) == 0 {
		return nil
	}
	var accelKeys []sensorreading.Key
	for _, e := range entities {
		// The provider derived this from the card's own instance number,
		// so it survives reordering of the object list.
		index := e.Index
		if int(index) >= cfg.acceleratorCount {
			return fmt.Errorf("nodemgr: accelerator %s/%s claims instance %d but the platform is configured for %d slots", e.TransportID, e.DeviceName, int(index)+1, cfg.acceleratorCount)
		}

		stateKey := sensorreading.Key{Kind: model.SensorKindAcceleratorPowerState, Index: index}
		p.sensors = append(p.sensors, sensor.NewAcceleratorPropertySensor(stateKey, accelProvider, e.Path, "PowerState", sensor.DecodeAcceleratorPowerState))
		accelKeys = append(accelKeys, stateKey)

		powerKey := sensorreading.Key{Kind: model.SensorKindAcceleratorPower, Index: index}
		p.sensors = append(p.sensors, sensor.NewAcceleratorPropertySensor(powerKey, accelProvider, e.Path, "Power", sensor.DecodeFloat64))
		p.readings = append(p.readings, reading.NewPassThrough(model.ReadingKindAcceleratorPower, index, c, powerKey))

		maxCapKey := sensorreading.Key{Kind: model.SensorKindAcceleratorMaxPowerCapability, Index: index}
		p.sensors = append(p.sensors, sensor.NewAcceleratorPropertySensor(maxCapKey, accelProvider, e.Path, "MaxPowerCapability", sensor.DecodeFloat64))
		maxCapability := func() (float64, bool) {
			v, ok := store.GetIfGood(maxCapKey)
			if !ok {
				return 0, false
			}
			return v.AsFloat64()
		}

		pl1KnobKey := knob.Key{Kind: model.KnobKindAcceleratorPower, Index: index}
		p.knobs = append(p.knobs, knob.NewCompositeAcceleratorKnob(ctx, pl1KnobKey, om, e.Path, maxCapability, 0))
	}

	p.readings = append(p.readings, reading.NewAcceleratorPresence(model.AllDevices, c, accelKeys))
	return nil
}

// installGPIOs runs GPIO discovery, reserves every line the provider
// enumerated, and wires a sensor for each: the smart-throttle interrupt
// line gets its dedicated reading, the host-reset line becomes an
// active-low HostResetState sensor, and every other line becomes a
// plain GPIOState sensor.
func (p *platform) installGPIOs(c clock.Clock, gpioProvider *provider.GPIOProvider) error {
	if err := gpioProvider.Discover(); err != nil {
		return fmt.Errorf("nodemgr: discover gpio lines: %w", err)
	}

	for i := 0; i < gpioProvider.Count(); i++ {
		rawName, _ := gpioProvider.Name(i)
		line, ok := gpioProvider.Line(i)
		if !ok {
			continue
		}
		if err := gpioProvider.Reserve(i); err != nil {
			return fmt.Errorf("nodemgr: reserve gpio line %s: %w", rawName, err)
		}
		index := model.DeviceIndex(i)

		name := strings.ToLower(rawName)
		switch {
		case strings.HasSuffix(name, "smart_throttle"):
			key := sensorreading.Key{Kind: model.SensorKindSmartThrottleStatus, Index: index}
			p.sensors = append(p.sensors, sensor.NewSmartThrottleStatusSensor(key, line))
			p.readings = append(p.readings, reading.NewSmartThrottleInterrupt(index, c, key))
		case strings.HasSuffix(name, "host_reset"):
			key := sensorreading.Key{Kind: model.SensorKindHostResetState, Index: model.DeviceIndex(0)}
			p.sensors = append(p.sensors, sensor.NewGPIOSensor(key, line, true))
		default:
			key := sensorreading.Key{Kind: model.SensorKindGPIOState, Index: index}
			p.sensors = append(p.sensors, sensor.NewGPIOSensor(key, line, false))
		}
	}

	return nil
}
