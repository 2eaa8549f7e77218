// SPDX-License-Identifier: BSD-3-Clause

package model

// SensorKind tags the physical observable a SensorReading carries.
type SensorKind int

const (
	SensorKindUnspecified SensorKind = iota

	// Hardware-file-backed power/energy observables.
	SensorKindCPUPackagePower
	SensorKindDRAMPower
	SensorKindDRAMEnergy
	SensorKindPSUPowerInput
	SensorKindPSUPowerRatedMax
	SensorKindAcceleratorPower

	// Bus-property-backed observables.
	SensorKindInletTemperature
	SensorKindOutletTemperature
	SensorKindHostResetState
	SensorKindHostPowerState
	SensorKindPlatformPowerState
	SensorKindACPlatformPower
	SensorKindDCPlatformPower
	SensorKindDCPlatformPowerLimit

	// Accelerator object-service-backed observables.
	SensorKindAcceleratorPowerState
	SensorKindAcceleratorPowerLimit
	SensorKindAcceleratorMaxPowerCapability

	// GPIO-backed observables.
	SensorKindGPIOState

	// CPU-management-bus sample sensors.
	SensorKindCPUEfficiency
	SensorKindCPUUtilization
	SensorKindCPUAverageFrequency

	// CPU-management-bus capability sensors.
	SensorKindCPUMinOperatingRatio
	SensorKindCPUMaxOperatingRatio
	SensorKindCPUMaxNonTurboRatio
	SensorKindCPUMaxTurboRatio
	SensorKindCPUID
	SensorKindCPUDieMask

	// Smart-throttle status.
	SensorKindSmartThrottleStatus
)

var sensorKindNames = map[SensorKind]string{
	SensorKindUnspecified:                   "unspecified",
	SensorKindCPUPackagePower:               "cpu_package_power",
	SensorKindDRAMPower:                     "dram_power",
	SensorKindDRAMEnergy:                    "dram_energy",
	SensorKindPSUPowerInput:                 "psu_power_input",
	SensorKindPSUPowerRatedMax:              "psu_power_rated_max",
	SensorKindAcceleratorPower:              "accelerator_power",
	SensorKindInletTemperature:              "inlet_temperature",
	SensorKindOutletTemperature:             "outlet_temperature",
	SensorKindHostResetState:                "host_reset_state",
	SensorKindHostPowerState:                "host_power_state",
	SensorKindPlatformPowerState:            "platform_power_state",
	SensorKindACPlatformPower:               "ac_platform_power",
	SensorKindDCPlatformPower:               "dc_platform_power",
	SensorKindDCPlatformPowerLimit:          "dc_platform_power_limit",
	SensorKindAcceleratorPowerState:         "accelerator_power_state",
	SensorKindAcceleratorPowerLimit:         "accelerator_power_limit",
	SensorKindAcceleratorMaxPowerCapability: "accelerator_max_power_capability",
	SensorKindGPIOState:                     "gpio_state",
	SensorKindCPUEfficiency:                 "cpu_efficiency",
	SensorKindCPUUtilization:                "cpu_utilization",
	SensorKindCPUAverageFrequency:           "cpu_average_frequency",
	SensorKindCPUMinOperatingRatio:          "cpu_min_operating_ratio",
	SensorKindCPUMaxOperatingRatio:          "cpu_max_operating_ratio",
	SensorKindCPUMaxNonTurboRatio:           "cpu_max_non_turbo_ratio",
	SensorKindCPUMaxTurboRatio:              "cpu_max_turbo_ratio",
	SensorKindCPUID:                         "cpu_id",
	SensorKindCPUDieMask:                    "cpu_die_mask",
	SensorKindSmartThrottleStatus:           "smart_throttle_status",
}

func (k SensorKind) String() string {
	if s, ok := sensorKindNames[k]; ok {
		return s
	}
	return "unknown_sensor_kind"
}

// ReadingKind tags a logical, fused platform observable exposed to
// consumers outside the core.
type ReadingKind int

const (
	ReadingKindUnspecified ReadingKind = iota
	ReadingKindCPUPackagePower
	ReadingKindDRAMPower
	ReadingKindInletTemperature
	ReadingKindOutletTemperature
	ReadingKindACPlatformPower
	ReadingKindDCPlatformPower
	ReadingKindDCPlatformPowerLimit
	ReadingKindACPlatformPowerLimit
	ReadingKindPlatformPowerEfficiency
	ReadingKindAcceleratorPower
	ReadingKindCPUEnergy
	ReadingKindDRAMEnergy
	ReadingKindCPUUtilization
	ReadingKindCPUPresence
	ReadingKindAcceleratorPresence
	ReadingKindSmartThrottleInterrupt
	ReadingKindPSUPowerInput
	ReadingKindPSUHistoricalMaxPower
	ReadingKindPSUPowerRatedMax
	ReadingKindPSUPowerInputMax
	ReadingKindPSUPowerInputMin
	ReadingKindPSUPowerInputAverage
)

var readingKindNames = map[ReadingKind]string{
	ReadingKindUnspecified:             "unspecified",
	ReadingKindCPUPackagePower:         "cpu_package_power",
	ReadingKindDRAMPower:               "dram_power",
	ReadingKindInletTemperature:        "inlet_temperature",
	ReadingKindOutletTemperature:       "outlet_temperature",
	ReadingKindACPlatformPower:         "ac_platform_power",
	ReadingKindDCPlatformPower:         "dc_platform_power",
	ReadingKindDCPlatformPowerLimit:    "dc_platform_power_limit",
	ReadingKindACPlatformPowerLimit:    "ac_platform_power_limit",
	ReadingKindPlatformPowerEfficiency: "platform_power_efficiency",
	ReadingKindAcceleratorPower:        "accelerator_power",
	ReadingKindCPUEnergy:               "cpu_energy",
	ReadingKindDRAMEnergy:              "dram_energy",
	ReadingKindCPUUtilization:          "cpu_utilization",
	ReadingKindCPUPresence:             "cpu_presence",
	ReadingKindAcceleratorPresence:     "accelerator_presence",
	ReadingKindSmartThrottleInterrupt:  "smart_throttle_interrupt",
	ReadingKindPSUPowerInput:           "psu_power_input",
	ReadingKindPSUHistoricalMaxPower:   "psu_historical_max_power",
	ReadingKindPSUPowerRatedMax:        "psu_power_rated_max",
	ReadingKindPSUPowerInputMax:        "psu_power_input_max",
	ReadingKindPSUPowerInputMin:        "psu_power_input_min",
	ReadingKindPSUPowerInputAverage:    "psu_power_input_average",
}

func (k ReadingKind) String() string {
	if s, ok := readingKindNames[k]; ok {
		return s
	}
	return "unknown_reading_kind"
}

// SensorKind reports the sensor kind a reading kind maps to 1:1, if any.
// Reading kinds that aggregate multiple sensor kinds (multi-source,
// compound AC limit, presence bitmaps) return ok=false: the reading itself
// decides which sensor kinds to consult.
func (k ReadingKind) SensorKind() (SensorKind, bool) {
	switch k {
	case ReadingKindCPUPackagePower:
		return SensorKindCPUPackagePower, true
	case ReadingKindDRAMPower:
		return SensorKindDRAMPower, true
	case ReadingKindInletTemperature:
		return SensorKindInletTemperature, true
	case ReadingKindOutletTemperature:
		return SensorKindOutletTemperature, true
	case ReadingKindACPlatformPower:
		return SensorKindACPlatformPower, true
	case ReadingKindDCPlatformPower:
		return SensorKindDCPlatformPower, true
	case ReadingKindDCPlatformPowerLimit:
		return SensorKindDCPlatformPowerLimit, true
	case ReadingKindAcceleratorPower:
		return SensorKindAcceleratorPower, true
	case ReadingKindPSUPowerInput, ReadingKindPSUHistoricalMaxPower:
		return SensorKindPSUPowerInput, true
	case ReadingKindPSUPowerRatedMax:
		return SensorKindPSUPowerRatedMax, true
	default:
		return SensorKindUnspecified, false
	}
}

// KnobKind tags an actuator.
type KnobKind int

const (
	KnobKindUnspecified KnobKind = iota
	KnobKindCPUPackagePower
	KnobKindDRAMPower
	KnobKindDCPlatformPower
	KnobKindAcceleratorPower
	KnobKindTurboRatioLimit
	KnobKindProchotRatio
	KnobKindHWPMPreference
	KnobKindHWPMBias
	KnobKindHWPMPreferenceOverride
)

var knobKindNames = map[KnobKind]string{
	KnobKindUnspecified:            "unspecified",
	KnobKindCPUPackagePower:        "cpu_package_power",
	KnobKindDRAMPower:              "dram_power",
	KnobKindDCPlatformPower:        "dc_platform_power",
	KnobKindAcceleratorPower:       "accelerator_power",
	KnobKindTurboRatioLimit:        "turbo_ratio_limit",
	KnobKindProchotRatio:           "prochot_ratio",
	KnobKindHWPMPreference:         "hwpm_preference",
	KnobKindHWPMBias:               "hwpm_bias",
	KnobKindHWPMPreferenceOverride: "hwpm_preference_override",
}

func (k KnobKind) String() string {
	if s, ok := knobKindNames[k]; ok {
		return s
	}
	return "unknown_knob_kind"
}
