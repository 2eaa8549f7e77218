// SPDX-License-Identifier: BSD-3-Clause

package nodemgr

import (
	"fmt"
	"time"
)

const (
	DefaultServiceName        = "nodemgr"
	DefaultServiceDescription = "Node Manager device layer: sensor, reading, and knob pipeline"
	DefaultServiceVersion     = "1.0.0"
	DefaultTickInterval       = 100 * time.Millisecond
	DefaultMaxWorkers         = 8
	DefaultRequestTimeout     = 5 * time.Second

	// DefaultHwmonRoot is where the Hardware File Provider scans for
	// power/energy attribute files.
	DefaultHwmonRoot = "/sys/class/hwmon"
	// DefaultPECIDevicePath is the I2C adapter node PECI frames travel
	// over on the reference platform.
	DefaultPECIDevicePath = "/dev/i2c-4"
	// DefaultGPIOPrefix is the line-name prefix the GPIO Provider only
	// considers lines under.
	DefaultGPIOPrefix = "NODEMGR_"
	// DefaultAcceleratorPathPrefix scopes the object-service entities the
	// Accelerator Entity Provider polls.
	DefaultAcceleratorPathPrefix = "/xyz/openbmc_project/inventory/accelerator"
	// DefaultDiscoveryPeriod is how often the Hardware File Provider and
	// Accelerator Entity Provider rescan/repoll.
	DefaultDiscoveryPeriod = 30 * time.Second
	// DefaultCPUCount, DefaultAcceleratorCount, and DefaultPSUCount size
	// the platform's Install wiring when no topology override is given.
	DefaultCPUCount         = 2
	DefaultAcceleratorCount = 0
	DefaultPSUCount         = 2
	// DefaultTurboRatioLimit and DefaultProchotRatio are the reset values
	// written to those knobs on Reset/Shutdown.
	DefaultTurboRatioLimit = 0xFF
	DefaultProchotRatio    = 0xFF
)

// config holds Service's construction-time settings, assembled from
// functional options.
type config struct {
	serviceName        string
	serviceDescription string
	serviceVersion     string
	tickInterval       time.Duration
	maxWorkers         int
	requestTimeout     time.Duration

	hwmonRoot             string
	peciDevicePath        string
	gpioPrefix            string
	acceleratorPathPrefix string
	discoveryPeriod       time.Duration

	cpuCount         int
	acceleratorCount int
	psuCount         int

	turboRatioDefault uint8
	prochotDefault    uint8
}

func (c *config) Validate() error {
	if c.serviceName == "" {
		return fmt.Errorf("%w: service name cannot be empty", ErrInvalidConfiguration)
	}
	if c.tickInterval <= 0 {
		return fmt.Errorf("%w: tick interval must be positive", ErrInvalidConfiguration)
	}
	if c.maxWorkers <= 0 {
		return fmt.Errorf("%w: max workers must be positive", ErrInvalidConfiguration)
	}
	if c.cpuCount < 0 || c.acceleratorCount < 0 || c.psuCount < 0 {
		return fmt.Errorf("%w: device counts cannot be negative", ErrInvalidConfiguration)
	}
	return nil
}

// Option configures a Service at construction time.
type Option interface {
	apply(*config)
}

type optionFunc func(*config)

func (f optionFunc) apply(c *config) { f(c) }

// WithServiceName overrides the NATS micro service name.
func WithServiceName(name string) Option {
	return optionFunc(func(c *config) { c.serviceName = name })
}

// WithTickInterval overrides how often the device manager's Tick runs.
func WithTickInterval(d time.Duration) Option {
	return optionFunc(func(c *config) { c.tickInterval = d })
}

// WithMaxWorkers overrides the shared sensor/knob executors' worker cap.
func WithMaxWorkers(n int) Option {
	return optionFunc(func(c *config) { c.maxWorkers = n })
}

// WithRequestTimeout overrides the timeout the NATS object manager
// applies to each object-service request it makes.
func WithRequestTimeout(d time.Duration) Option {
	return optionFunc(func(c *config) { c.requestTimeout = d })
}

// WithHwmonRoot overrides where the Hardware File Provider scans.
func WithHwmonRoot(path string) Option {
	return optionFunc(func(c *config) { c.hwmonRoot = path })
}

// WithPECIDevicePath overrides the I2C device node PECI transactions
// travel over.
func WithPECIDevicePath(path string) Option {
	return optionFunc(func(c *config) { c.peciDevicePath = path })
}

// WithGPIOPrefix overrides the line-name prefix the GPIO Provider
// restricts itself to.
func WithGPIOPrefix(prefix string) Option {
	return optionFunc(func(c *config) { c.gpioPrefix = prefix })
}

// WithAcceleratorPathPrefix overrides the object-service path prefix the
// Accelerator Entity Provider polls.
func WithAcceleratorPathPrefix(prefix string) Option {
	return optionFunc(func(c *config) { c.acceleratorPathPrefix = prefix })
}

// WithDiscoveryPeriod overrides how often the file and accelerator
// providers rescan/repoll.
func WithDiscoveryPeriod(d time.Duration) Option {
	return optionFunc(func(c *config) { c.discoveryPeriod = d })
}

// WithTopology overrides the number of CPU sockets, accelerator slots,
// and PSUs Install wires sensors/readings/knobs for.
func WithTopology(cpuCount, acceleratorCount, psuCount int) Option {
	return optionFunc(func(c *config) {
		c.cpuCount = cpuCount
		c.acceleratorCount = acceleratorCount
		c.psuCount = psuCount
	})
}

// WithTurboRatioDefault overrides the turbo-ratio-limit knob's reset
// value.
func WithTurboRatioDefault(v uint8) Option {
	return optionFunc(func(c *config) { c.turboRatioDefault = v })
}

// WithProchotDefault overrides the PROCHOT-ratio knob's reset value.
func WithProchotDefault(v uint8) Option {
	return optionFunc(func(c *config) { c.prochotDefault = v })
}
