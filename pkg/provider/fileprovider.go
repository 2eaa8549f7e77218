// SPDX-License-Identifier: BSD-3-Clause

package provider

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/u-bmc/nodemgr/pkg/hwmon"
	"github.com/u-bmc/nodemgr/pkg/model"
)

// IndexRule derives the device index for one discovered attribute file
// from the hwmon device directory it lives in and the attribute's own
// number (the N in powerN_average).
type IndexRule func(devicePath string, attrNumber int) (model.DeviceIndex, bool)

// IndexByDeviceAddress indexes a device by its position on the bus: the
// hwmon class directory links back to the backing bus device, whose
// name ends in the client address, and the index is that address minus
// the family's base address. Software-registered hwmon devices have no
// backing bus device node; for those the attribute's own number is the
// only index available and the rule falls back to it, zero-based.
func IndexByDeviceAddress(base uint8) IndexRule {
	return func(devicePath string, attrNumber int) (model.DeviceIndex, bool) {
		addr, ok := deviceAddress(devicePath)
		if !ok {
			if attrNumber < 1 {
				return 0, false
			}
			return clampIndex(attrNumber - 1), true
		}
		if addr < uint64(base) {
			return 0, false
		}
		return clampIndex(int(addr - uint64(base))), true
	}
}

// deviceAddress reads the bus address out of the device symlink beside
// a hwmon directory: the link target's basename is "<bus>-<addr>" with
// the address in hex, e.g. "3-0059".
func deviceAddress(devicePath string) (uint64, bool) {
	target, err := os.Readlink(filepath.Join(devicePath, "device"))
	if err != nil {
		return 0, false
	}
	name := filepath.Base(target)
	i := strings.LastIndexByte(name, '-')
	if i < 0 || i+1 >= len(name) {
		return 0, false
	}
	addr, err := strconv.ParseUint(name[i+1:], 16, 16)
	if err != nil {
		return 0, false
	}
	return addr, true
}

func clampIndex(n int) model.DeviceIndex {
	if n < 0 {
		n = 0
	}
	if n > 0xFE {
		n = 0xFE
	}
	return model.DeviceIndex(n)
}

// PathTemplate matches one family of hwmon attribute files against a
// device name and an attribute-file regex; Index derives the device
// index for each match.
type PathTemplate struct {
	Kind           model.SensorKind
	DeviceName     string
	AttributeRegex *regexp.Regexp
	Index          IndexRule
}

// DefaultPathTemplates are the readable path families the Hardware
// File Provider looks for: CPU package power under the coretemp hwmon
// device, DRAM energy under the dram RAPL domain, and PSU input and
// rated-max power under the platform's PSU hwmon driver.
func DefaultPathTemplates() []PathTemplate {
	return []PathTemplate{
		{
			Kind:           model.SensorKindCPUPackagePower,
			DeviceName:     "coretemp",
			AttributeRegex: regexp.MustCompile(`^power(\d+)_average$`),
			Index:          IndexByDeviceAddress(cpuBaseAddr),
		},
		{
			Kind:           model.SensorKindDRAMEnergy,
			DeviceName:     "dram",
			AttributeRegex: regexp.MustCompile(`^energy(\d+)_input$`),
			Index:          IndexByDeviceAddress(cpuBaseAddr),
		},
		{
			Kind:           model.SensorKindPSUPowerInput,
			DeviceName:     "psu",
			AttributeRegex: regexp.MustCompile(`^power(\d+)_input$`),
			Index:          IndexByDeviceAddress(psuBaseAddr),
		},
		{
			Kind:           model.SensorKindPSUPowerRatedMax,
			DeviceName:     "psu",
			AttributeRegex: regexp.MustCompile(`^power(\d+)_rated_max$`),
			Index:          IndexByDeviceAddress(psuBaseAddr),
		},
	}
}

// Per-family base addresses: CPU-attached devices (package power, DRAM
// RAPL) sit at the socket's management-bus client address, PSUs at the
// platform's PMBus address range.
const (
	cpuBaseAddr = 0x30
	psuBaseAddr = 0x58
)

// KnobPathTemplate matches one family of writable hwmon cap files the
// same way PathTemplate matches readable attributes, keyed by the knob
// kind the file actuates.
type KnobPathTemplate struct {
	Kind           model.KnobKind
	DeviceName     string
	AttributeRegex *regexp.Regexp
	Index          IndexRule
}

// DefaultKnobPathTemplates are the writable power-cap families: the
// CPU package RAPL cap and the DRAM RAPL cap.
func DefaultKnobPathTemplates() []KnobPathTemplate {
	return []KnobPathTemplate{
		{
			Kind:           model.KnobKindCPUPackagePower,
			DeviceName:     "coretemp",
			AttributeRegex: regexp.MustCompile(`^power(\d+)_cap$`),
			Index:          IndexByDeviceAddress(cpuBaseAddr),
		},
		{
			Kind:           model.KnobKindDRAMPower,
			DeviceName:     "dram",
			AttributeRegex: regexp.MustCompile(`^power(\d+)_cap$`),
			Index:          IndexByDeviceAddress(cpuBaseAddr),
		},
	}
}

// FileEntry is one discovered hwmon attribute file, ready to be read.
type FileEntry struct {
	Kind  model.SensorKind
	Index model.DeviceIndex
	Path  string
}

// KnobEntry is one discovered writable cap file, ready to be actuated.
type KnobEntry struct {
	Kind  model.KnobKind
	Index model.DeviceIndex
	Path  string
}

type fileIndex struct {
	entries     []FileEntry
	knobEntries []KnobEntry
}

// FileProvider discovers hwmon attribute files matching its templates in
// the background and hands Sensors an immutable, atomically-swapped
// snapshot to read from, so a tick never blocks on a directory scan.
type FileProvider struct {
	root          string
	templates     []PathTemplate
	knobTemplates []KnobPathTemplate
	period        time.Duration

	index atomic.Pointer[fileIndex]
}

// NewFileProvider returns a FileProvider rooted at hwmonRoot (typically
// hwmon.DefaultHwmonPath) using the sensor and knob templates,
// rescanning every period.
func NewFileProvider(hwmonRoot string, templates []PathTemplate, knobTemplates []KnobPathTemplate, period time.Duration) *FileProvider {
	p := &FileProvider{root: hwmonRoot, templates: templates, knobTemplates: knobTemplates, period: period}
	p.index.Store(&fileIndex{})
	return p
}

// Run scans once immediately, then rescans every p.period until ctx is
// canceled. A caller that launches Run in a goroutine has no guarantee
// that the first scan has finished when it next reads Entries; Scan
// populates Entries synchronously.
func (p *FileProvider) Run(ctx context.Context) {
	p.scan(ctx)

	ticker := time.NewTicker(p.period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.scan(ctx)
		}
	}
}

// Scan runs one discovery pass synchronously, so a caller can populate
// Entries before installing sensors that read them, without waiting for
// Run's background ticker.
func (p *FileProvider) Scan(ctx context.Context) {
	p.scan(ctx)
}

func (p *FileProvider) scan(ctx context.Context) {
	devices, err := hwmon.ListDevicesInPathCtx(ctx, p.root)
	if err != nil {
		return
	}

	var entries []FileEntry
	var knobEntries []KnobEntry
	for _, device := range devices {
		name, err := hwmon.ReadStringCtx(ctx, filepath.Join(device, "name"))
		if err != nil {
			continue
		}
		for _, tmpl := range p.templates {
			if tmpl.DeviceName != name {
				continue
			}
			attrs, err := hwmon.ListAttributesCtx(ctx, device, tmpl.AttributeRegex.String())
			if err != nil {
				continue
			}
			for _, attr := range attrs {
				m := tmpl.AttributeRegex.FindStringSubmatch(attr)
				if len(m) < 2 {
					continue
				}
				idx, ok := tmpl.Index(device, parseAttrNumber(m[1]))
				if !ok {
					continue
				}
				entries = append(entries, FileEntry{
					Kind:  tmpl.Kind,
					Index: idx,
					Path:  filepath.Join(device, attr),
				})
			}
		}
		for _, tmpl := range p.knobTemplates {
			if tmpl.DeviceName != name {
				continue
			}
			attrs, err := hwmon.ListAttributesCtx(ctx, device, tmpl.AttributeRegex.String())
			if err != nil {
				continue
			}
			for _, attr := range attrs {
				m := tmpl.AttributeRegex.FindStringSubmatch(attr)
				if len(m) < 2 {
					continue
				}
				idx, ok := tmpl.Index(device, parseAttrNumber(m[1]))
				if !ok {
					continue
				}
				knobEntries = append(knobEntries, KnobEntry{
					Kind:  tmpl.Kind,
					Index: idx,
					Path:  filepath.Join(device, attr),
				})
			}
		}
	}

	p.index.Store(&fileIndex{entries: entries, knobEntries: knobEntries})
}

// Entries returns the most recently discovered files matching kind.
func (p *FileProvider) Entries(kind model.SensorKind) []FileEntry {
	idx := p.index.Load()
	var out []FileEntry
	for _, e := range idx.entries {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// KnobEntries returns the most recently discovered cap files matching
// kind. An empty result means the actuator is not present on this
// platform and the corresponding knob stays unavailable.
func (p *FileProvider) KnobEntries(kind model.KnobKind) []KnobEntry {
	idx := p.index.Load()
	var out []KnobEntry
	for _, e := range idx.knobEntries {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

func parseAttrNumber(s string) int {
	var n int
	for _, c := range s {
		if c < '0' || c > '9' {
			break
		}
		n = n*10 + int(c-'0')
	}
	return n
}
