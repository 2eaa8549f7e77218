// SPDX-License-Identifier: BSD-3-Clause

package provider

import (
	"fmt"
	"strings"

	"github.com/warthog618/go-gpiocdev"

	"github.com/u-bmc/nodemgr/pkg/gpio"
)

// maxGPIOLines bounds how many platform lines a provider will take
// ownership of; anything past the bound is left untouched for other
// consumers.
const maxGPIOLines = 64

// gpioLine is one enumerated platform line: its chip coordinates, its
// raw name, the input handle requested at discovery, and the advisory
// reserved flag.
type gpioLine struct {
	chip     string
	offset   int
	name     string
	handle   *gpiocdev.Line
	reserved bool
}

// GPIOProvider owns every GPIO line whose name starts with the
// platform prefix. Discovery enumerates the chips, requests each
// matching line as an input, and assigns the next free device index;
// afterwards lines are addressed by that index through the accessor
// surface (Count, Name, FormattedName, State, Line) and flagged
// in-use with Reserve/Free. The reserved flag is advisory: it
// serializes claims between in-process consumers, nothing more.
type GPIOProvider struct {
	prefix string
	lines  []*gpioLine
}

// NewGPIOProvider returns a provider that only considers lines whose
// name has the given platform prefix, e.g. "NODEMGR_".
func NewGPIOProvider(prefix string) *GPIOProvider {
	return &GPIOProvider{prefix: prefix}
}

// Discover enumerates every character-device chip present, requests
// each line carrying the provider's prefix as an input, and assigns
// device indices in enumeration order, bounded by maxGPIOLines.
// Chips or lines that fail to open are skipped rather than failing the
// whole platform.
func (p *GPIOProvider) Discover() error {
	for _, chipName := range gpiocdev.Chips() {
		chip, err := gpiocdev.NewChip(chipName)
		if err != nil {
			continue
		}
		for offset := 0; offset < chip.Lines(); offset++ {
			if len(p.lines) >= maxGPIOLines {
				break
			}
			info, err := chip.LineInfo(offset)
			if err != nil {
				continue
			}
			if !strings.HasPrefix(info.Name, p.prefix) {
				continue
			}
			handle, err := gpio.RequestLineByNumber(chipName, offset, gpio.AsInput())
			if err != nil {
				continue
			}
			p.lines = append(p.lines, &gpioLine{
				chip:   chipName,
				offset: offset,
				name:   info.Name,
				handle: handle,
			})
		}
		_ = chip.Close()
	}
	return nil
}

// Count returns how many platform lines discovery found.
func (p *GPIOProvider) Count() int {
	return len(p.lines)
}

// Name returns the raw line name at index.
func (p *GPIOProvider) Name(index int) (string, bool) {
	if index < 0 || index >= len(p.lines) {
		return "", false
	}
	return p.lines[index].name, true
}

// FormattedName returns the display name for the line at index: the
// platform prefix stripped, the remainder CamelCased, and the index
// prepended, e.g. line 2 "NODEMGR_host_reset" formats as "2_HostReset".
func (p *GPIOProvider) FormattedName(index int) (string, bool) {
	if index < 0 || index >= len(p.lines) {
		return "", false
	}
	return fmt.Sprintf("%d_%s", index, camelCase(strings.TrimPrefix(p.lines[index].name, p.prefix))), true
}

// camelCase converts a raw line-name remainder like "host_reset" into
// "HostReset".
func camelCase(raw string) string {
	parts := strings.FieldsFunc(raw, func(r rune) bool { return r == '_' || r == '-' })
	var b strings.Builder
	for _, part := range parts {
		if part == "" {
			continue
		}
		b.WriteString(strings.ToUpper(part[:1]))
		b.WriteString(strings.ToLower(part[1:]))
	}
	return b.String()
}

// State reads the current level of the line at index. A bad index, a
// line with no usable handle, or a failed read all report unknown.
func (p *GPIOProvider) State(index int) gpio.State {
	if index < 0 || index >= len(p.lines) || p.lines[index].handle == nil {
		return gpio.StateUnknown
	}
	return gpio.ReadState(p.lines[index].handle)
}

// Line returns the input handle for the line at index, for sensors
// that poll it directly each tick.
func (p *GPIOProvider) Line(index int) (*gpiocdev.Line, bool) {
	if index < 0 || index >= len(p.lines) {
		return nil, false
	}
	return p.lines[index].handle, true
}

// Reserve flags the line at index as claimed. A second Reserve before
// Free fails, so two consumers can't silently share a line.
func (p *GPIOProvider) Reserve(index int) error {
	if index < 0 || index >= len(p.lines) {
		return fmt.Errorf("provider: no gpio line at index %d", index)
	}
	if p.lines[index].reserved {
		return fmt.Errorf("provider: gpio line %d (%s) already reserved", index, p.lines[index].name)
	}
	p.lines[index].reserved = true
	return nil
}

// Free clears the reserved flag on the line at index.
func (p *GPIOProvider) Free(index int) {
	if index < 0 || index >= len(p.lines) {
		return
	}
	p.lines[index].reserved = false
}

// IsReserved reports the advisory reserved flag for the line at index.
func (p *GPIOProvider) IsReserved(index int) bool {
	if index < 0 || index >= len(p.lines) {
		return false
	}
	return p.lines[index].reserved
}

// Close releases every line handle discovery requested.
func (p *GPIOProvider) Close() {
	for _, l := range p.lines {
		if l.handle != nil {
			_ = l.handle.Close()
		}
	}
	p.lines = nil
}
