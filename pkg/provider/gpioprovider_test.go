// SPDX-License-Identifier: BSD-3-Clause

package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/u-bmc/nodemgr/pkg/gpio"
)

// seededGPIOProvider builds a provider around pre-enumerated lines, the
// state Discover would leave behind on a machine that has the chips.
func seededGPIOProvider(prefix string, names ...string) *GPIOProvider {
	p := NewGPIOProvider(prefix)
	for i, name := range names {
		p.lines = append(p.lines, &gpioLine{chip: "gpiochip0", offset: i, name: name})
	}
	return p
}

func TestGPIOProviderAccessorSurface(t *testing.T) {
	p := seededGPIOProvider("NODEMGR_", "NODEMGR_host_reset", "NODEMGR_smart_throttle", "NODEMGR_slot-presence")

	assert.Equal(t, 3, p.Count())

	name, ok := p.Name(0)
	require.True(t, ok)
	assert.Equal(t, "NODEMGR_host_reset", name)

	_, ok = p.Name(3)
	assert.False(t, ok)
}

func TestGPIOProviderFormattedName(t *testing.T) {
	p := seededGPIOProvider("NODEMGR_", "NODEMGR_host_reset", "NODEMGR_smart_throttle", "NODEMGR_slot-presence")

	got, ok := p.FormattedName(0)
	require.True(t, ok)
	assert.Equal(t, "0_HostReset", got)

	got, ok = p.FormattedName(1)
	require.True(t, ok)
	assert.Equal(t, "1_SmartThrottle", got)

	got, ok = p.FormattedName(2)
	require.True(t, ok)
	assert.Equal(t, "2_SlotPresence", got, "dashes separate words the same way underscores do")

	_, ok = p.FormattedName(9)
	assert.False(t, ok)
}

func TestGPIOProviderReserveIsAdvisoryAndExclusive(t *testing.T) {
	p := seededGPIOProvider("NODEMGR_", "NODEMGR_host_reset")

	assert.False(t, p.IsReserved(0))
	require.NoError(t, p.Reserve(0))
	assert.True(t, p.IsReserved(0))

	err := p.Reserve(0)
	require.Error(t, err, "a second claim before Free must fail loudly")
	assert.Contains(t, err.Error(), "already reserved")

	p.Free(0)
	assert.False(t, p.IsReserved(0))
	require.NoError(t, p.Reserve(0))
}

func TestGPIOProviderReserveRejectsUnknownIndex(t *testing.T) {
	p := seededGPIOProvider("NODEMGR_")
	assert.Error(t, p.Reserve(0))
}

func TestGPIOProviderStateWithoutHandleIsUnknown(t *testing.T) {
	p := seededGPIOProvider("NODEMGR_", "NODEMGR_host_reset")
	assert.Equal(t, gpio.StateUnknown, p.State(0))
	assert.Equal(t, gpio.StateUnknown, p.State(7), "an out-of-range index reads unknown, not a panic")
}
