// SPDX-License-Identifier: BSD-3-Clause

package clock_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/u-bmc/nodemgr/pkg/clock"
)

func TestTestClockAdvance(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := clock.NewTest(base)

	assert.Equal(t, base, c.Now())

	c.Advance(5 * time.Second)
	assert.Equal(t, base.Add(5*time.Second), c.Now())

	c.Set(base)
	assert.Equal(t, base, c.Now())
}

func TestTestClockSince(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := clock.NewTest(base)

	earlier := base.Add(-10 * time.Second)
	assert.Equal(t, 10*time.Second, c.Since(earlier))
}

func TestRealClockMonotonic(t *testing.T) {
	c := clock.Real()
	t1 := c.Now()
	t2 := c.Now()
	assert.False(t, t2.Before(t1))
}
