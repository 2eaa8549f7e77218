// SPDX-License-Identifier: BSD-3-Clause

package sensor

import (
	"context"
	"errors"
	"strconv"

	"github.com/u-bmc/nodemgr/pkg/hwmon"
	"github.com/u-bmc/nodemgr/pkg/model"
	"github.com/u-bmc/nodemgr/pkg/sensorreading"
)

// fileReadRetryBudget is how many consecutive failed reads a file
// sensor rides out on its last valid value before publishing invalid.
const fileReadRetryBudget = 2

// FileSensor reads a numeric hwmon attribute file once per tick and
// scales it from the hwmon unit (typically micro- or milli-) to the
// reading's natural unit.
//
// A missing file means the backend is gone and maps straight to
// unavailable. A present-but-failing file is ridden out for
// fileReadRetryBudget ticks on the last valid value before the sensor
// gives up and publishes invalid. The retry state lives on the sensor
// and only moves in HandleResult, on the tick goroutine; the scheduled
// read itself is pure I/O.
type FileSensor struct {
	base
	path  string
	scale float64

	failCount int
	lastGood  model.Value
	hasGood   bool
}

// NewFileSensor returns a sensor reading path, a raw integer hwmon
// attribute, and multiplying it by scale to produce the published
// value (e.g. hwmon.MicroToUnit for a microwatt attribute reported in
// watts).
func NewFileSensor(key sensorreading.Key, path string, scale float64) *FileSensor {
	return &FileSensor{base: base{key: key}, path: path, scale: scale}
}

func (s *FileSensor) Tick(ctx context.Context, exec *Executor) {
	path, scale := s.path, s.scale
	exec.Schedule(s.key, func(ctx context.Context) (Result, error) {
		raw, err := hwmon.ReadStringCtx(ctx, path)
		if err != nil {
			if errors.Is(err, hwmon.ErrFileNotFound) || errors.Is(err, hwmon.ErrInvalidPath) {
				return Result{Present: false}, nil
			}
			return Result{Present: true, Valid: false}, nil
		}

		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return Result{Present: true, Valid: false}, nil
		}

		return Result{Present: true, Valid: true, Value: model.FromFloat64(float64(n) * scale)}, nil
	})
}

// HandleResult applies the retry budget: a missing backend resets it, a
// failed read within budget substitutes the last good value, and an
// exhausted budget publishes the failure as invalid.
func (s *FileSensor) HandleResult(r Result) Result {
	switch {
	case !r.Present:
		s.failCount = 0
		s.setHealth(true)
		return r
	case !r.Valid:
		s.failCount++
		if s.failCount <= fileReadRetryBudget && s.hasGood {
			return Result{Present: true, Valid: true, Value: s.lastGood}
		}
		s.setHealth(false)
		return r
	default:
		s.failCount = 0
		s.lastGood = r.Value
		s.hasGood = true
		s.setHealth(true)
		return r
	}
}
