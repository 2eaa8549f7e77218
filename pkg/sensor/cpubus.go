// SPDX-License-Identifier: BSD-3-Clause

package sensor

import (
	"context"
	"encoding/binary"

	"github.com/u-bmc/nodemgr/pkg/model"
	"github.com/u-bmc/nodemgr/pkg/peci"
	"github.com/u-bmc/nodemgr/pkg/sensorreading"
)

// CPUBusSampleSensor issues one PECI request per tick against a CPU
// socket and decodes the response payload into a uint32 sample (energy
// counters, average frequency).
type CPUBusSampleSensor struct {
	base
	transport peci.Transport
	request   peci.Request
}

// NewCPUBusSampleSensor returns a sensor issuing request through
// transport every tick.
func NewCPUBusSampleSensor(key sensorreading.Key, transport peci.Transport, request peci.Request) *CPUBusSampleSensor {
	return &CPUBusSampleSensor{base: base{key: key}, transport: transport, request: request}
}

func (s *CPUBusSampleSensor) Tick(ctx context.Context, exec *Executor) {
	exec.Schedule(s.key, func(ctx context.Context) (Result, error) {
		resp, err := s.transport.Do(ctx, s.request)
		if err != nil {
			return Result{Present: false}, nil
		}
		if !resp.Completion.Ok() {
			return Result{Present: true, Valid: false}, nil
		}
		if len(resp.Data) < 4 {
			return Result{Present: true, Valid: false}, nil
		}

		return Result{
			Present: true,
			Valid:   true,
			Value:   model.FromUint32(binary.LittleEndian.Uint32(resp.Data[:4])),
		}, nil
	})
}

// CPUUtilizationSampleSensor reads the three-field C0 residency sample
// PECI exposes for utilization calculation.
type CPUUtilizationSampleSensor struct {
	base
	transport peci.Transport
	request   peci.Request
}

// NewCPUUtilizationSampleSensor returns a sensor reading the CPU
// utilization sample through transport.
func NewCPUUtilizationSampleSensor(key sensorreading.Key, transport peci.Transport, request peci.Request) *CPUUtilizationSampleSensor {
	return &CPUUtilizationSampleSensor{base: base{key: key}, transport: transport, request: request}
}

func (s *CPUUtilizationSampleSensor) Tick(ctx context.Context, exec *Executor) {
	exec.Schedule(s.key, func(ctx context.Context) (Result, error) {
		resp, err := s.transport.Do(ctx, s.request)
		if err != nil || !resp.Completion.Ok() || len(resp.Data) < 20 {
			if err != nil {
				return Result{Present: false}, nil
			}
			return Result{Present: true, Valid: false}, nil
		}

		util := model.CPUUtilization{
			C0Delta:        binary.LittleEndian.Uint64(resp.Data[0:8]),
			Duration:       binary.LittleEndian.Uint64(resp.Data[8:16]),
			PeakC0Capacity: uint64(binary.LittleEndian.Uint32(resp.Data[16:20])),
		}
		return Result{Present: true, Valid: true, Value: model.FromCPUUtilization(util)}, nil
	})
}

// CPUBusCapabilitySensor reads a static CPU capability register (max
// turbo ratio, max non-turbo ratio, min/max operating ratio, CPU
// identification word, per-die capability mask) that seldom changes but
// still goes through a tick read so socket removal is detected the same
// way as any other sensor.
type CPUBusCapabilitySensor struct {
	base
	transport peci.Transport
	request   peci.Request
	width     int // 1 or 4 bytes
}

// NewCPUBusCapabilitySensor returns a sensor decoding a width-byte
// little-endian capability register.
func NewCPUBusCapabilitySensor(key sensorreading.Key, transport peci.Transport, request peci.Request, width int) *CPUBusCapabilitySensor {
	return &CPUBusCapabilitySensor{base: base{key: key}, transport: transport, request: request, width: width}
}

func (s *CPUBusCapabilitySensor) Tick(ctx context.Context, exec *Executor) {
	exec.Schedule(s.key, func(ctx context.Context) (Result, error) {
		resp, err := s.transport.Do(ctx, s.request)
		if err != nil {
			return Result{Present: false}, nil
		}
		if !resp.Completion.Ok() || len(resp.Data) < s.width {
			return Result{Present: true, Valid: false}, nil
		}

		if s.width == 1 {
			return Result{Present: true, Valid: true, Value: model.FromUint8(resp.Data[0])}, nil
		}
		return Result{Present: true, Valid: true, Value: model.FromUint32(binary.LittleEndian.Uint32(resp.Data[:4]))}, nil
	})
}
