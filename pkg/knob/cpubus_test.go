// SPDX-License-Identifier: BSD-3-Clause

package knob_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/u-bmc/nodemgr/pkg/asyncexec"
	"github.com/u-bmc/nodemgr/pkg/clock"
	"github.com/u-bmc/nodemgr/pkg/knob"
	"github.com/u-bmc/nodemgr/pkg/model"
	"github.com/u-bmc/nodemgr/pkg/peci"
	"github.com/u-bmc/nodemgr/pkg/sensorreading"
)

type fakeTransport struct {
	mu       sync.Mutex
	requests []peci.Request
	resp     peci.Response
	err      error
}

func (f *fakeTransport) Do(ctx context.Context, req peci.Request) (peci.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return peci.Response{}, f.err
	}
	return f.resp, nil
}

func (f *fakeTransport) last() peci.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func presentCPU(t *testing.T, store *sensorreading.Store, idx model.DeviceIndex) {
	t.Helper()
	r, err := store.Create(sensorreading.Key{Kind: model.SensorKindCPUPackagePower, Index: idx})
	require.NoError(t, err)
	require.NoError(t, r.Observe(context.Background(), true, true, model.FromFloat64(95.0)))
}

func TestRatioKnobGatesOnCPUPresence(t *testing.T) {
	ctx := context.Background()
	store := sensorreading.NewStore(clock.NewTest(time.Now()))

	transport := &fakeTransport{resp: peci.Response{Completion: peci.CompletionSuccess}}
	exec := asyncexec.New[knob.Key, knob.Result](ctx, 4)
	k := knob.NewRatioKnob(knob.Key{Kind: model.KnobKindTurboRatioLimit, Index: 0}, transport, 0x30, peci.PkgConfigIndexTurboRatio, 0, 0)

	require.NoError(t, k.Set(40))
	k.Tick(ctx, exec, store)
	assert.False(t, exec.IsPending(k.Key()), "cpu is absent, no write scheduled")

	presentCPU(t, store, 0)
	k.Tick(ctx, exec, store)
	drain(t, exec, k)

	assert.Equal(t, uint8(40), transport.last().WriteData[0])
	assert.Equal(t, model.HealthOK, k.Health())
}

func TestRatioKnobCompletionFailureReportsWarning(t *testing.T) {
	ctx := context.Background()
	store := sensorreading.NewStore(clock.NewTest(time.Now()))
	presentCPU(t, store, 0)

	transport := &fakeTransport{resp: peci.Response{Completion: peci.CompletionCode(0x90)}}
	exec := asyncexec.New[knob.Key, knob.Result](ctx, 4)
	k := knob.NewRatioKnob(knob.Key{Kind: model.KnobKindTurboRatioLimit, Index: 0}, transport, 0x30, peci.PkgConfigIndexTurboRatio, 0, 0)

	require.NoError(t, k.Set(40))
	k.Tick(ctx, exec, store)
	drain(t, exec, k)

	assert.Equal(t, model.HealthWarning, k.Health())
}

func TestPreferenceKnobRejectsReservedBits(t *testing.T) {
	ctx := context.Background()
	store := sensorreading.NewStore(clock.NewTest(time.Now()))
	presentCPU(t, store, 0)

	transport := &fakeTransport{resp: peci.Response{Completion: peci.CompletionSuccess}}
	exec := asyncexec.New[knob.Key, knob.Result](ctx, 4)
	const reservedMask = uint16(0x8000)
	k := knob.NewPreferenceKnob(knob.Key{Kind: model.KnobKindHWPMPreference, Index: 0}, transport, 0x30, 0, 0x1FC, reservedMask, 0)

	err := k.Set(float64(reservedMask))
	require.Error(t, err, "a value touching a reserved bit is a caller error")
	assert.Contains(t, err.Error(), "reserved bits")

	assert.Error(t, k.Set(-1), "negative values cannot fit the register")
	assert.Error(t, k.Set(70000), "values past 16 bits cannot fit the register")

	k.Tick(ctx, exec, store)
	assert.False(t, exec.IsPending(k.Key()), "a rejected value records no target, so nothing is scheduled")
	assert.Equal(t, model.HealthOK, k.Health(), "a caller error is not a hardware fault")
	assert.Empty(t, transport.requests)
}

func TestPreferenceKnobWritesMaskedValue(t *testing.T) {
	ctx := context.Background()
	store := sensorreading.NewStore(clock.NewTest(time.Now()))
	presentCPU(t, store, 0)

	transport := &fakeTransport{resp: peci.Response{Completion: peci.CompletionSuccess}}
	exec := asyncexec.New[knob.Key, knob.Result](ctx, 4)
	k := knob.NewPreferenceKnob(knob.Key{Kind: model.KnobKindHWPMPreference, Index: 0}, transport, 0x30, 0, 0x1FC, 0x8000, 0)

	require.NoError(t, k.Set(128))
	k.Tick(ctx, exec, store)
	drain(t, exec, k)

	req := transport.last()
	assert.Equal(t, uint8(128), req.WriteData[0])
	assert.Equal(t, uint8(0), req.WriteData[1])
	assert.Equal(t, model.HealthOK, k.Health())
}
