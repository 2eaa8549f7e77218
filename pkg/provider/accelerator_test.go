// SPDX-License-Identifier: BSD-3-Clause

package provider_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/u-bmc/nodemgr/pkg/model"
	"github.com/u-bmc/nodemgr/pkg/provider"
)

type fakeObjectManager struct {
	mu      sync.Mutex
	objects []provider.ManagedObject
}

func (f *fakeObjectManager) GetManagedObjects(ctx context.Context, pathPrefix string) ([]provider.ManagedObject, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]provider.ManagedObject(nil), f.objects...), nil
}

func (f *fakeObjectManager) SubscribePropertiesChanged(ctx context.Context, pathPrefix string, fn func(path string, changed map[string]any)) error {
	return nil
}

func (f *fakeObjectManager) SetProperty(ctx context.Context, path, property string, value any) error {
	return nil
}

func (f *fakeObjectManager) setObjects(objects []provider.ManagedObject) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects = objects
}

func addInCard(path string, instance int) provider.ManagedObject {
	return provider.ManagedObject{
		Path: path,
		Properties: map[string]any{
			"EntityType":           float64(68),
			"EntityInstanceNumber": float64(instance),
		},
	}
}

func TestAcceleratorProviderIndexesByInstanceNumber(t *testing.T) {
	ctx := context.Background()
	om := &fakeObjectManager{}
	// Deliberately listed out of instance order: the index must come
	// from each entity's own instance number, not list position.
	om.setObjects([]provider.ManagedObject{
		addInCard("/inventory/pcie2/accel_b", 3),
		addInCard("/inventory/pcie0/accel_a", 1),
		{
			Path: "/inventory/pcie1/fanboard",
			Properties: map[string]any{
				"EntityType":           float64(30),
				"EntityInstanceNumber": float64(2),
			},
		},
	})

	p := provider.NewAcceleratorProvider(om, "/inventory", time.Hour)
	p.Refresh(ctx)

	entities := p.Entities()
	require.Len(t, entities, 2, "a non-add-in-card entity type is someone else's object")

	assert.Equal(t, model.DeviceIndex(0), entities[0].Index)
	assert.Equal(t, "pcie0", entities[0].TransportID)
	assert.Equal(t, "accel_a", entities[0].DeviceName)

	assert.Equal(t, model.DeviceIndex(2), entities[1].Index, "instance 3 maps to index 2")
	assert.Equal(t, "pcie2", entities[1].TransportID)
	assert.Equal(t, "accel_b", entities[1].DeviceName)
}

func TestAcceleratorProviderMappingCallbackFiresOncePerChange(t *testing.T) {
	ctx := context.Background()
	om := &fakeObjectManager{}
	om.setObjects([]provider.ManagedObject{addInCard("/inventory/pcie0/accel_a", 1)})

	p := provider.NewAcceleratorProvider(om, "/inventory", time.Hour)
	calls := 0
	p.OnMappingChange(func() { calls++ })

	p.Refresh(ctx)
	assert.Equal(t, 1, calls, "the first discovery of any entity is itself a mapping change")

	p.Refresh(ctx)
	p.Refresh(ctx)
	assert.Equal(t, 1, calls, "an unchanged mapping fires nothing, however often it is polled")

	om.setObjects([]provider.ManagedObject{
		addInCard("/inventory/pcie0/accel_a", 1),
		addInCard("/inventory/pcie3/accel_c", 2),
	})
	p.Refresh(ctx)
	assert.Equal(t, 2, calls, "an added card is exactly one change")

	om.setObjects([]provider.ManagedObject{
		addInCard("/inventory/pcie0/accel_renamed", 1),
		addInCard("/inventory/pcie3/accel_c", 2),
	})
	p.Refresh(ctx)
	assert.Equal(t, 3, calls, "a renamed card is exactly one change")

	om.setObjects([]provider.ManagedObject{addInCard("/inventory/pcie3/accel_c", 2)})
	p.Refresh(ctx)
	assert.Equal(t, 4, calls, "a removed card is exactly one change")
}

func TestAcceleratorProviderPropertyPushUpdatesSnapshotOnly(t *testing.T) {
	ctx := context.Background()
	om := &pushingObjectManager{inner: &fakeObjectManager{}}
	om.inner.setObjects([]provider.ManagedObject{addInCard("/inventory/pcie0/accel_a", 1)})

	p := provider.NewAcceleratorProvider(om, "/inventory", time.Hour)
	mappingCalls := 0
	p.OnMappingChange(func() { mappingCalls++ })
	var pushed []string
	p.OnPropertiesChanged(func(path string, changed map[string]any) { pushed = append(pushed, path) })

	p.Refresh(ctx)
	require.NoError(t, p.Watch(ctx))
	require.Equal(t, 1, mappingCalls)

	om.push("/inventory/pcie0/accel_a", map[string]any{"Power": 120.0})

	entity, ok := p.Entity("/inventory/pcie0/accel_a")
	require.True(t, ok)
	assert.Equal(t, 120.0, entity.Properties["Power"])
	assert.Equal(t, []string{"/inventory/pcie0/accel_a"}, pushed)
	assert.Equal(t, 1, mappingCalls, "a property push is not a mapping change")

	om.push("/inventory/pcie9/unknown", map[string]any{"Power": 1.0})
	assert.Len(t, pushed, 1, "pushes for entities outside the mapping are dropped")
}

// pushingObjectManager records the change subscription so a test can
// inject pushes the way the bus would.
type pushingObjectManager struct {
	inner *fakeObjectManager
	fn    func(path string, changed map[string]any)
}

func (f *pushingObjectManager) GetManagedObjects(ctx context.Context, pathPrefix string) ([]provider.ManagedObject, error) {
	return f.inner.GetManagedObjects(ctx, pathPrefix)
}

func (f *pushingObjectManager) SubscribePropertiesChanged(ctx context.Context, pathPrefix string, fn func(path string, changed map[string]any)) error {
	f.fn = fn
	return nil
}

func (f *pushingObjectManager) SetProperty(ctx context.Context, path, property string, value any) error {
	return nil
}

func (f *pushingObjectManager) push(path string, changed map[string]any) {
	if f.fn != nil {
		f.fn(path, changed)
	}
}
