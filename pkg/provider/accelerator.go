// SPDX-License-Identifier: BSD-3-Clause

package provider

import (
	"context"
	"path"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/u-bmc/nodemgr/pkg/model"
)

// Accelerator entity properties and the entity-type code identifying an
// add-in card. Objects of any other entity type under the prefix are
// someone else's and are ignored.
const (
	acceleratorEntityTypeProperty     = "EntityType"
	acceleratorEntityInstanceProperty = "EntityInstanceNumber"
	acceleratorEntityTypeAddInCard    = 68
)

// AcceleratorEntity is a discovered add-in accelerator card. Index is
// derived from the entity's own instance number (instance N maps to
// device index N-1), so the same card keeps the same index across
// polls, restarts, and reorderings of the object list. TransportID and
// DeviceName come from the object path: its parent directory and leaf
// respectively.
type AcceleratorEntity struct {
	Path        string
	TransportID string
	DeviceName  string
	Index       model.DeviceIndex
	Properties  map[string]any
}

type acceleratorSnapshot struct {
	byPath  map[string]AcceleratorEntity
	byIndex map[model.DeviceIndex]AcceleratorEntity
}

// identity is the part of the mapping whose change means the topology
// itself moved: an entity appearing, disappearing, or changing name.
func (s *acceleratorSnapshot) identity() map[model.DeviceIndex]string {
	out := make(map[model.DeviceIndex]string, len(s.byIndex))
	for idx, e := range s.byIndex {
		out[idx] = e.TransportID + "/" + e.DeviceName
	}
	return out
}

// AcceleratorProvider polls an ObjectManager for accelerator entities
// under PathPrefix and keeps an atomically-swapped snapshot. Mapping
// callbacks fire exactly once per poll whose entity set actually
// changed (add, remove, or rename); property callbacks relay push
// notifications for entities already in the mapping.
type AcceleratorProvider struct {
	om         ObjectManager
	pathPrefix string
	period     time.Duration

	snapshot atomic.Pointer[acceleratorSnapshot]

	listenersMu       sync.RWMutex
	mappingListeners  []func()
	propertyListeners []func(path string, changed map[string]any)
}

// NewAcceleratorProvider returns a provider polling om for objects under
// pathPrefix every period.
func NewAcceleratorProvider(om ObjectManager, pathPrefix string, period time.Duration) *AcceleratorProvider {
	p := &AcceleratorProvider{om: om, pathPrefix: pathPrefix, period: period}
	p.snapshot.Store(&acceleratorSnapshot{
		byPath:  map[string]AcceleratorEntity{},
		byIndex: map[model.DeviceIndex]AcceleratorEntity{},
	})
	return p
}

// OnMappingChange registers fn to be called exactly once whenever a
// discovery pass finds the entity mapping changed: a card added,
// removed, or renamed. Consumers use it to tear down and rebuild
// whatever they derived from the old mapping.
func (p *AcceleratorProvider) OnMappingChange(fn func()) {
	p.listenersMu.Lock()
	defer p.listenersMu.Unlock()
	p.mappingListeners = append(p.mappingListeners, fn)
}

// OnPropertiesChanged registers fn to be called for every pushed
// property change on a known entity.
func (p *AcceleratorProvider) OnPropertiesChanged(fn func(path string, changed map[string]any)) {
	p.listenersMu.Lock()
	defer p.listenersMu.Unlock()
	p.propertyListeners = append(p.propertyListeners, fn)
}

// Watch subscribes the provider to pushed property changes until ctx
// is canceled. Run calls it; it is separate so a caller driving
// discovery manually can still receive pushes.
func (p *AcceleratorProvider) Watch(ctx context.Context) error {
	return p.om.SubscribePropertiesChanged(ctx, p.pathPrefix, p.applyChange)
}

// Run refreshes the snapshot once immediately, subscribes to push
// notifications, and then refreshes on Period until ctx is canceled.
func (p *AcceleratorProvider) Run(ctx context.Context) error {
	p.refresh(ctx)

	if err := p.Watch(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(p.period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.refresh(ctx)
		}
	}
}

// Refresh runs one poll against the object manager synchronously, so a
// caller can populate the snapshot before installing sensors that read
// it, without waiting for Run's background ticker.
func (p *AcceleratorProvider) Refresh(ctx context.Context) {
	p.refresh(ctx)
}

// asInstanceNumber folds the numeric types a property bag can deliver
// an instance number as.
func asInstanceNumber(raw any) (int, bool) {
	switch v := raw.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case uint8:
		return int(v), true
	case uint32:
		return int(v), true
	case float64:
		if v != float64(int(v)) {
			return 0, false
		}
		return int(v), true
	default:
		return 0, false
	}
}

func (p *AcceleratorProvider) refresh(ctx context.Context) {
	objects, err := p.om.GetManagedObjects(ctx, p.pathPrefix)
	if err != nil {
		return
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].Path < objects[j].Path })

	next := &acceleratorSnapshot{
		byPath:  make(map[string]AcceleratorEntity, len(objects)),
		byIndex: make(map[model.DeviceIndex]AcceleratorEntity, len(objects)),
	}
	for _, obj := range objects {
		entityType, ok := asInstanceNumber(obj.Properties[acceleratorEntityTypeProperty])
		if !ok || entityType != acceleratorEntityTypeAddInCard {
			continue
		}
		instance, ok := asInstanceNumber(obj.Properties[acceleratorEntityInstanceProperty])
		if !ok || instance < 1 || instance > 0xFF {
			continue
		}
		index := model.DeviceIndex(instance - 1)
		if _, taken := next.byIndex[index]; taken {
			continue
		}
		entity := AcceleratorEntity{
			Path:        obj.Path,
			TransportID: path.Base(path.Dir(obj.Path)),
			DeviceName:  path.Base(obj.Path),
			Index:       index,
			Properties:  obj.Properties,
		}
		next.byPath[obj.Path] = entity
		next.byIndex[index] = entity
	}

	prev := p.snapshot.Load()
	p.snapshot.Store(next)

	if mappingEqual(prev.identity(), next.identity()) {
		return
	}

	p.listenersMu.RLock()
	listeners := append([]func(){}, p.mappingListeners...)
	p.listenersMu.RUnlock()
	for _, fn := range listeners {
		fn()
	}
}

func mappingEqual(a, b map[model.DeviceIndex]string) bool {
	if len(a) != len(b) {
		return false
	}
	for idx, id := range a {
		if b[idx] != id {
			return false
		}
	}
	return true
}

// applyChange merges one pushed property change into the snapshot and
// relays it to property listeners. Entity identity never moves here:
// additions and removals are discovery's job, on the next refresh.
func (p *AcceleratorProvider) applyChange(objPath string, changed map[string]any) {
	cur := p.snapshot.Load()
	entity, known := cur.byPath[objPath]
	if !known {
		return
	}

	merged := make(map[string]any, len(entity.Properties)+len(changed))
	for k, v := range entity.Properties {
		merged[k] = v
	}
	for k, v := range changed {
		merged[k] = v
	}
	entity.Properties = merged

	next := &acceleratorSnapshot{
		byPath:  make(map[string]AcceleratorEntity, len(cur.byPath)),
		byIndex: make(map[model.DeviceIndex]AcceleratorEntity, len(cur.byIndex)),
	}
	for k, v := range cur.byPath {
		next.byPath[k] = v
	}
	for k, v := range cur.byIndex {
		next.byIndex[k] = v
	}
	next.byPath[objPath] = entity
	next.byIndex[entity.Index] = entity
	p.snapshot.Store(next)

	p.listenersMu.RLock()
	listeners := append([]func(string, map[string]any){}, p.propertyListeners...)
	p.listenersMu.RUnlock()
	for _, fn := range listeners {
		fn(objPath, changed)
	}
}

// Entity returns the most recently known state of the entity at path.
func (p *AcceleratorProvider) Entity(path string) (AcceleratorEntity, bool) {
	snap := p.snapshot.Load()
	e, ok := snap.byPath[path]
	return e, ok
}

// Entities returns every known entity ordered by device index.
func (p *AcceleratorProvider) Entities() []AcceleratorEntity {
	snap := p.snapshot.Load()
	out := make([]AcceleratorEntity, 0, len(snap.byIndex))
	for _, e := range snap.byIndex {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}
