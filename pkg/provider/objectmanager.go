// SPDX-License-Identifier: BSD-3-Clause

package provider

import "context"

// ManagedObject is one accelerator entity as reported by the object
// manager, keyed by a stable path and carrying a flat property bag
// . Property values are whatever the transport decoded them to
// (float64, string, bool); sensors interpret the ones they care about.
type ManagedObject struct {
	Path       string
	Properties map[string]any
}

// ObjectManager is the narrow interface the Accelerator Entity Provider
// needs from whatever system message bus holds accelerator entities.
// Keeping it this small means the core never imports a specific IPC
// transport for it: the object-model service itself is out of scope
// , only this consumer-side contract is in scope.
type ObjectManager interface {
	// GetManagedObjects returns every currently known object under
	// pathPrefix.
	GetManagedObjects(ctx context.Context, pathPrefix string) ([]ManagedObject, error)
	// SubscribePropertiesChanged registers fn to be called whenever a
	// property on an object under pathPrefix changes, until ctx is
	// canceled.
	SubscribePropertiesChanged(ctx context.Context, pathPrefix string, fn func(path string, changed map[string]any)) error
	// SetProperty writes a single property on the object at path. This is
	// the write-side counterpart consumed by accelerator power-limit
	// knobs.
	SetProperty(ctx context.Context, path, property string, value any) error
}
