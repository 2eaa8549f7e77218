// SPDX-License-Identifier: BSD-3-Clause

package telemetry

import (
	"context"
	"fmt"
	"sync"
)

var (
	setupMu        sync.Mutex
	globalProvider *Provider
)

// Setup initializes the process-wide telemetry provider and returns a
// shutdown function the caller must invoke on exit. A second Setup
// before shutdown is a programming error: signal routing is decided
// once, at process start, alongside logging.
func Setup(_ context.Context, opts ...Option) (func(context.Context) error, error) {
	setupMu.Lock()
	defer setupMu.Unlock()

	if globalProvider != nil {
		return nil, fmt.Errorf("%w: telemetry already initialized", ErrInvalidConfiguration)
	}

	provider, err := NewProvider(opts...)
	if err != nil {
		return nil, err
	}
	globalProvider = provider

	shutdown := func(ctx context.Context) error {
		setupMu.Lock()
		defer setupMu.Unlock()

		if globalProvider == nil {
			return nil
		}
		err := globalProvider.Shutdown(ctx)
		globalProvider = nil
		return err
	}

	return shutdown, nil
}
