// SPDX-License-Identifier: BSD-3-Clause

package asyncexec

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultPollInterval is how often completed tasks are drained into
// Poll's caller.
const DefaultPollInterval = 20 * time.Millisecond

// Task is the unit of background work scheduled under a key.
type Task[R any] func(ctx context.Context) (R, error)

// Result is one completed task's outcome.
type Result[K comparable, R any] struct {
	Key   K
	Value R
	Err   error
}

// Executor schedules at most one in-flight Task per key and hands
// completed results to the caller through Poll. It is safe for
// concurrent Schedule calls; Poll is meant to be called from a single
// goroutine (the primary tick loop).
type Executor[K comparable, R any] struct {
	group    *errgroup.Group
	groupCtx context.Context

	mu      sync.Mutex
	pending map[K]struct{}
	done    chan Result[K, R]
}

// New returns an Executor whose worker pool allows at most maxWorkers
// concurrent tasks. ctx bounds the lifetime of every scheduled task and
// the pool itself.
func New[K comparable, R any](ctx context.Context, maxWorkers int) *Executor[K, R] {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxWorkers)
	return &Executor[K, R]{
		group:    g,
		groupCtx: gctx,
		pending:  make(map[K]struct{}),
		done:     make(chan Result[K, R], 64),
	}
}

// Schedule submits task under key if, and only if, no task is currently
// pending for that key. It reports whether the task was accepted.
func (e *Executor[K, R]) Schedule(key K, task Task[R]) bool {
	e.mu.Lock()
	if _, busy := e.pending[key]; busy {
		e.mu.Unlock()
		return false
	}
	e.pending[key] = struct{}{}
	e.mu.Unlock()

	e.group.Go(func() error {
		value, err := task(e.groupCtx)
		e.done <- Result[K, R]{Key: key, Value: value, Err: err}
		return nil
	})
	return true
}

// IsPending reports whether key currently has a task in flight.
func (e *Executor[K, R]) IsPending(key K) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, busy := e.pending[key]
	return busy
}

// Poll drains every task that has completed since the last call and
// invokes onResult for each, clearing its key's pending state before
// returning. It never blocks.
func (e *Executor[K, R]) Poll(onResult func(Result[K, R])) {
	for {
		select {
		case r := <-e.done:
			e.mu.Lock()
			delete(e.pending, r.Key)
			e.mu.Unlock()
			onResult(r)
		default:
			return
		}
	}
}

// Wait blocks until every scheduled task has completed. Intended for
// shutdown, not for the steady-state tick loop.
func (e *Executor[K, R]) Wait() error {
	return e.group.Wait()
}
