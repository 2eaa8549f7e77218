// SPDX-License-Identifier: BSD-3-Clause

package state

import (
	"context"
	"fmt"
	"sync"

	"github.com/qmuntal/stateless"
)

// FSM is a small, thread-safe wrapper around a stateless.StateMachine.
// The node manager creates one per sensor reading (the four-state
// status machine) and one for the device manager lifecycle; both are
// driven synchronously from the tick loop, so Fire never spawns
// goroutines or waits on timers.
type FSM struct {
	config  *Config
	machine *stateless.StateMachine

	mu           sync.RWMutex
	started      bool
	currentState string
}

// New creates a state machine from the provided configuration.
func New(config *Config) (*FSM, error) {
	if config == nil {
		return nil, ErrInvalidConfig
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	sm := &FSM{
		config:       config,
		currentState: config.InitialState,
		machine:      stateless.NewStateMachine(config.InitialState),
	}

	for _, t := range config.Transitions {
		sm.machine.Configure(t.From).Permit(t.Trigger, t.To)
	}

	return sm, nil
}

// Start marks the machine ready to accept triggers. Firing before Start
// is a programming error and fails with ErrNotStarted. Start is
// idempotent.
func (sm *FSM) Start(_ context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	sm.started = true
	return nil
}

// Fire applies trigger to the machine. The data argument is carried for
// symmetry with transition actions and may be nil.
func (sm *FSM) Fire(ctx context.Context, trigger string, _ map[string]any) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if !sm.started {
		return ErrNotStarted
	}

	if ok, err := sm.machine.CanFire(trigger); err != nil || !ok {
		return fmt.Errorf("%w: trigger %s in state %s", ErrInvalidTrigger, trigger, sm.currentState)
	}

	if err := sm.machine.FireCtx(ctx, trigger); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidTransition, err)
	}

	s, err := sm.machine.State(ctx)
	if err != nil {
		return fmt.Errorf("read state after %s: %w", trigger, err)
	}
	sm.currentState = fmt.Sprintf("%v", s)

	return nil
}

// CurrentState returns the machine's current state name.
func (sm *FSM) CurrentState() string {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	return sm.currentState
}

// Name returns the machine's configured name.
func (sm *FSM) Name() string {
	return sm.config.Name
}
