// SPDX-License-Identifier: BSD-3-Clause

// Package state wraps github.com/qmuntal/stateless behind the small FSM
// surface the node manager needs: a named machine with declared states
// and trigger-labeled transitions, fired synchronously from the tick
// loop.
//
// Two machine families live on top of this package. Every sensor
// reading owns a four-state status machine (unset, unavailable,
// invalid, valid) whose transitions drive reading lifecycle events, and
// the device manager owns a single lifecycle machine (constructed,
// installed, running, shutting_down, shutdown) that orders install,
// tick, and shutdown.
//
//	cfg := state.NewConfig(
//		state.WithName("devicemanager"),
//		state.WithInitialState("constructed"),
//		state.WithStates("constructed", "installed"),
//		state.WithTransition("constructed", "installed", "installed"),
//	)
//	fsm, err := state.New(cfg)
//
// An undeclared trigger or an edge not permitted from the current state
// fails with ErrInvalidTrigger; machines never transition implicitly.
package state
