// SPDX-License-Identifier: BSD-3-Clause

package devicemanager

import (
	"github.com/u-bmc/nodemgr/pkg/state"
)

// newLifecycle returns the DeviceManager's own lifecycle state machine:
// constructed -> installed -> running -> shutting_down -> shutdown.
func newLifecycle() (*state.FSM, error) {
	cfg := state.NewConfig(
		state.WithName("devicemanager"),
		state.WithInitialState("constructed"),
		state.WithStates("constructed", "installed", "running", "shutting_down", "shutdown"),
		state.WithTransition("constructed", "installed", "installed"),
		state.WithTransition("installed", "running", "running"),
		state.WithTransition("running", "shutting_down", "shutting_down"),
		state.WithTransition("shutting_down", "shutdown", "shutdown"),
	)
	return state.New(cfg)
}
