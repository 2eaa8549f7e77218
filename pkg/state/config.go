// SPDX-License-Identifier: BSD-3-Clause

package state

import "fmt"

// Config describes a state machine: its states and the trigger-labeled
// transitions between them. In this repository triggers are always the
// name of the target state, so callers read WithTransition(from, to, to).
type Config struct {
	Name         string
	InitialState string
	States       []string
	Transitions  []Transition
}

// Transition is one permitted edge of the machine.
type Transition struct {
	From    string
	To      string
	Trigger string
}

// Option mutates a Config during NewConfig.
type Option interface {
	apply(*Config)
}

type nameOption struct {
	name string
}

func (o *nameOption) apply(c *Config) {
	c.Name = o.name
}

// WithName sets the machine name used in error messages and diagnostics.
func WithName(name string) Option {
	return &nameOption{name: name}
}

type initialStateOption struct {
	state string
}

func (o *initialStateOption) apply(c *Config) {
	c.InitialState = o.state
}

// WithInitialState sets the state the machine starts in.
func WithInitialState(state string) Option {
	return &initialStateOption{state: state}
}

type statesOption struct {
	states []string
}

func (o *statesOption) apply(c *Config) {
	c.States = append(c.States, o.states...)
}

// WithStates declares the machine's states.
func WithStates(states ...string) Option {
	return &statesOption{states: states}
}

type transitionOption struct {
	transition Transition
}

func (o *transitionOption) apply(c *Config) {
	c.Transitions = append(c.Transitions, o.transition)
}

// WithTransition permits moving from one state to another on trigger.
func WithTransition(from, to, trigger string) Option {
	return &transitionOption{transition: Transition{From: from, To: to, Trigger: trigger}}
}

// NewConfig builds a Config from the provided options.
func NewConfig(opts ...Option) *Config {
	c := &Config{}
	for _, opt := range opts {
		opt.apply(c)
	}
	return c
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidConfig)
	}
	if c.InitialState == "" {
		return fmt.Errorf("%w: missing initial state", ErrInvalidConfig)
	}

	known := make(map[string]struct{}, len(c.States))
	for _, s := range c.States {
		known[s] = struct{}{}
	}
	if _, ok := known[c.InitialState]; !ok {
		return fmt.Errorf("%w: initial state %s not declared", ErrInvalidConfig, c.InitialState)
	}
	for _, t := range c.Transitions {
		if _, ok := known[t.From]; !ok {
			return fmt.Errorf("%w: transition from undeclared state %s", ErrInvalidConfig, t.From)
		}
		if _, ok := known[t.To]; !ok {
			return fmt.Errorf("%w: transition to undeclared state %s", ErrInvalidConfig, t.To)
		}
	}

	return nil
}
