package lifecycle

import (
	"fmt"
)

// Definition holds the machine structure before building a Machine
type Definition struct {
	states      map[StateID]*State
	transitions []Transition
	initial     StateID
}

// NewDefinition creates a new definition builder
func NewDefinition() *Definition {
	return &Definition{
		states:      make(map[StateID]*State),
		transitions: make([]Transition, 0),
	}
}

// State adds a state to the definition
func (d *Definition) State(id StateID, opts ...StateOption) *Definition {
	s := &State{ID: id}
	for _, opt := range opts {
		opt(s)
	}
	d.states[id] = s
	return d
}

// Transition adds a transition rule
func (d *Definition) Transition(from StateID, event EventID, to StateID, opts ...TransitionOption) *Definition {
	t := Transition{
		From:  from,
		Event: event,
		To:    to,
	}
	for _, opt := range opts {
		opt(&t)
	}
	d.transitions = append(d.transitions, t)
	return d
}

// Initial sets the initial state
func (d *Definition) Initial(id StateID) *Definition {
	d.initial = id
	return d
}

// Validate checks the definition for errors
func (d *Definition) Validate() error {
	if d.initial == "" {
		return fmt.Errorf("no initial state defined")
	}

	if _, ok := d.states[d.initial]; !ok {
		return fmt.Errorf("initial state %q not defined", d.initial)
	}

	for _, t := range d.transitions {
		if _, ok := d.states[t.From]; !ok {
			return fmt.Errorf("transition from undefined state %q", t.From)
		}
		if _, ok := d.states[t.To]; !ok {
			return fmt.Errorf("transition to undefined state %q", t.To)
		}
		if t.Event == "" {
			return fmt.Errorf("transition from %q has no event", t.From)
		}
	}

	return nil
}

// Build creates a Machine from the definition and enters the initial state
func (d *Definition) Build(opts ...MachineOption) (*Machine, error) {
	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("invalid definition: %w", err)
	}

	m := &Machine{
		definition: d,
		logger:     Logger,
	}

	for _, opt := range opts {
		opt(m)
	}

	if err := m.enterState(d.initial, nil, ""); err != nil {
		return nil, fmt.Errorf("failed to enter initial state: %w", err)
	}

	return m, nil
}
