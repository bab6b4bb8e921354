package lifecycle

import (
	"errors"
	"fmt"
	"log/slog"
)

// ErrNoTransition is returned by Fire when the current state has no
// transition for the event, or every guard rejected it.
var ErrNoTransition = errors.New("no transition")

// RejectedError describes an event the machine could not take.
type RejectedError struct {
	State StateID
	Event EventID
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("event %q rejected in state %q", e.Event, e.State)
}

func (e *RejectedError) Unwrap() error {
	return ErrNoTransition
}

// Machine is the runtime instance of a Definition.
//
// Events are processed synchronously on the caller's goroutine. A Machine is
// not safe for concurrent use; owners serialize access themselves.
type Machine struct {
	definition   *Definition
	currentState StateID

	logger              *slog.Logger
	stateChangeCallback func(from, to StateID)
}

// MachineOption is a functional option for configuring a Machine
type MachineOption func(*Machine)

// WithLogger sets the logger for the machine
func WithLogger(logger *slog.Logger) MachineOption {
	return func(m *Machine) {
		m.logger = logger
	}
}

// WithStateChangeCallback sets a callback invoked after each state change
func WithStateChangeCallback(fn func(from, to StateID)) MachineOption {
	return func(m *Machine) {
		m.stateChangeCallback = fn
	}
}

// CurrentState returns the current state
func (m *Machine) CurrentState() StateID {
	return m.currentState
}

// IsInState reports whether id is the current state
func (m *Machine) IsInState(id StateID) bool {
	return m.currentState == id
}

// Fire processes a single event. It returns a *RejectedError when no
// transition applies, and wraps errors returned by actions.
func (m *Machine) Fire(event Event) error {
	m.logger.Debug("processing event", "event", event.ID, "state", m.currentState)

	transitions := m.findAllTransitions(event.ID)
	if len(transitions) == 0 {
		m.logger.Debug("no transition found", "event", event.ID, "state", m.currentState)
		return &RejectedError{State: m.currentState, Event: event.ID}
	}

	ctx := m.makeContext(&event)
	for _, transition := range transitions {
		if transition.Guard == nil || transition.Guard(ctx) {
			return m.executeTransition(transition, &event)
		}
		m.logger.Debug("guard rejected transition", "event", event.ID, "from", transition.From, "to", transition.To)
	}

	return &RejectedError{State: m.currentState, Event: event.ID}
}

// findAllTransitions returns the transitions leaving the current state on
// id, in definition order
func (m *Machine) findAllTransitions(id EventID) []*Transition {
	var matches []*Transition

	for i := range m.definition.transitions {
		t := &m.definition.transitions[i]
		if t.Event == id && t.From == m.currentState {
			matches = append(matches, t)
		}
	}

	return matches
}

// executeTransition performs the state transition
func (m *Machine) executeTransition(t *Transition, event *Event) error {
	fromState := m.currentState
	toState := t.To

	m.logger.Debug("executing transition", "from", fromState, "to", toState, "event", event.ID)

	if err := m.exitState(fromState, event); err != nil {
		return err
	}

	if t.Action != nil {
		ctx := m.makeContext(event)
		ctx.FromState = fromState
		ctx.ToState = toState
		if err := t.Action(ctx); err != nil {
			return fmt.Errorf("transition action failed: %w", err)
		}
	}

	if err := m.enterState(toState, event, fromState); err != nil {
		return err
	}

	if m.stateChangeCallback != nil {
		m.stateChangeCallback(fromState, m.currentState)
	}

	return nil
}

func (m *Machine) enterState(id StateID, event *Event, fromState StateID) error {
	state := m.definition.states[id]
	if state == nil {
		return fmt.Errorf("state %q not found", id)
	}

	m.logger.Debug("entering state", "state", id)
	m.currentState = id

	if state.OnEnter != nil {
		ctx := m.makeContext(event)
		ctx.FromState = fromState
		ctx.ToState = id
		if err := state.OnEnter(ctx); err != nil {
			return fmt.Errorf("entry action failed for %q: %w", id, err)
		}
	}

	return nil
}

func (m *Machine) exitState(id StateID, event *Event) error {
	state := m.definition.states[id]
	if state == nil {
		return nil
	}

	m.logger.Debug("exiting state", "state", id)

	if state.OnExit != nil {
		ctx := m.makeContext(event)
		ctx.FromState = id
		if err := state.OnExit(ctx); err != nil {
			return fmt.Errorf("exit action failed for %q: %w", id, err)
		}
	}

	return nil
}

func (m *Machine) makeContext(event *Event) *Context {
	return &Context{
		Machine: m,
		Event:   event,
		Logger:  m.logger,
	}
}
