package timeout

import (
	"maps"
	"sync"
)

// Reducer computes the next state of a store from an action
type Reducer[S any] func(state S, action Action) S

// Store holds application state and applies dispatched actions to it
// through a reducer. Listeners are notified after each action, outside the
// store lock, so they may dispatch themselves.
type Store[S any] struct {
	mu        sync.Mutex
	state     S
	reducer   Reducer[S]
	listeners map[int]func(state S, action Action)
	nextID    int
}

// NewStore creates a store holding initial
func NewStore[S any](reducer Reducer[S], initial S) *Store[S] {
	return &Store[S]{
		state:     initial,
		reducer:   reducer,
		listeners: make(map[int]func(S, Action)),
	}
}

// Dispatch applies action to the state
func (s *Store[S]) Dispatch(action Action) {
	s.mu.Lock()
	s.state = s.reducer(s.state, action)
	state := s.state
	listeners := make([]func(S, Action), 0, len(s.listeners))
	for id := 0; id < s.nextID; id++ {
		if fn, ok := s.listeners[id]; ok {
			listeners = append(listeners, fn)
		}
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(state, action)
	}
}

// Run executes an intent returned by a Manager against this store
func (s *Store[S]) Run(intent Intent) {
	intent.Run(s.Dispatch)
}

// State returns the current state
func (s *Store[S]) State() S {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe registers fn to be called after every dispatched action, in
// subscription order. The returned function removes it.
func (s *Store[S]) Subscribe(fn func(state S, action Action)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.listeners[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// Slice adapts a typed reducer for use in Combine. A missing or mistyped
// slice starts from the zero value of S.
func Slice[S any](reducer Reducer[S]) Reducer[any] {
	return func(state any, action Action) any {
		s, _ := state.(S)
		return reducer(s, action)
	}
}

// Combine namespaces reducers under keys. Every reducer sees every action.
// The combined state map is copied on each action and never mutated in
// place.
func Combine(reducers map[string]Reducer[any]) Reducer[map[string]any] {
	return func(state map[string]any, action Action) map[string]any {
		next := make(map[string]any, len(reducers))
		maps.Copy(next, state)
		for key, reducer := range reducers {
			next[key] = reducer(state[key], action)
		}
		return next
	}
}
