package lifecycle

// Transition defines a state change rule
type Transition struct {
	From   StateID                  // Source state
	Event  EventID                  // Triggering event
	To     StateID                  // Target state
	Guard  func(ctx *Context) bool  // Optional: must return true to take transition
	Action func(ctx *Context) error // Optional: runs during transition
}

// TransitionOption is a functional option for configuring a Transition
type TransitionOption func(*Transition)

// WithGuard sets a guard condition for the transition
func WithGuard(fn func(*Context) bool) TransitionOption {
	return func(t *Transition) {
		t.Guard = fn
	}
}

// WithAction sets an action to execute during the transition
func WithAction(fn func(*Context) error) TransitionOption {
	return func(t *Transition) {
		t.Action = fn
	}
}
