package lifecycle

import "log/slog"

// Context is passed to all state handlers and transition callbacks
type Context struct {
	Machine   *Machine
	Event     *Event  // Event being processed (nil for the initial entry)
	FromState StateID // State we're transitioning from
	ToState   StateID // State we're transitioning to
	Logger    *slog.Logger
}

// Payload returns the payload of the event being processed, if any
func (c *Context) Payload() any {
	if c.Event == nil {
		return nil
	}
	return c.Event.Payload
}
