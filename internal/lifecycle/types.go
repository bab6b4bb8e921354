package lifecycle

import "log/slog"

// StateID is a unique identifier for a state
type StateID string

// EventID is a unique identifier for an event type
type EventID string

// Event carries data through the state machine
type Event struct {
	ID      EventID
	Payload any // Optional typed payload
}

// Logger is the default logger used when none is provided
var Logger = slog.Default()
