package timeout

import (
	"log/slog"
	"time"
)

// ManagerID identifies a Manager in a shared action stream
type ManagerID string

// TimerID identifies one run of a timer
type TimerID string

// Infinite is the interval sentinel for a timer that never expires on its
// own. It runs until stopped.
const Infinite time.Duration = -1

// DefaultManagerID is the id conventionally given to an application's
// primary manager.
const DefaultManagerID ManagerID = "DEFAULT"

// Logger is the default logger used when none is provided
var Logger = slog.Default()
