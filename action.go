package timeout

import "time"

// ActionType is a stable identifier of an action kind
type ActionType string

// Lifecycle action types emitted by a Manager
const (
	ActionStartTimer ActionType = "timeout/START_TIMER"
	ActionStopTimer  ActionType = "timeout/STOP_TIMER"
)

// Action is the unit delivered to a Store and its reducers
type Action struct {
	Type    ActionType
	Payload any
}

// ActionCreator produces the follow-up action dispatched when a timer expires
type ActionCreator func() Action

// Dispatch delivers an action to the host store
type Dispatch func(Action)

// Lifecycle is the payload of ActionStartTimer and ActionStopTimer.
//
// End is only set on start actions of finite timers. Complete is only
// meaningful on stop actions: true when the timer expired, false when it was
// cancelled.
type Lifecycle struct {
	Manager  ManagerID `json:"manager"`
	Timer    TimerID   `json:"timer"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end,omitzero"`
	Complete bool      `json:"complete"`
}

// Lifecycle returns the lifecycle payload of a start or stop action
func (a Action) Lifecycle() (Lifecycle, bool) {
	if a.Type != ActionStartTimer && a.Type != ActionStopTimer {
		return Lifecycle{}, false
	}
	l, ok := a.Payload.(Lifecycle)
	return l, ok
}
