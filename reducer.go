package timeout

import "time"

// State is the projection of the latest lifecycle action
type State struct {
	Manager  ManagerID `json:"manager"`
	Timer    TimerID   `json:"timer"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end,omitzero"`
	Complete bool      `json:"complete"`
	Running  bool      `json:"running"`
}

// Reduce folds a lifecycle action into state. A start or stop action
// replaces state wholesale; any other action leaves it unchanged.
func Reduce(state State, action Action) State {
	l, ok := action.Lifecycle()
	if !ok {
		return state
	}

	return State{
		Manager:  l.Manager,
		Timer:    l.Timer,
		Start:    l.Start,
		End:      l.End,
		Complete: l.Complete,
		Running:  action.Type == ActionStartTimer,
	}
}

// ReducerFor is Reduce restricted to the actions of one manager, for stores
// shared by several managers.
func ReducerFor(id ManagerID) Reducer[State] {
	return func(state State, action Action) State {
		if l, ok := action.Lifecycle(); !ok || l.Manager != id {
			return state
		}
		return Reduce(state, action)
	}
}
