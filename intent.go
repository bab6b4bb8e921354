package timeout

import (
	"sync"
	"time"
)

// Intent is the work a Manager hands back to the host store. It is either
// Immediate or *Scheduled; a Store executes both through Run.
type Intent interface {
	// Run delivers the intent's actions to dispatch.
	Run(dispatch Dispatch)
	isIntent()
}

// Immediate is an intent made of a single action and no deferred work.
type Immediate struct {
	Action Action
}

// Run dispatches the action
func (i Immediate) Run(dispatch Dispatch) {
	dispatch(i.Action)
}

func (Immediate) isIntent() {}

// Scheduled is the intent of a finite timer. Running it dispatches the start
// action right away and routes the actions raised on expiry, the stop action
// followed by the follow-up action, to the same dispatch.
//
// The callback is armed when the timer is started, not when the intent runs.
// If the timer expires before Run is called, its actions are held back and
// delivered by Run right after the start action.
type Scheduled struct {
	Delay  time.Duration
	Action Action // the start action

	once    sync.Once
	manager *Manager
	session *session
}

// Run dispatches the start action and binds dispatch as the target of the
// expiry actions. Only the first call has an effect.
func (s *Scheduled) Run(dispatch Dispatch) {
	s.once.Do(func() {
		dispatch(s.Action)
		s.manager.bind(s.session, dispatch)
	})
}

func (*Scheduled) isIntent() {}
