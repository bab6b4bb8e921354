package timeout

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/librescoot/timeout/internal/lifecycle"
)

// Manager states
const (
	stateIdle    lifecycle.StateID = "idle"
	stateRunning lifecycle.StateID = "running"
)

// Manager events
const (
	evStart  lifecycle.EventID = "start"
	evCancel lifecycle.EventID = "cancel"
	evExpire lifecycle.EventID = "expire"
)

// session is the active timer. Its id and handle are set together and the
// manager holds at most one.
type session struct {
	timer    TimerID
	handle   Timer
	interval time.Duration
	followUp ActionCreator

	dispatch Dispatch // set once the Scheduled intent ran
	expired  *Action  // stop action held back until dispatch is bound
}

type startRequest struct {
	timer    TimerID
	interval time.Duration
	followUp ActionCreator
}

// Manager owns a single timer slot: at most one timer runs at a time.
// Managers are independent of each other; their actions are told apart by
// the manager id in the payload.
type Manager struct {
	id ManagerID

	mu      sync.Mutex
	machine *lifecycle.Machine
	session *session

	clock               Clock
	logger              *slog.Logger
	metrics             *Metrics
	stateChangeCallback func(id ManagerID, running bool)
}

// ManagerOption is a functional option for configuring a Manager
type ManagerOption func(*Manager)

// WithLogger sets the logger for the manager
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithClock sets the clock timers are scheduled on
func WithClock(clock Clock) ManagerOption {
	return func(m *Manager) {
		m.clock = clock
	}
}

// WithMetrics records the manager's timers in metrics
func WithMetrics(metrics *Metrics) ManagerOption {
	return func(m *Manager) {
		m.metrics = metrics
	}
}

// WithStateChangeCallback sets a callback invoked whenever the manager
// switches between idle and running. It runs with the manager locked and
// must not call back into the manager.
func WithStateChangeCallback(fn func(id ManagerID, running bool)) ManagerOption {
	return func(m *Manager) {
		m.stateChangeCallback = fn
	}
}

// NewManager creates an idle manager. An empty id is replaced with a random
// UUID.
func NewManager(id ManagerID, opts ...ManagerOption) *Manager {
	if id == "" {
		id = ManagerID(uuid.NewString())
	}

	m := &Manager{
		id:     id,
		clock:  SystemClock,
		logger: Logger,
	}

	for _, opt := range opts {
		opt(m)
	}

	def := lifecycle.NewDefinition().
		State(stateIdle).
		State(stateRunning,
			lifecycle.WithOnEnter(func(*lifecycle.Context) error {
				m.metrics.setRunning(m.id, true)
				return nil
			}),
			lifecycle.WithOnExit(func(*lifecycle.Context) error {
				m.metrics.setRunning(m.id, false)
				return nil
			}),
		).
		Transition(stateIdle, evStart, stateRunning, lifecycle.WithAction(m.arm)).
		Transition(stateRunning, evCancel, stateIdle, lifecycle.WithAction(m.disarm)).
		Transition(stateRunning, evExpire, stateIdle,
			lifecycle.WithGuard(m.isCurrent),
			lifecycle.WithAction(m.release),
		).
		Initial(stateIdle)

	machine, err := def.Build(
		lifecycle.WithLogger(m.logger.With("manager", id)),
		lifecycle.WithStateChangeCallback(func(_, to lifecycle.StateID) {
			if m.stateChangeCallback != nil {
				m.stateChangeCallback(m.id, to == stateRunning)
			}
		}),
	)
	if err != nil {
		// The definition above is static.
		panic(fmt.Sprintf("timeout: invalid manager definition: %v", err))
	}
	m.machine = machine

	return m
}

// NewDefaultManager creates a manager identified by DefaultManagerID
func NewDefaultManager(opts ...ManagerOption) *Manager {
	return NewManager(DefaultManagerID, opts...)
}

// ID returns the manager id
func (m *Manager) ID() ManagerID {
	return m.id
}

// Start starts a timer that expires after interval, or never when interval
// is Infinite.
//
// On expiry the manager returns to idle, a stop action with Complete set is
// dispatched, and then followUp is called and its action dispatched. A nil
// followUp only dispatches the stop action.
//
// The returned intent must be run by the host store: for an infinite timer
// it is the Immediate start action, for a finite one it is a *Scheduled.
func (m *Manager) Start(interval time.Duration, followUp ActionCreator, timerID TimerID) (Intent, error) {
	if interval < 0 && interval != Infinite {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInterval, interval)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	req := &startRequest{
		timer:    timerID,
		interval: interval,
		followUp: followUp,
	}

	if err := m.machine.Fire(lifecycle.Event{ID: evStart, Payload: req}); err != nil {
		if errors.Is(err, lifecycle.ErrNoTransition) {
			return nil, &AlreadyRunningError{Manager: m.id, Timer: m.session.timer}
		}
		return nil, err
	}

	m.metrics.timerStarted(m.id)
	m.logger.Debug("timer started", "manager", m.id, "timer", timerID, "interval", interval)

	payload := Lifecycle{
		Manager: m.id,
		Timer:   timerID,
		Start:   now,
	}
	if interval != Infinite {
		payload.End = now.Add(interval)
	}
	started := Action{Type: ActionStartTimer, Payload: payload}

	if interval == Infinite {
		return Immediate{Action: started}, nil
	}

	return &Scheduled{
		Delay:   interval,
		Action:  started,
		manager: m,
		session: m.session,
	}, nil
}

// Stop cancels the running timer. The pending expiry never fires and the
// follow-up action is never created. It returns the stop action with
// Complete unset.
func (m *Manager) Stop() (Action, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.session
	if err := m.machine.Fire(lifecycle.Event{ID: evCancel}); err != nil {
		if errors.Is(err, lifecycle.ErrNoTransition) {
			return Action{}, &NotRunningError{Manager: m.id}
		}
		return Action{}, err
	}

	m.metrics.timerStopped(m.id, false)
	m.logger.Debug("timer stopped", "manager", m.id, "timer", s.timer)

	return m.stopAction(s, false), nil
}

// IsRunning reports whether a timer is active
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.machine.IsInState(stateRunning)
}

// TimerID returns the id of the active timer, or "" when idle
func (m *Manager) TimerID() TimerID {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return ""
	}
	return m.session.timer
}

// RunningTimer returns the id of the active timer and whether there is one
func (m *Manager) RunningTimer() (TimerID, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return "", false
	}
	return m.session.timer, true
}

func (m *Manager) stopAction(s *session, complete bool) Action {
	return Action{
		Type: ActionStopTimer,
		Payload: Lifecycle{
			Manager:  m.id,
			Timer:    s.timer,
			Start:    m.clock.Now(),
			Complete: complete,
		},
	}
}

// arm records the session and schedules its expiry
func (m *Manager) arm(c *lifecycle.Context) error {
	req := c.Payload().(*startRequest)

	s := &session{
		timer:    req.timer,
		interval: req.interval,
		followUp: req.followUp,
	}
	if req.interval == Infinite {
		s.handle = noTimer{}
	} else {
		s.handle = m.clock.AfterFunc(req.interval, func() {
			m.expire(s)
		})
	}
	m.session = s
	return nil
}

// disarm cancels the pending expiry and clears the session
func (m *Manager) disarm(c *lifecycle.Context) error {
	m.session.handle.Stop()
	m.session = nil
	return nil
}

// isCurrent rejects expiries of sessions that were already cancelled
func (m *Manager) isCurrent(c *lifecycle.Context) bool {
	s, ok := c.Payload().(*session)
	return ok && s == m.session
}

func (m *Manager) release(c *lifecycle.Context) error {
	m.session = nil
	return nil
}

// expire runs on the clock when a finite timer falls due.
//
// The stop and follow-up actions are dispatched after the lock is released,
// so store listeners may call back into the manager, for instance to start
// the next timer from the stop action. The manager is idle from the moment
// the lock is dropped. With SystemClock, a Start and Run racing in from
// another goroutine in that window can therefore reach the store ahead of
// this stop action. Hosts that start timers from several goroutines and need
// the store to observe strict per-manager order should funnel Start calls
// through a single goroutine, or through the store's listeners.
func (m *Manager) expire(s *session) {
	m.mu.Lock()
	if err := m.machine.Fire(lifecycle.Event{ID: evExpire, Payload: s}); err != nil {
		m.mu.Unlock()
		m.logger.Debug("stale timer callback ignored", "manager", m.id, "timer", s.timer)
		return
	}

	m.metrics.timerStopped(m.id, true)
	m.logger.Debug("timer expired", "manager", m.id, "timer", s.timer, "interval", s.interval)

	stop := m.stopAction(s, true)
	dispatch := s.dispatch
	if dispatch == nil {
		s.expired = &stop
		m.mu.Unlock()
		m.logger.Warn("timer expired before its intent ran, holding actions back", "manager", m.id, "timer", s.timer)
		return
	}
	m.mu.Unlock()

	deliver(dispatch, stop, s.followUp)
}

// bind routes the expiry actions of s to dispatch, delivering them at once
// if s already expired
func (m *Manager) bind(s *session, dispatch Dispatch) {
	m.mu.Lock()
	s.dispatch = dispatch
	held := s.expired
	s.expired = nil
	m.mu.Unlock()

	if held != nil {
		deliver(dispatch, *held, s.followUp)
	}
}

// deliver dispatches the stop action before the follow-up is created
func deliver(dispatch Dispatch, stop Action, followUp ActionCreator) {
	dispatch(stop)
	if followUp != nil {
		dispatch(followUp())
	}
}
