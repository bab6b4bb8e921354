package main

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sort"
	"time"

	"github.com/librescoot/timeout"
	"github.com/librescoot/timeout/internal/config"
)

// followUpsKey is the store slice counting follow-up actions by type
const followUpsKey = "followups"

var errUnknownManager = errors.New("unknown manager")

// FollowUp is the payload of the actions dispatched on expiry
type FollowUp struct {
	Manager timeout.ManagerID `json:"manager"`
	Timer   timeout.TimerID   `json:"timer"`
}

type managerEntry struct {
	manager  *timeout.Manager
	interval time.Duration
	followUp timeout.ActionType
}

// Status describes one manager
type Status struct {
	Manager  timeout.ManagerID `json:"manager"`
	Running  bool              `json:"running"`
	Timer    timeout.TimerID   `json:"timer,omitempty"`
	Interval string            `json:"interval"`
}

// app hosts the configured managers and the store their actions go to
type app struct {
	managers map[timeout.ManagerID]*managerEntry
	store    *timeout.Store[map[string]any]
	logger   *slog.Logger
}

func newApp(cfg *config.Config, logger *slog.Logger, opts ...timeout.ManagerOption) (*app, error) {
	a := &app{
		managers: make(map[timeout.ManagerID]*managerEntry),
		logger:   logger,
	}

	reducers := map[string]timeout.Reducer[any]{
		followUpsKey: timeout.Slice(countFollowUps),
	}

	for _, mc := range cfg.Managers {
		interval, err := config.ParseInterval(mc.Interval)
		if err != nil {
			return nil, fmt.Errorf("manager %s: %w", mc.ID, err)
		}

		id := timeout.ManagerID(mc.ID)
		managerOpts := append([]timeout.ManagerOption{timeout.WithLogger(logger)}, opts...)
		a.managers[id] = &managerEntry{
			manager:  timeout.NewManager(id, managerOpts...),
			interval: interval,
			followUp: timeout.ActionType(mc.FollowUp),
		}
		reducers[mc.ID] = timeout.Slice(timeout.ReducerFor(id))
	}

	a.store = timeout.NewStore(timeout.Combine(reducers), map[string]any{})
	a.store.Subscribe(func(_ map[string]any, action timeout.Action) {
		logger.Info("action dispatched", "type", action.Type, "payload", action.Payload)
	})

	return a, nil
}

// countFollowUps counts dispatched follow-up actions by type
func countFollowUps(state map[string]int, action timeout.Action) map[string]int {
	if _, ok := action.Payload.(FollowUp); !ok {
		return state
	}
	next := make(map[string]int, len(state)+1)
	maps.Copy(next, state)
	next[string(action.Type)]++
	return next
}

func (a *app) entry(id timeout.ManagerID) (*managerEntry, error) {
	e, ok := a.managers[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errUnknownManager, id)
	}
	return e, nil
}

// start starts a timer on the manager. A zero interval string uses the
// manager's configured default.
func (a *app) start(id timeout.ManagerID, interval string, timerID timeout.TimerID) error {
	e, err := a.entry(id)
	if err != nil {
		return err
	}

	d := e.interval
	if interval != "" {
		if d, err = config.ParseInterval(interval); err != nil {
			return err
		}
	}

	followUpType := e.followUp
	intent, err := e.manager.Start(d, func() timeout.Action {
		return timeout.Action{
			Type:    followUpType,
			Payload: FollowUp{Manager: id, Timer: timerID},
		}
	}, timerID)
	if err != nil {
		return err
	}

	a.store.Run(intent)
	return nil
}

// stop cancels the manager's running timer
func (a *app) stop(id timeout.ManagerID) error {
	e, err := a.entry(id)
	if err != nil {
		return err
	}

	action, err := e.manager.Stop()
	if err != nil {
		return err
	}

	a.store.Dispatch(action)
	return nil
}

// statuses returns every manager, sorted by id
func (a *app) statuses() []Status {
	out := make([]Status, 0, len(a.managers))
	for id, e := range a.managers {
		timer, running := e.manager.RunningTimer()
		interval := e.interval.String()
		if e.interval == timeout.Infinite {
			interval = "inf"
		}
		out = append(out, Status{
			Manager:  id,
			Running:  running,
			Timer:    timer,
			Interval: interval,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Manager < out[j].Manager })
	return out
}

// stopAll cancels every running timer, for shutdown
func (a *app) stopAll() {
	for id, e := range a.managers {
		if !e.manager.IsRunning() {
			continue
		}
		if err := a.stop(id); err != nil && !errors.Is(err, timeout.ErrNotRunning) {
			a.logger.Warn("failed to stop timer", "manager", id, "error", err)
		}
	}
}
