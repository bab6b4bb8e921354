// Package timeout runs single-slot timers whose lifecycle is reported as
// actions to a reducer store.
//
// A Manager holds at most one running timer. Start hands back an Intent for
// the host store to run: the start action right away and, once a finite
// timer expires, a stop action with Complete set followed by the caller's
// follow-up action. Stop cancels the timer before it fires. Reduce projects
// the latest lifecycle action into a State.
//
//	clock := timeout.NewFakeClock(time.Now())
//	m := timeout.NewManager("session", timeout.WithClock(clock))
//	store := timeout.NewStore(timeout.Reduce, timeout.State{})
//
//	intent, err := m.Start(15*time.Minute, logout, "idle")
//	if err != nil {
//		return err
//	}
//	store.Run(intent)
package timeout
