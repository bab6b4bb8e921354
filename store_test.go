package timeout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const actionAdd ActionType = "ADD"

func counter(state int, action Action) int {
	if action.Type == actionAdd {
		return state + action.Payload.(int)
	}
	return state
}

func TestStoreDispatch(t *testing.T) {
	store := NewStore(counter, 10)

	store.Dispatch(Action{Type: actionAdd, Payload: 5})
	store.Dispatch(Action{Type: "IGNORED"})

	assert.Equal(t, 15, store.State())
}

func TestStoreSubscribe(t *testing.T) {
	store := NewStore(counter, 0)

	var calls []string
	unsubscribeA := store.Subscribe(func(state int, _ Action) {
		calls = append(calls, "a")
	})
	store.Subscribe(func(state int, action Action) {
		calls = append(calls, "b")
		// Listeners see the state after the action and may dispatch again
		if state == 1 {
			store.Dispatch(Action{Type: actionAdd, Payload: 1})
		}
	})

	store.Dispatch(Action{Type: actionAdd, Payload: 1})
	assert.Equal(t, 2, store.State())
	assert.Equal(t, []string{"a", "b", "a", "b"}, calls)

	unsubscribeA()
	calls = nil
	store.Dispatch(Action{Type: actionAdd, Payload: 1})
	assert.Equal(t, []string{"b"}, calls)
}

func TestStoreRunImmediate(t *testing.T) {
	store := NewStore(counter, 0)
	store.Run(Immediate{Action: Action{Type: actionAdd, Payload: 3}})
	assert.Equal(t, 3, store.State())
}

func TestCombine(t *testing.T) {
	reduce := Combine(map[string]Reducer[any]{
		"count":   Slice[int](counter),
		"timeout": Slice[State](Reduce),
	})

	initial := map[string]any{"extra": "kept"}
	next := reduce(initial, Action{Type: actionAdd, Payload: 2})

	assert.Equal(t, 2, next["count"])
	assert.Equal(t, State{}, next["timeout"])
	assert.Equal(t, "kept", next["extra"])
	assert.NotContains(t, initial, "count", "previous state must not be mutated")

	next = reduce(next, Action{Type: ActionStartTimer, Payload: Lifecycle{Manager: "M", Timer: "T"}})
	require.IsType(t, State{}, next["timeout"])
	assert.True(t, next["timeout"].(State).Running)
	assert.Equal(t, 2, next["count"])
}
