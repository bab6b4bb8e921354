package timeout

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReduce(t *testing.T) {
	running := State{
		Manager: "M",
		Timer:   "T1",
		Start:   epoch,
		End:     epoch.Add(time.Second),
		Running: true,
	}

	tests := []struct {
		name   string
		state  State
		action Action
		want   State
	}{
		{
			name:  "start replaces empty state",
			state: State{},
			action: Action{Type: ActionStartTimer, Payload: Lifecycle{
				Manager: "M", Timer: "T1", Start: epoch, End: epoch.Add(time.Second),
			}},
			want: running,
		},
		{
			name:  "stop replaces wholesale",
			state: running,
			action: Action{Type: ActionStopTimer, Payload: Lifecycle{
				Manager: "M", Timer: "T1", Start: epoch.Add(time.Second), Complete: true,
			}},
			want: State{Manager: "M", Timer: "T1", Start: epoch.Add(time.Second), Complete: true},
		},
		{
			name:  "start after stop clears complete",
			state: State{Manager: "M", Timer: "T1", Complete: true},
			action: Action{Type: ActionStartTimer, Payload: Lifecycle{
				Manager: "M", Timer: "T2", Start: epoch,
			}},
			want: State{Manager: "M", Timer: "T2", Start: epoch, Running: true},
		},
		{
			name:   "unrelated action passes through",
			state:  running,
			action: Action{Type: "OTHER", Payload: 1},
			want:   running,
		},
		{
			name:   "lifecycle type without payload passes through",
			state:  running,
			action: Action{Type: ActionStopTimer},
			want:   running,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Reduce(tt.state, tt.action))
		})
	}
}

func TestReducerFor(t *testing.T) {
	reduce := ReducerFor("A")

	own := Action{Type: ActionStartTimer, Payload: Lifecycle{Manager: "A", Timer: "T"}}
	other := Action{Type: ActionStartTimer, Payload: Lifecycle{Manager: "B", Timer: "T"}}

	assert.Equal(t, State{}, reduce(State{}, other))
	assert.Equal(t, State{Manager: "A", Timer: "T", Running: true}, reduce(State{}, own))
}
