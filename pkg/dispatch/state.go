package dispatch

import "fmt"

// State is a step of the dispatch state machine.
type State string

const (
	StateIdle       State = "idle"
	StateAttempting State = "attempting"
	StateRetrying   State = "retrying"
	StateSuccess    State = "success"
	StateExhausted  State = "exhausted"
)

// Idle and Retrying may jump to Exhausted only when the caller's context
// ends before the next attempt starts.
var transitions = map[State][]State{
	StateIdle:       {StateAttempting, StateExhausted},
	StateAttempting: {StateSuccess, StateRetrying, StateExhausted},
	StateRetrying:   {StateAttempting, StateExhausted},
}

// Terminal reports whether s ends a dispatch sequence.
func (s State) Terminal() bool {
	return s == StateSuccess || s == StateExhausted
}

// machine records the path through the states and rejects illegal moves.
type machine struct {
	trace []State
}

func newMachine() *machine {
	return &machine{trace: []State{StateIdle}}
}

func (m *machine) current() State {
	return m.trace[len(m.trace)-1]
}

func (m *machine) to(next State) error {
	cur := m.current()
	for _, s := range transitions[cur] {
		if s == next {
			m.trace = append(m.trace, next)
			return nil
		}
	}
	return fmt.Errorf("illegal dispatch transition %s -> %s", cur, next)
}

// mustTo moves to a terminal state. The sequence logic guarantees the move is
// legal, so a failure here is a programming error.
func (m *machine) mustTo(next State) {
	if err := m.to(next); err != nil {
		panic(err)
	}
}
