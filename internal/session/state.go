package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lexiqai/synth-session/internal/observability"
)

// State is the lifecycle position of a Session.
type State int

const (
	AwaitingSelection State = iota
	Initializing
	InitializeFailed
	Ready
)

var stateNames = []string{
	AwaitingSelection: "awaiting_selection",
	Initializing:      "initializing",
	InitializeFailed:  "initialize_failed",
	Ready:             "ready",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// ErrInvalidTransition is returned when an operation is not valid in the
// current state.
var ErrInvalidTransition = errors.New("session: invalid state transition")

var transitions = map[State][]State{
	AwaitingSelection: {Initializing},
	Initializing:      {Ready, InitializeFailed},
	InitializeFailed:  {AwaitingSelection},
	Ready:             {AwaitingSelection},
}

// CanTransitionTo reports whether to directly follows s.
func (s State) CanTransitionTo(to State) bool {
	for _, t := range transitions[s] {
		if t == to {
			return true
		}
	}
	return false
}

// Transition is one recorded state change.
type Transition struct {
	From State
	To   State
	At   time.Time
}

const historyLimit = 32

type stateMachine struct {
	mu      sync.RWMutex
	current State
	history []Transition
}

func newStateMachine() *stateMachine {
	observability.RecordState(stateNames, AwaitingSelection.String())
	return &stateMachine{current: AwaitingSelection}
}

func (m *stateMachine) state() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// transition moves to `to` if the current state is one of from.
func (m *stateMachine) transition(to State, from ...State) (Transition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	allowed := len(from) == 0
	for _, f := range from {
		if f == m.current {
			allowed = true
			break
		}
	}
	if !allowed || !m.current.CanTransitionTo(to) {
		return Transition{}, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, m.current, to)
	}

	t := Transition{From: m.current, To: to, At: time.Now()}
	m.current = to
	m.history = append(m.history, t)
	if len(m.history) > historyLimit {
		m.history = m.history[len(m.history)-historyLimit:]
	}

	observability.RecordTransition(t.From.String(), t.To.String())
	observability.RecordState(stateNames, to.String())
	return t, nil
}

func (m *stateMachine) snapshot() []Transition {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Transition, len(m.history))
	copy(out, m.history)
	return out
}
