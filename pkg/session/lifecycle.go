package session

import (
	"errors"
	"fmt"
	"sync"
)

// ErrInvalidTransition reports an event that is not legal in the current
// lifecycle state.
var ErrInvalidTransition = errors.New("session: invalid lifecycle transition")

// State is the capture lifecycle state of a session.
type State uint8

const (
	StateDetached State = iota
	StateAttached
	StateCapturing
)

var stateNames = map[State]string{
	StateDetached:  "Detached",
	StateAttached:  "Attached",
	StateCapturing: "Capturing",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", s)
}

// Event drives the lifecycle.
type Event uint8

const (
	EventAttached Event = iota
	EventDetached
	EventCaptureStarted
	EventCaptureEnded
)

var eventNames = map[Event]string{
	EventAttached:       "Attached",
	EventDetached:       "Detached",
	EventCaptureStarted: "CaptureStarted",
	EventCaptureEnded:   "CaptureEnded",
}

func (e Event) String() string {
	if name, ok := eventNames[e]; ok {
		return name
	}
	return fmt.Sprintf("Event(%d)", e)
}

// transitions lists every legal (state, event) pair. Detaching while a
// capture runs abandons it.
var transitions = map[State]map[Event]State{
	StateDetached: {
		EventAttached: StateAttached,
	},
	StateAttached: {
		EventDetached:       StateDetached,
		EventCaptureStarted: StateCapturing,
	},
	StateCapturing: {
		EventCaptureEnded: StateAttached,
		EventDetached:     StateDetached,
	},
}

// NextState returns the state reached by applying e in s.
func NextState(s State, e Event) (State, error) {
	next, ok := transitions[s][e]
	if !ok {
		return s, fmt.Errorf("%w: %s in %s", ErrInvalidTransition, e, s)
	}
	return next, nil
}

// Lifecycle tracks the device/capture state of one session. It is safe for
// concurrent use.
type Lifecycle struct {
	mu    sync.Mutex
	state State
}

// NewLifecycle creates a lifecycle in StateDetached.
func NewLifecycle() *Lifecycle {
	return &Lifecycle{state: StateDetached}
}

// State reports the current state.
func (l *Lifecycle) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Fire applies e and returns the new state. An illegal event leaves the
// state unchanged.
func (l *Lifecycle) Fire(e Event) (State, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	next, err := NextState(l.state, e)
	if err != nil {
		return l.state, err
	}
	l.state = next
	return next, nil
}
