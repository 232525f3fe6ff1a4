package service

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrInvalidTransition is returned for a lifecycle edge that is not allowed.
var ErrInvalidTransition = errors.New("invalid lifecycle transition")

// State is the service's lifecycle state on this host.
type State int

const (
	NotInstalled State = iota
	Installed
	Running
	Stopping
	Stopped
)

func (s State) String() string {
	switch s {
	case NotInstalled:
		return "NotInstalled"
	case Installed:
		return "Installed"
	case Running:
		return "Running"
	case Stopping:
		return "Stopping"
	case Stopped:
		return "Stopped"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

var allowed = map[State][]State{
	NotInstalled: {Installed},
	Installed:    {NotInstalled, Running},
	Running:      {Stopping},
	Stopping:     {Stopped},
	Stopped:      {NotInstalled},
}

// Change records one transition.
type Change struct {
	From State
	To   State
	At   time.Time
}

// Lifecycle is a mutex-guarded state machine over State.
type Lifecycle struct {
	mu      sync.Mutex
	state   State
	history []Change
}

// NewLifecycle returns a lifecycle starting at initial.
func NewLifecycle(initial State) *Lifecycle {
	return &Lifecycle{state: initial}
}

// State returns the current state.
func (l *Lifecycle) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Transition moves to the given state if the edge is allowed.
func (l *Lifecycle) Transition(to State) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, next := range allowed[l.state] {
		if next == to {
			l.history = append(l.history, Change{From: l.state, To: to, At: time.Now()})
			l.state = to
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, l.state, to)
}

// History returns a copy of the recorded transitions, oldest first.
func (l *Lifecycle) History() []Change {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Change, len(l.history))
	copy(out, l.history)
	return out
}
