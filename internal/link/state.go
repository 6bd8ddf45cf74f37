// internal/link/state.go
package link

import (
	"sync"
	"time"
)

// State is the process-wide connectivity state towards the meter.
type State int32

const (
	Down State = iota
	Connecting
	Up
)

func (s State) String() string {
	switch s {
	case Down:
		return "down"
	case Connecting:
		return "connecting"
	case Up:
		return "up"
	default:
		return "unknown"
	}
}

// TransitionFunc observes a state change. It is called synchronously after
// the change is committed and must not block.
type TransitionFunc func(from, to State)

// Link holds the shared State. Any component may force it Down; only the
// Supervisor in this package moves it to Connecting or Up.
type Link struct {
	mu        sync.RWMutex
	state     State
	since     time.Time
	lastCause error

	obsMu     sync.RWMutex
	observers []TransitionFunc
}

// New returns a Link in the Down state.
func New() *Link {
	return &Link{state: Down, since: time.Now()}
}

// State returns a consistent snapshot of the current state.
func (l *Link) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// Up reports whether the link is currently Up.
func (l *Link) Up() bool {
	return l.State() == Up
}

// Since returns when the current state was entered.
func (l *Link) Since() time.Time {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.since
}

// LastCause returns the error recorded with the most recent Down transition.
func (l *Link) LastCause() error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.lastCause
}

// MarkDown forces the link Down from any state. It returns true if the state
// changed.
func (l *Link) MarkDown(cause error) bool {
	return l.set(Down, cause)
}

// OnTransition registers fn for every subsequent state change.
func (l *Link) OnTransition(fn TransitionFunc) {
	l.obsMu.Lock()
	l.observers = append(l.observers, fn)
	l.obsMu.Unlock()
}

func (l *Link) set(to State, cause error) bool {
	l.mu.Lock()
	from := l.state
	if from == to {
		l.mu.Unlock()
		return false
	}
	l.state = to
	l.since = time.Now()
	if to == Down {
		l.lastCause = cause
	}
	l.mu.Unlock()

	l.obsMu.RLock()
	obs := append([]TransitionFunc(nil), l.observers...)
	l.obsMu.RUnlock()

	for _, fn := range obs {
		fn(from, to)
	}
	return true
}
