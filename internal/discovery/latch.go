// internal/discovery/latch.go
package discovery

import "sync"

type latchState uint8

const (
	latchIdle latchState = iota
	latchRunning
	latchDone
)

// Latch records whether discovery was announced for the current session.
// A Reset during a running announcement invalidates it, so the next
// connection event announces again.
type Latch struct {
	mu    sync.Mutex
	state latchState
	gen   uint64
}

// Begin claims the announcement. It returns false when one is running or
// already done for this session.
func (l *Latch) Begin() (uint64, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != latchIdle {
		return 0, false
	}
	l.state = latchRunning
	return l.gen, true
}

// Finish settles the claim from Begin. A failed or stale claim leaves the
// latch open.
func (l *Latch) Finish(gen uint64, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if gen != l.gen || l.state != latchRunning {
		return
	}
	if ok {
		l.state = latchDone
	} else {
		l.state = latchIdle
	}
}

// Reset re-arms the latch for a new session.
func (l *Latch) Reset() {
	l.mu.Lock()
	l.state = latchIdle
	l.gen++
	l.mu.Unlock()
}

// Announced reports whether discovery completed for the current session.
func (l *Latch) Announced() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state == latchDone
}
