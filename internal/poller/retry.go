// internal/poller/retry.go
package poller

import "time"

// RetryPolicy spaces retries progressively: the device degrades under rapid
// successive requests.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	Increment  time.Duration
}

// Delay is the wait before retry number attempt+1, where attempt is the
// zero-based index of the attempt that just failed.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	return p.BaseDelay + time.Duration(attempt)*p.Increment
}

type retryState uint8

const (
	retryIdle retryState = iota
	retryAttempting
	retrySucceeded
	retryExhausted
)

// retryMachine tracks one field's attempts. It performs no I/O.
type retryMachine struct {
	policy  RetryPolicy
	state   retryState
	attempt int // index of the attempt in flight
}

func newRetryMachine(p RetryPolicy) *retryMachine {
	return &retryMachine{policy: p, state: retryIdle}
}

// start moves Idle -> Attempting(0).
func (m *retryMachine) start() {
	m.state = retryAttempting
	m.attempt = 0
}

// observe records the result of the attempt in flight. When another attempt
// is due it returns the wait before it and true.
func (m *retryMachine) observe(err error) (time.Duration, bool) {
	if m.state != retryAttempting {
		return 0, false
	}
	if err == nil {
		m.state = retrySucceeded
		return 0, false
	}
	if m.attempt >= m.policy.MaxRetries {
		m.state = retryExhausted
		return 0, false
	}
	wait := m.policy.Delay(m.attempt)
	m.attempt++
	return wait, true
}

// attempts is the number of attempts issued so far.
func (m *retryMachine) attempts() int {
	if m.state == retryIdle {
		return 0
	}
	return m.attempt + 1
}
