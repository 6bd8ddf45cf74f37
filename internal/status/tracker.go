// internal/status/tracker.go
package status

import (
	"errors"
	"math"
	"sync"
	"time"

	"github.com/tamzrod/meterbridge/internal/catalog"
	"github.com/tamzrod/meterbridge/internal/poller"
	"github.com/tamzrod/meterbridge/internal/publisher"
)

// Tracker owns the diagnostic snapshot. Health follows the last cycle;
// seconds-in-error advances on Tick only while not OK.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
	cat  catalog.Catalog
	now  func() time.Time
}

// NewTracker starts in HealthUnknown.
func NewTracker(device string, cat catalog.Catalog) *Tracker {
	return &Tracker{
		snap: Snapshot{
			Device:     device,
			Health:     HealthUnknown,
			HealthName: HealthName(HealthUnknown),
			Link:       "down",
		},
		cat: cat,
		now: time.Now,
	}
}

// ObserveCycle folds one poll result into the snapshot.
func (t *Tracker) ObserveCycle(res poller.PollResult) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := &t.snap
	s.Cycles++
	s.LastCycleAt = res.At
	s.LastCycleDuration = res.Duration
	s.LastCounts = res.Counts

	values := make(map[string]float32, res.Reading.Len())
	for _, f := range t.cat.Fields() {
		if v, ok := res.Reading.Value(f.ID); ok && !math.IsNaN(float64(v)) && !math.IsInf(float64(v), 0) {
			values[f.ID] = v
		}
	}
	s.Values = values

	switch {
	case res.Err != nil:
		s.ConsecutiveFailures++
		t.setHealth(HealthError)
		s.LastErrorCode = errorCode(res)
		s.LastError = res.Err.Error()

	case res.Complete():
		s.ConsecutiveFailures = 0
		t.setHealth(HealthOK)
		// Recovery resets the error state.
		s.LastErrorCode = ErrorNone
		s.LastError = ""
		s.SecondsInError = 0

	default:
		s.ConsecutiveFailures = 0
		t.setHealth(HealthDegraded)
		s.LastErrorCode = errorCode(res)
		s.LastError = firstFieldError(res)
	}
}

// ObservePublish records a publish result. NotConnected is expected while
// a session is down and does not set an error code.
func (t *Tracker) ObservePublish(r publisher.Result) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.snap.LastPublish = r.Outcome.String()
	t.snap.LastPublishAt = t.now()

	switch r.Outcome {
	case publisher.OutcomePublished:
		t.snap.Published++
	case publisher.OutcomeFailed:
		if t.snap.Health == HealthOK && r.Err != nil {
			t.snap.LastErrorCode = ErrorPublish
			t.snap.LastError = r.Err.Error()
		}
	}
}

// ObserveDiscovery records the completed announcement count.
func (t *Tracker) ObserveDiscovery(announcements uint64) {
	t.mu.Lock()
	t.snap.DiscoveryAnnouncements = announcements
	t.mu.Unlock()
}

// ObserveLink records a device link transition.
func (t *Tracker) ObserveLink(state string, since time.Time) {
	t.mu.Lock()
	t.snap.Link = state
	t.snap.LinkSince = since
	t.mu.Unlock()
}

// ObserveBus records the bus session state.
func (t *Tracker) ObserveBus(connected bool) {
	t.mu.Lock()
	t.snap.BusConnected = connected
	t.mu.Unlock()
}

// Tick advances seconds-in-error. Call at 1 Hz.
func (t *Tracker) Tick() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.snap.Health == HealthOK || t.snap.Health == HealthUnknown {
		return
	}
	if t.snap.SecondsInError < MaxSecondsInError {
		t.snap.SecondsInError++
	}
}

// Snapshot returns a copy of the current state.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s := t.snap
	if t.snap.Values != nil {
		s.Values = make(map[string]float32, len(t.snap.Values))
		for k, v := range t.snap.Values {
			s.Values[k] = v
		}
	}
	return s
}

// Healthy is true while the link is up and the last cycle decoded anything.
func (t *Tracker) Healthy() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snap.Link == "up" && t.snap.Cycles > 0 && t.snap.Health != HealthError
}

func (t *Tracker) setHealth(code uint16) {
	t.snap.Health = code
	t.snap.HealthName = HealthName(code)
}

// errorCode picks the dominant failure of a cycle.
func errorCode(res poller.PollResult) uint16 {
	c := res.Counts
	switch {
	case c.LinkSkipped > 0 && c.Attempted == 0:
		return ErrorLinkDown
	case c.TimedOut > 0 && c.TimedOut >= c.Failed-c.LinkSkipped:
		return ErrorTimeout
	case c.Failed > 0:
		for _, o := range res.Outcomes {
			if errors.Is(o.Err, poller.ErrTransport) {
				return ErrorTransport
			}
		}
		return ErrorLinkDown
	case res.Err != nil:
		return ErrorGeneric
	default:
		return ErrorNone
	}
}

func firstFieldError(res poller.PollResult) string {
	for _, o := range res.Outcomes {
		if o.Err != nil {
			return o.Err.Error()
		}
	}
	return ""
}
