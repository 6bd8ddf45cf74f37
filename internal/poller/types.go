// internal/poller/types.go
package poller

import (
	"errors"
	"time"
)

var (
	// ErrReadTimeout is a field read that hit the transport response timeout.
	ErrReadTimeout = errors.New("poller: field read timeout")

	// ErrTransport is any other field read failure.
	ErrTransport = errors.New("poller: field read transport error")

	// ErrLinkDown marks fields skipped because the link was not up.
	ErrLinkDown = errors.New("poller: link down")

	// ErrTotalFailure means no field decoded in the cycle.
	ErrTotalFailure = errors.New("poller: cycle total failure")
)

// FailReason classifies a failed field.
type FailReason uint8

const (
	ReasonNone FailReason = iota
	ReasonLinkDown
	ReasonTimeout
	ReasonTransport
)

func (r FailReason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonLinkDown:
		return "link_down"
	case ReasonTimeout:
		return "timeout"
	case ReasonTransport:
		return "transport"
	default:
		return "unknown"
	}
}

// Outcome is the per-field result of one cycle.
// Exactly one of Decoded or Reason != ReasonNone holds.
type Outcome struct {
	Field    string
	Decoded  bool
	Value    float32
	Raw      uint32
	Suspect  bool // outside the plausibility band
	Reason   FailReason
	Attempts int
	Err      error
}

// Counts are the cycle diagnostics.
type Counts struct {
	Fields      int `json:"fields"`
	Attempted   int `json:"attempted"`
	Succeeded   int `json:"succeeded"`
	Failed      int `json:"failed"`
	TimedOut    int `json:"timed_out"`
	LinkSkipped int `json:"link_skipped"`
	Suspect     int `json:"suspect"`
	Retries     int `json:"retries"`
	LinkChecks  int `json:"link_checks"`
}

// Reading is one cycle's decoded values. It is never mutated after
// construction.
type Reading struct {
	Device string
	At     time.Time
	values map[string]float32
}

// NewReading copies values into a new Reading.
func NewReading(device string, at time.Time, values map[string]float32) Reading {
	own := make(map[string]float32, len(values))
	for k, v := range values {
		own[k] = v
	}
	return Reading{Device: device, At: at, values: own}
}

// Value returns the decoded value of a field, if present.
func (r Reading) Value(id string) (float32, bool) {
	v, ok := r.values[id]
	return v, ok
}

// Len is the number of fields present.
func (r Reading) Len() int { return len(r.values) }

// PollResult is a snapshot produced by one poll cycle.
type PollResult struct {
	Device   string
	Seq      uint64
	At       time.Time
	Duration time.Duration

	Reading  Reading
	Outcomes []Outcome
	Counts   Counts

	// Err is ErrTotalFailure (wrapped) when nothing decoded; nil otherwise,
	// including for partial cycles.
	Err error
}

// Complete reports whether every catalog field decoded.
func (r PollResult) Complete() bool {
	return r.Counts.Fields > 0 && r.Counts.Succeeded == r.Counts.Fields
}
