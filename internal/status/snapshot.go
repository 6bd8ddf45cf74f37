// internal/status/snapshot.go
package status

import (
	"time"

	"github.com/tamzrod/meterbridge/internal/poller"
)

// Snapshot is the point-in-time diagnostic view of the bridge.
// It contains no logic.
type Snapshot struct {
	Device string `json:"device"`

	Health         uint16 `json:"health_code"`
	HealthName     string `json:"health"`
	LastErrorCode  uint16 `json:"last_error_code"`
	LastError      string `json:"last_error,omitempty"`
	SecondsInError uint16 `json:"seconds_in_error"`

	Cycles              uint64             `json:"cycles"`
	ConsecutiveFailures int                `json:"consecutive_total_failures"`
	LastCycleAt         time.Time          `json:"last_cycle_at,omitempty"`
	LastCycleDuration   time.Duration      `json:"last_cycle_duration_ns"`
	LastCounts          poller.Counts      `json:"last_counts"`
	Values              map[string]float32 `json:"values,omitempty"`

	LastPublish   string    `json:"last_publish,omitempty"`
	LastPublishAt time.Time `json:"last_publish_at,omitempty"`
	Published     uint64    `json:"published"`

	DiscoveryAnnouncements uint64 `json:"discovery_announcements"`

	Link         string    `json:"link"`
	LinkSince    time.Time `json:"link_since,omitempty"`
	BusConnected bool      `json:"bus_connected"`
}
