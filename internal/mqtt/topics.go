// internal/mqtt/topics.go
package mqtt

import "strings"

// Availability payloads published on the status topic.
const (
	PayloadOnline  = "online"
	PayloadOffline = "offline"
)

// Topics builds the device-scoped topic tree.
//
//	<prefix>/data        aggregate JSON
//	<prefix>/<field>     plain-text value
//	<prefix>/status      online | offline (retained)
//	<discovery>/sensor/<node>/<field>/config
type Topics struct {
	Prefix    string
	Discovery string
}

// Data is the aggregate reading topic.
func (t Topics) Data() string {
	return t.Prefix + "/data"
}

// Field is the per-field value topic.
func (t Topics) Field(id string) string {
	return t.Prefix + "/" + id
}

// Status is the shared availability topic.
func (t Topics) Status() string {
	return t.Prefix + "/status"
}

// DiscoveryConfig is the discovery topic of one sensor. node and object must
// already be sanitized.
func (t Topics) DiscoveryConfig(node, object string) string {
	return strings.Join([]string{t.Discovery, "sensor", node, object, "config"}, "/")
}

// validTopic rejects empty topics and wildcards, which are not valid for
// publishing.
func validTopic(topic string) bool {
	return topic != "" && !strings.ContainsAny(topic, "+#\x00")
}
