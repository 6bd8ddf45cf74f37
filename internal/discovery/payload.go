// internal/discovery/payload.go
package discovery

import (
	"encoding/json"
	"fmt"

	"github.com/tamzrod/meterbridge/internal/catalog"
	"github.com/tamzrod/meterbridge/internal/mqtt"
)

const valueTemplate = "{{ value | float }}"

// Device groups every sensor of one meter into a single device entry.
type Device struct {
	Identifiers      []string `json:"identifiers"`
	Name             string   `json:"name"`
	Model            string   `json:"model"`
	Manufacturer     string   `json:"manufacturer"`
	SWVersion        string   `json:"sw_version,omitempty"`
	ConfigurationURL string   `json:"configuration_url,omitempty"`
}

// Payload is the sensor discovery document.
type Payload struct {
	Name              string `json:"name"`
	ObjectID          string `json:"object_id"`
	UniqueID          string `json:"unique_id"`
	StateTopic        string `json:"state_topic"`
	AvailabilityTopic string `json:"availability_topic"`
	DeviceClass       string `json:"device_class,omitempty"`
	Unit              string `json:"unit_of_measurement,omitempty"`
	StateClass        string `json:"state_class"`
	Icon              string `json:"icon,omitempty"`
	ValueTemplate     string `json:"value_template"`
	Device            Device `json:"device"`
}

// Message is one encoded discovery message.
type Message struct {
	Field   string
	Topic   string
	Payload []byte
}

// Identity describes the meter in every discovery document.
type Identity struct {
	Host      string
	Name      string
	SWVersion string
}

// buildMessages derives the discovery message of every catalog field.
// Identity strings are sanitized here, field by field; encoded payloads are
// never rewritten afterwards.
func buildMessages(topics mqtt.Topics, cat catalog.Catalog, id Identity) ([]Message, error) {
	node := NodeID(id.Host)

	dev := Device{
		Identifiers:      []string{node},
		Name:             id.Name,
		Model:            "SDM120",
		Manufacturer:     "Eastron",
		SWVersion:        id.SWVersion,
		ConfigurationURL: "http://" + id.Host,
	}

	out := make([]Message, 0, cat.Len())
	for _, f := range cat.Fields() {
		object := Sanitize(f.ID)
		uid := node + "_" + object

		p := Payload{
			Name:              f.Name,
			ObjectID:          uid,
			UniqueID:          uid,
			StateTopic:        topics.Field(f.ID),
			AvailabilityTopic: topics.Status(),
			DeviceClass:       f.DeviceClass,
			Unit:              f.Unit,
			StateClass:        string(f.StateClass),
			Icon:              f.Icon,
			ValueTemplate:     valueTemplate,
			Device:            dev,
		}

		data, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("discovery: encode %s: %w", f.ID, err)
		}

		out = append(out, Message{
			Field:   f.ID,
			Topic:   topics.DiscoveryConfig(node, object),
			Payload: data,
		})
	}
	return out, nil
}
