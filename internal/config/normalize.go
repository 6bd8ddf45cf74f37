// internal/config/normalize.go
package config

import (
	"net"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Normalize applies post-validation normalization.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	cfg.MQTT.TopicPrefix = strings.Trim(cfg.MQTT.TopicPrefix, "/ ")
	cfg.Discovery.Prefix = strings.Trim(cfg.Discovery.Prefix, "/ ")
	cfg.Logging.Level = strings.ToLower(cfg.Logging.Level)

	// Broker sessions are keyed by client id; two bridges must never share one.
	if cfg.MQTT.ClientID == "" {
		cfg.MQTT.ClientID = "meterbridge-" + uuid.NewString()[:8]
	}

	if cfg.Device.Name == "" {
		cfg.Device.Name = "SDM120 " + cfg.Device.Host
	}
}

// Endpoint is the transport address of the device.
func (d DeviceConfig) Endpoint() string {
	return net.JoinHostPort(d.Host, strconv.Itoa(d.Port))
}
