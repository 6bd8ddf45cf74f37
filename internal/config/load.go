// internal/config/load.go
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Environment overrides, applied after the file.
const (
	EnvDeviceHost   = "METERBRIDGE_DEVICE_HOST"
	EnvMQTTBroker   = "METERBRIDGE_MQTT_BROKER"
	EnvMQTTUsername = "METERBRIDGE_MQTT_USERNAME"
	EnvMQTTPassword = "METERBRIDGE_MQTT_PASSWORD"
	EnvLogLevel     = "METERBRIDGE_LOG_LEVEL"
)

// Defaults returns the configuration used for every key the file omits.
func Defaults() Config {
	return Config{
		Device: DeviceConfig{
			Name:      "SDM120 Energy Meter",
			Port:      502,
			UnitID:    1,
			TimeoutMs: 2000,
		},
		Poll: PollConfig{
			IntervalMs:        5000,
			InterFieldDelayMs: 100,
			ExtraSettleMs:     100,
			ExtraSettleFields: 3,
			RetryBaseMs:       200,
			RetryIncrementMs:  300,
			MaxRetries:        2,
			FailureCooldownMs: 2000,
		},
		Link: LinkConfig{
			ProbeIntervalMs:  10000,
			ConnectTimeoutMs: 10000,
			RetryIntervalMs:  5000,
		},
		MQTT: MQTTConfig{
			QoS:         0,
			TopicPrefix: "sdm120",
			KeepAliveS:  60,
		},
		Discovery: DiscoveryConfig{
			Enabled:  true,
			Prefix:   "homeassistant",
			PacingMs: 50,
			SettleMs: 1000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Diagnostics: DiagnosticsConfig{
			Enabled: false,
			Listen:  ":8080",
		},
	}
}

// Load reads path over Defaults and applies environment overrides.
// It does not validate.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data, os.LookupEnv)
}

// Parse decodes YAML over Defaults. lookup supplies environment overrides
// and may be nil.
func Parse(data []byte, lookup func(string) (string, bool)) (*Config, error) {
	cfg := Defaults()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if lookup != nil {
		applyEnv(&cfg, lookup)
	}
	return &cfg, nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) {
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	set(EnvDeviceHost, &cfg.Device.Host)
	set(EnvMQTTBroker, &cfg.MQTT.Broker)
	set(EnvMQTTUsername, &cfg.MQTT.Username)
	set(EnvMQTTPassword, &cfg.MQTT.Password)
	set(EnvLogLevel, &cfg.Logging.Level)
}
