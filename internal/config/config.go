// internal/config/config.go
package config

import "time"

type Config struct {
	Device      DeviceConfig      `yaml:"device"`
	Poll        PollConfig        `yaml:"poll"`
	Link        LinkConfig        `yaml:"link"`
	MQTT        MQTTConfig        `yaml:"mqtt"`
	Discovery   DiscoveryConfig   `yaml:"discovery"`
	Logging     LoggingConfig     `yaml:"logging"`
	Diagnostics DiagnosticsConfig `yaml:"diagnostics"`
}

// ---- DEVICE ----

type DeviceConfig struct {
	Name      string `yaml:"name"`
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	UnitID    uint8  `yaml:"unit_id"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

// ---- POLL ----

type PollConfig struct {
	IntervalMs        int `yaml:"interval_ms"`
	InterFieldDelayMs int `yaml:"inter_field_delay_ms"`
	ExtraSettleMs     int `yaml:"extra_settle_ms"`
	ExtraSettleFields int `yaml:"extra_settle_fields"`
	RetryBaseMs       int `yaml:"retry_base_ms"`
	RetryIncrementMs  int `yaml:"retry_increment_ms"`
	MaxRetries        int `yaml:"max_retries"`
	FailureCooldownMs int `yaml:"failure_cooldown_ms"`
}

// ---- LINK ----

type LinkConfig struct {
	ProbeIntervalMs  int `yaml:"probe_interval_ms"`
	ConnectTimeoutMs int `yaml:"connect_timeout_ms"`
	RetryIntervalMs  int `yaml:"retry_interval_ms"`
}

// ---- MQTT ----

type MQTTConfig struct {
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	QoS         byte   `yaml:"qos"`
	TopicPrefix string `yaml:"topic_prefix"`
	KeepAliveS  int    `yaml:"keepalive_s"`
}

// ---- DISCOVERY ----

type DiscoveryConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Prefix   string `yaml:"prefix"`
	PacingMs int    `yaml:"pacing_ms"`
	SettleMs int    `yaml:"settle_ms"`
}

// ---- LOGGING / DIAGNOSTICS ----

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json | console
}

type DiagnosticsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// Ms converts a millisecond config value.
func Ms(v int) time.Duration {
	return time.Duration(v) * time.Millisecond
}
