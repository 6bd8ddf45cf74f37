// internal/config/validate.go
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
// All problems are reported together.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}

	var errs []string
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Sprintf(format, args...))
	}

	// ------------------------------------------------------------
	// DEVICE
	// ------------------------------------------------------------

	if cfg.Device.Host == "" {
		add("device.host is required")
	} else if !validHost(cfg.Device.Host) {
		add("device.host %q is not an IP address or hostname", cfg.Device.Host)
	}
	if cfg.Device.Port < 1 || cfg.Device.Port > 65535 {
		add("device.port %d out of range 1-65535", cfg.Device.Port)
	}
	if cfg.Device.UnitID == 0 || cfg.Device.UnitID > 247 {
		add("device.unit_id %d out of range 1-247", cfg.Device.UnitID)
	}
	if cfg.Device.TimeoutMs <= 0 {
		add("device.timeout_ms must be > 0")
	}
	for i := 0; i < len(cfg.Device.Name); i++ {
		if cfg.Device.Name[i] > 0x7F {
			add("device.name must contain ASCII characters only")
			break
		}
	}

	// ------------------------------------------------------------
	// POLL
	// ------------------------------------------------------------

	p := cfg.Poll
	if p.IntervalMs <= 0 {
		add("poll.interval_ms must be > 0")
	}
	if p.InterFieldDelayMs < 0 || p.ExtraSettleMs < 0 || p.RetryBaseMs < 0 ||
		p.RetryIncrementMs < 0 || p.FailureCooldownMs < 0 {
		add("poll delays must be >= 0")
	}
	if p.ExtraSettleFields < 0 {
		add("poll.extra_settle_fields must be >= 0")
	}
	if p.MaxRetries < 0 || p.MaxRetries > 10 {
		add("poll.max_retries %d out of range 0-10", p.MaxRetries)
	}

	// ------------------------------------------------------------
	// LINK
	// ------------------------------------------------------------

	if cfg.Link.ProbeIntervalMs <= 0 {
		add("link.probe_interval_ms must be > 0")
	}
	if cfg.Link.ConnectTimeoutMs <= 0 {
		add("link.connect_timeout_ms must be > 0")
	}
	if cfg.Link.RetryIntervalMs <= 0 {
		add("link.retry_interval_ms must be > 0")
	}

	// ------------------------------------------------------------
	// MQTT
	// ------------------------------------------------------------

	if cfg.MQTT.Broker == "" {
		add("mqtt.broker is required")
	} else if u, err := url.Parse(cfg.MQTT.Broker); err != nil || u.Scheme == "" || u.Host == "" {
		add("mqtt.broker %q must be a URL such as tcp://host:1883", cfg.MQTT.Broker)
	}
	if cfg.MQTT.QoS > 2 {
		add("mqtt.qos %d out of range 0-2", cfg.MQTT.QoS)
	}
	if strings.Trim(cfg.MQTT.TopicPrefix, "/ ") == "" {
		add("mqtt.topic_prefix is required")
	}
	if strings.ContainsAny(cfg.MQTT.TopicPrefix, "+#") {
		add("mqtt.topic_prefix must not contain wildcards")
	}
	if cfg.MQTT.KeepAliveS < 0 {
		add("mqtt.keepalive_s must be >= 0")
	}

	// ------------------------------------------------------------
	// DISCOVERY
	// ------------------------------------------------------------

	if cfg.Discovery.Enabled {
		if strings.Trim(cfg.Discovery.Prefix, "/ ") == "" {
			add("discovery.prefix is required when discovery is enabled")
		}
		if strings.ContainsAny(cfg.Discovery.Prefix, "+#") {
			add("discovery.prefix must not contain wildcards")
		}
	}
	if cfg.Discovery.PacingMs < 0 || cfg.Discovery.SettleMs < 0 {
		add("discovery delays must be >= 0")
	}

	// ------------------------------------------------------------
	// LOGGING / DIAGNOSTICS
	// ------------------------------------------------------------

	switch strings.ToLower(cfg.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		add("logging.level %q must be debug, info, warn or error", cfg.Logging.Level)
	}
	switch cfg.Logging.Format {
	case "json", "console":
	default:
		add("logging.format %q must be json or console", cfg.Logging.Format)
	}

	if cfg.Diagnostics.Enabled {
		if _, _, err := net.SplitHostPort(cfg.Diagnostics.Listen); err != nil {
			add("diagnostics.listen %q: %v", cfg.Diagnostics.Listen, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(errs, " | "))
	}
	return nil
}

// validHost accepts IP literals and plausible DNS names.
func validHost(h string) bool {
	if net.ParseIP(h) != nil {
		return true
	}
	if len(h) > 253 || strings.HasPrefix(h, ".") || strings.HasSuffix(h, ".") {
		return false
	}
	for _, label := range strings.Split(h, ".") {
		if label == "" || len(label) > 63 {
			return false
		}
		if label[0] == '-' || label[len(label)-1] == '-' {
			return false
		}
		for i := 0; i < len(label); i++ {
			c := label[i]
			switch {
			case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-':
			default:
				return false
			}
		}
	}
	return true
}
