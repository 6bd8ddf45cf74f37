// internal/config/load_test.go
package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func env(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

// ---- tests ----

func TestParse_DefaultsFillGaps(t *testing.T) {
	cfg, err := Parse([]byte("device:\n  host: 10.0.0.9\n"), nil)
	if err != nil {
		t.Fatalf("Parse() err=%v", err)
	}
	if cfg.Device.Host != "10.0.0.9" {
		t.Fatalf("host=%q", cfg.Device.Host)
	}
	if cfg.Device.Port != 502 || cfg.Poll.IntervalMs != 5000 || cfg.Poll.MaxRetries != 2 {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	if cfg.Discovery.Prefix != "homeassistant" || !cfg.Discovery.Enabled {
		t.Fatalf("discovery defaults not applied: %+v", cfg.Discovery)
	}
}

func TestParse_FileOverridesDefaults(t *testing.T) {
	doc := `
poll:
  interval_ms: 10000
  max_retries: 0
discovery:
  enabled: false
`
	cfg, err := Parse([]byte(doc), nil)
	if err != nil {
		t.Fatalf("Parse() err=%v", err)
	}
	if cfg.Poll.IntervalMs != 10000 || cfg.Poll.MaxRetries != 0 {
		t.Fatalf("poll=%+v", cfg.Poll)
	}
	if cfg.Poll.RetryBaseMs != 200 {
		t.Fatalf("unrelated defaults lost: %+v", cfg.Poll)
	}
	if cfg.Discovery.Enabled {
		t.Fatalf("discovery should be disabled")
	}
}

func TestParse_EnvOverrides(t *testing.T) {
	doc := "device:\n  host: 10.0.0.9\nmqtt:\n  broker: tcp://a:1883\n"
	cfg, err := Parse([]byte(doc), env(map[string]string{
		EnvDeviceHost:   "10.0.0.10",
		EnvMQTTBroker:   "tcp://b:1883",
		EnvMQTTUsername: "meter",
		EnvMQTTPassword: "secret",
		EnvLogLevel:     "debug",
	}))
	if err != nil {
		t.Fatalf("Parse() err=%v", err)
	}
	if cfg.Device.Host != "10.0.0.10" || cfg.MQTT.Broker != "tcp://b:1883" {
		t.Fatalf("env not applied: %+v %+v", cfg.Device, cfg.MQTT)
	}
	if cfg.MQTT.Username != "meter" || cfg.MQTT.Password != "secret" || cfg.Logging.Level != "debug" {
		t.Fatalf("env not applied: %+v %+v", cfg.MQTT, cfg.Logging)
	}
}

func TestParse_BlankEnvIgnored(t *testing.T) {
	cfg, err := Parse([]byte("device:\n  host: 10.0.0.9\n"), env(map[string]string{EnvDeviceHost: "  "}))
	if err != nil {
		t.Fatalf("Parse() err=%v", err)
	}
	if cfg.Device.Host != "10.0.0.9" {
		t.Fatalf("blank env overrode host: %q", cfg.Device.Host)
	}
}

func TestParse_BadYAML(t *testing.T) {
	if _, err := Parse([]byte("device: [\n"), nil); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meterbridge.yaml")
	if err := os.WriteFile(path, []byte("device:\n  host: 10.0.0.9\nmqtt:\n  broker: tcp://b:1883\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() err=%v", err)
	}
	if cfg.MQTT.Broker == "" {
		t.Fatalf("broker not loaded")
	}
}

func TestLoad_Missing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestNormalize(t *testing.T) {
	cfg := valid()
	cfg.MQTT.TopicPrefix = "/meters/sdm120/"
	cfg.Discovery.Prefix = "homeassistant/"
	cfg.Logging.Level = "DEBUG"
	cfg.Device.Name = ""

	Normalize(cfg)

	if cfg.MQTT.TopicPrefix != "meters/sdm120" {
		t.Fatalf("topic prefix=%q", cfg.MQTT.TopicPrefix)
	}
	if cfg.Discovery.Prefix != "homeassistant" {
		t.Fatalf("discovery prefix=%q", cfg.Discovery.Prefix)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("level=%q", cfg.Logging.Level)
	}
	if !strings.HasPrefix(cfg.MQTT.ClientID, "meterbridge-") || len(cfg.MQTT.ClientID) != len("meterbridge-")+8 {
		t.Fatalf("client id=%q", cfg.MQTT.ClientID)
	}
	if cfg.Device.Name != "SDM120 192.168.1.50" {
		t.Fatalf("name=%q", cfg.Device.Name)
	}
}

func TestNormalize_KeepsClientID(t *testing.T) {
	cfg := valid()
	cfg.MQTT.ClientID = "fixed"
	Normalize(cfg)
	if cfg.MQTT.ClientID != "fixed" {
		t.Fatalf("client id overwritten: %q", cfg.MQTT.ClientID)
	}
}

func TestEndpointAndMs(t *testing.T) {
	d := DeviceConfig{Host: "10.0.0.9", Port: 502}
	if d.Endpoint() != "10.0.0.9:502" {
		t.Fatalf("endpoint=%q", d.Endpoint())
	}
	if Ms(250) != 250*time.Millisecond {
		t.Fatalf("Ms(250)=%v", Ms(250))
	}
}

func TestExampleConfigIsValid(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("..", "..", "configs", "meterbridge.example.yaml"))
	if err != nil {
		t.Fatalf("read example: %v", err)
	}
	cfg, err := Parse(data, nil)
	if err != nil {
		t.Fatalf("Parse() err=%v", err)
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate() err=%v", err)
	}
	if cfg.Device.Name != "Garage SDM120" || !cfg.Diagnostics.Enabled {
		t.Fatalf("example not applied: %+v", cfg)
	}
}
