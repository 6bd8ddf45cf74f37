// internal/mqtt/options_test.go
package mqtt

import (
	"testing"
	"time"
)

func TestBuildClientOptions(t *testing.T) {
	opts := buildClientOptions(Config{
		Broker:      "tcp://broker.local:1883",
		ClientID:    "meterbridge-1",
		Username:    "meter",
		Password:    "secret",
		KeepAlive:   30 * time.Second,
		StatusTopic: "sdm120/status",
	})

	if len(opts.Servers) != 1 || opts.Servers[0].Host != "broker.local:1883" {
		t.Fatalf("servers = %v", opts.Servers)
	}
	if opts.ClientID != "meterbridge-1" || opts.Username != "meter" || opts.Password != "secret" {
		t.Fatalf("identity = %q %q", opts.ClientID, opts.Username)
	}
	if !opts.CleanSession || !opts.AutoReconnect || !opts.ConnectRetry {
		t.Fatalf("session flags clean=%v auto=%v retry=%v", opts.CleanSession, opts.AutoReconnect, opts.ConnectRetry)
	}
	if opts.KeepAlive != 30 {
		t.Fatalf("keepalive = %d", opts.KeepAlive)
	}
	if opts.ConnectRetryInterval != defaultRetryInterval {
		t.Fatalf("retry interval = %v", opts.ConnectRetryInterval)
	}
}

func TestBuildClientOptions_LastWill(t *testing.T) {
	opts := buildClientOptions(Config{Broker: "tcp://b:1883", StatusTopic: "sdm120/status"})

	if !opts.WillEnabled {
		t.Fatal("will not enabled")
	}
	if opts.WillTopic != "sdm120/status" || string(opts.WillPayload) != PayloadOffline {
		t.Fatalf("will = %q %q", opts.WillTopic, opts.WillPayload)
	}
	if !opts.WillRetained || opts.WillQos != willQoS {
		t.Fatalf("will retained=%v qos=%d", opts.WillRetained, opts.WillQos)
	}
}

func TestBuildClientOptions_Anonymous(t *testing.T) {
	opts := buildClientOptions(Config{Broker: "tcp://b:1883"})
	if opts.Username != "" || opts.WillEnabled {
		t.Fatalf("username=%q will=%v", opts.Username, opts.WillEnabled)
	}
	if opts.KeepAlive != int64(defaultKeepAlive/time.Second) {
		t.Fatalf("keepalive = %d", opts.KeepAlive)
	}
}

func TestTopics(t *testing.T) {
	tp := Topics{Prefix: "sdm120", Discovery: "homeassistant"}

	cases := map[string]string{
		tp.Data():                                      "sdm120/data",
		tp.Field("voltage"):                            "sdm120/voltage",
		tp.Status():                                    "sdm120/status",
		tp.DiscoveryConfig("sdm120_10_0_0_9", "volts"): "homeassistant/sensor/sdm120_10_0_0_9/volts/config",
	}
	for got, want := range cases {
		if got != want {
			t.Errorf("topic = %q, want %q", got, want)
		}
	}
}
