// internal/poller/builder_test.go
package poller

import (
	"testing"
	"time"

	cfg "github.com/tamzrod/meterbridge/internal/config"
)

func TestBuild_MapsPollConfig(t *testing.T) {
	c := cfg.Defaults()
	c.Device.Host = "192.168.1.50"
	c.Poll.IntervalMs = 3000
	c.Poll.MaxRetries = 4

	client, err := BuildClient(&c)
	if err != nil {
		t.Fatalf("BuildClient() err=%v", err)
	}
	defer client.Close()

	p, err := Build(&c, threeFields(t), client, &fakeLink{}, nil)
	if err != nil {
		t.Fatalf("Build() err=%v", err)
	}

	if p.cfg.Device != "192.168.1.50" {
		t.Fatalf("device=%q", p.cfg.Device)
	}
	if p.cfg.Interval != 3*time.Second {
		t.Fatalf("interval=%v", p.cfg.Interval)
	}
	want := RetryPolicy{MaxRetries: 4, BaseDelay: 200 * time.Millisecond, Increment: 300 * time.Millisecond}
	if p.cfg.Retry != want {
		t.Fatalf("retry=%+v want %+v", p.cfg.Retry, want)
	}
	if p.cfg.SettleDelay != 100*time.Millisecond || p.cfg.ExtraSettle != 100*time.Millisecond || p.cfg.ExtraSettleFields != 3 {
		t.Fatalf("settle=%v extra=%v n=%d", p.cfg.SettleDelay, p.cfg.ExtraSettle, p.cfg.ExtraSettleFields)
	}
	if p.cfg.FailureCooldown != 2*time.Second {
		t.Fatalf("cooldown=%v", p.cfg.FailureCooldown)
	}
	if p.cfg.TimeoutStreak != DefaultTimeoutStreak {
		t.Fatalf("streak=%d", p.cfg.TimeoutStreak)
	}
}

func TestBuild_RejectsMissingDevice(t *testing.T) {
	c := cfg.Defaults()
	if _, err := Build(&c, threeFields(t), &fakeClient{}, &fakeLink{}, nil); err == nil {
		t.Fatal("expected error for empty device")
	}
}
