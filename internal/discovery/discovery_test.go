// internal/discovery/discovery_test.go
package discovery

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/tamzrod/meterbridge/internal/catalog"
	"github.com/tamzrod/meterbridge/internal/mqtt"
)

type sent struct {
	topic    string
	payload  string
	retained bool
}

type fakeBus struct {
	mu        sync.Mutex
	connected bool
	msgs      []sent

	// failAt fails the n-th publish (1-based) with failErr.
	failAt  int
	failErr error
	calls   int
}

func (b *fakeBus) IsConnected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.connected
}

func (b *fakeBus) Exclusive(fn func(s mqtt.Sender) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return fn(senderFunc(b.publish))
}

func (b *fakeBus) publish(topic string, payload []byte, _ byte, retained bool) error {
	b.calls++
	if b.calls == b.failAt {
		return b.failErr
	}
	b.msgs = append(b.msgs, sent{topic: topic, payload: string(payload), retained: retained})
	return nil
}

func (b *fakeBus) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.msgs)
}

type senderFunc func(topic string, payload []byte, qos byte, retained bool) error

func (f senderFunc) Publish(topic string, payload []byte, qos byte, retained bool) error {
	return f(topic, payload, qos, retained)
}

type sleepRecorder struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (r *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	if d > 0 {
		r.waits = append(r.waits, d)
	}
	r.mu.Unlock()
	return ctx.Err()
}

func newTestEmitter(t *testing.T, bus *fakeBus) (*Emitter, *sleepRecorder) {
	t.Helper()
	cat, err := catalog.SDM120()
	if err != nil {
		t.Fatalf("SDM120() err=%v", err)
	}
	e, err := New(Config{
		Topics:   mqtt.Topics{Prefix: "sdm120", Discovery: "homeassistant"},
		Catalog:  cat,
		Identity: Identity{Host: "192.168.1.100", Name: "SDM120 Energy Meter", SWVersion: "meterbridge-1.0"},
		Pacing:   50 * time.Millisecond,
		Settle:   time.Second,
	}, bus, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}
	rec := &sleepRecorder{}
	e.sleep = rec.sleep
	return e, rec
}

// ---- tests ----

func TestSanitize(t *testing.T) {
	cases := map[string]string{
		"192.168.1.100":  "192_168_1_100",
		"fe80::1":        "fe80_1",
		"meter-1.lan":    "meter_1_lan",
		"..odd..name..":  "odd_name",
		"import_energy":  "import_energy",
		"already_ok_123": "already_ok_123",
		"":               "",
	}
	for in, want := range cases {
		if got := Sanitize(in); got != want {
			t.Errorf("Sanitize(%q)=%q want %q", in, got, want)
		}
	}
}

func TestMessages_TopicsAndPayload(t *testing.T) {
	e, _ := newTestEmitter(t, &fakeBus{})
	msgs := e.Messages()

	if len(msgs) != 10 {
		t.Fatalf("expected 10 messages, got %d", len(msgs))
	}
	if msgs[0].Topic != "homeassistant/sensor/sdm120_192_168_1_100/voltage/config" {
		t.Fatalf("topic=%q", msgs[0].Topic)
	}

	var p Payload
	if err := json.Unmarshal(msgs[0].Payload, &p); err != nil {
		t.Fatalf("payload not JSON: %v", err)
	}
	if p.UniqueID != "sdm120_192_168_1_100_voltage" || p.ObjectID != p.UniqueID {
		t.Fatalf("ids=%q %q", p.UniqueID, p.ObjectID)
	}
	if p.StateTopic != "sdm120/voltage" || p.AvailabilityTopic != "sdm120/status" {
		t.Fatalf("topics=%q %q", p.StateTopic, p.AvailabilityTopic)
	}
	if p.DeviceClass != "voltage" || p.Unit != "V" || p.StateClass != "measurement" || p.Icon != "mdi:flash" {
		t.Fatalf("payload=%+v", p)
	}
	if p.ValueTemplate != "{{ value | float }}" {
		t.Fatalf("template=%q", p.ValueTemplate)
	}
	if p.Device.Identifiers[0] != "sdm120_192_168_1_100" || p.Device.Manufacturer != "Eastron" {
		t.Fatalf("device=%+v", p.Device)
	}
	// the configuration url keeps the literal address
	if p.Device.ConfigurationURL != "http://192.168.1.100" {
		t.Fatalf("configuration_url=%q", p.Device.ConfigurationURL)
	}
}

func TestMessages_SharedDeviceBlock(t *testing.T) {
	e, _ := newTestEmitter(t, &fakeBus{})
	var first string
	for i, m := range e.Messages() {
		var raw map[string]json.RawMessage
		if err := json.Unmarshal(m.Payload, &raw); err != nil {
			t.Fatalf("payload %d: %v", i, err)
		}
		if i == 0 {
			first = string(raw["device"])
			continue
		}
		if string(raw["device"]) != first {
			t.Fatalf("device block differs for %s", m.Field)
		}
	}
}

func TestMessages_EnergyTotalIncreasing(t *testing.T) {
	e, _ := newTestEmitter(t, &fakeBus{})
	for _, m := range e.Messages() {
		if !strings.HasSuffix(m.Field, "_energy") {
			continue
		}
		var p Payload
		_ = json.Unmarshal(m.Payload, &p)
		if p.StateClass != "total_increasing" || p.Unit != "kWh" {
			t.Fatalf("%s: %+v", m.Field, p)
		}
	}
}

func TestMessages_EmptyUnitOmitted(t *testing.T) {
	e, _ := newTestEmitter(t, &fakeBus{})
	for _, m := range e.Messages() {
		if m.Field == "power_factor" && strings.Contains(string(m.Payload), "unit_of_measurement") {
			t.Fatalf("power factor payload carries a unit: %s", m.Payload)
		}
	}
}

func TestAnnounce_PublishesOnceThenOnline(t *testing.T) {
	bus := &fakeBus{connected: true}
	e, rec := newTestEmitter(t, bus)

	if out := e.Announce(context.Background()); out != OutcomeAnnounced {
		t.Fatalf("outcome=%v", out)
	}
	if bus.count() != 11 {
		t.Fatalf("expected 10 discovery + online, got %d", bus.count())
	}
	for _, m := range bus.msgs {
		if !m.retained {
			t.Fatalf("not retained: %+v", m)
		}
	}
	last := bus.msgs[10]
	if last.topic != "sdm120/status" || last.payload != "online" {
		t.Fatalf("last=%+v", last)
	}

	// settle once, then pacing between the 10 messages
	if len(rec.waits) != 10 || rec.waits[0] != time.Second || rec.waits[1] != 50*time.Millisecond {
		t.Fatalf("waits=%v", rec.waits)
	}

	if out := e.Announce(context.Background()); out != OutcomeAlreadyAnnounced {
		t.Fatalf("second outcome=%v", out)
	}
	if bus.count() != 11 || e.Announcements() != 1 || !e.Announced() {
		t.Fatalf("count=%d announcements=%d", bus.count(), e.Announcements())
	}
}

func TestAnnounce_OncePerReset(t *testing.T) {
	bus := &fakeBus{connected: true}
	e, _ := newTestEmitter(t, bus)

	transitions := 2
	for i := 0; i < transitions; i++ {
		e.Reset()
		// several cycles per session
		for j := 0; j < 5; j++ {
			e.Announce(context.Background())
		}
	}

	if e.Announcements() != uint64(transitions) {
		t.Fatalf("announcements=%d want %d", e.Announcements(), transitions)
	}
	if bus.count() != transitions*11 {
		t.Fatalf("messages=%d", bus.count())
	}
}

func TestAnnounce_NotConnected(t *testing.T) {
	bus := &fakeBus{connected: false}
	e, _ := newTestEmitter(t, bus)

	if out := e.Announce(context.Background()); out != OutcomeNotConnected {
		t.Fatalf("outcome=%v", out)
	}
	if e.Announced() {
		t.Fatal("latch closed without announcing")
	}

	bus.connected = true
	if out := e.Announce(context.Background()); out != OutcomeAnnounced {
		t.Fatalf("retry outcome=%v", out)
	}
}

func TestAnnounce_FailureReopensLatch(t *testing.T) {
	bus := &fakeBus{connected: true, failAt: 3, failErr: mqtt.ErrPublishFailed}
	e, _ := newTestEmitter(t, bus)

	if out := e.Announce(context.Background()); out != OutcomeFailed {
		t.Fatalf("outcome=%v", out)
	}
	if e.Announced() || e.Announcements() != 0 {
		t.Fatal("failed announcement counted")
	}

	if out := e.Announce(context.Background()); out != OutcomeAnnounced {
		t.Fatalf("retry outcome=%v", out)
	}
}

func TestAnnounce_BusLostMidway(t *testing.T) {
	bus := &fakeBus{connected: true, failAt: 4, failErr: mqtt.ErrNotConnected}
	e, _ := newTestEmitter(t, bus)

	if out := e.Announce(context.Background()); out != OutcomeNotConnected {
		t.Fatalf("outcome=%v", out)
	}
	if bus.count() != 3 {
		t.Fatalf("messages=%d", bus.count())
	}
}

func TestAnnounce_Cancelled(t *testing.T) {
	bus := &fakeBus{connected: true}
	e, _ := newTestEmitter(t, bus)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if out := e.Announce(ctx); out != OutcomeFailed {
		t.Fatalf("outcome=%v", out)
	}
	if bus.count() != 0 {
		t.Fatalf("messages=%d", bus.count())
	}
}

func TestLatch_ResetDuringRun(t *testing.T) {
	var l Latch
	gen, ok := l.Begin()
	if !ok {
		t.Fatal("Begin on idle latch failed")
	}
	if _, ok := l.Begin(); ok {
		t.Fatal("second Begin while running succeeded")
	}

	l.Reset()
	l.Finish(gen, true)
	if l.Announced() {
		t.Fatal("stale claim closed the latch")
	}
	if _, ok := l.Begin(); !ok {
		t.Fatal("latch not re-armed after reset")
	}
}

func TestNew_Validation(t *testing.T) {
	cat, _ := catalog.SDM120()
	good := Config{
		Topics:   mqtt.Topics{Prefix: "p", Discovery: "d"},
		Catalog:  cat,
		Identity: Identity{Host: "h"},
	}
	if _, err := New(good, &fakeBus{}, nil); err != nil {
		t.Fatalf("New() err=%v", err)
	}

	bad := good
	bad.Topics.Discovery = ""
	if _, err := New(bad, &fakeBus{}, nil); err == nil {
		t.Fatal("expected error without discovery prefix")
	}
	bad = good
	bad.Identity.Host = ""
	if _, err := New(bad, &fakeBus{}, nil); err == nil {
		t.Fatal("expected error without host")
	}
	if _, err := New(good, nil, nil); err == nil {
		t.Fatal("expected error without bus")
	}
}
