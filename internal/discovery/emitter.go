// internal/discovery/emitter.go
package discovery

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/tamzrod/meterbridge/internal/catalog"
	"github.com/tamzrod/meterbridge/internal/mqtt"
)

// Bus is the bus client surface the emitter needs.
type Bus interface {
	IsConnected() bool
	Exclusive(fn func(s mqtt.Sender) error) error
}

// Outcome of one Announce call.
type Outcome uint8

const (
	OutcomeAnnounced Outcome = iota
	OutcomeAlreadyAnnounced
	OutcomeNotConnected
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAnnounced:
		return "announced"
	case OutcomeAlreadyAnnounced:
		return "already_announced"
	case OutcomeNotConnected:
		return "not_connected"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Config is the runtime config the emitter needs.
type Config struct {
	Topics   mqtt.Topics
	Catalog  catalog.Catalog
	Identity Identity
	QoS      byte

	Pacing time.Duration // between discovery messages
	Settle time.Duration // before the first message of a session
}

// Emitter announces the catalog once per bus session.
type Emitter struct {
	cfg      Config
	bus      Bus
	logger   *zap.Logger
	latch    Latch
	messages []Message

	sleep func(ctx context.Context, d time.Duration) error
	count atomic.Uint64
}

// New encodes every discovery message up front.
func New(cfg Config, bus Bus, logger *zap.Logger) (*Emitter, error) {
	if cfg.Topics.Discovery == "" || cfg.Topics.Prefix == "" {
		return nil, errors.New("discovery: topic prefixes required")
	}
	if cfg.Identity.Host == "" {
		return nil, errors.New("discovery: device host required")
	}
	if cfg.Catalog.Len() == 0 {
		return nil, errors.New("discovery: catalog must not be empty")
	}
	if bus == nil {
		return nil, errors.New("discovery: bus required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	msgs, err := buildMessages(cfg.Topics, cfg.Catalog, cfg.Identity)
	if err != nil {
		return nil, err
	}

	return &Emitter{
		cfg:      cfg,
		bus:      bus,
		logger:   logger,
		messages: msgs,
		sleep:    ctxSleep,
	}, nil
}

// Messages returns the encoded discovery messages in catalog order.
func (e *Emitter) Messages() []Message {
	out := make([]Message, len(e.messages))
	copy(out, e.messages)
	return out
}

// Reset re-arms the latch: the next Announce publishes again.
func (e *Emitter) Reset() {
	e.latch.Reset()
}

// Announced reports whether the current session has been announced.
func (e *Emitter) Announced() bool {
	return e.latch.Announced()
}

// Announcements is the number of completed announcements.
func (e *Emitter) Announcements() uint64 {
	return e.count.Load()
}

// Announce publishes every discovery message, paced, then a retained
// "online". It is a no-op once the session is announced. A failure leaves
// the latch open for the next attempt.
func (e *Emitter) Announce(ctx context.Context) Outcome {
	gen, ok := e.latch.Begin()
	if !ok {
		return OutcomeAlreadyAnnounced
	}

	out, err := e.announce(ctx)
	e.latch.Finish(gen, out == OutcomeAnnounced)

	switch out {
	case OutcomeAnnounced:
		e.count.Add(1)
		e.logger.Info("discovery published", zap.Int("sensors", len(e.messages)))
	case OutcomeNotConnected:
		e.logger.Debug("discovery deferred, bus not connected", zap.Error(err))
	default:
		e.logger.Warn("discovery failed", zap.Error(err))
	}
	return out
}

func (e *Emitter) announce(ctx context.Context) (Outcome, error) {
	if err := e.sleep(ctx, e.cfg.Settle); err != nil {
		return OutcomeFailed, err
	}

	for i, m := range e.messages {
		if !e.bus.IsConnected() {
			return OutcomeNotConnected, mqtt.ErrNotConnected
		}
		err := e.bus.Exclusive(func(s mqtt.Sender) error {
			return s.Publish(m.Topic, m.Payload, e.cfg.QoS, true)
		})
		if err != nil {
			if errors.Is(err, mqtt.ErrNotConnected) {
				return OutcomeNotConnected, err
			}
			return OutcomeFailed, fmt.Errorf("discovery %s: %w", m.Field, err)
		}
		e.logger.Debug("discovery message published", zap.String("field", m.Field), zap.String("topic", m.Topic))

		if i < len(e.messages)-1 {
			if err := e.sleep(ctx, e.cfg.Pacing); err != nil {
				return OutcomeFailed, err
			}
		}
	}

	err := e.bus.Exclusive(func(s mqtt.Sender) error {
		return s.Publish(e.cfg.Topics.Status(), []byte(mqtt.PayloadOnline), e.cfg.QoS, true)
	})
	switch {
	case errors.Is(err, mqtt.ErrNotConnected):
		return OutcomeNotConnected, err
	case err != nil:
		return OutcomeFailed, fmt.Errorf("discovery availability: %w", err)
	}
	return OutcomeAnnounced, nil
}

func ctxSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
