// internal/publisher/publisher.go
package publisher

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/tamzrod/meterbridge/internal/catalog"
	"github.com/tamzrod/meterbridge/internal/mqtt"
	"github.com/tamzrod/meterbridge/internal/poller"
)

// ErrNotConnected is the error carried by a NotConnected result.
var ErrNotConnected = errors.New("publisher: not connected")

// Bus is the bus client surface the publisher needs.
type Bus interface {
	IsConnected() bool
	Exclusive(fn func(s mqtt.Sender) error) error
}

// Link gates sends on device connectivity.
type Link interface {
	Up() bool
}

// Outcome of one Publish call.
type Outcome uint8

const (
	OutcomePublished Outcome = iota
	OutcomeNotConnected
	OutcomeEmpty
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomePublished:
		return "published"
	case OutcomeNotConnected:
		return "not_connected"
	case OutcomeEmpty:
		return "empty"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result reports what Publish did.
type Result struct {
	Outcome  Outcome
	Messages int // messages accepted by the bus
	Err      error
}

// Config is the runtime config the publisher needs.
type Config struct {
	Topics  mqtt.Topics
	Catalog catalog.Catalog
	QoS     byte
}

// Publisher emits completed readings.
type Publisher struct {
	cfg    Config
	bus    Bus
	link   Link
	logger *zap.Logger
}

// New creates a publisher.
func New(cfg Config, bus Bus, link Link, logger *zap.Logger) (*Publisher, error) {
	if cfg.Topics.Prefix == "" {
		return nil, errors.New("publisher: topic prefix required")
	}
	if cfg.Catalog.Len() == 0 {
		return nil, errors.New("publisher: catalog must not be empty")
	}
	if bus == nil || link == nil {
		return nil, errors.New("publisher: bus and link required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{cfg: cfg, bus: bus, link: link, logger: logger}, nil
}

// Publish emits r as one aggregate message, one message per present field
// and a retained "online". It never blocks waiting for connectivity: with
// the link or bus down it returns NotConnected without sending.
func (p *Publisher) Publish(r poller.Reading) Result {
	if !p.link.Up() || !p.bus.IsConnected() {
		p.logger.Debug("publish skipped, not connected",
			zap.Bool("link_up", p.link.Up()),
			zap.Bool("bus_connected", p.bus.IsConnected()),
		)
		return Result{Outcome: OutcomeNotConnected, Err: ErrNotConnected}
	}
	if r.Len() == 0 {
		return Result{Outcome: OutcomeEmpty}
	}

	var sent int
	var errs []error

	err := p.bus.Exclusive(func(s mqtt.Sender) error {
		send := func(topic string, payload []byte, retained bool) error {
			err := s.Publish(topic, payload, p.cfg.QoS, retained)
			if err == nil {
				sent++
				return nil
			}
			if errors.Is(err, mqtt.ErrNotConnected) {
				return err
			}
			errs = append(errs, fmt.Errorf("%s: %w", topic, err))
			return nil
		}

		if err := send(p.cfg.Topics.Data(), Aggregate(p.cfg.Catalog, r), false); err != nil {
			return err
		}

		for _, f := range p.cfg.Catalog.Fields() {
			v, ok := r.Value(f.ID)
			if !ok {
				continue
			}
			text, ok := FormatValue(f, v)
			if !ok {
				p.logger.Warn("non-finite value not published", zap.String("field", f.ID))
				continue
			}
			if err := send(p.cfg.Topics.Field(f.ID), []byte(text), false); err != nil {
				return err
			}
		}

		return send(p.cfg.Topics.Status(), []byte(mqtt.PayloadOnline), true)
	})

	switch {
	case errors.Is(err, mqtt.ErrNotConnected):
		p.logger.Warn("bus lost during publish", zap.Int("sent", sent))
		return Result{Outcome: OutcomeNotConnected, Messages: sent, Err: fmt.Errorf("%w: %w", ErrNotConnected, err)}
	case err != nil:
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		joined := errors.Join(errs...)
		p.logger.Error("publish failed", zap.Int("sent", sent), zap.Error(joined))
		return Result{Outcome: OutcomeFailed, Messages: sent, Err: joined}
	}

	p.logger.Debug("reading published", zap.Int("messages", sent), zap.Int("fields", r.Len()))
	return Result{Outcome: OutcomePublished, Messages: sent}
}
