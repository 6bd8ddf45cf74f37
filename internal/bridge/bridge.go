// internal/bridge/bridge.go
package bridge

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tamzrod/meterbridge/internal/discovery"
	"github.com/tamzrod/meterbridge/internal/link"
	"github.com/tamzrod/meterbridge/internal/poller"
	"github.com/tamzrod/meterbridge/internal/publisher"
	"github.com/tamzrod/meterbridge/internal/status"
)

// errResultsClosed stops the service when the poller is gone.
var errResultsClosed = errors.New("bridge: results closed")

// LinkState is the device link as the bridge observes it.
type LinkState interface {
	Up() bool
	State() link.State
	Since() time.Time
	OnTransition(fn link.TransitionFunc)
}

// Bus reports bus session transitions.
type Bus interface {
	IsConnected() bool
	SetOnConnect(fn func())
	SetOnDisconnect(fn func(err error))
}

// Publisher emits readings.
type Publisher interface {
	Publish(r poller.Reading) publisher.Result
}

// Announcer publishes discovery once per session.
type Announcer interface {
	Announce(ctx context.Context) discovery.Outcome
	Reset()
	Announcements() uint64
}

// Service routes poll results to the publisher and status tracker, and
// drives discovery from link and bus events.
type Service struct {
	link    LinkState
	bus     Bus
	pub     Publisher
	ann     Announcer // nil when discovery is disabled
	tracker *status.Tracker
	logger  *zap.Logger

	tick     time.Duration
	announce chan struct{}
}

// New wires the event hooks. ann may be nil.
func New(l LinkState, bus Bus, pub Publisher, ann Announcer, tracker *status.Tracker, logger *zap.Logger) (*Service, error) {
	if l == nil || bus == nil || pub == nil || tracker == nil {
		return nil, errors.New("bridge: link, bus, publisher and tracker required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Service{
		link:     l,
		bus:      bus,
		pub:      pub,
		ann:      ann,
		tracker:  tracker,
		logger:   logger,
		tick:     time.Second,
		announce: make(chan struct{}, 1),
	}

	tracker.ObserveLink(l.State().String(), l.Since())
	tracker.ObserveBus(bus.IsConnected())

	l.OnTransition(s.onLinkTransition)
	bus.SetOnConnect(s.onBusConnect)
	bus.SetOnDisconnect(s.onBusDisconnect)

	return s, nil
}

// Run consumes results until ctx is cancelled or results is closed.
func (s *Service) Run(ctx context.Context, results <-chan poller.PollResult) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return s.consume(ctx, results) })
	g.Go(func() error { return s.announceLoop(ctx) })
	g.Go(func() error { return s.tickLoop(ctx) })

	// Announce a session that was already up before Run.
	s.requestAnnounce()

	if err := g.Wait(); !errors.Is(err, errResultsClosed) {
		return err
	}
	return nil
}

func (s *Service) consume(ctx context.Context, results <-chan poller.PollResult) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case res, ok := <-results:
			if !ok {
				return errResultsClosed
			}
			s.handle(res)
		}
	}
}

func (s *Service) handle(res poller.PollResult) {
	s.tracker.ObserveCycle(res)

	if errors.Is(res.Err, poller.ErrTotalFailure) {
		s.logger.Debug("nothing to publish",
			zap.Uint64("seq", res.Seq),
			zap.Int("consecutive_failures", s.tracker.Snapshot().ConsecutiveFailures),
		)
		return
	}

	r := s.pub.Publish(res.Reading)
	s.tracker.ObservePublish(r)

	switch r.Outcome {
	case publisher.OutcomePublished:
		s.logger.Info("reading published",
			zap.Uint64("seq", res.Seq),
			zap.Int("fields", res.Reading.Len()),
			zap.Int("messages", r.Messages),
		)
		// Discovery may have been deferred while the device was unreachable.
		s.requestAnnounce()
	case publisher.OutcomeNotConnected:
		s.logger.Debug("reading not published, not connected", zap.Uint64("seq", res.Seq))
	case publisher.OutcomeFailed:
		s.logger.Warn("reading publish failed", zap.Uint64("seq", res.Seq), zap.Error(r.Err))
	}
}

func (s *Service) announceLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.announce:
		}

		if s.ann == nil {
			continue
		}
		// "online" must not be announced for an unreachable meter.
		if !s.link.Up() || !s.bus.IsConnected() {
			continue
		}

		out := s.ann.Announce(ctx)
		s.tracker.ObserveDiscovery(s.ann.Announcements())
		if out == discovery.OutcomeAnnounced {
			s.logger.Info("device announced", zap.Uint64("announcements", s.ann.Announcements()))
		}
	}
}

func (s *Service) tickLoop(ctx context.Context) error {
	t := time.NewTicker(s.tick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			s.tracker.Tick()
		}
	}
}

// onLinkTransition runs synchronously inside the link; it must not block.
func (s *Service) onLinkTransition(from, to link.State) {
	s.tracker.ObserveLink(to.String(), time.Now())
	if to != link.Up {
		return
	}
	s.logger.Info("device link up, discovery re-armed", zap.Stringer("from", from))
	if s.ann != nil {
		s.ann.Reset()
	}
	s.requestAnnounce()
}

func (s *Service) onBusConnect() {
	s.tracker.ObserveBus(true)
	s.requestAnnounce()
}

// The broker may have dropped retained discovery with the session.
func (s *Service) onBusDisconnect(err error) {
	s.tracker.ObserveBus(false)
	if s.ann != nil {
		s.ann.Reset()
	}
	s.logger.Warn("bus disconnected, discovery re-armed", zap.Error(err))
}

func (s *Service) requestAnnounce() {
	select {
	case s.announce <- struct{}{}:
	default:
	}
}
