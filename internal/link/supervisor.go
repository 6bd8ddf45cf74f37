// internal/link/supervisor.go
package link

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ErrConnectTimeout is returned when the transport does not signal a
// connection result within the configured bound.
var ErrConnectTimeout = errors.New("link: connect timeout")

// Connector (re)establishes the transport session. Connect must be safe to
// call after a failed or closed session.
type Connector interface {
	Connect() error
	Close() error
}

// Prober performs an active reachability check without disturbing the
// transport session.
type Prober interface {
	Probe(ctx context.Context) error
}

// SupervisorConfig bounds the supervisor's waits.
type SupervisorConfig struct {
	// ProbeInterval is the polling fallback; 0 disables periodic probing and
	// relies on pushed loss reports only.
	ProbeInterval  time.Duration
	ConnectTimeout time.Duration
	RetryInterval  time.Duration
}

// Supervisor owns the Down/Connecting/Up transitions of a Link.
// Loss is detected either from events pushed through ReportLoss or from the
// periodic probe.
type Supervisor struct {
	link   *Link
	conn   Connector
	probe  Prober
	cfg    SupervisorConfig
	lost   chan error
	logger *zap.Logger
}

// NewSupervisor wires a supervisor. probe may be nil.
func NewSupervisor(l *Link, conn Connector, probe Prober, cfg SupervisorConfig, logger *zap.Logger) (*Supervisor, error) {
	if l == nil {
		return nil, errors.New("link supervisor: link required")
	}
	if conn == nil {
		return nil, errors.New("link supervisor: connector required")
	}
	if cfg.ConnectTimeout <= 0 {
		return nil, errors.New("link supervisor: connect timeout must be > 0")
	}
	if cfg.RetryInterval <= 0 {
		return nil, errors.New("link supervisor: retry interval must be > 0")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Supervisor{
		link:   l,
		conn:   conn,
		probe:  probe,
		cfg:    cfg,
		lost:   make(chan error, 1),
		logger: logger,
	}, nil
}

// Link returns the supervised link.
func (s *Supervisor) Link() *Link { return s.link }

// Up reports whether the supervised link is Up.
func (s *Supervisor) Up() bool { return s.link.Up() }

// ReportLoss pushes a connectivity-lost event. It never blocks; concurrent
// reports collapse into one.
func (s *Supervisor) ReportLoss(cause error) {
	s.link.MarkDown(cause)
	select {
	case s.lost <- cause:
	default:
	}
}

// Verify is the out-of-band connectivity check. It returns true when the
// link is Up and, if a prober is configured, the device answers the probe.
// A failed probe is reported as a loss.
func (s *Supervisor) Verify(ctx context.Context) bool {
	if !s.link.Up() {
		s.logger.Warn("connectivity check: link not up", zap.Stringer("state", s.link.State()))
		return false
	}
	if s.probe == nil {
		return true
	}
	if err := s.probe.Probe(ctx); err != nil {
		s.logger.Warn("connectivity check failed", zap.Error(err))
		s.ReportLoss(fmt.Errorf("link: probe: %w", err))
		return false
	}
	s.logger.Info("connectivity check passed")
	return true
}

// Run drives the link until ctx is cancelled.
func (s *Supervisor) Run(ctx context.Context) error {
	var tick <-chan time.Time
	if s.cfg.ProbeInterval > 0 && s.probe != nil {
		t := time.NewTicker(s.cfg.ProbeInterval)
		defer t.Stop()
		tick = t.C
	}

	for {
		if s.link.State() != Up {
			if err := s.reconnect(); err != nil {
				s.logger.Warn("link reconnect failed",
					zap.Error(err),
					zap.Duration("retry_in", s.cfg.RetryInterval),
				)
				if !sleep(ctx, s.cfg.RetryInterval) {
					return ctx.Err()
				}
				continue
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()

		case cause := <-s.lost:
			s.logger.Warn("link lost", zap.Error(cause))

		case <-tick:
			pctx, cancel := context.WithTimeout(ctx, s.cfg.ConnectTimeout)
			err := s.probe.Probe(pctx)
			cancel()
			if err != nil {
				s.logger.Warn("link probe failed", zap.Error(err))
				s.link.MarkDown(fmt.Errorf("link: probe: %w", err))
			}
		}
	}
}

// reconnect requests a fresh session and waits for its result, bounded by
// ConnectTimeout.
func (s *Supervisor) reconnect() error {
	s.link.set(Connecting, nil)
	s.logger.Info("link connecting")

	_ = s.conn.Close()

	result := make(chan error, 1)
	go func() { result <- s.conn.Connect() }()

	timer := time.NewTimer(s.cfg.ConnectTimeout)
	defer timer.Stop()

	var err error
	select {
	case err = <-result:
	case <-timer.C:
		err = fmt.Errorf("%w after %v", ErrConnectTimeout, s.cfg.ConnectTimeout)
	}

	if err != nil {
		s.link.set(Down, err)
		return err
	}

	// Drop loss reports raised by the session that was just replaced.
	select {
	case <-s.lost:
	default:
	}

	s.link.set(Up, nil)
	s.logger.Info("link up")
	return nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
