// internal/poller/poller.go
package poller

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/tamzrod/meterbridge/internal/catalog"
	"github.com/tamzrod/meterbridge/internal/decode"
)

// Client abstracts the register transport the poller needs.
// The poller depends on geometry only.
type Client interface {
	ReadInputRegisters(addr, qty uint16) ([]uint16, error) // FC 4
}

// Link is the poller's view of connectivity.
type Link interface {
	// Up is read once per field.
	Up() bool
	// Verify runs the out-of-band connectivity check.
	Verify(ctx context.Context) bool
}

// Config is the runtime config the poller needs.
type Config struct {
	Device   string
	Interval time.Duration
	Catalog  catalog.Catalog
	Retry    RetryPolicy

	SettleDelay       time.Duration // after every attempted field
	ExtraSettle       time.Duration // appended for the first ExtraSettleFields fields
	ExtraSettleFields int

	// FailureCooldown is added to Interval after a total failure.
	FailureCooldown time.Duration

	// TimeoutStreak consecutive timed-out fields trigger a link check.
	TimeoutStreak int
}

// DefaultTimeoutStreak is used when Config.TimeoutStreak is zero.
const DefaultTimeoutStreak = 3

// minAttemptedBeforeCheck is how many fields must already have been read
// before a timeout streak may trigger a link check.
const minAttemptedBeforeCheck = 2

type sleepFunc func(ctx context.Context, d time.Duration) error

// Poller runs acquisition cycles strictly one after another.
type Poller struct {
	cfg    Config
	client Client
	link   Link
	logger *zap.Logger

	sleep sleepFunc
	now   func() time.Time
	seq   uint64
}

// New creates a poller with immutable config.
func New(cfg Config, client Client, link Link, logger *zap.Logger) (*Poller, error) {
	if cfg.Device == "" {
		return nil, errors.New("poller: device required")
	}
	if cfg.Interval <= 0 {
		return nil, errors.New("poller: interval must be > 0")
	}
	if cfg.Catalog.Len() == 0 {
		return nil, errors.New("poller: catalog must not be empty")
	}
	if cfg.Retry.MaxRetries < 0 {
		return nil, errors.New("poller: max retries must be >= 0")
	}
	if client == nil {
		return nil, errors.New("poller: client required")
	}
	if link == nil {
		return nil, errors.New("poller: link required")
	}
	if cfg.TimeoutStreak <= 0 {
		cfg.TimeoutStreak = DefaultTimeoutStreak
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{
		cfg:    cfg,
		client: client,
		link:   link,
		logger: logger,
		sleep:  ctxSleep,
		now:    time.Now,
	}, nil
}

// PollOnce performs exactly one acquisition cycle.
// Per-field failures never abort the cycle; the result carries whatever
// decoded, and Err is set only when nothing did.
func (p *Poller) PollOnce(ctx context.Context) PollResult {
	p.seq++
	start := p.now()

	res := PollResult{
		Device: p.cfg.Device,
		Seq:    p.seq,
		At:     start,
	}
	res.Counts.Fields = p.cfg.Catalog.Len()

	values := make(map[string]float32, p.cfg.Catalog.Len())
	streak := 0

	p.logger.Debug("cycle started", zap.Uint64("seq", p.seq), zap.Int("fields", res.Counts.Fields))

	for i, f := range p.cfg.Catalog.Fields() {
		if ctx.Err() != nil {
			break
		}

		if !p.link.Up() {
			res.Outcomes = append(res.Outcomes, Outcome{
				Field:  f.ID,
				Reason: ReasonLinkDown,
				Err:    ErrLinkDown,
			})
			res.Counts.Failed++
			res.Counts.LinkSkipped++
			p.settle(ctx, i)
			continue
		}

		out := p.readField(ctx, i, f)
		res.Counts.Attempted++
		res.Counts.Retries += out.Attempts - 1

		if out.Decoded {
			values[f.ID] = out.Value
			res.Counts.Succeeded++
			if out.Suspect {
				res.Counts.Suspect++
			}
			streak = 0
		} else {
			res.Counts.Failed++
			if out.Reason == ReasonTimeout {
				res.Counts.TimedOut++
				streak++
			} else {
				streak = 0
			}
		}
		res.Outcomes = append(res.Outcomes, out)

		// The current field is included in Attempted.
		if streak >= p.cfg.TimeoutStreak && res.Counts.Attempted > minAttemptedBeforeCheck {
			p.logger.Warn("multiple consecutive timeouts, checking connectivity",
				zap.Int("streak", streak),
				zap.Int("index", i),
			)
			p.link.Verify(ctx)
			res.Counts.LinkChecks++
			streak = 0
		}

		p.settle(ctx, i)
	}

	res.Reading = NewReading(p.cfg.Device, start, values)
	res.Duration = p.now().Sub(start)

	if ctx.Err() != nil {
		res.Err = ctx.Err()
		return res
	}

	p.summarize(res)

	if res.Counts.Succeeded == 0 {
		res.Err = fmt.Errorf("%w: 0/%d fields decoded", ErrTotalFailure, res.Counts.Fields)
	}
	return res
}

// settle waits after every field, read or skipped. The first
// ExtraSettleFields catalog entries wait longer.
func (p *Poller) settle(ctx context.Context, index int) {
	_ = p.sleep(ctx, p.cfg.SettleDelay)
	if index < p.cfg.ExtraSettleFields {
		_ = p.sleep(ctx, p.cfg.ExtraSettle)
	}
}

// readField runs the retry machine for one field.
func (p *Poller) readField(ctx context.Context, index int, f catalog.FieldDescriptor) Outcome {
	out := Outcome{Field: f.ID}
	m := newRetryMachine(p.cfg.Retry)
	m.start()

	var regs []uint16
	var err error
	for {
		regs, err = p.client.ReadInputRegisters(f.Address, f.Span)
		if err == nil && len(regs) < int(f.Span) {
			err = fmt.Errorf("short read: got %d registers, want %d", len(regs), f.Span)
		}

		wait, again := m.observe(err)
		if !again {
			break
		}
		p.logger.Warn("retrying field",
			zap.Int("index", index),
			zap.String("field", f.ID),
			zap.Int("retry", m.attempt),
			zap.Int("max_retries", p.cfg.Retry.MaxRetries),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
		_ = p.sleep(ctx, wait)
	}
	out.Attempts = m.attempts()

	if m.state == retryExhausted {
		out.Reason = classify(err)
		if out.Reason == ReasonTimeout {
			out.Err = fmt.Errorf("%w: %s: %v", ErrReadTimeout, f.ID, err)
		} else {
			out.Err = fmt.Errorf("%w: %s: %v", ErrTransport, f.ID, err)
		}
		p.logger.Error("field read failed",
			zap.Int("index", index),
			zap.String("field", f.ID),
			zap.Int("attempts", out.Attempts),
			zap.Stringer("reason", out.Reason),
			zap.Error(err),
		)
		return out
	}

	raw := decode.Raw32(regs[:f.Span])
	out.Raw = raw
	out.Value = decodeValue(f.Decode, raw)
	out.Decoded = true
	out.Suspect = !f.Plausible(out.Value)

	p.logger.Debug("field decoded",
		zap.Int("index", index),
		zap.String("field", f.ID),
		zap.String("raw", fmt.Sprintf("0x%08X", raw)),
		zap.Float32("value", out.Value),
		zap.String("unit", f.Unit),
	)
	if out.Suspect {
		p.logger.Warn("reading seems unrealistic, verify register configuration",
			zap.String("field", f.ID),
			zap.Float32("value", out.Value),
			zap.String("address", fmt.Sprintf("0x%04X", f.Address)),
		)
	}
	return out
}

func (p *Poller) summarize(res PollResult) {
	c := res.Counts
	fields := []zap.Field{
		zap.Uint64("seq", res.Seq),
		zap.Int("succeeded", c.Succeeded),
		zap.Int("fields", c.Fields),
		zap.Int("timed_out", c.TimedOut),
		zap.Int("link_skipped", c.LinkSkipped),
		zap.Int("suspect", c.Suspect),
		zap.Duration("duration", res.Duration),
	}

	switch {
	case c.Succeeded == 0:
		p.logger.Error("all fields failed, check device and network connectivity", fields...)
	case c.TimedOut > c.Fields/2:
		p.logger.Warn("cycle complete with high timeout rate, consider a longer response timeout", fields...)
	default:
		p.logger.Info("cycle complete", fields...)
	}
}

func decodeValue(kind catalog.DecodeKind, raw uint32) float32 {
	switch kind {
	case catalog.DecodeFloat32WordSwapped:
		return decode.Float32WordSwapped(raw)
	default:
		// Catalog validation rejects every other kind.
		return 0
	}
}

// classify maps a transport error onto a failure reason without assuming
// concrete transport types.
func classify(err error) FailReason {
	if err == nil {
		return ReasonNone
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return ReasonTimeout
	}
	if errors.Is(err, os.ErrDeadlineExceeded) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, ErrReadTimeout) {
		return ReasonTimeout
	}
	return ReasonTransport
}

func ctxSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
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
