// internal/poller/runner.go
package poller

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// Run polls until ctx is cancelled and emits every PollResult on out.
// Cycles never overlap: the next one starts Interval after the previous one
// completed, plus FailureCooldown after a total failure.
func (p *Poller) Run(ctx context.Context, out chan<- PollResult) error {
	for {
		res := p.PollOnce(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case out <- res:
		}

		wait := p.cfg.Interval
		if errors.Is(res.Err, ErrTotalFailure) {
			p.logger.Warn("all fields failed, adding recovery delay",
				zap.Uint64("seq", res.Seq),
				zap.Duration("cooldown", p.cfg.FailureCooldown),
			)
			wait += p.cfg.FailureCooldown
		}

		if err := p.sleep(ctx, wait); err != nil {
			return err
		}
	}
}
