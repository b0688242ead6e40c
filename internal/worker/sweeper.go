package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Sweeper runs the retention sweep on a fixed interval, moving files
// whose auto-delete window has elapsed into PENDING_ERASURE.
type Sweeper struct {
	retention RetentionSweeper
	interval  time.Duration
	logger    zerolog.Logger
}

// RetentionSweeper is the slice of the retention service the sweeper
// drives.
type RetentionSweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// NewSweeper creates a new sweeper. Interval defaults to one hour.
func NewSweeper(retention RetentionSweeper, interval time.Duration, logger zerolog.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Sweeper{retention: retention, interval: interval, logger: logger}
}

// Run sweeps immediately and then on every tick until the context
// ends. Sweep failures are logged and retried on the next tick.
func (s *Sweeper) Run(ctx context.Context) {
	s.logger.Info().Dur("interval", s.interval).Msg("retention sweeper started")

	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("retention sweeper stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	queued, err := s.retention.Sweep(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("retention sweep failed")
		return
	}
	s.logger.Debug().Int("queued", queued).Msg("retention sweep finished")
}
