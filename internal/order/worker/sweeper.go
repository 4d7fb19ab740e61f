package worker

import (
	"context"
	"time"

	"github.com/fekuna/omnipos-stock-service/config"
	"github.com/fekuna/omnipos-stock-service/internal/order"
	"go.uber.org/zap"
)

// Sweeper force-resolves stale pending decision entries as waste on a fixed
// interval. Aging counts from entry creation, never from order completion, so
// deferred entries get no grace extension.
type Sweeper struct {
	uc       order.UseCase
	interval time.Duration
	maxAge   time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

func NewSweeper(uc order.UseCase, cfg config.SweeperConfig, log *zap.Logger) *Sweeper {
	s := &Sweeper{
		uc:       uc,
		interval: cfg.Interval,
		maxAge:   cfg.MaxPendingAge,
		logger:   log,
		now:      time.Now,
	}
	if s.interval <= 0 {
		s.interval = 5 * time.Minute
	}
	if s.maxAge <= 0 {
		s.maxAge = 24 * time.Hour
	}
	return s
}

func (s *Sweeper) Start(ctx context.Context) {
	s.logger.Info("Starting decision queue sweeper",
		zap.Duration("interval", s.interval),
		zap.Duration("max_pending_age", s.maxAge),
	)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Stopping decision queue sweeper")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	cutoff := s.now().Add(-s.maxAge)
	n, err := s.uc.SweepExpired(ctx, cutoff)
	if err != nil {
		s.logger.Error("Sweep failed", zap.Error(err))
		return
	}
	if n > 0 {
		s.logger.Info("Swept expired decision entries", zap.Int("resolved", n))
	}
}
