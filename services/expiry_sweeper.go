package services

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// ExpirySweeper periodically expires orders that sat in the saga past their
// TTL and releases their carts. Abandoned checkouts need no explicit cancel
// call; the sweep returns them to an editable state.
type ExpirySweeper struct {
	saga     *CheckoutSaga
	interval time.Duration
	logger   *zap.Logger
}

func NewExpirySweeper(saga *CheckoutSaga, interval time.Duration, logger *zap.Logger) *ExpirySweeper {
	return &ExpirySweeper{
		saga:     saga,
		interval: interval,
		logger:   logger,
	}
}

// Start runs the sweep loop until ctx is cancelled.
func (s *ExpirySweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("Expiry sweeper started", zap.Duration("interval", s.interval))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Expiry sweeper stopped")
			return
		case <-ticker.C:
			expired, err := s.saga.ExpireStale(ctx, time.Now())
			if err != nil {
				s.logger.Error("Expiry sweep failed", zap.Error(err))
				continue
			}
			if expired > 0 {
				s.logger.Info("Expired stale orders", zap.Int("count", expired))
			}
		}
	}
}
