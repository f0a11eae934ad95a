package services

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/blogauth/internal/logging"
	"github.com/dmitrijs2005/blogauth/internal/server/metrics"
	"github.com/dmitrijs2005/blogauth/internal/server/repositories/repomanager"
)

// Sweeper periodically deletes refresh tokens past their expiry. It may run
// alongside live rotations: it only removes rows that can no longer rotate.
type Sweeper struct {
	manager  repomanager.RepositoryManager
	interval time.Duration
	log      logging.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

func NewSweeper(m repomanager.RepositoryManager, interval time.Duration, log logging.Logger, mtr *metrics.Metrics) *Sweeper {
	return &Sweeper{
		manager:  m,
		interval: interval,
		log:      log.With("module", "sweeper"),
		metrics:  mtr,
		now:      time.Now,
	}
}

// SweepOnce runs a single cleanup pass.
func (s *Sweeper) SweepOnce(ctx context.Context) (int64, error) {
	n, err := s.manager.RefreshTokens().DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("error deleting expired tokens: %w", err)
	}
	s.metrics.ExpiredTokensSweptTotal.Add(float64(n))
	return n, nil
}

// Run sweeps every interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.SweepOnce(ctx)
			if err != nil {
				s.log.Error(ctx, "sweep failed", "error", err)
				continue
			}
			if n > 0 {
				s.log.Info(ctx, "expired refresh tokens removed", "count", n)
			}
		}
	}
}
