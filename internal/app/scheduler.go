package app

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Sweeper is the maintenance surface of the reservation engine.
type Sweeper interface {
	SweepExpired(ctx context.Context, now time.Time) (int64, error)
	CollectHolds(ctx context.Context, now time.Time) (int64, error)
}

// Scheduler runs booking maintenance in the background: expiring stale
// pending bookings and deleting expired holds.
type Scheduler struct {
	sweeper  Sweeper
	interval time.Duration
	now      func() time.Time
	logger   *zap.Logger

	stopChan chan struct{}
	stopOnce sync.Once
	started  atomic.Bool
	done     chan struct{}
}

func NewScheduler(sweeper Sweeper, interval time.Duration, logger *zap.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Scheduler{
		sweeper:  sweeper,
		interval: interval,
		now:      time.Now,
		logger:   logger,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the maintenance loop.  The first run happens immediately.
func (s *Scheduler) Start(ctx context.Context) {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	s.logger.Info("starting booking maintenance", zap.Duration("interval", s.interval))
	go s.run(ctx)
}

// Stop ends the loop and waits for the current run to finish.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		s.logger.Info("stopping booking maintenance")
		close(s.stopChan)
	})
	if s.started.Load() {
		<-s.done
	}
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)

	s.tick(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.tick(ctx)
		case <-s.stopChan:
			return
		case <-ctx.Done():
			s.logger.Info("booking maintenance cancelled")
			return
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	now := s.now()
	expired, err := s.sweeper.SweepExpired(ctx, now)
	if err != nil {
		s.logger.Error("sweep stale pending bookings failed", zap.Error(err))
	}
	holds, err := s.sweeper.CollectHolds(ctx, now)
	if err != nil {
		s.logger.Error("collect expired holds failed", zap.Error(err))
	}
	if expired > 0 || holds > 0 {
		s.logger.Debug("booking maintenance",
			zap.Int64("expired_bookings", expired),
			zap.Int64("deleted_holds", holds))
	}
}
