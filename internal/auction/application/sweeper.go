package application

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Sweeper reconciles due auctions on a timer. Reads and writes reconcile lazily anyway,
// the sweep only makes closes (and their events) happen without waiting for traffic.
type Sweeper struct {
	lifecycle *LifecycleSynchronizer
	interval  time.Duration
	batch     int
	now       func() time.Time
}

func NewSweeper(lifecycle *LifecycleSynchronizer, interval time.Duration, batch int) *Sweeper {
	return &Sweeper{
		lifecycle: lifecycle,
		interval:  interval,
		batch:     batch,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Run sweeps every interval until ctx is done. A non positive interval disables the sweeper.
func (s *Sweeper) Run(ctx context.Context) {
	if s.interval <= 0 {
		log.Info("Sweeper disabled, auctions reconcile lazily")
		return
	}
	log.Info("Sweeper started", zap.Duration("interval", s.interval), zap.Int("batch", s.batch))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info("Sweeper stopped")
			return
		case <-ticker.C:
			s.Tick(ctx, s.now())
		}
	}
}

// Tick runs one sweep at now and returns how many auctions it corrected
func (s *Sweeper) Tick(ctx context.Context, now time.Time) int {
	n, err := s.lifecycle.ReconcileDue(ctx, now, s.batch, 0)
	if err != nil {
		log.Error("Sweep failed", zap.Int("reconciled", n), zap.Error(err))
		return n
	}
	if n > 0 {
		log.Info("Sweep reconciled auctions", zap.Int("count", n))
	}
	return n
}
