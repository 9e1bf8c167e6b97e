package ride

import (
	"context"
	"time"

	"github.com/medride/dispatch/core/logger"
)

// Sweeper periodically removes unassigned rides whose deadline has passed,
// so stale requests stop accepting forwards.
type Sweeper struct {
	store    Store
	interval time.Duration
	log      logger.Logger
	now      func() time.Time
}

// NewSweeper creates a Sweeper. A non-positive interval defaults to one
// minute.
func NewSweeper(store Store, interval time.Duration, log logger.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{store: store, interval: interval, log: log, now: time.Now}
}

// Run sweeps at the configured interval until the context is canceled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.Sweep(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Sweep deletes every expired unassigned ride and returns how many were
// removed.
func (s *Sweeper) Sweep(ctx context.Context) int {
	uids, err := s.store.Expired(ctx, s.now())
	if err != nil {
		s.log.Errorf("expiry scan failed: %v", err)
		return 0
	}
	removed := 0
	for _, uid := range uids {
		if err := s.store.Delete(ctx, uid); err != nil {
			if err != ErrNotFound {
				s.log.Errorf("expire %s: %v", uid, err)
			}
			continue
		}
		removed++
	}
	if removed > 0 {
		s.log.Infof("expired %d stale ride requests", removed)
	}
	return removed
}
