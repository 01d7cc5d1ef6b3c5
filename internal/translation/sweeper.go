package translation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultSweepSchedule runs expiry sweeps every ten minutes.
const DefaultSweepSchedule = "@every 10m"

// Sweeper periodically removes expired entries from a Store.
type Sweeper struct {
	store Store
	cron  *cron.Cron
	now   func() time.Time
}

// NewSweeper schedules sweeps of store on schedule (standard cron syntax or
// descriptors such as "@every 10m").
func NewSweeper(store Store, schedule string) (*Sweeper, error) {
	s := &Sweeper{store: store, cron: cron.New(), now: time.Now}
	if _, err := s.cron.AddFunc(schedule, func() { s.RunOnce(context.Background()) }); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start begins scheduling in the background.
func (s *Sweeper) Start() {
	s.cron.Start()
	slog.Info("Translation cache sweeper started")
}

// Stop stops scheduling and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
	slog.Info("Translation cache sweeper stopped")
}

// RunOnce performs a single sweep and returns the number of removed entries.
func (s *Sweeper) RunOnce(ctx context.Context) int {
	n, err := s.store.Sweep(ctx, s.now())
	if err != nil {
		slog.Warn("Translation cache sweep failed", "error", err)
		return 0
	}
	if n > 0 {
		slog.Debug("Translation cache swept", "removed", n)
	}
	return n
}
