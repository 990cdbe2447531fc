package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aussiebroadwan/gradebook/internal/gradebook/store"
)

const (
	defaultHousekeepingInterval = time.Hour
	housekeepingTimeout         = 30 * time.Second
)

// HousekeepingService purges denylist rows once their tokens have expired.
// It runs once at start and then every Interval.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Interval time.Duration

	now      func() time.Time
	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

// NewHousekeepingService creates the purger. A non-positive interval means
// one hour.
func NewHousekeepingService(s store.Store, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = defaultHousekeepingInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HousekeepingService{
		Store:    s,
		Logger:   logger,
		Interval: interval,
		now:      time.Now,
		done:     make(chan struct{}),
	}
}

// Start launches the purge loop and returns.
func (s *HousekeepingService) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go s.loop(ctx)
	s.Logger.Info("housekeeping started", "interval", s.Interval)
}

// Stop cancels a purge in flight and waits for the loop to exit.
func (s *HousekeepingService) Stop() {
	s.stopOnce.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
	})
	<-s.done
	s.Logger.Info("housekeeping stopped")
}

func (s *HousekeepingService) loop(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		s.Cleanup(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Cleanup runs one purge and returns the number of rows removed. Failures
// are logged and count as zero.
func (s *HousekeepingService) Cleanup(ctx context.Context) int64 {
	ctx, cancel := context.WithTimeout(ctx, housekeepingTimeout)
	defer cancel()

	n, err := s.Store.RevokedTokens().DeleteExpired(ctx, s.now())
	if err != nil {
		if ctx.Err() == nil {
			s.Logger.Error("purging expired revoked tokens failed", "error", err)
		}
		return 0
	}
	if n > 0 {
		s.Logger.Info("purged expired revoked tokens", "count", n)
	}
	return n
}
