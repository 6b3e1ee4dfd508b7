package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"tidings/internal/logger"
	"tidings/internal/service"
)

// Scheduler drives periodic refresh cycles for the watch mode. The
// first cycle runs immediately on Start, then on every interval tick.
type Scheduler struct {
	refreshService service.RefreshService
	interval       time.Duration
	stopCh         chan struct{}
	wg             sync.WaitGroup
	cancelFunc     context.CancelFunc // cancels the current refresh cycle
	mu             sync.Mutex         // protects cancelFunc
}

func New(refreshService service.RefreshService, interval time.Duration) *Scheduler {
	return &Scheduler{
		refreshService: refreshService,
		interval:       interval,
		stopCh:         make(chan struct{}),
	}
}

func (s *Scheduler) Start() {
	s.wg.Add(1)
	go s.run()
	logger.Info("scheduler started", "module", "scheduler", "action", "refresh", "resource", "feed", "result", "ok", "interval_ms", s.interval.Milliseconds())
}

func (s *Scheduler) Stop() {
	// Cancel any ongoing refresh cycle first
	s.mu.Lock()
	if s.cancelFunc != nil {
		s.cancelFunc()
	}
	s.mu.Unlock()

	close(s.stopCh)
	s.wg.Wait()
	logger.Info("scheduler stopped", "module", "scheduler", "action", "refresh", "resource", "feed", "result", "ok")
}

func (s *Scheduler) run() {
	defer s.wg.Done()

	// Run immediately on start
	s.refresh()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.refresh()
		case <-s.stopCh:
			return
		}
	}
}

func (s *Scheduler) refresh() {
	// The refresh service applies its own cycle deadline; the interval
	// is only an upper bound so a wedged cycle cannot pile onto the
	// next tick.
	ctx, cancel := context.WithTimeout(context.Background(), s.interval)

	// Store cancel function so Stop() can cancel an ongoing cycle
	s.mu.Lock()
	s.cancelFunc = cancel
	s.mu.Unlock()

	defer func() {
		cancel()
		s.mu.Lock()
		s.cancelFunc = nil
		s.mu.Unlock()
	}()

	summary, err := s.refreshService.RefreshAll(ctx)
	if err != nil {
		if errors.Is(err, service.ErrRefreshInProgress) {
			logger.Warn("scheduled refresh skipped, previous cycle still running", "module", "scheduler", "action", "refresh", "resource", "feed", "result", "skipped")
			return
		}
		if ctx.Err() != nil {
			logger.Warn("scheduled refresh cancelled", "module", "scheduler", "action", "refresh", "resource", "feed", "result", "cancelled")
			return
		}
		logger.Error("scheduled refresh failed", "module", "scheduler", "action", "refresh", "resource", "feed", "result", "failed", "error", err)
		return
	}
	logger.Info("scheduled refresh completed", "module", "scheduler", "action", "refresh", "resource", "feed", "result", "ok",
		"cycle_id", summary.CycleID, "new_articles", summary.NewArticles(), "failed", summary.Failed(), "duration_ms", summary.Duration.Milliseconds())
}
