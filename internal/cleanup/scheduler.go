// Package cleanup reclaims expired files on a fixed interval.
package cleanup

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"voicepdf/internal/filestore"
)

// sweepParallelism bounds concurrent deletions per tick.
const sweepParallelism = 10

// Scheduler drives periodic expiry sweeps against the file store. It has an
// explicit start/stop lifecycle so the hosting process controls it and tests
// can call Sweep directly instead of waiting on the ticker.
type Scheduler struct {
	store    *filestore.Store
	interval time.Duration
	logger   *slog.Logger

	mu       sync.Mutex
	running  bool
	done     chan struct{}
	stopOnce *sync.Once
	wg       sync.WaitGroup
}

func New(store *filestore.Store, interval time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{store: store, interval: interval, logger: logger}
}

// Start launches the background sweep loop. Starting an already-running
// scheduler is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.done = make(chan struct{})
	s.stopOnce = &sync.Once{}

	s.wg.Add(1)
	go s.loop(ctx, s.done)
	s.logger.Info("cleanup scheduler started", "interval", s.interval.String())
}

// Stop halts the loop and waits for an in-flight sweep to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	done := s.done
	once := s.stopOnce
	s.running = false
	s.mu.Unlock()

	once.Do(func() { close(done) })
	s.wg.Wait()
	s.logger.Info("cleanup scheduler stopped")
}

// Running reports whether the sweep loop is live.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) loop(ctx context.Context, done <-chan struct{}) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx, time.Now())
		}
	}
}

// Sweep deletes every record expired as of now. Individual failures are
// logged and skipped; the record stays listed and is retried next tick.
// Returns the number of records successfully deleted.
func (s *Scheduler) Sweep(ctx context.Context, now time.Time) int {
	handles := s.store.ListExpired(now)
	if len(handles) == 0 {
		return 0
	}

	var (
		mu      sync.Mutex
		deleted int
	)
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(sweepParallelism)
	for _, handle := range handles {
		eg.Go(func() error {
			if err := s.store.MarkDeleted(gctx, handle); err != nil {
				s.logger.Warn("cleanup of expired file failed, will retry next tick",
					"handle", handle, "error", err)
				return nil
			}
			mu.Lock()
			deleted++
			mu.Unlock()
			return nil
		})
	}
	_ = eg.Wait()

	s.logger.Info("cleanup sweep complete", "expired", len(handles), "deleted", deleted)
	return deleted
}
