package pool

import (
	"context"
	"sync"
	"time"

	"oss.nandlabs.io/objectpool/chrono"
	"oss.nandlabs.io/objectpool/managers"
)

// evictionRunner is the callback a pool registers with the process-wide
// scheduler; it's invoked on every tick of that pool's TimeBetweenEvictionRuns.
type evictionRunner func(ctx context.Context) error

// evictorScheduler is a single, process-wide, lazily-started chrono.Scheduler
// shared by every pool that enables eviction. This mirrors the spec's
// "process-wide scheduler" requirement directly on top of chrono.Scheduler
// rather than a hand-rolled ticker per pool: each pool registers an
// AddIntervalJob keyed by its own id and reference-counts the shared
// scheduler's lifetime through a managers.ItemManager, starting it on first
// registration and stopping it once the last pool unregisters.
type evictorScheduler struct {
	mu       sync.Mutex
	sched    chrono.Scheduler
	refs     managers.ItemManager[struct{}]
}

var (
	sharedSchedOnce sync.Once
	sharedSched     *evictorScheduler
)

func sharedEvictorScheduler() *evictorScheduler {
	sharedSchedOnce.Do(func() {
		sharedSched = &evictorScheduler{
			sched: chrono.New(),
			refs:  managers.NewItemManager[struct{}](),
		}
	})
	return sharedSched
}

// register starts the shared scheduler if this is the first active pool and
// adds an interval job running fn every period.
func (s *evictorScheduler) register(id string, period time.Duration, fn evictionRunner) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.refs.Items()) == 0 {
		if err := s.sched.Start(); err != nil && err != chrono.ErrSchedulerRunning {
			return err
		}
	}
	if err := s.sched.AddIntervalJob(id, "objectpool-evictor-"+id, chrono.JobFunc(fn), period); err != nil {
		return err
	}
	s.refs.Register(id, struct{}{})
	return nil
}

// unregister removes the pool's job and, if it was the last active pool,
// stops the shared scheduler within shutdownTimeout.
func (s *evictorScheduler) unregister(id string, shutdownTimeout time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_ = s.sched.RemoveJob(id)
	s.refs.Unregister(id)

	if len(s.refs.Items()) > 0 {
		return
	}

	done := make(chan error, 1)
	go func() { done <- s.sched.Stop() }()
	select {
	case err := <-done:
		if err != nil {
			logger.WarnF("evictor scheduler stop returned error: %v", err)
		}
	case <-time.After(shutdownTimeout):
		logger.Warn("evictor scheduler shutdown exceeded grace period; leaving it to finish in the background")
	}
}
