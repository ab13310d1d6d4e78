package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"OrderPulse/internal/lib/sl"
)

// SyncTrigger is the callback a job fires on every tick.
type SyncTrigger func(ctx context.Context, tenant, platform string)

type job struct {
	interval time.Duration
	stop     chan struct{}
	done     chan struct{}
}

// Registry keeps at most one recurring timer per (tenant, platform) pair.
// Re-scheduling cancels and replaces the prior job; cancellation takes effect
// immediately, not after the current tick.
type Registry struct {
	mu      sync.Mutex
	jobs    map[string]*job
	trigger SyncTrigger
	log     *slog.Logger
}

func NewRegistry(trigger SyncTrigger, logger *slog.Logger) *Registry {
	return &Registry{
		jobs:    make(map[string]*job),
		trigger: trigger,
		log:     logger.With(sl.Module("scheduler")),
	}
}

func key(tenant, platform string) string {
	return tenant + "|" + platform
}

// Schedule installs a recurring sync for the pair, replacing any existing
// timer for the same key.
func (r *Registry) Schedule(tenant, platform string, interval time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := key(tenant, platform)
	if existing, ok := r.jobs[k]; ok {
		close(existing.stop)
		<-existing.done
	}

	j := &job{
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	r.jobs[k] = j

	go r.run(tenant, platform, j)

	r.log.With(
		slog.String("tenant", tenant),
		slog.String("platform", platform),
		slog.Duration("interval", interval),
	).Info("sync scheduled")
}

// Cancel stops and removes the timer for the pair. Missing keys are a no-op.
func (r *Registry) Cancel(tenant, platform string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := key(tenant, platform)
	j, ok := r.jobs[k]
	if !ok {
		return
	}
	close(j.stop)
	<-j.done
	delete(r.jobs, k)

	r.log.With(
		slog.String("tenant", tenant),
		slog.String("platform", platform),
	).Info("sync canceled")
}

// StopAll cancels every job. Used on shutdown.
func (r *Registry) StopAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for k, j := range r.jobs {
		close(j.stop)
		<-j.done
		delete(r.jobs, k)
	}
}

// Active reports whether a timer exists for the pair.
func (r *Registry) Active(tenant, platform string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.jobs[key(tenant, platform)]
	return ok
}

// Count returns the number of live jobs.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}

func (r *Registry) run(tenant, platform string, j *job) {
	defer close(j.done)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-j.stop:
			return
		case <-ticker.C:
			r.fire(tenant, platform)
		}
	}
}

// fire runs one tick. A panicking or failing trigger never stops future
// ticks.
func (r *Registry) fire(tenant, platform string) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.With(
				slog.String("tenant", tenant),
				slog.String("platform", platform),
			).Error("sync tick panicked", sl.Err(fmt.Errorf("%v", rec)))
		}
	}()

	r.trigger(context.Background(), tenant, platform)
}
