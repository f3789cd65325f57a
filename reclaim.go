package findergo

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/hupe1980/findergo/generation"
)

// reclaimer tracks retired generations until their last reader drains.
//
// A retired generation stays pinned while queries that acquired it are still
// running; once its refcount drops to zero the reclaimer unlinks it so the
// garbage collector can free the stores. Sweeps are bounded to one at a time
// and rate-limited so a commit burst cannot turn reclamation into a hot loop.
type reclaimer struct {
	mu      sync.Mutex
	pending []*generation.Generation

	sweepSem *semaphore.Weighted
	limiter  *rate.Limiter
	logger   *Logger
}

func newReclaimer(logger *Logger) *reclaimer {
	return &reclaimer{
		sweepSem: semaphore.NewWeighted(1),
		limiter:  rate.NewLimiter(rate.Limit(10), 1), // at most 10 sweeps/sec
		logger:   logger,
	}
}

// Retire hands a superseded generation to the reclaimer and kicks a sweep.
func (r *reclaimer) Retire(g *generation.Generation) {
	g.Retire()

	r.mu.Lock()
	r.pending = append(r.pending, g)
	r.mu.Unlock()

	go r.sweep()
}

func (r *reclaimer) sweep() {
	if !r.sweepSem.TryAcquire(1) {
		return // a sweep is already running; it will see our entry
	}
	defer r.sweepSem.Release(1)

	if err := r.limiter.Wait(context.Background()); err != nil {
		return
	}

	r.mu.Lock()
	kept := r.pending[:0]
	reclaimed := 0
	for _, g := range r.pending {
		if g.Reclaimable() {
			reclaimed++
			continue
		}
		kept = append(kept, g)
	}
	for i := len(kept); i < len(r.pending); i++ {
		r.pending[i] = nil
	}
	r.pending = kept
	remaining := len(kept)
	r.mu.Unlock()

	if reclaimed > 0 {
		r.logger.Debug("reclaimed retired generations",
			"reclaimed", reclaimed,
			"pending", remaining,
		)
	}
}

// Pending returns how many retired generations still await readers draining.
func (r *reclaimer) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}
