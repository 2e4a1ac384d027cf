// Package limiter bounds the number of concurrent file writes of one sink.
//
// A Limiter only throttles admission. It never reorders or batches callers,
// and it records the highest number of concurrent holders it has seen so the
// cap can be verified after a run.
package limiter

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// DefaultMaxConcurrent is used when a non-positive cap is configured.
const DefaultMaxConcurrent = 100

// Limiter controls concurrent file writes using a weighted semaphore.
type Limiter struct {
	sem *semaphore.Weighted
	max int

	mu      sync.Mutex
	active  int
	peak    int
	total   int
	observe func(active int)
}

// New creates a limiter that admits at most maxConcurrent holders.
func New(maxConcurrent int) *Limiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	return &Limiter{
		sem: semaphore.NewWeighted(int64(maxConcurrent)),
		max: maxConcurrent,
	}
}

// OnChange registers fn to be called with the active count after every
// Acquire and Release. It must be set before the limiter is shared.
func (l *Limiter) OnChange(fn func(active int)) {
	l.observe = fn
}

// Acquire blocks until a slot is free or ctx is done.
// The caller MUST call Release when the write completes (use defer).
func (l *Limiter) Acquire(ctx context.Context) error {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	l.update(1)
	return nil
}

// TryAcquire acquires a slot without blocking and reports success.
func (l *Limiter) TryAcquire() bool {
	if !l.sem.TryAcquire(1) {
		return false
	}
	l.update(1)
	return true
}

// Release releases a previously acquired slot.
// Must be called exactly once for each successful Acquire or TryAcquire.
func (l *Limiter) Release() {
	l.update(-1)
	l.sem.Release(1)
}

func (l *Limiter) update(delta int) {
	l.mu.Lock()
	l.active += delta
	if delta > 0 {
		l.total++
		if l.active > l.peak {
			l.peak = l.active
		}
	}
	active := l.active
	observe := l.observe
	l.mu.Unlock()

	if observe != nil {
		observe(active)
	}
}

// ActiveCount returns the number of current holders.
func (l *Limiter) ActiveCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}

// Peak returns the highest number of concurrent holders observed.
func (l *Limiter) Peak() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.peak
}

// MaxConcurrent returns the configured cap.
func (l *Limiter) MaxConcurrent() int {
	return l.max
}

// Status is a snapshot of the limiter's state.
type Status struct {
	Active        int `json:"active"`
	Peak          int `json:"peak"`
	Admitted      int `json:"admitted"`
	MaxConcurrent int `json:"max_concurrent"`
}

// Status returns the current limiter state for logging and reports.
func (l *Limiter) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Status{
		Active:        l.active,
		Peak:          l.peak,
		Admitted:      l.total,
		MaxConcurrent: l.max,
	}
}
