package core

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTooManyJobs is returned when every pipeline slot stays busy for longer
// than the limiter's wait time. Clients should retry after a short delay.
var ErrTooManyJobs = errors.New("too many concurrent jobs, please try again later")

// DefaultMaxConcurrentJobs is the default limit for parallel pipeline runs.
const DefaultMaxConcurrentJobs = 4

// DefaultMaxWaitTime is how long to wait for a slot before rejecting.
const DefaultMaxWaitTime = 30 * time.Second

// Limiter bounds the number of pipeline runs in flight. Each run holds a
// whole dataset in memory, so the bound is also a memory bound.
type Limiter struct {
	slots   chan struct{}
	maxWait time.Duration

	mu     sync.Mutex
	active int
	idle   chan struct{} // closed while active == 0
}

// NewLimiter creates a limiter that allows at most maxConcurrent runs.
// Callers that cannot get a slot within maxWait receive ErrTooManyJobs.
func NewLimiter(maxConcurrent int, maxWait time.Duration) *Limiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentJobs
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}
	idle := make(chan struct{})
	close(idle)
	return &Limiter{
		slots:   make(chan struct{}, maxConcurrent),
		maxWait: maxWait,
		idle:    idle,
	}
}

// Acquire waits for a slot. The caller must call Release exactly once after
// a nil return.
func (l *Limiter) Acquire(ctx context.Context) error {
	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()

	select {
	case l.slots <- struct{}{}:
		l.inc()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrTooManyJobs
	}
}

// TryAcquire takes a slot only if one is free right now.
func (l *Limiter) TryAcquire() bool {
	select {
	case l.slots <- struct{}{}:
		l.inc()
		return true
	default:
		return false
	}
}

// Release frees a slot taken by Acquire or TryAcquire.
func (l *Limiter) Release() {
	l.mu.Lock()
	l.active--
	if l.active == 0 {
		close(l.idle)
	}
	l.mu.Unlock()
	<-l.slots
}

func (l *Limiter) inc() {
	l.mu.Lock()
	if l.active == 0 {
		l.idle = make(chan struct{})
	}
	l.active++
	l.mu.Unlock()
}

// Do runs fn while holding a slot.
func (l *Limiter) Do(ctx context.Context, fn func(context.Context) error) error {
	if err := l.Acquire(ctx); err != nil {
		return err
	}
	defer l.Release()
	return fn(ctx)
}

// ActiveCount returns the number of runs holding a slot.
func (l *Limiter) ActiveCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}

// MaxConcurrent returns the number of slots.
func (l *Limiter) MaxConcurrent() int {
	return cap(l.slots)
}

// Available returns the number of free slots.
func (l *Limiter) Available() int {
	return cap(l.slots) - len(l.slots)
}

// WaitForDrain blocks until no run holds a slot or ctx is done.
// The server calls it during shutdown.
func (l *Limiter) WaitForDrain(ctx context.Context) error {
	for {
		l.mu.Lock()
		idle := l.idle
		active := l.active
		l.mu.Unlock()
		if active == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-idle:
		}
	}
}

// LimiterStatus is a snapshot of the limiter.
type LimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"max_concurrent"`
}

// Status returns the current limiter state for monitoring.
func (l *Limiter) Status() LimiterStatus {
	return LimiterStatus{
		Active:        l.ActiveCount(),
		Available:     l.Available(),
		MaxConcurrent: cap(l.slots),
	}
}
