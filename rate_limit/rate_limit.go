// Package rate_limit implements a token-bucket limiter keyed per
// backend+model pair. Each backend refills at a fixed rate per window;
// callers either take a token immediately or block until the bucket would
// have refilled enough.
package rate_limit

import (
	"math"
	"sync"
	"time"
)

const (
	// DefaultRate is the number of tokens granted per window
	DefaultRate = 10.0

	// DefaultWindow is the refill window
	DefaultWindow = time.Minute
)

// Limiter is a token bucket: capacity == rate, continuously refilled at
// rate/window. Safe for concurrent use; the lock is held only for O(1)
// bookkeeping, never across the blocking wait.
type Limiter struct {
	mu         sync.Mutex
	rate       float64 // tokens per window, also bucket capacity
	window     time.Duration
	tokens     float64
	lastRefill time.Time

	now   func() time.Time
	sleep func(time.Duration)
}

// NewLimiter creates a full bucket. Non-positive rate or window fall back to
// the defaults.
func NewLimiter(rate float64, window time.Duration) *Limiter {
	if rate <= 0 {
		rate = DefaultRate
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Limiter{
		rate:       rate,
		window:     window,
		tokens:     rate,
		lastRefill: time.Now(),
		now:        time.Now,
		sleep:      time.Sleep,
	}
}

// Acquire takes the requested tokens from the bucket. When enough are
// available they are deducted and Acquire returns true immediately. With
// blocking=false and an insufficient bucket it returns false without
// consuming anything. With blocking=true it sleeps for
// (requested-available)*window/rate, then zeroes the bucket and returns
// true; the wait is computed once from the pre-sleep state and not
// re-checked after waking.
func (l *Limiter) Acquire(tokens float64, blocking bool) bool {
	l.mu.Lock()
	l.refillLocked()

	if l.tokens >= tokens {
		l.tokens -= tokens
		l.mu.Unlock()
		return true
	}

	if !blocking {
		l.mu.Unlock()
		return false
	}

	deficit := tokens - l.tokens
	wait := time.Duration(deficit * float64(l.window) / l.rate)
	l.mu.Unlock()

	l.sleep(wait)

	l.mu.Lock()
	l.tokens = 0
	l.lastRefill = l.now()
	l.mu.Unlock()
	return true
}

// Available reports the token count after refilling to now
func (l *Limiter) Available() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.refillLocked()
	return l.tokens
}

// refillLocked tops the bucket up for the elapsed time, never past capacity.
// Caller must hold the lock.
func (l *Limiter) refillLocked() {
	now := l.now()
	elapsed := now.Sub(l.lastRefill).Seconds()
	if elapsed > 0 {
		l.tokens = math.Min(l.rate, l.tokens+elapsed*l.rate/l.window.Seconds())
	}
	l.lastRefill = now
}
