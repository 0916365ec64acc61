package rate_limit

import (
	"fmt"
	"sync"
	"time"
)

// Registry lazily creates one Limiter per (backend, model) key. The registry
// lock guards creation only; each limiter carries its own lock.
type Registry struct {
	mu       sync.Mutex
	limiters map[string]*Limiter
	rate     float64
	window   time.Duration
}

// NewRegistry creates a registry whose limiters share the given rate and
// window. Non-positive values fall back to the defaults.
func NewRegistry(rate float64, window time.Duration) *Registry {
	if rate <= 0 {
		rate = DefaultRate
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Registry{
		limiters: make(map[string]*Limiter),
		rate:     rate,
		window:   window,
	}
}

// For returns the limiter for (backend, model), creating it on first use
func (r *Registry) For(backend, model string) *Limiter {
	key := limiterKey(backend, model)

	r.mu.Lock()
	defer r.mu.Unlock()

	limiter, ok := r.limiters[key]
	if !ok {
		limiter = NewLimiter(r.rate, r.window)
		r.limiters[key] = limiter
	}
	return limiter
}

// Size returns the number of limiters created so far
func (r *Registry) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.limiters)
}

// Reset drops every limiter; the next For call starts from a full bucket.
// Called when the backend set is reinitialized.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.limiters = make(map[string]*Limiter)
}

func limiterKey(backend, model string) string {
	return fmt.Sprintf("%s_%s", backend, model)
}
