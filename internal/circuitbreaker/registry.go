package circuitbreaker

import (
	"sync"
	"time"
)

// StateChangeFunc is called after a breaker for routeKey changes state.
// It runs outside the breaker's lock.
type StateChangeFunc func(routeKey string, from, to State)

type Option func(*Registry)

// WithClock replaces time.Now for every breaker the registry creates.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

func WithStateChangeListener(fn StateChangeFunc) Option {
	return func(r *Registry) {
		r.onStateChange = fn
	}
}

// Registry owns one CircuitBreaker per route key for the lifetime of the process.
type Registry struct {
	mutex         sync.RWMutex
	breakers      map[string]*CircuitBreaker
	threshold     int
	cooldown      time.Duration
	now           func() time.Time
	onStateChange StateChangeFunc
}

func NewRegistry(threshold int, cooldown time.Duration, opts ...Option) *Registry {
	r := &Registry{
		breakers:  make(map[string]*CircuitBreaker),
		threshold: threshold,
		cooldown:  cooldown,
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// GetOrCreate returns the breaker for routeKey, creating it on first use.
// Concurrent first callers for the same key receive the same instance.
func (r *Registry) GetOrCreate(routeKey string) *CircuitBreaker {
	r.mutex.RLock()
	cb, exists := r.breakers[routeKey]
	r.mutex.RUnlock()

	if exists {
		return cb
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	// Double-check: another goroutine may have created it
	if cb, exists = r.breakers[routeKey]; exists {
		return cb
	}

	cb = NewCircuitBreaker(r.threshold, r.cooldown)
	cb.now = r.now
	if r.onStateChange != nil {
		listener := r.onStateChange
		cb.onStateChange = func(from, to State) {
			listener(routeKey, from, to)
		}
	}

	r.breakers[routeKey] = cb
	return cb
}

func (r *Registry) Len() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return len(r.breakers)
}

func (r *Registry) Stats() map[string]Snapshot {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	stats := make(map[string]Snapshot, len(r.breakers))
	for key, cb := range r.breakers {
		stats[key] = cb.Snapshot()
	}
	return stats
}
