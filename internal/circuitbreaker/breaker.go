package circuitbreaker

import (
	"sync"
	"time"
)

const (
	DefaultFailureThreshold = 3
	DefaultCooldown         = 10 * time.Second
)

type State int

const (
	StateClosed State = iota // Calls are forwarded
	StateOpen                // Calls are rejected until the cool-down elapses
)

// Snapshot is a point-in-time view of a breaker.
type Snapshot struct {
	State            string    `json:"state"`
	Failures         int       `json:"failures"`
	FailureThreshold int       `json:"failure_threshold"`
	OpenedAt         time.Time `json:"opened_at,omitzero"`
}

// CircuitBreaker tracks consecutive failures for a single route key.
// openedAt is the zero time while the breaker is closed.
type CircuitBreaker struct {
	mutex            sync.Mutex
	failures         int
	openedAt         time.Time
	failureThreshold int
	cooldown         time.Duration
	now              func() time.Time
	onStateChange    func(from, to State)
}

func NewCircuitBreaker(threshold int, cooldown time.Duration) *CircuitBreaker {
	if threshold <= 0 {
		threshold = DefaultFailureThreshold
	}
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}

	return &CircuitBreaker{
		failureThreshold: threshold,
		cooldown:         cooldown,
		now:              time.Now,
	}
}

// IsOpen reports whether calls should be rejected. An open breaker whose
// cool-down has elapsed is closed as a side effect and its counter zeroed.
func (cb *CircuitBreaker) IsOpen() bool {
	cb.mutex.Lock()

	if cb.openedAt.IsZero() {
		cb.mutex.Unlock()
		return false
	}

	if cb.now().Sub(cb.openedAt) >= cb.cooldown {
		cb.openedAt = time.Time{}
		cb.failures = 0
		cb.mutex.Unlock()

		cb.notify(StateOpen, StateClosed)
		return false
	}

	cb.mutex.Unlock()
	return true
}

// RecordFailure counts a qualifying failure and trips the breaker when the
// threshold is reached. Failures recorded while already open only add to the count.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mutex.Lock()

	cb.failures++
	tripped := false
	if cb.failures >= cb.failureThreshold && cb.openedAt.IsZero() {
		cb.openedAt = cb.now()
		tripped = true
	}

	cb.mutex.Unlock()

	if tripped {
		cb.notify(StateClosed, StateOpen)
	}
}

// Reset closes the breaker and clears the failure count.
func (cb *CircuitBreaker) Reset() {
	cb.mutex.Lock()

	wasOpen := !cb.openedAt.IsZero()
	cb.failures = 0
	cb.openedAt = time.Time{}

	cb.mutex.Unlock()

	if wasOpen {
		cb.notify(StateOpen, StateClosed)
	}
}

// Failures returns the current consecutive failure count.
func (cb *CircuitBreaker) Failures() int {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	return cb.failures
}

// State reports the stored state without applying the cool-down transition.
func (cb *CircuitBreaker) State() State {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	return cb.stateLocked()
}

func (cb *CircuitBreaker) Snapshot() Snapshot {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	return Snapshot{
		State:            cb.stateLocked().String(),
		Failures:         cb.failures,
		FailureThreshold: cb.failureThreshold,
		OpenedAt:         cb.openedAt,
	}
}

func (cb *CircuitBreaker) stateLocked() State {
	if cb.openedAt.IsZero() {
		return StateClosed
	}
	return StateOpen
}

func (cb *CircuitBreaker) notify(from, to State) {
	if cb.onStateChange != nil {
		cb.onStateChange(from, to)
	}
}

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	default:
		return "UNKNOWN"
	}
}
