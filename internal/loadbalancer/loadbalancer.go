package loadbalancer

import (
	"errors"
	"sync"

	"github.com/angeloszaimis/edge-gateway/internal/backend"
	"github.com/angeloszaimis/edge-gateway/internal/strategy"
)

var (
	ErrNoHealthyBackends = errors.New("no healthy backends")
	ErrNoSelection       = errors.New("strategy returned nil backend")
)

// LoadBalancer owns the backend pool of one route and picks an instance per request.
type LoadBalancer struct {
	strategy strategy.Strategy
	backends []*backend.Backend
	mutex    sync.Mutex
}

func NewLoadBalancer(strat strategy.Strategy, backends []*backend.Backend) *LoadBalancer {
	return &LoadBalancer{
		strategy: strat,
		backends: backends,
	}
}

// Reserve selects a healthy backend and increments its connection count.
// Callers must call DecrementConn on the returned backend when done.
func (lb *LoadBalancer) Reserve() (*backend.Backend, error) {
	healthy := lb.healthyBackends()
	if len(healthy) == 0 {
		return nil, ErrNoHealthyBackends
	}

	lb.mutex.Lock()
	chosen := lb.strategy.SelectBackend(healthy)
	if chosen != nil {
		chosen.IncrementConn()
	}
	lb.mutex.Unlock()

	if chosen == nil {
		return nil, ErrNoSelection
	}

	return chosen, nil
}

func (lb *LoadBalancer) Backends() []*backend.Backend {
	return lb.backends
}

func (lb *LoadBalancer) Strategy() strategy.Strategy {
	return lb.strategy
}

func (lb *LoadBalancer) healthyBackends() []*backend.Backend {
	healthy := make([]*backend.Backend, 0, len(lb.backends))

	for _, b := range lb.backends {
		if b.IsHealthy() {
			healthy = append(healthy, b)
		}
	}

	return healthy
}
