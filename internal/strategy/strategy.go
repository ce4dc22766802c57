package strategy

import (
	"fmt"

	"github.com/angeloszaimis/edge-gateway/internal/backend"
)

const (
	RoundRobin         = "round-robin"
	Random             = "random"
	LeastConn          = "least-conn"
	LeastResponse      = "least-response"
	WeightedRoundRobin = "weighted-round-robin"
)

// Names lists every strategy New accepts.
var Names = []string{RoundRobin, Random, LeastConn, LeastResponse, WeightedRoundRobin}

// Strategy picks one backend from an already health-filtered pool.
// Implementations return nil for an empty pool.
type Strategy interface {
	SelectBackend(backends []*backend.Backend) *backend.Backend
}

// New returns the strategy registered under name. An empty name selects round-robin.
func New(name string) (Strategy, error) {
	switch name {
	case RoundRobin, "":
		return NewRoundRobinStrategy(), nil
	case Random:
		return NewRandomStrategy(), nil
	case LeastConn:
		return NewLeastConnStrategy(), nil
	case LeastResponse:
		return NewLeastResponseStrategy(), nil
	case WeightedRoundRobin:
		return NewWeightedRoundRobinStrategy(), nil
	default:
		return nil, fmt.Errorf("unknown strategy %q", name)
	}
}
