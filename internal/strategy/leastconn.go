package strategy

import (
	"github.com/angeloszaimis/edge-gateway/internal/backend"
)

type leastConnStrategy struct{}

// SelectBackend returns the backend with the fewest active connections.
// Ties go to the earliest backend in the pool.
func (leastConnStrategy) SelectBackend(backends []*backend.Backend) *backend.Backend {
	var best *backend.Backend
	bestConns := 0

	for _, b := range backends {
		conns := b.ActiveConnections()
		if best == nil || conns < bestConns {
			best = b
			bestConns = conns
		}
	}

	return best
}

func NewLeastConnStrategy() Strategy {
	return leastConnStrategy{}
}
