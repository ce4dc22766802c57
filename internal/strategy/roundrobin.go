package strategy

import (
	"sync/atomic"

	"github.com/angeloszaimis/edge-gateway/internal/backend"
)

type roundRobinStrategy struct {
	next atomic.Uint64
}

func (rb *roundRobinStrategy) SelectBackend(backends []*backend.Backend) *backend.Backend {
	if len(backends) == 0 {
		return nil
	}

	n := rb.next.Add(1) - 1
	return backends[n%uint64(len(backends))]
}

func NewRoundRobinStrategy() Strategy {
	return &roundRobinStrategy{}
}
