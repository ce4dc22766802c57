package strategy

import (
	"time"

	"github.com/angeloszaimis/edge-gateway/internal/backend"
)

type leastResponseStrategy struct{}

// SelectBackend scores each backend as EWMA response time weighted by its
// in-flight requests. A backend without samples is chosen first so it gets one.
func (leastResponseStrategy) SelectBackend(backends []*backend.Backend) *backend.Backend {
	var chosen *backend.Backend
	var best time.Duration

	for _, b := range backends {
		ewma := b.EWMATime()
		if ewma == 0 {
			return b
		}

		score := ewma * time.Duration(b.ActiveConnections()+1)
		if chosen == nil || score < best {
			chosen = b
			best = score
		}
	}

	return chosen
}

func NewLeastResponseStrategy() Strategy {
	return leastResponseStrategy{}
}
