package strategy

import (
	"sync"

	"github.com/angeloszaimis/edge-gateway/internal/backend"
)

// weightedRoundRobinStrategy is smooth weighted round-robin: every pick adds
// each backend's weight to its running score, takes the highest score and
// subtracts the total weight from the winner.
type weightedRoundRobinStrategy struct {
	mutex  sync.Mutex
	scores map[*backend.Backend]int
}

func NewWeightedRoundRobinStrategy() Strategy {
	return &weightedRoundRobinStrategy{
		scores: make(map[*backend.Backend]int),
	}
}

func (w *weightedRoundRobinStrategy) SelectBackend(backends []*backend.Backend) *backend.Backend {
	if len(backends) == 0 {
		return nil
	}

	w.mutex.Lock()
	defer w.mutex.Unlock()

	w.forgetMissing(backends)

	total := 0
	var chosen *backend.Backend

	for _, b := range backends {
		weight := b.Weight()
		w.scores[b] += weight
		total += weight

		if chosen == nil || w.scores[b] > w.scores[chosen] {
			chosen = b
		}
	}

	w.scores[chosen] -= total
	return chosen
}

// forgetMissing drops scores of backends that left the pool, e.g. after
// failing a health check.
func (w *weightedRoundRobinStrategy) forgetMissing(backends []*backend.Backend) {
	present := make(map[*backend.Backend]struct{}, len(backends))
	for _, b := range backends {
		present[b] = struct{}{}
	}

	for b := range w.scores {
		if _, ok := present[b]; !ok {
			delete(w.scores, b)
		}
	}
}
