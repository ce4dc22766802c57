package strategy

import (
	"math/rand/v2"

	"github.com/angeloszaimis/edge-gateway/internal/backend"
)

type randomStrategy struct{}

func (randomStrategy) SelectBackend(backends []*backend.Backend) *backend.Backend {
	if len(backends) == 0 {
		return nil
	}
	return backends[rand.IntN(len(backends))]
}

func NewRandomStrategy() Strategy {
	return randomStrategy{}
}
