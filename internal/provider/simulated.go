package provider

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/postmangpx/postmangpx/internal/domain"
)

// Success bias of the simulated hand-off.
const simulatedSuccessRate = 0.9

// SimulatedProvider is the placeholder transport: a success-biased random
// outcome instead of a real relay hand-off.
type SimulatedProvider struct {
	randFloat func() float64
}

func NewSimulatedProvider() *SimulatedProvider {
	return &SimulatedProvider{randFloat: rand.Float64}
}

func NewSimulatedProviderWithRand(randFloat func() float64) (*SimulatedProvider, error) {
	if randFloat == nil {
		return nil, fmt.Errorf("rand source is required")
	}
	return &SimulatedProvider{randFloat: randFloat}, nil
}

func (p *SimulatedProvider) Send(ctx context.Context, channel domain.Channel, message domain.Message) (*SendResponse, error) {
	if p == nil || p.randFloat == nil {
		return nil, fmt.Errorf("provider is not initialized")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if p.randFloat() < simulatedSuccessRate {
		return &SendResponse{
			StatusCode: 250,
			Body:       "250 2.0.0 OK simulated hand-off",
		}, nil
	}

	return nil, &ProviderError{
		StatusCode: 451,
		Message:    "simulated relay rejected the message",
		Transient:  true,
	}
}
