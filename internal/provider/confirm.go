package provider

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/postmangpx/postmangpx/internal/domain"
)

// Weighted outcome distribution of the simulated confirmation source.
const (
	deliveredWeight = 0.85
	bouncedWeight   = 0.10
)

// Raw relay responses reported per outcome.
const (
	responseDelivered = "250 2.0.0 OK Message accepted for delivery"
	responseBounced   = "550 5.1.1 User unknown"
	responseDelayed   = "451 4.4.1 Temporary server error"
)

var _ DeliveryChecker = (*SimulatedChecker)(nil)

// SimulatedChecker stands in for a real relay-status lookup: each call draws
// one weighted sample (85% delivered, 10% bounced, 5% delayed). A real
// implementation would query the relay without touching the state machine.
type SimulatedChecker struct {
	randFloat func() float64
}

func NewSimulatedChecker() *SimulatedChecker {
	return &SimulatedChecker{randFloat: rand.Float64}
}

func NewSimulatedCheckerWithRand(randFloat func() float64) (*SimulatedChecker, error) {
	if randFloat == nil {
		return nil, fmt.Errorf("rand source is required")
	}
	return &SimulatedChecker{randFloat: randFloat}, nil
}

func (c *SimulatedChecker) Check(ctx context.Context, message domain.Message) (*domain.DeliveryResult, error) {
	if c == nil || c.randFloat == nil {
		return nil, fmt.Errorf("delivery checker is not initialized")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sample := c.randFloat()
	switch {
	case sample < deliveredWeight:
		return &domain.DeliveryResult{
			Outcome:  domain.DeliveryDelivered,
			Response: responseDelivered,
		}, nil
	case sample < deliveredWeight+bouncedWeight:
		return &domain.DeliveryResult{
			Outcome:  domain.DeliveryBounced,
			Response: responseBounced,
			Reason:   "message bounced: recipient not found",
		}, nil
	default:
		return &domain.DeliveryResult{
			Outcome:  domain.DeliveryDelayed,
			Response: responseDelayed,
		}, nil
	}
}
