package provider

import (
	"context"

	"github.com/postmangpx/postmangpx/internal/domain"
)

// Provider is the transport capability: the real network hand-off of a
// message to a relay endpoint described by a channel.
type Provider interface {
	Send(ctx context.Context, channel domain.Channel, message domain.Message) (*SendResponse, error)
}

// SendResponse stores hand-off metadata for audit and persistence.
type SendResponse struct {
	StatusCode int
	Body       string
	MessageID  string
}

// DeliveryChecker samples the delivery outcome of a sent message. Each call
// performs one state sample; results are never memoized.
type DeliveryChecker interface {
	Check(ctx context.Context, message domain.Message) (*domain.DeliveryResult, error)
}
