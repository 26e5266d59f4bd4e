package events

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/postmangpx/postmangpx/internal/domain"
)

// Event types emitted by the dispatch kernel.
const (
	TypeMessageSent      = "message.sent"
	TypeMessageFailed    = "message.failed"
	TypeMessageDelivered = "message.delivered"
	TypeMessageBounced   = "message.bounced"
)

// Event is a lifecycle notification for downstream consumers. Publishing is
// best-effort and never blocks a state transition.
type Event struct {
	Type       string        `json:"type"`
	MessageID  string        `json:"messageId"`
	Status     domain.Status `json:"status"`
	Reason     string        `json:"reason,omitempty"`
	OccurredAt time.Time     `json:"occurredAt"`
}

func (e Event) Validate() error {
	if strings.TrimSpace(e.Type) == "" {
		return fmt.Errorf("event type is required")
	}
	if strings.TrimSpace(e.MessageID) == "" {
		return fmt.Errorf("messageId is required")
	}
	return nil
}

// Publisher publishes lifecycle events.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

var _ Publisher = (*NoopPublisher)(nil)

// NoopPublisher drops all events. Used when no broker is configured.
type NoopPublisher struct{}

func NewNoopPublisher() *NoopPublisher { return &NoopPublisher{} }

func (*NoopPublisher) Publish(context.Context, Event) error { return nil }

func (*NoopPublisher) Close() error { return nil }
