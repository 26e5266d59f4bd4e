package events

import (
	"context"
	"testing"
	"time"

	"github.com/postmangpx/postmangpx/internal/domain"
)

func TestEventValidate(t *testing.T) {
	t.Parallel()

	valid := Event{
		Type:       TypeMessageSent,
		MessageID:  "m1",
		Status:     domain.StatusSent,
		OccurredAt: time.Unix(1_700_000_000, 0),
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	if err := (Event{MessageID: "m1"}).Validate(); err == nil {
		t.Fatal("missing type should fail validation")
	}
	if err := (Event{Type: TypeMessageFailed}).Validate(); err == nil {
		t.Fatal("missing message id should fail validation")
	}
}

func TestNoopPublisher(t *testing.T) {
	t.Parallel()

	p := NewNoopPublisher()
	if err := p.Publish(context.Background(), Event{Type: TypeMessageSent, MessageID: "m1"}); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
}
