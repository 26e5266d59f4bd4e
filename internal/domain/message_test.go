package domain

import (
	"errors"
	"testing"
	"time"
)

func TestMessageValidate(t *testing.T) {
	t.Parallel()

	html := "<p>hello</p>"
	text := "hello"

	tests := []struct {
		name    string
		message Message
		wantErr bool
	}{
		{
			name:    "valid with html",
			message: Message{To: "a@example.com", Subject: "hi", HTMLContent: &html},
		},
		{
			name:    "valid with text",
			message: Message{To: "a@example.com", Subject: "hi", TextContent: &text},
		},
		{
			name:    "missing to",
			message: Message{Subject: "hi", HTMLContent: &html},
			wantErr: true,
		},
		{
			name:    "missing subject",
			message: Message{To: "a@example.com", HTMLContent: &html},
			wantErr: true,
		},
		{
			name:    "missing body",
			message: Message{To: "a@example.com", Subject: "hi"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.message.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrValidation) {
					t.Fatalf("Validate() error = %v, want ErrValidation", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate() error = %v", err)
			}
		})
	}
}

func TestMessageMarkSent(t *testing.T) {
	t.Parallel()

	reason := "previous failure"
	m := Message{Status: StatusPending, FailureReason: &reason}
	at := time.Unix(1_700_000_000, 0)

	if err := m.MarkSent("ch-1", at); err != nil {
		t.Fatalf("MarkSent() error = %v", err)
	}

	if m.Status != StatusSent {
		t.Fatalf("status = %s, want sent", m.Status)
	}
	if m.ChannelID == nil || *m.ChannelID != "ch-1" {
		t.Fatalf("channel id = %v, want ch-1", m.ChannelID)
	}
	if m.SentAt == nil || !m.SentAt.Equal(at.UTC()) {
		t.Fatalf("sentAt = %v, want %v", m.SentAt, at.UTC())
	}
	if m.FailureReason != nil {
		t.Fatal("failure reason should be cleared on sent")
	}

	if err := m.MarkSent("ch-2", at); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("MarkSent() on sent error = %v, want ErrInvalidState", err)
	}
}

func TestMessageMarkFailed(t *testing.T) {
	t.Parallel()

	m := Message{Status: StatusPending}
	if err := m.MarkFailed(ReasonNoChannelAvailable); err != nil {
		t.Fatalf("MarkFailed() error = %v", err)
	}
	if m.Status != StatusFailed {
		t.Fatalf("status = %s, want failed", m.Status)
	}
	if m.FailureReason == nil || *m.FailureReason != ReasonNoChannelAvailable {
		t.Fatalf("failure reason = %v, want %s", m.FailureReason, ReasonNoChannelAvailable)
	}

	if err := m.MarkFailed("again"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("MarkFailed() on failed error = %v, want ErrInvalidState", err)
	}
}

func TestMessageApplyDeliveryDelivered(t *testing.T) {
	t.Parallel()

	m := Message{Status: StatusSent}
	at := time.Unix(1_700_000_100, 0)

	err := m.ApplyDelivery(DeliveryResult{
		Outcome:  DeliveryDelivered,
		Response: "250 2.0.0 OK Message accepted for delivery",
	}, at)
	if err != nil {
		t.Fatalf("ApplyDelivery() error = %v", err)
	}

	if m.Status != StatusDelivered {
		t.Fatalf("status = %s, want delivered", m.Status)
	}
	if m.DeliveredAt == nil || !m.DeliveredAt.Equal(at.UTC()) {
		t.Fatalf("deliveredAt = %v, want %v", m.DeliveredAt, at.UTC())
	}
	if m.DeliveryStatus == nil || *m.DeliveryStatus != DeliveryDelivered {
		t.Fatalf("delivery status = %v, want delivered", m.DeliveryStatus)
	}
	if !m.Status.IsTerminal() {
		t.Fatal("delivered should be terminal")
	}
}

func TestMessageApplyDeliveryBounced(t *testing.T) {
	t.Parallel()

	m := Message{Status: StatusSent}

	err := m.ApplyDelivery(DeliveryResult{
		Outcome:  DeliveryBounced,
		Response: "550 5.1.1 User unknown",
	}, time.Unix(1_700_000_100, 0))
	if err != nil {
		t.Fatalf("ApplyDelivery() error = %v", err)
	}

	if m.Status != StatusBounced {
		t.Fatalf("status = %s, want bounced", m.Status)
	}
	if m.FailureReason == nil || *m.FailureReason != DefaultBounceReason {
		t.Fatalf("failure reason = %v, want %q when the sample has none", m.FailureReason, DefaultBounceReason)
	}
}

func TestDeliveryResultNormalized(t *testing.T) {
	t.Parallel()

	got := DeliveryResult{Outcome: DeliveryBounced, Response: " 550 5.1.1 User unknown "}.Normalized()
	if got.Reason != DefaultBounceReason {
		t.Fatalf("reason = %q, want default bounce reason", got.Reason)
	}
	if got.Response != "550 5.1.1 User unknown" {
		t.Fatalf("response = %q, want trimmed", got.Response)
	}

	got = DeliveryResult{Outcome: DeliveryBounced, Reason: "mailbox full"}.Normalized()
	if got.Reason != "mailbox full" {
		t.Fatalf("reason = %q, explicit reason must win", got.Reason)
	}

	got = DeliveryResult{Outcome: DeliveryDelivered}.Normalized()
	if got.Reason != "" {
		t.Fatalf("reason = %q, want empty for delivered", got.Reason)
	}
}

func TestMessageApplyDeliveryDelayedKeepsSent(t *testing.T) {
	t.Parallel()

	m := Message{Status: StatusSent}

	err := m.ApplyDelivery(DeliveryResult{
		Outcome:  DeliveryDelayed,
		Response: "451 4.4.1 Temporary server error",
	}, time.Unix(1_700_000_100, 0))
	if err != nil {
		t.Fatalf("ApplyDelivery() error = %v", err)
	}

	if m.Status != StatusSent {
		t.Fatalf("status = %s, want sent after delayed", m.Status)
	}
	if m.DeliveryResponse == nil || *m.DeliveryResponse != "451 4.4.1 Temporary server error" {
		t.Fatalf("delivery response = %v, want raw relay response", m.DeliveryResponse)
	}

	// A later confirmation can still resolve it.
	err = m.ApplyDelivery(DeliveryResult{Outcome: DeliveryDelivered}, time.Unix(1_700_000_200, 0))
	if err != nil {
		t.Fatalf("ApplyDelivery() after delayed error = %v", err)
	}
	if m.Status != StatusDelivered {
		t.Fatalf("status = %s, want delivered", m.Status)
	}
}

func TestMessageApplyDeliveryRequiresSent(t *testing.T) {
	t.Parallel()

	for _, status := range []Status{StatusPending, StatusFailed, StatusDelivered, StatusBounced} {
		m := Message{Status: status}
		err := m.ApplyDelivery(DeliveryResult{Outcome: DeliveryDelivered}, time.Now())
		if !errors.Is(err, ErrInvalidState) {
			t.Fatalf("ApplyDelivery() on %s error = %v, want ErrInvalidState", status, err)
		}
	}
}

func TestParseStatusFromString(t *testing.T) {
	t.Parallel()

	status, err := ParseStatusFromString(" Sent ")
	if err != nil {
		t.Fatalf("ParseStatusFromString() error = %v", err)
	}
	if status != StatusSent {
		t.Fatalf("status = %s, want sent", status)
	}

	if _, err := ParseStatusFromString("unknown"); !errors.Is(err, ErrValidation) {
		t.Fatalf("ParseStatusFromString() error = %v, want ErrValidation", err)
	}
}
