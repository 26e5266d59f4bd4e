package domain

import (
	"fmt"
	"strings"
	"time"
)

// Status represents the lifecycle state of a message.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSent      Status = "sent"
	StatusFailed    Status = "failed"
	StatusDelivered Status = "delivered"
	StatusBounced   Status = "bounced"
)

func (s Status) String() string { return string(s) }

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusSent, StatusFailed, StatusDelivered, StatusBounced:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition can be applied.
// A sent message is not terminal: confirmation may still resolve it.
func (s Status) IsTerminal() bool {
	return s == StatusFailed || s == StatusDelivered || s == StatusBounced
}

func ParseStatusFromString(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: invalid status %q", ErrValidation, s)
	}
	return st, nil
}

// DeliveryStatus is the confirmation outcome of a sent message.
type DeliveryStatus string

const (
	DeliveryDelivered DeliveryStatus = "delivered"
	DeliveryBounced   DeliveryStatus = "bounced"
	DeliveryDelayed   DeliveryStatus = "delayed"
)

func (d DeliveryStatus) String() string { return string(d) }

func (d DeliveryStatus) IsValid() bool {
	switch d {
	case DeliveryDelivered, DeliveryBounced, DeliveryDelayed:
		return true
	}
	return false
}

// ReasonNoChannelAvailable is the failure reason recorded when a caller has
// no active channel to dispatch through.
const ReasonNoChannelAvailable = "NoChannelAvailable"

// Message is the unit of work moving through the delivery lifecycle.
// Records are append-only: they are created by the dispatch engine and
// mutated only through the transition methods below.
type Message struct {
	ID               string
	CredentialID     string
	ChannelID        *string
	To               string
	CC               *string
	BCC              *string
	Subject          string
	HTMLContent      *string
	TextContent      *string
	Status           Status
	DeliveryStatus   *DeliveryStatus
	DeliveryResponse *string
	FailureReason    *string
	AttemptCount     int
	ExternalID       *string
	SentAt           *time.Time
	DeliveredAt      *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (m *Message) Validate() error {
	if strings.TrimSpace(m.To) == "" {
		return fmt.Errorf("%w: field %q is required", ErrValidation, "to")
	}
	if strings.TrimSpace(m.Subject) == "" {
		return fmt.Errorf("%w: field %q is required", ErrValidation, "subject")
	}
	if !hasValue(m.HTMLContent) && !hasValue(m.TextContent) {
		return fmt.Errorf("%w: at least one of %q or %q is required", ErrValidation, "html", "text")
	}
	return nil
}

// MarkSent applies pending -> sent. Sets sent_at exactly once, records the
// channel that accepted the hand-off, and clears any failure reason.
func (m *Message) MarkSent(channelID string, at time.Time) error {
	if m.Status != StatusPending {
		return fmt.Errorf("%w: cannot mark %s message as sent", ErrInvalidState, m.Status)
	}
	m.Status = StatusSent
	m.ChannelID = &channelID
	sentAt := at.UTC()
	m.SentAt = &sentAt
	m.FailureReason = nil
	return nil
}

// MarkFailed applies pending -> failed with the given reason.
func (m *Message) MarkFailed(reason string) error {
	if m.Status != StatusPending {
		return fmt.Errorf("%w: cannot mark %s message as failed", ErrInvalidState, m.Status)
	}
	m.Status = StatusFailed
	m.FailureReason = &reason
	return nil
}

// DefaultBounceReason is recorded when a bounce carries no reason of its own.
const DefaultBounceReason = "recipient rejected the message"

// DeliveryResult is one sampled confirmation outcome.
type DeliveryResult struct {
	Outcome  DeliveryStatus
	Response string
	Reason   string
}

// Normalized trims the sampled fields and fills in the bounce reason, so the
// stored record and the in-memory snapshot carry identical values.
func (r DeliveryResult) Normalized() DeliveryResult {
	r.Response = strings.TrimSpace(r.Response)
	r.Reason = strings.TrimSpace(r.Reason)
	if r.Outcome == DeliveryBounced && r.Reason == "" {
		r.Reason = DefaultBounceReason
	}
	return r
}

// ApplyDelivery resolves a sent message with a sampled confirmation outcome.
// delivered and bounced are terminal; delayed keeps the message in sent so a
// later confirmation call can resample it.
func (m *Message) ApplyDelivery(result DeliveryResult, at time.Time) error {
	if m.Status != StatusSent {
		return fmt.Errorf("%w: message is %s, confirmation requires sent", ErrInvalidState, m.Status)
	}
	if !result.Outcome.IsValid() {
		return fmt.Errorf("%w: invalid delivery outcome %q", ErrValidation, result.Outcome)
	}

	result = result.Normalized()
	outcome := result.Outcome
	m.DeliveryStatus = &outcome
	if result.Response != "" {
		m.DeliveryResponse = &result.Response
	}

	switch outcome {
	case DeliveryDelivered:
		m.Status = StatusDelivered
		deliveredAt := at.UTC()
		m.DeliveredAt = &deliveredAt
	case DeliveryBounced:
		m.Status = StatusBounced
		m.FailureReason = &result.Reason
	case DeliveryDelayed:
		// Non-terminal: only the raw response is recorded.
	}

	return nil
}

func hasValue(v *string) bool {
	return v != nil && strings.TrimSpace(*v) != ""
}
