package domain

import "time"

// DeliveryAttempt records a single channel hand-off try for a message.
type DeliveryAttempt struct {
	ID            string
	MessageID     string
	ChannelID     string
	AttemptNumber int
	StatusCode    *int
	ResponseBody  *string
	Error         *string
	CreatedAt     time.Time
}
