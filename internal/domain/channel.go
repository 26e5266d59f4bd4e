package domain

import (
	"fmt"
	"strings"
	"time"
)

// ChannelType tags the transport used by a delivery channel.
type ChannelType string

const (
	ChannelSMTP      ChannelType = "smtp"
	ChannelWebhook   ChannelType = "webhook"
	ChannelSimulated ChannelType = "simulated"
)

func (t ChannelType) String() string { return string(t) }

func (t ChannelType) IsValid() bool {
	switch t {
	case ChannelSMTP, ChannelWebhook, ChannelSimulated:
		return true
	}
	return false
}

func ParseChannelTypeFromString(s string) (ChannelType, error) {
	t := ChannelType(strings.ToLower(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", fmt.Errorf("%w: invalid channel type %q", ErrValidation, s)
	}
	return t, nil
}

// Channel is a configured outbound delivery path owned by a caller.
// Lower priority values are tried first; ties break by creation order.
type Channel struct {
	ID        string
	CallerID  string
	Name      string
	Type      ChannelType
	Host      string
	Port      int
	Username  string
	Password  string
	UseTLS    bool
	Endpoint  string
	From      string
	IsActive  bool
	Priority  int
	CreatedAt time.Time
}

func (c *Channel) Validate() error {
	if strings.TrimSpace(c.CallerID) == "" {
		return fmt.Errorf("%w: caller id is required", ErrValidation)
	}
	if !c.Type.IsValid() {
		return fmt.Errorf("%w: invalid channel type %q", ErrValidation, c.Type)
	}
	switch c.Type {
	case ChannelSMTP:
		if strings.TrimSpace(c.Host) == "" || c.Port == 0 {
			return fmt.Errorf("%w: smtp channel requires host and port", ErrValidation)
		}
	case ChannelWebhook:
		if strings.TrimSpace(c.Endpoint) == "" {
			return fmt.Errorf("%w: webhook channel requires an endpoint", ErrValidation)
		}
	}
	return nil
}
