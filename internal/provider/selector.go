package provider

import (
	"fmt"

	"github.com/postmangpx/postmangpx/internal/domain"
)

// Selector maps a channel's type tag to the provider that can serve it.
type Selector struct {
	smtp      Provider
	webhook   Provider
	simulated Provider
}

func NewSelector() *Selector {
	return &Selector{
		smtp:      NewSMTPProvider(),
		webhook:   NewWebhookProvider(),
		simulated: NewSimulatedProvider(),
	}
}

func NewSelectorWithProviders(smtp, webhook, simulated Provider) *Selector {
	return &Selector{
		smtp:      smtp,
		webhook:   webhook,
		simulated: simulated,
	}
}

func (s *Selector) ForChannel(channel domain.Channel) (Provider, error) {
	if s == nil {
		return nil, fmt.Errorf("selector is not initialized")
	}

	switch channel.Type {
	case domain.ChannelSMTP:
		if s.smtp == nil {
			return nil, fmt.Errorf("smtp provider is not configured")
		}
		return s.smtp, nil
	case domain.ChannelWebhook:
		if s.webhook == nil {
			return nil, fmt.Errorf("webhook provider is not configured")
		}
		return s.webhook, nil
	case domain.ChannelSimulated:
		if s.simulated == nil {
			return nil, fmt.Errorf("simulated provider is not configured")
		}
		return s.simulated, nil
	default:
		return nil, fmt.Errorf("%w: unsupported channel type %q", domain.ErrValidation, channel.Type)
	}
}
