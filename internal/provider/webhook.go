package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/postmangpx/postmangpx/internal/domain"
)

const defaultWebhookTimeout = 10 * time.Second

type webhookRequest struct {
	To         string `json:"to"`
	CC         string `json:"cc,omitempty"`
	BCC        string `json:"bcc,omitempty"`
	Subject    string `json:"subject"`
	HTML       string `json:"html,omitempty"`
	Text       string `json:"text,omitempty"`
	ExternalID string `json:"externalId,omitempty"`
}

// WebhookProvider posts the message payload to the channel's HTTP endpoint.
type WebhookProvider struct {
	client *resty.Client
}

func NewWebhookProvider() *WebhookProvider {
	client := resty.New()
	client.SetTimeout(defaultWebhookTimeout)
	client.SetRetryCount(0)

	return &WebhookProvider{client: client}
}

func NewWebhookProviderWithClient(client *resty.Client) (*WebhookProvider, error) {
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultWebhookTimeout)
	}
	client.SetRetryCount(0)

	return &WebhookProvider{client: client}, nil
}

func (p *WebhookProvider) Send(ctx context.Context, channel domain.Channel, message domain.Message) (*SendResponse, error) {
	if p == nil || p.client == nil {
		return nil, fmt.Errorf("provider is not initialized")
	}

	endpoint := strings.TrimSpace(channel.Endpoint)
	if endpoint == "" {
		return nil, &ProviderError{Message: "channel has no webhook endpoint", Transient: false}
	}
	if _, err := url.ParseRequestURI(endpoint); err != nil {
		return nil, &ProviderError{Message: "invalid webhook endpoint", Transient: false, Cause: err}
	}

	reqBody := webhookRequest{
		To:      message.To,
		Subject: message.Subject,
	}
	if message.CC != nil {
		reqBody.CC = *message.CC
	}
	if message.BCC != nil {
		reqBody.BCC = *message.BCC
	}
	if message.HTMLContent != nil {
		reqBody.HTML = *message.HTMLContent
	}
	if message.TextContent != nil {
		reqBody.Text = *message.TextContent
	}
	if message.ExternalID != nil {
		reqBody.ExternalID = *message.ExternalID
	}

	response, err := p.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(reqBody).
		Post(endpoint)
	if err != nil {
		return nil, &ProviderError{
			Message:   "provider request failed",
			Transient: !errors.Is(err, context.Canceled),
			Cause:     err,
		}
	}
	if response == nil {
		return nil, &ProviderError{
			Message:   "provider returned empty response",
			Transient: true,
		}
	}

	statusCode := response.StatusCode()
	responseBody := strings.TrimSpace(response.String())

	if statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices {
		return &SendResponse{
			StatusCode: statusCode,
			Body:       responseBody,
			MessageID:  providerMessageID(response),
		}, nil
	}

	return nil, &ProviderError{
		StatusCode: statusCode,
		Message:    providerErrorMessage(statusCode, responseBody),
		Transient:  isTransientHTTPStatus(statusCode),
	}
}

func isTransientHTTPStatus(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || (statusCode >= http.StatusInternalServerError && statusCode <= 599)
}

func providerErrorMessage(statusCode int, body string) string {
	base := fmt.Sprintf("provider returned status %d", statusCode)
	if body == "" {
		return base
	}
	return fmt.Sprintf("%s: %s", base, body)
}

func providerMessageID(response *resty.Response) string {
	if response == nil {
		return ""
	}

	for _, key := range []string{"X-Message-ID", "X-Message-Id", "X-Request-ID", "X-Request-Id"} {
		if value := strings.TrimSpace(response.Header().Get(key)); value != "" {
			return value
		}
	}

	return ""
}
