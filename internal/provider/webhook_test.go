package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/postmangpx/postmangpx/internal/domain"
)

func webhookTestMessage() domain.Message {
	html := "<p>hello</p>"
	return domain.Message{
		To:          "user@example.com",
		Subject:     "greetings",
		HTMLContent: &html,
	}
}

func TestWebhookProviderSendSuccess(t *testing.T) {
	t.Parallel()

	var gotBody webhookRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}

		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("failed to decode request body: %v", err)
		}

		w.Header().Set("X-Message-ID", "relay-msg-1")
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	p := NewWebhookProvider()
	message := webhookTestMessage()

	resp, err := p.Send(context.Background(), domain.Channel{Type: domain.ChannelWebhook, Endpoint: server.URL}, message)
	if err != nil {
		t.Fatalf("Send() unexpected error: %v", err)
	}

	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("StatusCode = %d, want %d", resp.StatusCode, http.StatusAccepted)
	}
	if resp.MessageID != "relay-msg-1" {
		t.Fatalf("MessageID = %q, want %q", resp.MessageID, "relay-msg-1")
	}

	if gotBody.To != message.To {
		t.Fatalf("request.to = %q, want %q", gotBody.To, message.To)
	}
	if gotBody.Subject != message.Subject {
		t.Fatalf("request.subject = %q, want %q", gotBody.Subject, message.Subject)
	}
	if gotBody.HTML != *message.HTMLContent {
		t.Fatalf("request.html = %q, want %q", gotBody.HTML, *message.HTMLContent)
	}
}

func TestWebhookProviderSendStatusClassification(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name          string
		statusCode    int
		wantTransient bool
	}{
		{name: "too many requests is transient", statusCode: http.StatusTooManyRequests, wantTransient: true},
		{name: "bad request is permanent", statusCode: http.StatusBadRequest, wantTransient: false},
		{name: "unprocessable entity is permanent", statusCode: http.StatusUnprocessableEntity, wantTransient: false},
		{name: "internal server error is transient", statusCode: http.StatusInternalServerError, wantTransient: true},
		{name: "bad gateway is transient", statusCode: http.StatusBadGateway, wantTransient: true},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.statusCode)
				_, _ = w.Write([]byte("relay failed"))
			}))
			defer server.Close()

			p := NewWebhookProvider()

			_, err := p.Send(context.Background(), domain.Channel{Type: domain.ChannelWebhook, Endpoint: server.URL}, webhookTestMessage())
			if err == nil {
				t.Fatal("expected error")
			}

			if got := IsTransient(err); got != tc.wantTransient {
				t.Fatalf("IsTransient() = %v, want %v", got, tc.wantTransient)
			}

			var providerErr *ProviderError
			if !errors.As(err, &providerErr) {
				t.Fatalf("expected ProviderError, got %T", err)
			}
			if providerErr.StatusCode != tc.statusCode {
				t.Fatalf("ProviderError.StatusCode = %d, want %d", providerErr.StatusCode, tc.statusCode)
			}
		})
	}
}

func TestWebhookProviderSendTimeoutIsTransient(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	client := resty.New()
	client.SetTimeout(30 * time.Millisecond)

	p, err := NewWebhookProviderWithClient(client)
	if err != nil {
		t.Fatalf("NewWebhookProviderWithClient() error = %v", err)
	}

	_, err = p.Send(context.Background(), domain.Channel{Type: domain.ChannelWebhook, Endpoint: server.URL}, webhookTestMessage())
	if err == nil {
		t.Fatal("expected timeout error")
	}

	if !IsTransient(err) {
		t.Fatalf("IsTransient() = false, want true (err=%v)", err)
	}
}

func TestWebhookProviderSendMissingEndpoint(t *testing.T) {
	t.Parallel()

	p := NewWebhookProvider()

	_, err := p.Send(context.Background(), domain.Channel{Type: domain.ChannelWebhook}, webhookTestMessage())
	if err == nil {
		t.Fatal("expected error for missing endpoint")
	}
	if IsTransient(err) {
		t.Fatal("missing endpoint should be a permanent error")
	}
}
