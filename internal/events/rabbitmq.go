package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	exchangeName     = "mail.events"
	connectTimeout   = 15 * time.Second
	reconnectBackoff = time.Second
	maxBackoff       = 30 * time.Second
)

var _ Publisher = (*RabbitMQPublisher)(nil)

// RabbitMQPublisher publishes lifecycle events to a topic exchange, with the
// event type as routing key. Reconnects with capped backoff.
type RabbitMQPublisher struct {
	url string

	mu          sync.RWMutex
	reconnectMu sync.Mutex
	conn        *amqp.Connection
}

func NewRabbitMQPublisher(url string) (*RabbitMQPublisher, error) {
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("rabbitmq url is required")
	}

	p := &RabbitMQPublisher{url: url}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	if err := p.ensureConnected(ctx); err != nil {
		return nil, err
	}

	return p, nil
}

func (p *RabbitMQPublisher) Publish(ctx context.Context, event Event) error {
	if err := event.Validate(); err != nil {
		return fmt.Errorf("invalid event: %w", err)
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	ch, err := p.channel(ctx)
	if err != nil {
		return err
	}
	defer ch.Close() //nolint:errcheck

	err = ch.PublishWithContext(ctx, exchangeName, event.Type, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    event.OccurredAt,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

func (p *RabbitMQPublisher) Close() error {
	p.mu.Lock()
	conn := p.conn
	p.conn = nil
	p.mu.Unlock()

	if conn == nil || conn.IsClosed() {
		return nil
	}

	return conn.Close()
}

func (p *RabbitMQPublisher) channel(ctx context.Context) (*amqp.Channel, error) {
	if err := p.ensureConnected(ctx); err != nil {
		return nil, err
	}

	p.mu.RLock()
	conn := p.conn
	p.mu.RUnlock()

	if conn == nil || conn.IsClosed() {
		if err := p.ensureConnected(ctx); err != nil {
			return nil, err
		}
		p.mu.RLock()
		conn = p.conn
		p.mu.RUnlock()
	}

	ch, err := conn.Channel()
	if err != nil {
		if errReconnect := p.reconnectWithBackoff(ctx); errReconnect != nil {
			return nil, errReconnect
		}

		p.mu.RLock()
		conn = p.conn
		p.mu.RUnlock()

		ch, err = conn.Channel()
		if err != nil {
			return nil, fmt.Errorf("failed to create rabbitmq channel after reconnect: %w", err)
		}
	}

	if err := ch.ExchangeDeclare(exchangeName, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	return ch, nil
}

func (p *RabbitMQPublisher) ensureConnected(ctx context.Context) error {
	p.mu.RLock()
	conn := p.conn
	p.mu.RUnlock()

	if conn != nil && !conn.IsClosed() {
		return nil
	}

	return p.reconnectWithBackoff(ctx)
}

func (p *RabbitMQPublisher) reconnectWithBackoff(ctx context.Context) error {
	p.reconnectMu.Lock()
	defer p.reconnectMu.Unlock()

	p.mu.RLock()
	conn := p.conn
	p.mu.RUnlock()
	if conn != nil && !conn.IsClosed() {
		return nil
	}

	backoff := reconnectBackoff
	for {
		conn, err := amqp.Dial(p.url)
		if err == nil {
			p.mu.Lock()
			p.conn = conn
			p.mu.Unlock()
			return nil
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("rabbitmq connect canceled: %w", ctx.Err())
		case <-timer.C:
		}

		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}
