package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/postmangpx/postmangpx/internal/domain"
	"github.com/postmangpx/postmangpx/internal/events"
	"github.com/postmangpx/postmangpx/internal/observability"
	"github.com/postmangpx/postmangpx/internal/provider"
	"github.com/postmangpx/postmangpx/internal/repository"
	"go.uber.org/zap"
)

const defaultDispatchTimeout = 10 * time.Second

// ChannelSource serves failover candidates in dispatch order.
type ChannelSource interface {
	ListActive(ctx context.Context, callerID string) ([]domain.Channel, error)
}

// ProviderSelector resolves a channel to the transport that serves it.
type ProviderSelector interface {
	ForChannel(channel domain.Channel) (provider.Provider, error)
}

// SubmitRequest is a validated-later dispatch request. Exactly one of HTML
// and Text is enough; both may be present.
type SubmitRequest struct {
	To         string
	CC         string
	BCC        string
	Subject    string
	HTML       string
	Text       string
	ExternalID string
}

// DispatchService runs the synchronous failover loop: one message in, a
// terminal-or-sent message out, with every hand-off try audited.
type DispatchService struct {
	messages  repository.MessageRepository
	attempts  repository.AttemptRepository
	channels  ChannelSource
	selector  ProviderSelector
	checker   provider.DeliveryChecker
	publisher events.Publisher
	metrics   *observability.Metrics
	logger    *zap.Logger
	timeout   time.Duration
	now       func() time.Time
}

func NewDispatchService(
	messages repository.MessageRepository,
	attempts repository.AttemptRepository,
	channels ChannelSource,
	selector ProviderSelector,
	checker provider.DeliveryChecker,
	publisher events.Publisher,
	metrics *observability.Metrics,
	logger *zap.Logger,
	timeout time.Duration,
) (*DispatchService, error) {
	if messages == nil {
		return nil, fmt.Errorf("message repository is required")
	}
	if attempts == nil {
		return nil, fmt.Errorf("attempt repository is required")
	}
	if channels == nil {
		return nil, fmt.Errorf("channel source is required")
	}
	if selector == nil {
		return nil, fmt.Errorf("provider selector is required")
	}
	if checker == nil {
		return nil, fmt.Errorf("delivery checker is required")
	}
	if publisher == nil {
		publisher = events.NewNoopPublisher()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = defaultDispatchTimeout
	}

	return &DispatchService{
		messages:  messages,
		attempts:  attempts,
		channels:  channels,
		selector:  selector,
		checker:   checker,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger,
		timeout:   timeout,
		now:       time.Now,
	}, nil
}

// Submit validates the request, persists a pending message, and walks the
// caller's active channels in priority order until one accepts the hand-off.
// The returned message always reflects the state reached by this call.
func (s *DispatchService) Submit(ctx context.Context, credential domain.Credential, req SubmitRequest) (*domain.Message, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	message := &domain.Message{
		ID:           uuid.NewString(),
		CredentialID: credential.ID,
		To:           strings.TrimSpace(req.To),
		CC:           optional(req.CC),
		BCC:          optional(req.BCC),
		Subject:      strings.TrimSpace(req.Subject),
		HTMLContent:  optional(req.HTML),
		TextContent:  optional(req.Text),
		Status:       domain.StatusPending,
		ExternalID:   optional(req.ExternalID),
	}
	if err := message.Validate(); err != nil {
		return nil, err
	}

	if err := s.messages.Create(ctx, message); err != nil {
		return nil, fmt.Errorf("failed to store message: %w", err)
	}

	logger := observability.WithContextLogger(s.logger, ctx).With(
		zap.String("messageId", message.ID),
		zap.String("credentialId", credential.ID),
	)

	candidates, err := s.channels.ListActive(ctx, credential.CallerID)
	if err != nil {
		logger.Error("failed to list channels", zap.Error(err))
		s.fail(ctx, message, "channel lookup failed", logger)
		return message, nil
	}

	var lastErr error
	for _, channel := range candidates {
		outcome, sendErr := s.try(ctx, message, channel, logger)
		switch outcome {
		case tryAccepted:
			s.publish(ctx, events.Event{
				Type:       events.TypeMessageSent,
				MessageID:  message.ID,
				Status:     message.Status,
				OccurredAt: s.now().UTC(),
			}, logger)
			if s.metrics != nil {
				s.metrics.IncMessageSent(string(channel.Type))
			}
			logger.Info("message handed off",
				zap.String("channelId", channel.ID),
				zap.Int("attempts", message.AttemptCount),
			)
			return message, nil
		case tryPermanent:
			s.fail(ctx, message, sendErr.Error(), logger)
			return message, nil
		case trySkipped, tryTransient:
			if sendErr != nil {
				lastErr = sendErr
			}
		}
	}

	reason := domain.ReasonNoChannelAvailable
	if lastErr != nil {
		reason = lastErr.Error()
	}
	s.fail(ctx, message, reason, logger)
	return message, nil
}

type tryOutcome int

const (
	tryAccepted tryOutcome = iota
	tryTransient
	tryPermanent
	trySkipped
)

// try performs one channel hand-off: audit row, attempt counter, bounded
// transport call, then the pending -> sent transition on success.
func (s *DispatchService) try(ctx context.Context, message *domain.Message, channel domain.Channel, logger *zap.Logger) (tryOutcome, error) {
	prov, err := s.selector.ForChannel(channel)
	if err != nil {
		// Misconfigured channel disqualifies only itself.
		logger.Warn("skipping channel",
			zap.String("channelId", channel.ID),
			zap.Error(err),
		)
		return trySkipped, err
	}

	message.AttemptCount++
	if err := s.messages.IncrementAttempt(ctx, message.ID); err != nil {
		logger.Warn("failed to increment attempt counter", zap.Error(err))
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.timeout)
	start := s.now()
	resp, sendErr := prov.Send(sendCtx, channel, *message)
	cancel()

	if s.metrics != nil {
		s.metrics.ObserveHandoffDuration(string(channel.Type), time.Since(start))
	}
	s.recordAttempt(ctx, message, channel, resp, sendErr, logger)

	if sendErr == nil {
		if err := s.applySent(ctx, message, channel.ID); err != nil {
			return tryPermanent, err
		}
		if s.metrics != nil {
			s.metrics.IncDispatchAttempt(string(channel.Type), "accepted")
		}
		return tryAccepted, nil
	}

	if provider.IsTransient(sendErr) {
		if s.metrics != nil {
			s.metrics.IncDispatchAttempt(string(channel.Type), "transient")
		}
		logger.Warn("channel hand-off failed, trying next",
			zap.String("channelId", channel.ID),
			zap.Error(sendErr),
		)
		return tryTransient, sendErr
	}

	if s.metrics != nil {
		s.metrics.IncDispatchAttempt(string(channel.Type), "permanent")
	}
	logger.Warn("channel rejected message permanently",
		zap.String("channelId", channel.ID),
		zap.Error(sendErr),
	)
	return tryPermanent, sendErr
}

func (s *DispatchService) applySent(ctx context.Context, message *domain.Message, channelID string) error {
	at := s.now()
	if err := s.messages.MarkSent(ctx, message.ID, channelID, at); err != nil {
		return fmt.Errorf("failed to persist sent transition: %w", err)
	}
	return message.MarkSent(channelID, at)
}

func (s *DispatchService) recordAttempt(
	ctx context.Context,
	message *domain.Message,
	channel domain.Channel,
	resp *provider.SendResponse,
	sendErr error,
	logger *zap.Logger,
) {
	attempt := &domain.DeliveryAttempt{
		ID:            uuid.NewString(),
		MessageID:     message.ID,
		ChannelID:     channel.ID,
		AttemptNumber: message.AttemptCount,
	}
	if resp != nil {
		statusCode := resp.StatusCode
		attempt.StatusCode = &statusCode
		attempt.ResponseBody = optional(resp.Body)
	}
	if sendErr != nil {
		errText := sendErr.Error()
		attempt.Error = &errText

		var provErr *provider.ProviderError
		if errors.As(sendErr, &provErr) && provErr.StatusCode != 0 {
			statusCode := provErr.StatusCode
			attempt.StatusCode = &statusCode
		}
	}

	if err := s.attempts.Create(ctx, attempt); err != nil {
		logger.Warn("failed to record delivery attempt", zap.Error(err))
	}
}

// fail applies pending -> failed, tolerating a lost race with another writer.
func (s *DispatchService) fail(ctx context.Context, message *domain.Message, reason string, logger *zap.Logger) {
	if err := s.messages.MarkFailed(ctx, message.ID, reason); err != nil {
		logger.Error("failed to persist failed transition", zap.Error(err))
	}
	if err := message.MarkFailed(reason); err != nil {
		logger.Error("failed transition rejected", zap.Error(err))
		return
	}

	if s.metrics != nil {
		s.metrics.IncMessageFailed(reason)
	}
	s.publish(ctx, events.Event{
		Type:       events.TypeMessageFailed,
		MessageID:  message.ID,
		Status:     message.Status,
		Reason:     reason,
		OccurredAt: s.now().UTC(),
	}, logger)
	logger.Warn("message failed",
		zap.String("reason", reason),
		zap.Int("attempts", message.AttemptCount),
	)
}

// GetStatus returns the current lifecycle snapshot of a message.
func (s *DispatchService) GetStatus(ctx context.Context, id string) (*domain.Message, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: message id is required", domain.ErrValidation)
	}
	return s.messages.GetByID(ctx, strings.TrimSpace(id))
}

// Attempts returns the hand-off audit trail for a message.
func (s *DispatchService) Attempts(ctx context.Context, messageID string) ([]domain.DeliveryAttempt, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, err := s.messages.GetByID(ctx, messageID); err != nil {
		return nil, err
	}
	return s.attempts.GetByMessageID(ctx, messageID)
}

// List returns messages matching the filter, newest first.
func (s *DispatchService) List(ctx context.Context, params repository.ListParams) ([]domain.Message, int64, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	return s.messages.List(ctx, params)
}

// Confirm samples the delivery outcome of a sent message and applies it.
// delivered and bounced are terminal; delayed leaves the message in sent so
// a later call can sample again.
func (s *DispatchService) Confirm(ctx context.Context, id string) (*domain.Message, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	message, err := s.messages.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, err
	}
	if message.Status != domain.StatusSent {
		return nil, fmt.Errorf("%w: message is %s, confirmation requires sent", domain.ErrInvalidState, message.Status)
	}

	sampled, err := s.checker.Check(ctx, *message)
	if err != nil {
		return nil, fmt.Errorf("delivery check failed: %w", err)
	}
	result := sampled.Normalized()

	at := s.now()
	if err := s.messages.ApplyDelivery(ctx, message.ID, result, at); err != nil {
		return nil, err
	}
	if err := message.ApplyDelivery(result, at); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncConfirmation(string(result.Outcome))
	}

	logger := observability.WithContextLogger(s.logger, ctx).With(
		zap.String("messageId", message.ID),
		zap.String("outcome", string(result.Outcome)),
	)
	switch result.Outcome {
	case domain.DeliveryDelivered:
		s.publish(ctx, events.Event{
			Type:       events.TypeMessageDelivered,
			MessageID:  message.ID,
			Status:     message.Status,
			OccurredAt: at.UTC(),
		}, logger)
	case domain.DeliveryBounced:
		s.publish(ctx, events.Event{
			Type:       events.TypeMessageBounced,
			MessageID:  message.ID,
			Status:     message.Status,
			Reason:     result.Reason,
			OccurredAt: at.UTC(),
		}, logger)
	}
	logger.Info("delivery confirmation applied")

	return message, nil
}

func (s *DispatchService) publish(ctx context.Context, event events.Event, logger *zap.Logger) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		logger.Warn("failed to publish event",
			zap.String("eventType", event.Type),
			zap.Error(err),
		)
	}
}

func optional(v string) *string {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
