package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/postmangpx/postmangpx/internal/domain"
	"github.com/postmangpx/postmangpx/internal/repository"
	"go.uber.org/zap"
)

// ChannelRegistry manages transport channels and serves the dispatch
// engine its failover candidate list.
type ChannelRegistry struct {
	channels repository.ChannelRepository
	logger   *zap.Logger
}

func NewChannelRegistry(channels repository.ChannelRepository, logger *zap.Logger) (*ChannelRegistry, error) {
	if channels == nil {
		return nil, fmt.Errorf("channel repository is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ChannelRegistry{
		channels: channels,
		logger:   logger,
	}, nil
}

// ListActive returns the caller's active channels ordered by ascending
// priority, registration time breaking ties.
func (r *ChannelRegistry) ListActive(ctx context.Context, callerID string) ([]domain.Channel, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(callerID) == "" {
		return nil, fmt.Errorf("%w: caller id is required", domain.ErrValidation)
	}

	return r.channels.ListActiveByCaller(ctx, strings.TrimSpace(callerID))
}

// Register validates and stores a new channel.
func (r *ChannelRegistry) Register(ctx context.Context, channel *domain.Channel) (*domain.Channel, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if channel == nil {
		return nil, fmt.Errorf("%w: channel is required", domain.ErrValidation)
	}

	if channel.ID == "" {
		channel.ID = uuid.NewString()
	}
	channel.Name = strings.TrimSpace(channel.Name)
	channel.IsActive = true

	if err := channel.Validate(); err != nil {
		return nil, err
	}

	if err := r.channels.Create(ctx, channel); err != nil {
		return nil, fmt.Errorf("failed to store channel: %w", err)
	}

	r.logger.Info("channel registered",
		zap.String("channelId", channel.ID),
		zap.String("callerId", channel.CallerID),
		zap.String("type", string(channel.Type)),
		zap.Int("priority", channel.Priority),
	)

	return channel, nil
}

// Deactivate removes a channel from future candidate lists without
// touching messages already attributed to it.
func (r *ChannelRegistry) Deactivate(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: channel id is required", domain.ErrValidation)
	}
	return r.channels.Deactivate(ctx, strings.TrimSpace(id))
}
