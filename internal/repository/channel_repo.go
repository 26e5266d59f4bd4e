package repository

import (
	"context"
	"errors"

	"github.com/postmangpx/postmangpx/internal/domain"
	"gorm.io/gorm"
)

type ChannelRepository interface {
	Create(ctx context.Context, c *domain.Channel) error
	GetByID(ctx context.Context, id string) (*domain.Channel, error)
	ListActiveByCaller(ctx context.Context, callerID string) ([]domain.Channel, error)
	Deactivate(ctx context.Context, id string) error
}

type GormChannelRepo struct {
	db *gorm.DB
}

func NewGormChannelRepo(db *gorm.DB) *GormChannelRepo {
	return &GormChannelRepo{db: db}
}

func (r *GormChannelRepo) Create(ctx context.Context, c *domain.Channel) error {
	model := channelModelFromDomain(c)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	if c != nil {
		*c = *channelModelToDomain(model)
	}
	return nil
}

func (r *GormChannelRepo) GetByID(ctx context.Context, id string) (*domain.Channel, error) {
	var model ChannelModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return channelModelToDomain(&model), nil
}

// ListActiveByCaller returns dispatch candidates in selection order:
// ascending priority, creation order as the stable tie-break.
func (r *GormChannelRepo) ListActiveByCaller(ctx context.Context, callerID string) ([]domain.Channel, error) {
	var models []ChannelModel
	err := r.db.WithContext(ctx).
		Where("caller_id = ? AND is_active = ?", callerID, true).
		Order("priority ASC, created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	channels := make([]domain.Channel, 0, len(models))
	for i := range models {
		channels = append(channels, *channelModelToDomain(&models[i]))
	}

	return channels, nil
}

func (r *GormChannelRepo) Deactivate(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).
		Model(&ChannelModel{}).
		Where("id = ?", id).
		Update("is_active", false)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
