package repository

import (
	"context"
	"errors"

	"github.com/postmangpx/postmangpx/internal/domain"
	"gorm.io/gorm"
)

type CallerRepository interface {
	Create(ctx context.Context, c *domain.Caller) error
	GetByUsername(ctx context.Context, username string) (*domain.Caller, error)
}

type GormCallerRepo struct {
	db *gorm.DB
}

func NewGormCallerRepo(db *gorm.DB) *GormCallerRepo {
	return &GormCallerRepo{db: db}
}

func (r *GormCallerRepo) Create(ctx context.Context, c *domain.Caller) error {
	model := callerModelFromDomain(c)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	if c != nil {
		*c = *callerModelToDomain(model)
	}
	return nil
}

func (r *GormCallerRepo) GetByUsername(ctx context.Context, username string) (*domain.Caller, error) {
	var model CallerModel
	err := r.db.WithContext(ctx).
		Where("username = ?", username).
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return callerModelToDomain(&model), nil
}
