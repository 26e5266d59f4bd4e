package repository

import (
	"context"
	"errors"
	"time"

	"github.com/postmangpx/postmangpx/internal/domain"
	"gorm.io/gorm"
)

type CredentialRepository interface {
	Create(ctx context.Context, c *domain.Credential) error
	GetByID(ctx context.Context, id string) (*domain.Credential, error)
	GetActiveByDigest(ctx context.Context, digest string) (*domain.Credential, error)
	TouchLastUsed(ctx context.Context, id string, at time.Time) error
	Deactivate(ctx context.Context, id string) error
}

type GormCredentialRepo struct {
	db *gorm.DB
}

func NewGormCredentialRepo(db *gorm.DB) *GormCredentialRepo {
	return &GormCredentialRepo{db: db}
}

func (r *GormCredentialRepo) Create(ctx context.Context, c *domain.Credential) error {
	model := credentialModelFromDomain(c)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	if c != nil {
		*c = *credentialModelToDomain(model)
	}
	return nil
}

func (r *GormCredentialRepo) GetByID(ctx context.Context, id string) (*domain.Credential, error) {
	var model CredentialModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return credentialModelToDomain(&model), nil
}

func (r *GormCredentialRepo) GetActiveByDigest(ctx context.Context, digest string) (*domain.Credential, error) {
	var model CredentialModel
	err := r.db.WithContext(ctx).
		Where("key_digest = ? AND is_active = ?", digest, true).
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return credentialModelToDomain(&model), nil
}

func (r *GormCredentialRepo) TouchLastUsed(ctx context.Context, id string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&CredentialModel{}).
		Where("id = ?", id).
		Update("last_used_at", at.UTC()).Error
}

// Deactivate soft-deletes a credential. Messages keep referencing it.
func (r *GormCredentialRepo) Deactivate(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).
		Model(&CredentialModel{}).
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
