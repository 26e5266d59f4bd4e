package repository

import (
	"context"
	"errors"
	"time"

	"github.com/postmangpx/postmangpx/internal/domain"
	"gorm.io/gorm"
)

type ListParams struct {
	Status   *domain.Status
	From     *time.Time
	To       *time.Time
	Page     int
	PageSize int
}

type MessageRepository interface {
	Create(ctx context.Context, m *domain.Message) error
	GetByID(ctx context.Context, id string) (*domain.Message, error)
	List(ctx context.Context, params ListParams) ([]domain.Message, int64, error)
	IncrementAttempt(ctx context.Context, id string) error
	MarkSent(ctx context.Context, id string, channelID string, sentAt time.Time) error
	MarkFailed(ctx context.Context, id string, reason string) error
	ApplyDelivery(ctx context.Context, id string, result domain.DeliveryResult, at time.Time) error
}

type GormMessageRepo struct {
	db *gorm.DB
}

func NewGormMessageRepo(db *gorm.DB) *GormMessageRepo {
	return &GormMessageRepo{db: db}
}

func (r *GormMessageRepo) Create(ctx context.Context, m *domain.Message) error {
	model := messageModelFromDomain(m)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	if m != nil {
		*m = *messageModelToDomain(model)
	}
	return nil
}

func (r *GormMessageRepo) GetByID(ctx context.Context, id string) (*domain.Message, error) {
	var model MessageModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return messageModelToDomain(&model), nil
}

func (r *GormMessageRepo) List(ctx context.Context, params ListParams) ([]domain.Message, int64, error) {
	query := r.db.WithContext(ctx).Model(&MessageModel{})

	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.From != nil {
		query = query.Where("created_at >= ?", *params.From)
	}
	if params.To != nil {
		query = query.Where("created_at <= ?", *params.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := max(params.Page, 1)
	pageSize := params.PageSize
	if pageSize < 1 {
		pageSize = 50
	}
	pageSize = min(pageSize, 100)

	var models []MessageModel
	err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&models).Error
	if err != nil {
		return nil, 0, err
	}

	messages := make([]domain.Message, 0, len(models))
	for i := range models {
		messages = append(messages, *messageModelToDomain(&models[i]))
	}

	return messages, total, nil
}

func (r *GormMessageRepo) IncrementAttempt(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).
		Model(&MessageModel{}).
		Where("id = ?", id).
		Update("attempt_count", gorm.Expr("attempt_count + 1"))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// MarkSent applies pending -> sent as a guarded update. Zero rows affected
// means the message was not pending anymore.
func (r *GormMessageRepo) MarkSent(ctx context.Context, id string, channelID string, sentAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&MessageModel{}).
		Where("id = ? AND status = ?", id, domain.StatusPending).
		Updates(map[string]any{
			"status":         domain.StatusSent,
			"channel_id":     channelID,
			"sent_at":        sentAt.UTC(),
			"failure_reason": nil,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrInvalidState
	}
	return nil
}

// MarkFailed applies pending -> failed as a guarded update.
func (r *GormMessageRepo) MarkFailed(ctx context.Context, id string, reason string) error {
	result := r.db.WithContext(ctx).
		Model(&MessageModel{}).
		Where("id = ? AND status = ?", id, domain.StatusPending).
		Updates(map[string]any{
			"status":         domain.StatusFailed,
			"failure_reason": reason,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrInvalidState
	}
	return nil
}

// ApplyDelivery persists a sampled confirmation outcome with a compare-and-set
// on status = sent, so concurrent confirmations cannot apply conflicting
// transitions. A delayed outcome keeps the message in sent.
func (r *GormMessageRepo) ApplyDelivery(ctx context.Context, id string, result domain.DeliveryResult, at time.Time) error {
	updates := map[string]any{
		"delivery_status":   result.Outcome,
		"delivery_response": result.Response,
	}

	switch result.Outcome {
	case domain.DeliveryDelivered:
		updates["status"] = domain.StatusDelivered
		updates["delivered_at"] = at.UTC()
	case domain.DeliveryBounced:
		updates["status"] = domain.StatusBounced
		updates["failure_reason"] = result.Reason
	case domain.DeliveryDelayed:
		// status stays sent
	default:
		return domain.ErrValidation
	}

	res := r.db.WithContext(ctx).
		Model(&MessageModel{}).
		Where("id = ? AND status = ?", id, domain.StatusSent).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrInvalidState
	}
	return nil
}
