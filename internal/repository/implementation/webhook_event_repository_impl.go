package implementation

import (
	"context"
	"errors"

	"gym-saas-be/internal/entity"
	"gym-saas-be/internal/mapper"
	"gym-saas-be/internal/model"
	"gym-saas-be/internal/repository/contract"
	"gym-saas-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type WebhookEventRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.BillingMapper
}

func NewWebhookEventRepository(db *gorm.DB) contract.WebhookEventRepository {
	return &WebhookEventRepositoryImpl{
		db:     db,
		mapper: mapper.NewBillingMapper(),
	}
}

func (r *WebhookEventRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *WebhookEventRepositoryImpl) Create(ctx context.Context, event *entity.WebhookEvent) error {
	m := r.mapper.WebhookEventToModel(event)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*event = *r.mapper.WebhookEventToEntity(m)
	return nil
}

func (r *WebhookEventRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.WebhookEvent, error) {
	var m model.WebhookEvent
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.WebhookEventToEntity(&m), nil
}

func (r *WebhookEventRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.WebhookEvent, error) {
	var models []*model.WebhookEvent
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.WebhookEvent, len(models))
	for i, m := range models {
		entities[i] = r.mapper.WebhookEventToEntity(m)
	}
	return entities, nil
}

func (r *WebhookEventRepositoryImpl) ExistsProcessed(ctx context.Context, gatewayPaymentId, event string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.WebhookEvent{}).
		Where("gateway_payment_id = ? AND event = ? AND processed = ?", gatewayPaymentId, event, true).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *WebhookEventRepositoryImpl) UpdateOutcome(ctx context.Context, id uuid.UUID, outcome contract.WebhookOutcome) error {
	values := map[string]interface{}{
		"processed":    outcome.Processed,
		"duplicate":    outcome.Duplicate,
		"issue_flag":   outcome.IssueFlag,
		"error_reason": outcome.ErrorReason,
		"processed_at": outcome.ProcessedAt,
	}
	if outcome.AdminId != nil {
		values["admin_id"] = *outcome.AdminId
	}
	return r.db.WithContext(ctx).
		Model(&model.WebhookEvent{}).
		Where("id = ?", id).
		Updates(values).Error
}
