package implementation

import (
	"context"
	"encoding/json"
	"errors"

	"gym-saas-be/internal/entity"
	"gym-saas-be/internal/mapper"
	"gym-saas-be/internal/model"
	"gym-saas-be/internal/repository/contract"
	"gym-saas-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AdminRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.AdminMapper
}

func NewAdminRepository(db *gorm.DB) contract.AdminRepository {
	return &AdminRepositoryImpl{
		db:     db,
		mapper: mapper.NewAdminMapper(),
	}
}

func (r *AdminRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *AdminRepositoryImpl) Create(ctx context.Context, admin *entity.Admin) error {
	m := r.mapper.ToModel(admin)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*admin = *r.mapper.ToEntity(m)
	return nil
}

func (r *AdminRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Admin, error) {
	var m model.Admin
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *AdminRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Admin, error) {
	var models []*model.Admin
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.Admin, len(models))
	for i, m := range models {
		entities[i] = r.mapper.ToEntity(m)
	}
	return entities, nil
}

func (r *AdminRepositoryImpl) UpdateStatus(ctx context.Context, id uuid.UUID, update contract.StatusUpdate) (bool, error) {
	values := map[string]interface{}{
		"subscription_status": string(update.To),
	}
	if update.GraceEndDate != nil {
		values["grace_end_date"] = *update.GraceEndDate
	}

	query := r.db.WithContext(ctx).
		Model(&model.Admin{}).
		Where("id = ?", id).
		Where("subscription_status IN ?", statusValues(update.From))
	if update.IfSubscriptionEndDate != nil {
		query = query.Where("subscription_end_date = ?", *update.IfSubscriptionEndDate)
	}
	if update.IfGraceEndDate != nil {
		query = query.Where("grace_end_date = ?", *update.IfGraceEndDate)
	}
	if update.IfCancellationScheduled != nil {
		query = query.Where("cancellation_scheduled = ?", *update.IfCancellationScheduled)
	}

	res := query.Updates(values)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *AdminRepositoryImpl) Activate(ctx context.Context, id uuid.UUID, activation contract.Activation) (bool, error) {
	entry, err := r.historyEntryJSON(activation.Entry)
	if err != nil {
		return false, err
	}
	marker, err := json.Marshal([]map[string]string{{
		"payment_id": activation.Entry.PaymentId,
		"status":     string(entity.PaymentHistoryStatusCompleted),
	}})
	if err != nil {
		return false, err
	}

	query := r.db.WithContext(ctx).
		Model(&model.Admin{}).
		Where("id = ?", id).
		Where("subscription_status IN ?", statusValues(activation.From)).
		Where("NOT (payment_history @> ?::jsonb)", string(marker))
	if activation.PreviousEndDate == nil {
		query = query.Where("subscription_end_date IS NULL")
	} else {
		query = query.Where("subscription_end_date = ?", *activation.PreviousEndDate)
	}

	values := map[string]interface{}{
		"subscription_status":    string(entity.SubscriptionStatusActive),
		"subscription_end_date":  activation.SubscriptionEndDate,
		"cancellation_scheduled": false,
		"payment_history":        gorm.Expr("payment_history || ?::jsonb", entry),
	}
	if activation.GatewaySubscriptionId != nil {
		values["gateway_subscription_id"] = *activation.GatewaySubscriptionId
	}

	res := query.Updates(values)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *AdminRepositoryImpl) ScheduleCancellation(ctx context.Context, id uuid.UUID, entry entity.PaymentHistoryEntry) (bool, error) {
	raw, err := r.historyEntryJSON(entry)
	if err != nil {
		return false, err
	}

	res := r.db.WithContext(ctx).
		Model(&model.Admin{}).
		Where("id = ?", id).
		Where("subscription_status = ?", string(entity.SubscriptionStatusActive)).
		Where("cancellation_scheduled = ?", false).
		Updates(map[string]interface{}{
			"cancellation_scheduled": true,
			"payment_history":        gorm.Expr("payment_history || ?::jsonb", raw),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *AdminRepositoryImpl) SetGatewaySubscription(ctx context.Context, id uuid.UUID, gatewaySubscriptionId, planId string) error {
	return r.db.WithContext(ctx).
		Model(&model.Admin{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"gateway_subscription_id": gatewaySubscriptionId,
			"gateway_plan_id":         planId,
		}).Error
}

func (r *AdminRepositoryImpl) historyEntryJSON(entry entity.PaymentHistoryEntry) (string, error) {
	raw, err := json.Marshal([]model.PaymentHistoryRecord{r.mapper.EntryToRecord(entry)})
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func statusValues(statuses []entity.SubscriptionStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
