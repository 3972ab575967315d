package mapper

import (
	"encoding/json"

	"gym-saas-be/internal/entity"
	"gym-saas-be/internal/model"

	"gorm.io/datatypes"
)

type AdminMapper struct{}

func NewAdminMapper() *AdminMapper {
	return &AdminMapper{}
}

func (m *AdminMapper) ToEntity(a *model.Admin) *entity.Admin {
	if a == nil {
		return nil
	}
	return &entity.Admin{
		Id:                    a.Id,
		Email:                 a.Email,
		FullName:              a.FullName,
		GymName:               a.GymName,
		Phone:                 a.Phone,
		PasswordHash:          a.PasswordHash,
		SubscriptionStatus:    entity.SubscriptionStatus(a.SubscriptionStatus),
		TrialEndDate:          a.TrialEndDate,
		GraceEndDate:          a.GraceEndDate,
		SubscriptionEndDate:   a.SubscriptionEndDate,
		GatewaySubscriptionId: a.GatewaySubscriptionId,
		GatewayPlanId:         a.GatewayPlanId,
		CancellationScheduled: a.CancellationScheduled,
		PaymentHistory:        m.HistoryToEntity(a.PaymentHistory),
		CreatedAt:             a.CreatedAt,
		UpdatedAt:             a.UpdatedAt,
	}
}

func (m *AdminMapper) ToModel(a *entity.Admin) *model.Admin {
	if a == nil {
		return nil
	}
	return &model.Admin{
		Id:                    a.Id,
		Email:                 a.Email,
		FullName:              a.FullName,
		GymName:               a.GymName,
		Phone:                 a.Phone,
		PasswordHash:          a.PasswordHash,
		SubscriptionStatus:    string(a.SubscriptionStatus),
		TrialEndDate:          a.TrialEndDate,
		GraceEndDate:          a.GraceEndDate,
		SubscriptionEndDate:   a.SubscriptionEndDate,
		GatewaySubscriptionId: a.GatewaySubscriptionId,
		GatewayPlanId:         a.GatewayPlanId,
		CancellationScheduled: a.CancellationScheduled,
		PaymentHistory:        m.HistoryToModel(a.PaymentHistory),
		CreatedAt:             a.CreatedAt,
		UpdatedAt:             a.UpdatedAt,
	}
}

func (m *AdminMapper) EntryToRecord(e entity.PaymentHistoryEntry) model.PaymentHistoryRecord {
	return model.PaymentHistoryRecord{
		PaymentId: e.PaymentId,
		Amount:    e.Amount,
		Plan:      e.Plan,
		StartDate: e.StartDate,
		EndDate:   e.EndDate,
		Status:    string(e.Status),
		CreatedAt: e.CreatedAt,
	}
}

func (m *AdminMapper) HistoryToModel(entries []entity.PaymentHistoryEntry) datatypes.JSON {
	records := make([]model.PaymentHistoryRecord, 0, len(entries))
	for _, e := range entries {
		records = append(records, m.EntryToRecord(e))
	}
	raw, err := json.Marshal(records)
	if err != nil {
		return datatypes.JSON("[]")
	}
	return datatypes.JSON(raw)
}

func (m *AdminMapper) HistoryToEntity(raw datatypes.JSON) []entity.PaymentHistoryEntry {
	if len(raw) == 0 {
		return []entity.PaymentHistoryEntry{}
	}
	var records []model.PaymentHistoryRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return []entity.PaymentHistoryEntry{}
	}
	entries := make([]entity.PaymentHistoryEntry, len(records))
	for i, r := range records {
		entries[i] = entity.PaymentHistoryEntry{
			PaymentId: r.PaymentId,
			Amount:    r.Amount,
			Plan:      r.Plan,
			StartDate: r.StartDate,
			EndDate:   r.EndDate,
			Status:    entity.PaymentHistoryStatus(r.Status),
			CreatedAt: r.CreatedAt,
		}
	}
	return entries
}
