package mapper

import (
	"encoding/json"

	"gym-saas-be/internal/entity"
	"gym-saas-be/internal/model"

	"gorm.io/datatypes"
)

type BillingMapper struct{}

func NewBillingMapper() *BillingMapper {
	return &BillingMapper{}
}

func (m *BillingMapper) WebhookEventToEntity(e *model.WebhookEvent) *entity.WebhookEvent {
	if e == nil {
		return nil
	}
	return &entity.WebhookEvent{
		Id:                    e.Id,
		Event:                 e.Event,
		EventType:             entity.WebhookEventType(e.EventType),
		GatewayPaymentId:      e.GatewayPaymentId,
		GatewayOrderId:        e.GatewayOrderId,
		GatewaySubscriptionId: e.GatewaySubscriptionId,
		AdminId:               e.AdminId,
		Payload:               json.RawMessage(e.Payload),
		RawPayload:            e.RawPayload,
		Processed:             e.Processed,
		Duplicate:             e.Duplicate,
		IssueFlag:             e.IssueFlag,
		ErrorReason:           e.ErrorReason,
		TestMode:              e.TestMode,
		ReplayOf:              e.ReplayOf,
		ReceivedAt:            e.ReceivedAt,
		ProcessedAt:           e.ProcessedAt,
	}
}

func (m *BillingMapper) WebhookEventToModel(e *entity.WebhookEvent) *model.WebhookEvent {
	if e == nil {
		return nil
	}
	var payload datatypes.JSON
	if json.Valid(e.Payload) {
		payload = datatypes.JSON(e.Payload)
	}
	return &model.WebhookEvent{
		Id:                    e.Id,
		Event:                 e.Event,
		EventType:             string(e.EventType),
		GatewayPaymentId:      e.GatewayPaymentId,
		GatewayOrderId:        e.GatewayOrderId,
		GatewaySubscriptionId: e.GatewaySubscriptionId,
		AdminId:               e.AdminId,
		Payload:               payload,
		RawPayload:            e.RawPayload,
		Processed:             e.Processed,
		Duplicate:             e.Duplicate,
		IssueFlag:             e.IssueFlag,
		ErrorReason:           e.ErrorReason,
		TestMode:              e.TestMode,
		ReplayOf:              e.ReplayOf,
		ReceivedAt:            e.ReceivedAt,
		ProcessedAt:           e.ProcessedAt,
	}
}

func (m *BillingMapper) PaymentToEntity(p *model.Payment) *entity.Payment {
	if p == nil {
		return nil
	}
	return &entity.Payment{
		Id:                    p.Id,
		AdminId:               p.AdminId,
		GatewayPaymentId:      p.GatewayPaymentId,
		GatewayOrderId:        p.GatewayOrderId,
		GatewaySubscriptionId: p.GatewaySubscriptionId,
		Amount:                p.Amount,
		Currency:              p.Currency,
		Method:                p.Method,
		Status:                entity.PaymentStatus(p.Status),
		FailureReason:         p.FailureReason,
		CreatedAt:             p.CreatedAt,
		UpdatedAt:             p.UpdatedAt,
	}
}

func (m *BillingMapper) PaymentToModel(p *entity.Payment) *model.Payment {
	if p == nil {
		return nil
	}
	return &model.Payment{
		Id:                    p.Id,
		AdminId:               p.AdminId,
		GatewayPaymentId:      p.GatewayPaymentId,
		GatewayOrderId:        p.GatewayOrderId,
		GatewaySubscriptionId: p.GatewaySubscriptionId,
		Amount:                p.Amount,
		Currency:              p.Currency,
		Method:                p.Method,
		Status:                string(p.Status),
		FailureReason:         p.FailureReason,
		CreatedAt:             p.CreatedAt,
		UpdatedAt:             p.UpdatedAt,
	}
}
