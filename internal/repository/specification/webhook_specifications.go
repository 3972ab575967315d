package specification

import (
	"gym-saas-be/internal/entity"

	"gorm.io/gorm"
)

// ByGatewayPaymentID filters payments and webhook events by gateway payment id
type ByGatewayPaymentID struct {
	ID string
}

func (s ByGatewayPaymentID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("gateway_payment_id = ?", s.ID)
}

func (s ByGatewayPaymentID) Matches(record interface{}) bool {
	switch r := record.(type) {
	case *entity.Payment:
		return r.GatewayPaymentId == s.ID
	case *entity.WebhookEvent:
		return r.GatewayPaymentId == s.ID
	}
	return false
}

type ByEvent struct {
	Event string
}

func (s ByEvent) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("event = ?", s.Event)
}

func (s ByEvent) Matches(record interface{}) bool {
	r, ok := record.(*entity.WebhookEvent)
	return ok && r.Event == s.Event
}

// IssueFlagged keeps only webhook events that need manual follow-up
type IssueFlagged struct{}

func (s IssueFlagged) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("issue_flag = ?", true)
}

func (s IssueFlagged) Matches(record interface{}) bool {
	r, ok := record.(*entity.WebhookEvent)
	return ok && r.IssueFlag
}

type ProcessedOnly struct{}

func (s ProcessedOnly) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("processed = ?", true)
}

func (s ProcessedOnly) Matches(record interface{}) bool {
	r, ok := record.(*entity.WebhookEvent)
	return ok && r.Processed
}

type UnprocessedOnly struct{}

func (s UnprocessedOnly) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("processed = ?", false)
}

func (s UnprocessedOnly) Matches(record interface{}) bool {
	r, ok := record.(*entity.WebhookEvent)
	return ok && !r.Processed
}
