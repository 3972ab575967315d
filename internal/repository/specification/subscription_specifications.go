package specification

import (
	"slices"

	"gym-saas-be/internal/entity"

	"gorm.io/gorm"
)

// ByGatewaySubscriptionID correlates gateway events with local records
type ByGatewaySubscriptionID struct {
	ID string
}

func (s ByGatewaySubscriptionID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("gateway_subscription_id = ?", s.ID)
}

func (s ByGatewaySubscriptionID) Matches(record interface{}) bool {
	switch r := record.(type) {
	case *entity.Admin:
		return r.GatewaySubscriptionId != nil && *r.GatewaySubscriptionId == s.ID
	case *entity.Payment:
		return r.GatewaySubscriptionId == s.ID
	case *entity.WebhookEvent:
		return r.GatewaySubscriptionId == s.ID
	}
	return false
}

// SubscriptionStatusIn filters admins by current subscription status
type SubscriptionStatusIn struct {
	Statuses []entity.SubscriptionStatus
}

func (s SubscriptionStatusIn) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("subscription_status IN ?", statusStrings(s.Statuses))
}

func (s SubscriptionStatusIn) Matches(record interface{}) bool {
	if r, ok := record.(*entity.Admin); ok {
		return slices.Contains(s.Statuses, r.SubscriptionStatus)
	}
	return false
}

func statusStrings(statuses []entity.SubscriptionStatus) []string {
	out := make([]string, len(statuses))
	for i, st := range statuses {
		out[i] = string(st)
	}
	return out
}
