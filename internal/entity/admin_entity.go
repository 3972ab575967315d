// FILE: internal/entity/admin_entity.go
package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type SubscriptionStatus string
type PaymentHistoryStatus string

const (
	SubscriptionStatusTrial     SubscriptionStatus = "trial"
	SubscriptionStatusGrace     SubscriptionStatus = "grace"
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusExpired   SubscriptionStatus = "expired"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"

	PaymentHistoryStatusCompleted             PaymentHistoryStatus = "completed"
	PaymentHistoryStatusCancellationScheduled PaymentHistoryStatus = "cancellation_scheduled"
)

func (s SubscriptionStatus) IsValid() bool {
	switch s {
	case SubscriptionStatusTrial, SubscriptionStatusGrace, SubscriptionStatusActive,
		SubscriptionStatusExpired, SubscriptionStatusCancelled:
		return true
	}
	return false
}

// Admin is the tenant account (one gym). It owns its payment history.
type Admin struct {
	Id           uuid.UUID
	Email        string
	FullName     string
	GymName      string
	Phone        string
	PasswordHash string

	SubscriptionStatus    SubscriptionStatus
	TrialEndDate          time.Time
	GraceEndDate          *time.Time
	SubscriptionEndDate   *time.Time
	GatewaySubscriptionId *string
	GatewayPlanId         string
	CancellationScheduled bool
	PaymentHistory        []PaymentHistoryEntry

	CreatedAt time.Time
	UpdatedAt time.Time
}

// PaymentHistoryEntry is append-only.
type PaymentHistoryEntry struct {
	PaymentId string               `json:"payment_id"`
	Amount    decimal.Decimal      `json:"amount"`
	Plan      string               `json:"plan"`
	StartDate time.Time            `json:"start_date"`
	EndDate   time.Time            `json:"end_date"`
	Status    PaymentHistoryStatus `json:"status"`
	CreatedAt time.Time            `json:"created_at"`
}

func (a *Admin) HasPayment(paymentId string) bool {
	for _, h := range a.PaymentHistory {
		if h.PaymentId == paymentId && h.Status == PaymentHistoryStatusCompleted {
			return true
		}
	}
	return false
}

// BoundaryDate returns the date that ends the current state, if any.
func (a *Admin) BoundaryDate() *time.Time {
	switch a.SubscriptionStatus {
	case SubscriptionStatusTrial:
		t := a.TrialEndDate
		return &t
	case SubscriptionStatusGrace:
		return a.GraceEndDate
	default:
		return a.SubscriptionEndDate
	}
}
