package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CreateSubscriptionRequest struct {
	PlanId string `json:"plan_id"`
}

type CreateSubscriptionResponse struct {
	SubscriptionId string    `json:"subscription_id"`
	PlanId         string    `json:"plan_id"`
	Status         string    `json:"status"`
	ShortURL       string    `json:"short_url,omitempty"`
	KeyId          string    `json:"key_id"`
	StartDate      time.Time `json:"start_date"`
	EndDate        time.Time `json:"end_date"`
}

type VerifySubscriptionRequest struct {
	PaymentId      string `json:"razorpay_payment_id" validate:"required"`
	SubscriptionId string `json:"razorpay_subscription_id" validate:"required"`
	Signature      string `json:"razorpay_signature" validate:"required"`
}

type VerifySubscriptionResponse struct {
	Status              string     `json:"status"`
	PaymentId           string     `json:"payment_id"`
	SubscriptionEndDate *time.Time `json:"subscription_end_date"`
	AlreadyProcessed    bool       `json:"already_processed"`
}

type CancelSubscriptionResponse struct {
	Status                string     `json:"status"`
	CancellationScheduled bool       `json:"cancellation_scheduled"`
	SubscriptionEndDate   *time.Time `json:"subscription_end_date"`
}

type PaymentHistoryItem struct {
	PaymentId string          `json:"payment_id"`
	Amount    decimal.Decimal `json:"amount"`
	Plan      string          `json:"plan"`
	StartDate time.Time       `json:"start_date"`
	EndDate   time.Time       `json:"end_date"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
}

type SubscriptionStatusResponse struct {
	AdminId               uuid.UUID  `json:"admin_id"`
	Status                string     `json:"status"`
	TrialEndDate          time.Time  `json:"trial_end_date"`
	GraceEndDate          *time.Time `json:"grace_end_date"`
	SubscriptionEndDate   *time.Time `json:"subscription_end_date"`
	CancellationScheduled bool       `json:"cancellation_scheduled"`
	CanWrite              bool       `json:"can_write"`
}

// NotificationRequest is queued on the in-process bus and delivered later.
type NotificationRequest struct {
	AdminId uuid.UUID              `json:"admin_id"`
	To      string                 `json:"to"`
	Name    string                 `json:"name"`
	Kind    string                 `json:"kind"`
	Data    map[string]interface{} `json:"data"`
}
