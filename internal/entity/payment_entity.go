package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

// Payment is one gateway payment attempt. Once completed only a refund may change it.
type Payment struct {
	Id                    uuid.UUID
	AdminId               uuid.UUID
	GatewayPaymentId      string
	GatewayOrderId        string
	GatewaySubscriptionId string
	Amount                decimal.Decimal
	Currency              string
	Method                string
	Status                PaymentStatus
	FailureReason         string
	CreatedAt             time.Time
	UpdatedAt             time.Time
}
