package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Payment struct {
	Id                    uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	AdminId               uuid.UUID       `gorm:"type:uuid;not null;index"`
	GatewayPaymentId      string          `gorm:"type:varchar(100);uniqueIndex;not null"`
	GatewayOrderId        string          `gorm:"type:varchar(100)"`
	GatewaySubscriptionId string          `gorm:"type:varchar(100);index"`
	Amount                decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Currency              string          `gorm:"type:varchar(10);not null;default:'INR'"`
	Method                string          `gorm:"type:varchar(50)"`
	Status                string          `gorm:"type:varchar(20);not null"`
	FailureReason         string          `gorm:"type:text"`
	CreatedAt             time.Time       `gorm:"autoCreateTime"`
	UpdatedAt             time.Time       `gorm:"autoUpdateTime"`
}

func (Payment) TableName() string {
	return "payments"
}
