package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type Admin struct {
	Id           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Email        string    `gorm:"type:varchar(255);uniqueIndex;not null"`
	FullName     string    `gorm:"type:varchar(255);not null"`
	GymName      string    `gorm:"type:varchar(255)"`
	Phone        string    `gorm:"type:varchar(30)"`
	PasswordHash string    `gorm:"type:varchar(255);not null"`

	SubscriptionStatus    string         `gorm:"type:varchar(20);not null;default:'trial';index"`
	TrialEndDate          time.Time      `gorm:"not null"`
	GraceEndDate          *time.Time     `gorm:"index"`
	SubscriptionEndDate   *time.Time     `gorm:"index"`
	GatewaySubscriptionId *string        `gorm:"type:varchar(100);uniqueIndex"`
	GatewayPlanId         string         `gorm:"type:varchar(100)"`
	CancellationScheduled bool           `gorm:"not null;default:false"`
	PaymentHistory        datatypes.JSON `gorm:"type:jsonb;not null;default:'[]'"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (Admin) TableName() string {
	return "admins"
}

// PaymentHistoryRecord is the JSON shape of one element of admins.payment_history.
type PaymentHistoryRecord struct {
	PaymentId string          `json:"payment_id"`
	Amount    decimal.Decimal `json:"amount"`
	Plan      string          `json:"plan"`
	StartDate time.Time       `json:"start_date"`
	EndDate   time.Time       `json:"end_date"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
}
