package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type WebhookEvent struct {
	Id                    uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Event                 string         `gorm:"type:varchar(100);not null;index:idx_webhook_payment_event,priority:2"`
	EventType             string         `gorm:"type:varchar(20);not null"`
	GatewayPaymentId      string         `gorm:"type:varchar(100);index:idx_webhook_payment_event,priority:1"`
	GatewayOrderId        string         `gorm:"type:varchar(100);index"`
	GatewaySubscriptionId string         `gorm:"type:varchar(100);index"`
	AdminId               *uuid.UUID     `gorm:"type:uuid;index"`
	Payload               datatypes.JSON `gorm:"type:jsonb"`
	RawPayload            string         `gorm:"type:text;not null"`
	Processed             bool           `gorm:"not null;default:false"`
	Duplicate             bool           `gorm:"not null;default:false"`
	IssueFlag             bool           `gorm:"not null;default:false;index"`
	ErrorReason           string         `gorm:"type:text"`
	TestMode              bool           `gorm:"not null;default:false"`
	ReplayOf              *uuid.UUID     `gorm:"type:uuid"`
	ReceivedAt            time.Time      `gorm:"not null;index"`
	ProcessedAt           *time.Time
}

func (WebhookEvent) TableName() string {
	return "webhook_events"
}
