package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type WebhookEventType string

const (
	WebhookEventTypePayment      WebhookEventType = "payment"
	WebhookEventTypeSubscription WebhookEventType = "subscription"
	WebhookEventTypeRefund       WebhookEventType = "refund"
	WebhookEventTypeOrder        WebhookEventType = "order"
	WebhookEventTypeOther        WebhookEventType = "other"
)

// WebhookEvent is the audit row stored for every verified gateway notification.
type WebhookEvent struct {
	Id                    uuid.UUID
	Event                 string
	EventType             WebhookEventType
	GatewayPaymentId      string
	GatewayOrderId        string
	GatewaySubscriptionId string
	AdminId               *uuid.UUID
	Payload               json.RawMessage
	RawPayload            string
	Processed             bool
	Duplicate             bool
	IssueFlag             bool
	ErrorReason           string
	TestMode              bool
	ReplayOf              *uuid.UUID
	ReceivedAt            time.Time
	ProcessedAt           *time.Time
}
