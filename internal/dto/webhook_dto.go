package dto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// GatewayWebhook is the envelope of a Razorpay webhook body.
type GatewayWebhook struct {
	Entity    string         `json:"entity"`
	AccountId string         `json:"account_id"`
	Event     string         `json:"event"`
	Contains  []string       `json:"contains"`
	Payload   WebhookPayload `json:"payload"`
	CreatedAt int64          `json:"created_at"`
}

type WebhookPayload struct {
	Payment      *PaymentWrapper      `json:"payment,omitempty"`
	Subscription *SubscriptionWrapper `json:"subscription,omitempty"`
	Order        *OrderWrapper        `json:"order,omitempty"`
	Refund       *RefundWrapper       `json:"refund,omitempty"`
}

type PaymentWrapper struct {
	Entity PaymentEntity `json:"entity"`
}

type SubscriptionWrapper struct {
	Entity SubscriptionEntity `json:"entity"`
}

type OrderWrapper struct {
	Entity OrderEntity `json:"entity"`
}

type RefundWrapper struct {
	Entity RefundEntity `json:"entity"`
}

type PaymentEntity struct {
	Id               string `json:"id"`
	Amount           int64  `json:"amount"`
	Currency         string `json:"currency"`
	Status           string `json:"status"`
	OrderId          string `json:"order_id"`
	InvoiceId        string `json:"invoice_id"`
	Method           string `json:"method"`
	Email            string `json:"email"`
	Contact          string `json:"contact"`
	Notes            Notes  `json:"notes"`
	ErrorCode        string `json:"error_code"`
	ErrorDescription string `json:"error_description"`
	CreatedAt        int64  `json:"created_at"`
}

type SubscriptionEntity struct {
	Id             string `json:"id"`
	PlanId         string `json:"plan_id"`
	CustomerId     string `json:"customer_id"`
	Status         string `json:"status"`
	CurrentStart   int64  `json:"current_start"`
	CurrentEnd     int64  `json:"current_end"`
	ChargeAt       int64  `json:"charge_at"`
	EndedAt        int64  `json:"ended_at"`
	TotalCount     int    `json:"total_count"`
	PaidCount      int    `json:"paid_count"`
	RemainingCount int    `json:"remaining_count"`
	ShortURL       string `json:"short_url"`
	Notes          Notes  `json:"notes"`
}

type OrderEntity struct {
	Id      string `json:"id"`
	Amount  int64  `json:"amount"`
	Receipt string `json:"receipt"`
	Status  string `json:"status"`
	Notes   Notes  `json:"notes"`
}

type RefundEntity struct {
	Id        string `json:"id"`
	PaymentId string `json:"payment_id"`
	Amount    int64  `json:"amount"`
	Status    string `json:"status"`
	Notes     Notes  `json:"notes"`
}

// Notes is the free-form key/value map the gateway echoes back. The gateway
// sends an empty JSON array when no notes were set and may carry non-string
// values, both are tolerated.
type Notes map[string]string

func (n *Notes) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) || trimmed[0] == '[' {
		*n = Notes{}
		return nil
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return err
	}
	out := make(Notes, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case string:
			out[k] = val
		case nil:
		default:
			out[k] = fmt.Sprint(val)
		}
	}
	*n = out
	return nil
}

// AdminId returns the tenant reference stored in the notes, if any.
func (n Notes) AdminId() string {
	for _, key := range []string{"adminId", "admin_id"} {
		if v := n[key]; v != "" {
			return v
		}
	}
	return ""
}

// RecurringPeriodEnd is the gateway's own idea of the billing boundary.
func (s SubscriptionEntity) RecurringPeriodEnd() *time.Time {
	for _, secs := range []int64{s.CurrentEnd, s.ChargeAt} {
		if secs > 0 {
			t := time.Unix(secs, 0).UTC()
			return &t
		}
	}
	return nil
}

type IngestOptions struct {
	TestMode bool
	ReplayOf *uuid.UUID
}

type WebhookAck struct {
	Received  bool       `json:"received"`
	EventId   *uuid.UUID `json:"event_id,omitempty"`
	Duplicate bool       `json:"duplicate"`
	IssueFlag bool       `json:"issue_flag"`
	Message   string     `json:"message,omitempty"`
}

type ListWebhookEventsRequest struct {
	IssueOnly       bool
	UnprocessedOnly bool
	Event           string
	Limit           int
	Offset          int
}

type WebhookEventResponse struct {
	Id                    uuid.UUID  `json:"id"`
	Event                 string     `json:"event"`
	EventType             string     `json:"event_type"`
	GatewayPaymentId      string     `json:"gateway_payment_id,omitempty"`
	GatewayOrderId        string     `json:"gateway_order_id,omitempty"`
	GatewaySubscriptionId string     `json:"gateway_subscription_id,omitempty"`
	AdminId               *uuid.UUID `json:"admin_id"`
	Processed             bool       `json:"processed"`
	Duplicate             bool       `json:"duplicate"`
	IssueFlag             bool       `json:"issue_flag"`
	ErrorReason           string     `json:"error_reason,omitempty"`
	TestMode              bool       `json:"test_mode"`
	ReplayOf              *uuid.UUID `json:"replay_of,omitempty"`
	ReceivedAt            time.Time  `json:"received_at"`
	ProcessedAt           *time.Time `json:"processed_at"`
}
