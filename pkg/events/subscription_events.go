package events

import "time"

const (
	SubscriptionTrialStarted          = "subscription.trial_started"
	SubscriptionActivated             = "subscription.activated"
	SubscriptionGraceEntered          = "subscription.grace_entered"
	SubscriptionExpired               = "subscription.expired"
	SubscriptionCancelled             = "subscription.cancelled"
	SubscriptionCancellationScheduled = "subscription.cancellation_scheduled"
	WebhookIssueFlagged               = "webhook.issue_flagged"
)

// SubscriptionSubjects matches every subscription lifecycle subject.
const SubscriptionSubjects = "events.subscription.>"

// WebhookSubjects matches webhook ingestion issues.
const WebhookSubjects = "events.webhook.>"

func NewSubscriptionEvent(eventType, adminId string, data map[string]interface{}, at time.Time) BaseEvent {
	payload := make(map[string]interface{}, len(data)+1)
	for k, v := range data {
		payload[k] = v
	}
	payload["admin_id"] = adminId
	return BaseEvent{Type: eventType, Data: payload, OccurredAt: at.UTC()}
}
