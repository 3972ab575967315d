package service

import (
	"context"

	"gym-saas-be/internal/pkg/logger"
	"gym-saas-be/pkg/events"
	pktNats "gym-saas-be/pkg/nats"
)

const (
	auditModule  = "AUDIT"
	auditDurable = "subscription-audit"
)

// EventSubscriber is implemented by *nats.Subscriber.
type EventSubscriber interface {
	Subscribe(subject string, durableName string, handler pktNats.EventHandler) error
}

// IAuditService writes every subscription lifecycle event to a dedicated log
// file, independent of the admin record and the webhook audit table.
type IAuditService interface {
	Start() error
	Handle(ctx context.Context, event events.Event) error
}

type auditService struct {
	subscriber EventSubscriber
	auditLog   logger.ILogger
}

func NewAuditService(subscriber EventSubscriber, auditLog logger.ILogger) IAuditService {
	return &auditService{subscriber: subscriber, auditLog: auditLog}
}

func (s *auditService) Start() error {
	if s.subscriber == nil {
		return nil
	}
	if err := s.subscriber.Subscribe(events.SubscriptionSubjects, auditDurable, s.Handle); err != nil {
		return err
	}
	return s.subscriber.Subscribe(events.WebhookSubjects, auditDurable+"-webhook", s.Handle)
}

func (s *auditService) Handle(ctx context.Context, event events.Event) error {
	details := make(map[string]interface{}, len(event.Payload())+2)
	for k, v := range event.Payload() {
		details[k] = v
	}
	details["event"] = event.EventType()
	details["occurred_at"] = event.Timestamp()

	if event.EventType() == events.WebhookIssueFlagged {
		s.auditLog.Warn(auditModule, "Webhook flagged for manual follow-up", details)
		return nil
	}
	s.auditLog.Info(auditModule, "Subscription lifecycle event", details)
	return nil
}
