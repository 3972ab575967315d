package service

import (
	"context"
	"encoding/json"
	"fmt"

	"gym-saas-be/internal/dto"
	"gym-saas-be/internal/entity"
	"gym-saas-be/internal/pkg/logger"
	"gym-saas-be/internal/pkg/mailer"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

const NotificationTopic = "subscription.notifications"

const notifyModule = "NOTIFY"

// INotificationDispatcher queues a notification so that delivery happens
// outside the webhook response and outside any state transition.
type INotificationDispatcher interface {
	Dispatch(ctx context.Context, req dto.NotificationRequest) error
}

type notificationDispatcher struct {
	publisher message.Publisher
	topic     string
	logger    logger.ILogger
}

func NewNotificationDispatcher(publisher message.Publisher, topic string, logger logger.ILogger) INotificationDispatcher {
	return &notificationDispatcher{publisher: publisher, topic: topic, logger: logger}
}

func (d *notificationDispatcher) Dispatch(ctx context.Context, req dto.NotificationRequest) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("kind", req.Kind)
	if err := d.publisher.Publish(d.topic, msg); err != nil {
		d.logger.Warn(notifyModule, "Failed to queue notification", map[string]interface{}{
			"admin_id": req.AdminId.String(),
			"kind":     req.Kind,
			"error":    err.Error(),
		})
		return err
	}
	return nil
}

// notificationFor builds a request addressed to the tenant owner.
func notificationFor(admin *entity.Admin, kind mailer.NotificationKind, data map[string]interface{}) dto.NotificationRequest {
	if data == nil {
		data = map[string]interface{}{}
	}
	data["name"] = admin.FullName
	return dto.NotificationRequest{
		AdminId: admin.Id,
		To:      admin.Email,
		Name:    admin.FullName,
		Kind:    string(kind),
		Data:    data,
	}
}

type INotificationConsumer interface {
	Consume(ctx context.Context) error
}

type notificationConsumer struct {
	subscriber message.Subscriber
	topic      string
	notifier   mailer.INotifier
	logger     logger.ILogger
}

func NewNotificationConsumer(subscriber message.Subscriber, topic string, notifier mailer.INotifier, logger logger.ILogger) INotificationConsumer {
	return &notificationConsumer{
		subscriber: subscriber,
		topic:      topic,
		notifier:   notifier,
		logger:     logger,
	}
}

func (c *notificationConsumer) Consume(ctx context.Context) error {
	messages, err := c.subscriber.Subscribe(ctx, c.topic)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			c.processMessage(ctx, msg)
		}
	}()

	return nil
}

// Every message is acked. A failed delivery is logged and dropped, it never
// comes back to the caller that queued it.
func (c *notificationConsumer) processMessage(ctx context.Context, msg *message.Message) {
	defer msg.Ack()

	var req dto.NotificationRequest
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		c.logger.Error(notifyModule, "Invalid notification message", map[string]interface{}{
			"message_id": msg.UUID,
			"error":      err.Error(),
		})
		return
	}

	data := req.Data
	if data == nil {
		data = map[string]interface{}{}
	}
	if _, ok := data["name"]; !ok {
		data["name"] = req.Name
	}

	res := c.notifier.Notify(ctx, req.To, mailer.NotificationKind(req.Kind), data)
	if !res.Success {
		c.logger.Warn(notifyModule, "Notification delivery failed", map[string]interface{}{
			"admin_id": req.AdminId.String(),
			"kind":     req.Kind,
			"error":    res.Error,
		})
		return
	}

	c.logger.Info(notifyModule, "Notification delivered", map[string]interface{}{
		"admin_id": req.AdminId.String(),
		"kind":     req.Kind,
	})
}
