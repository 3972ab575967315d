package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gym-saas-be/internal/dto"
	"gym-saas-be/internal/entity"
	"gym-saas-be/internal/pkg/logger"
	"gym-saas-be/internal/repository/contract"
	"gym-saas-be/internal/repository/specification"
	"gym-saas-be/internal/repository/unitofwork"
	"gym-saas-be/internal/tracer"
	"gym-saas-be/pkg/events"
	"gym-saas-be/pkg/gateway"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var (
	ErrWebhookSecretMissing = errors.New("webhook secret is not configured")
	ErrInvalidSignature     = errors.New("invalid webhook signature")
	ErrWebhookEventNotFound = errors.New("webhook event not found")
)

const (
	webhookModule = "WEBHOOK"

	reasonMissingAdmin = "Missing adminId"
	reasonInvalidJSON  = "Invalid JSON payload"

	// Reconciliation has to finish well inside the gateway's response window.
	reconcileTimeout = 8 * time.Second
)

type IWebhookService interface {
	Ingest(ctx context.Context, rawBody []byte, signature string, opts dto.IngestOptions) (*dto.WebhookAck, error)
	Replay(ctx context.Context, eventId uuid.UUID) (*dto.WebhookAck, error)
	ListEvents(ctx context.Context, req dto.ListWebhookEventsRequest) ([]*dto.WebhookEventResponse, error)
}

type webhookService struct {
	uowFactory     unitofwork.RepositoryFactory
	reconciler     IReconciliationService
	processedCache contract.ProcessedEventCache
	eventPublisher events.Publisher
	webhookSecret  string
	clock          func() time.Time
	logger         logger.ILogger
}

func NewWebhookService(
	uowFactory unitofwork.RepositoryFactory,
	reconciler IReconciliationService,
	processedCache contract.ProcessedEventCache,
	eventPublisher events.Publisher,
	webhookSecret string,
	clock func() time.Time,
	logger logger.ILogger,
) IWebhookService {
	if clock == nil {
		clock = time.Now
	}
	return &webhookService{
		uowFactory:     uowFactory,
		reconciler:     reconciler,
		processedCache: processedCache,
		eventPublisher: eventPublisher,
		webhookSecret:  webhookSecret,
		clock:          clock,
		logger:         logger,
	}
}

func (s *webhookService) Ingest(ctx context.Context, rawBody []byte, signature string, opts dto.IngestOptions) (*dto.WebhookAck, error) {
	ctx, span := tracer.Start(ctx, "webhook.ingest")
	defer span.End()

	if strings.TrimSpace(s.webhookSecret) == "" {
		s.logger.Error(webhookModule, "Webhook secret is not configured", nil)
		span.SetStatus(codes.Error, "secret missing")
		return nil, ErrWebhookSecretMissing
	}
	if err := gateway.VerifyWebhookSignature(rawBody, signature, s.webhookSecret); err != nil {
		s.logger.Warn(webhookModule, "Rejected webhook with invalid signature", map[string]interface{}{
			"body_size": len(rawBody),
		})
		span.SetStatus(codes.Error, "invalid signature")
		return nil, ErrInvalidSignature
	}

	return s.process(ctx, rawBody, opts)
}

// Replay re-runs a stored event as a new test-mode row. The original row is
// left as it was.
func (s *webhookService) Replay(ctx context.Context, eventId uuid.UUID) (*dto.WebhookAck, error) {
	ctx, span := tracer.Start(ctx, "webhook.replay")
	defer span.End()

	uow := s.uowFactory.NewUnitOfWork(ctx)
	original, err := uow.WebhookEventRepository().FindOne(ctx, specification.ByID{ID: eventId})
	if err != nil {
		return nil, err
	}
	if original == nil {
		return nil, ErrWebhookEventNotFound
	}

	s.logger.Info(webhookModule, "Replaying webhook event", map[string]interface{}{
		"replay_of": eventId.String(),
		"event":     original.Event,
	})

	return s.process(ctx, []byte(original.RawPayload), dto.IngestOptions{TestMode: true, ReplayOf: &original.Id})
}

func (s *webhookService) process(ctx context.Context, rawBody []byte, opts dto.IngestOptions) (result *dto.WebhookAck, err error) {
	defer func() {
		if err != nil {
			s.logUnprocessed(rawBody, opts, err)
		}
	}()

	now := s.clock().UTC()
	uow := s.uowFactory.NewUnitOfWork(ctx)
	eventRepo := uow.WebhookEventRepository()

	record := &entity.WebhookEvent{
		Id:         uuid.New(),
		RawPayload: string(rawBody),
		TestMode:   opts.TestMode,
		ReplayOf:   opts.ReplayOf,
		ReceivedAt: now,
	}

	var hook dto.GatewayWebhook
	if err := json.Unmarshal(rawBody, &hook); err != nil || hook.Event == "" {
		record.Event = "unknown"
		record.EventType = entity.WebhookEventTypeOther
		record.IssueFlag = true
		record.ErrorReason = reasonInvalidJSON
		if json.Valid(rawBody) {
			record.Payload = json.RawMessage(rawBody)
		}
		if err := eventRepo.Create(ctx, record); err != nil {
			return nil, fmt.Errorf("persist webhook event: %w", err)
		}
		s.flagIssue(ctx, record)
		return ack(record, "payload could not be parsed"), nil
	}

	record.Event = hook.Event
	record.EventType = ClassifyEvent(hook.Event)
	record.Payload = json.RawMessage(rawBody)
	record.GatewayPaymentId, record.GatewayOrderId, record.GatewaySubscriptionId = correlationIds(&hook)

	trace := map[string]interface{}{
		"event_id":        record.Id.String(),
		"event":           record.Event,
		"payment_id":      record.GatewayPaymentId,
		"subscription_id": record.GatewaySubscriptionId,
		"test_mode":       record.TestMode,
	}

	adminId, err := s.resolveAdmin(ctx, uow, &hook, record)
	if err != nil {
		return nil, err
	}
	if adminId == nil {
		record.IssueFlag = true
		record.ErrorReason = reasonMissingAdmin
	} else {
		record.AdminId = adminId
		trace["admin_id"] = adminId.String()
	}

	if !record.IssueFlag && record.GatewayPaymentId != "" {
		duplicate, err := s.alreadyProcessed(ctx, eventRepo, record.GatewayPaymentId, record.Event)
		if err != nil {
			return nil, err
		}
		record.Duplicate = duplicate
	}

	// The audit row exists before any business processing starts.
	if err := eventRepo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("persist webhook event: %w", err)
	}

	switch {
	case record.IssueFlag:
		s.logger.Warn(webhookModule, "Webhook could not be mapped to a tenant", trace)
		s.flagIssue(ctx, record)
		return ack(record, record.ErrorReason), nil
	case record.Duplicate:
		s.logger.Info(webhookModule, "Duplicate webhook skipped", trace)
		return ack(record, "duplicate"), nil
	case !s.reconciler.Supports(record.Event):
		s.logger.Info(webhookModule, "No handler for webhook event, acknowledged", trace)
		return ack(record, "ignored"), nil
	}

	if err := s.reconcile(ctx, record, &hook, now); err != nil {
		trace["error"] = err.Error()
		s.logger.Error(webhookModule, "Reconciliation failed", trace)

		record.IssueFlag = true
		record.ErrorReason = err.Error()
		if uerr := eventRepo.UpdateOutcome(ctx, record.Id, contract.WebhookOutcome{
			AdminId:     record.AdminId,
			IssueFlag:   true,
			ErrorReason: record.ErrorReason,
		}); uerr != nil {
			s.logger.Error(webhookModule, "Failed to flag webhook event", map[string]interface{}{
				"event_id": record.Id.String(),
				"error":    uerr.Error(),
			})
		}
		s.flagIssue(ctx, record)
		return ack(record, "reconciliation failed"), nil
	}

	processedAt := s.clock().UTC()
	record.Processed = true
	record.ProcessedAt = &processedAt
	if err := eventRepo.UpdateOutcome(ctx, record.Id, contract.WebhookOutcome{
		AdminId:     record.AdminId,
		Processed:   true,
		ProcessedAt: &processedAt,
	}); err != nil {
		// State already converged, the gateway still gets its 200.
		s.logger.Error(webhookModule, "Failed to mark webhook event processed", map[string]interface{}{
			"event_id": record.Id.String(),
			"error":    err.Error(),
		})
	}
	if s.processedCache != nil && record.GatewayPaymentId != "" {
		if err := s.processedCache.MarkProcessed(ctx, record.GatewayPaymentId, record.Event); err != nil {
			s.logger.Warn(webhookModule, "Failed to cache processed webhook", map[string]interface{}{
				"event_id": record.Id.String(),
				"error":    err.Error(),
			})
		}
	}

	s.logger.Info(webhookModule, "Webhook processed", trace)
	return ack(record, "processed"), nil
}

// logUnprocessed records a verified event that left no usable audit row. The
// raw body goes to the log since the gateway is acknowledged regardless.
func (s *webhookService) logUnprocessed(rawBody []byte, opts dto.IngestOptions, err error) {
	details := map[string]interface{}{
		"error":     err,
		"test_mode": opts.TestMode,
		"raw_body":  string(rawBody),
	}
	if opts.ReplayOf != nil {
		details["replay_of"] = opts.ReplayOf.String()
	}
	var hook dto.GatewayWebhook
	if json.Unmarshal(rawBody, &hook) == nil {
		paymentId, _, subscriptionId := correlationIds(&hook)
		details["event"] = hook.Event
		details["payment_id"] = paymentId
		details["subscription_id"] = subscriptionId
	}
	s.logger.Error(webhookModule, "Webhook could not be processed", details)
}

// reconcile isolates handler failures, panics included.
func (s *webhookService) reconcile(ctx context.Context, record *entity.WebhookEvent, hook *dto.GatewayWebhook, now time.Time) (err error) {
	ctx, span := tracer.Start(ctx, "webhook.reconcile")
	span.SetAttributes(
		attribute.String("webhook.event", record.Event),
		attribute.String("webhook.admin_id", record.AdminId.String()),
	)
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	ctx, cancel := context.WithTimeout(ctx, reconcileTimeout)
	defer cancel()

	return s.reconciler.Reconcile(ctx, ReconcileInput{
		Event:   record,
		Webhook: hook,
		AdminId: *record.AdminId,
		Now:     now,
	})
}

func (s *webhookService) alreadyProcessed(ctx context.Context, repo contract.WebhookEventRepository, paymentId, event string) (bool, error) {
	if s.processedCache != nil {
		hit, err := s.processedCache.IsProcessed(ctx, paymentId, event)
		if err != nil {
			s.logger.Warn(webhookModule, "Processed cache unavailable, using database", map[string]interface{}{
				"error": err.Error(),
			})
		} else if hit {
			return true, nil
		}
	}
	return repo.ExistsProcessed(ctx, paymentId, event)
}

// resolveAdmin tries the notes of every entity first, then the gateway
// subscription id, then a payment stored earlier by the verify endpoint.
func (s *webhookService) resolveAdmin(ctx context.Context, uow unitofwork.UnitOfWork, hook *dto.GatewayWebhook, record *entity.WebhookEvent) (*uuid.UUID, error) {
	adminRepo := uow.AdminRepository()

	for _, ref := range noteAdminIds(hook) {
		id, err := uuid.Parse(ref)
		if err != nil {
			continue
		}
		admin, err := adminRepo.FindOne(ctx, specification.ByID{ID: id})
		if err != nil {
			return nil, err
		}
		if admin != nil {
			return &admin.Id, nil
		}
	}

	if record.GatewaySubscriptionId != "" {
		admin, err := adminRepo.FindOne(ctx, specification.ByGatewaySubscriptionID{ID: record.GatewaySubscriptionId})
		if err != nil {
			return nil, err
		}
		if admin != nil {
			return &admin.Id, nil
		}
	}

	if record.GatewayPaymentId != "" {
		payment, err := uow.PaymentRepository().FindOne(ctx, specification.ByGatewayPaymentID{ID: record.GatewayPaymentId})
		if err != nil {
			return nil, err
		}
		if payment != nil && payment.AdminId != uuid.Nil {
			return &payment.AdminId, nil
		}
	}

	return nil, nil
}

func (s *webhookService) flagIssue(ctx context.Context, record *entity.WebhookEvent) {
	if s.eventPublisher == nil {
		return
	}
	adminId := ""
	if record.AdminId != nil {
		adminId = record.AdminId.String()
	}
	ev := events.NewSubscriptionEvent(events.WebhookIssueFlagged, adminId, map[string]interface{}{
		"event_id":     record.Id.String(),
		"event":        record.Event,
		"payment_id":   record.GatewayPaymentId,
		"error_reason": record.ErrorReason,
	}, record.ReceivedAt)
	if err := s.eventPublisher.Publish(ctx, ev); err != nil {
		s.logger.Warn(webhookModule, "Failed to publish issue event", map[string]interface{}{
			"event_id": record.Id.String(),
			"error":    err.Error(),
		})
	}
}

func (s *webhookService) ListEvents(ctx context.Context, req dto.ListWebhookEventsRequest) ([]*dto.WebhookEventResponse, error) {
	specs := []specification.Specification{}
	if req.IssueOnly {
		specs = append(specs, specification.IssueFlagged{})
	}
	if req.UnprocessedOnly {
		specs = append(specs, specification.UnprocessedOnly{})
	}
	if req.Event != "" {
		specs = append(specs, specification.ByEvent{Event: req.Event})
	}
	limit := req.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	specs = append(specs,
		specification.OrderBy{Field: "received_at", Desc: true},
		specification.Pagination{Limit: limit, Offset: req.Offset},
	)

	uow := s.uowFactory.NewUnitOfWork(ctx)
	rows, err := uow.WebhookEventRepository().FindAll(ctx, specs...)
	if err != nil {
		return nil, err
	}

	res := make([]*dto.WebhookEventResponse, 0, len(rows))
	for _, e := range rows {
		res = append(res, &dto.WebhookEventResponse{
			Id:                    e.Id,
			Event:                 e.Event,
			EventType:             string(e.EventType),
			GatewayPaymentId:      e.GatewayPaymentId,
			GatewayOrderId:        e.GatewayOrderId,
			GatewaySubscriptionId: e.GatewaySubscriptionId,
			AdminId:               e.AdminId,
			Processed:             e.Processed,
			Duplicate:             e.Duplicate,
			IssueFlag:             e.IssueFlag,
			ErrorReason:           e.ErrorReason,
			TestMode:              e.TestMode,
			ReplayOf:              e.ReplayOf,
			ReceivedAt:            e.ReceivedAt,
			ProcessedAt:           e.ProcessedAt,
		})
	}
	return res, nil
}

// ClassifyEvent maps a gateway event name to its category.
func ClassifyEvent(event string) entity.WebhookEventType {
	prefix, _, _ := strings.Cut(event, ".")
	switch prefix {
	case "payment":
		return entity.WebhookEventTypePayment
	case "subscription":
		return entity.WebhookEventTypeSubscription
	case "refund":
		return entity.WebhookEventTypeRefund
	case "order":
		return entity.WebhookEventTypeOrder
	}
	return entity.WebhookEventTypeOther
}

func correlationIds(hook *dto.GatewayWebhook) (paymentId, orderId, subscriptionId string) {
	p := hook.Payload
	if p.Payment != nil {
		paymentId = p.Payment.Entity.Id
		orderId = p.Payment.Entity.OrderId
	}
	if paymentId == "" && p.Refund != nil {
		paymentId = p.Refund.Entity.PaymentId
	}
	if p.Order != nil && orderId == "" {
		orderId = p.Order.Entity.Id
	}
	if p.Subscription != nil {
		subscriptionId = p.Subscription.Entity.Id
	}
	return paymentId, orderId, subscriptionId
}

func noteAdminIds(hook *dto.GatewayWebhook) []string {
	var refs []string
	p := hook.Payload
	if p.Payment != nil {
		refs = append(refs, p.Payment.Entity.Notes.AdminId())
	}
	if p.Subscription != nil {
		refs = append(refs, p.Subscription.Entity.Notes.AdminId())
	}
	if p.Order != nil {
		refs = append(refs, p.Order.Entity.Notes.AdminId())
	}
	if p.Refund != nil {
		refs = append(refs, p.Refund.Entity.Notes.AdminId())
	}

	out := refs[:0]
	for _, r := range refs {
		if r != "" {
			out = append(out, r)
		}
	}
	return out
}

func ack(record *entity.WebhookEvent, message string) *dto.WebhookAck {
	id := record.Id
	return &dto.WebhookAck{
		Received:  true,
		EventId:   &id,
		Duplicate: record.Duplicate,
		IssueFlag: record.IssueFlag,
		Message:   message,
	}
}
