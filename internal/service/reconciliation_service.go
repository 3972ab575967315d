package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gym-saas-be/internal/dto"
	"gym-saas-be/internal/entity"
	"gym-saas-be/internal/pkg/logger"
	"gym-saas-be/internal/pkg/mailer"
	"gym-saas-be/internal/repository/specification"
	"gym-saas-be/internal/repository/unitofwork"
	"gym-saas-be/pkg/subscription"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const reconcileModule = "RECONCILE"

var ErrMissingEntity = errors.New("webhook payload is missing the expected entity")

// ReconcileInput is one verified, tenant-resolved gateway event.
type ReconcileInput struct {
	Event   *entity.WebhookEvent
	Webhook *dto.GatewayWebhook
	AdminId uuid.UUID
	Now     time.Time
}

type IReconciliationService interface {
	// Supports reports whether a handler exists for the event name.
	Supports(event string) bool
	Reconcile(ctx context.Context, in ReconcileInput) error
}

type handlerFunc func(ctx context.Context, in ReconcileInput) error

type reconciliationService struct {
	uowFactory unitofwork.RepositoryFactory
	lifecycle  ILifecycleService
	dispatcher INotificationDispatcher
	planName   string
	logger     logger.ILogger
	handlers   map[string]handlerFunc
}

func NewReconciliationService(
	uowFactory unitofwork.RepositoryFactory,
	lifecycle ILifecycleService,
	dispatcher INotificationDispatcher,
	planName string,
	logger logger.ILogger,
) IReconciliationService {
	s := &reconciliationService{
		uowFactory: uowFactory,
		lifecycle:  lifecycle,
		dispatcher: dispatcher,
		planName:   planName,
		logger:     logger,
	}
	s.handlers = map[string]handlerFunc{
		"payment.captured":       s.handlePaymentCaptured,
		"payment.failed":         s.handlePaymentFailed,
		"payment.refunded":       s.handleRefund,
		"refund.processed":       s.handleRefund,
		"subscription.activated": s.handleSubscriptionActivated,
		"subscription.charged":   s.handleSubscriptionCharged,
		"subscription.halted":    s.handleSubscriptionHalted,
		"subscription.cancelled": s.handleSubscriptionCancelled,
		"subscription.pending":   s.handleSubscriptionPending,
	}
	return s
}

func (s *reconciliationService) Supports(event string) bool {
	_, ok := s.handlers[event]
	return ok
}

func (s *reconciliationService) Reconcile(ctx context.Context, in ReconcileInput) error {
	handler, ok := s.handlers[in.Webhook.Event]
	if !ok {
		return fmt.Errorf("no handler for event %q", in.Webhook.Event)
	}
	return handler(ctx, in)
}

func (s *reconciliationService) handlePaymentCaptured(ctx context.Context, in ReconcileInput) error {
	if in.Webhook.Payload.Payment == nil {
		return ErrMissingEntity
	}
	p := in.Webhook.Payload.Payment.Entity
	amount := minorToMajor(p.Amount)

	subId := ""
	if in.Webhook.Payload.Subscription != nil {
		subId = in.Webhook.Payload.Subscription.Entity.Id
	}
	if err := s.recordPayment(ctx, in.AdminId, p, subId, entity.PaymentStatusCompleted, ""); err != nil {
		return err
	}

	res, err := s.lifecycle.Activate(ctx, ActivationRequest{
		AdminId:               in.AdminId,
		PaymentId:             p.Id,
		Amount:                amount,
		Plan:                  s.planName,
		GatewaySubscriptionId: subId,
		Extend:                true,
		Now:                   in.Now,
	})
	if err != nil {
		return err
	}
	s.notifyActivation(ctx, res, amount)
	return nil
}

func (s *reconciliationService) handlePaymentFailed(ctx context.Context, in ReconcileInput) error {
	if in.Webhook.Payload.Payment == nil {
		return ErrMissingEntity
	}
	p := in.Webhook.Payload.Payment.Entity

	subId := ""
	if in.Webhook.Payload.Subscription != nil {
		subId = in.Webhook.Payload.Subscription.Entity.Id
	}
	reason := p.ErrorDescription
	if reason == "" {
		reason = p.ErrorCode
	}
	if err := s.recordPayment(ctx, in.AdminId, p, subId, entity.PaymentStatusFailed, reason); err != nil {
		return err
	}

	res, err := s.lifecycle.EnterGrace(ctx, in.AdminId, subscription.TriggerPaymentFailed, in.Now)
	if err = s.tolerateInvalid(err, in); err != nil {
		return err
	}
	if res != nil && res.Applied {
		s.notify(ctx, res.Admin, mailer.KindPaymentFailed, map[string]interface{}{"date": res.Admin.GraceEndDate})
	}
	return nil
}

func (s *reconciliationService) handleRefund(ctx context.Context, in ReconcileInput) error {
	paymentId := ""
	reason := "refunded"
	switch {
	case in.Webhook.Payload.Refund != nil:
		paymentId = in.Webhook.Payload.Refund.Entity.PaymentId
		reason = fmt.Sprintf("refund %s", in.Webhook.Payload.Refund.Entity.Id)
	case in.Webhook.Payload.Payment != nil:
		paymentId = in.Webhook.Payload.Payment.Entity.Id
	}
	if paymentId == "" {
		return ErrMissingEntity
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	ok, err := uow.PaymentRepository().UpdateStatus(ctx, paymentId,
		[]entity.PaymentStatus{entity.PaymentStatusCompleted}, entity.PaymentStatusRefunded, reason)
	if err != nil {
		return err
	}
	if !ok {
		s.logger.Warn(reconcileModule, "Refund for unknown or non-completed payment", map[string]interface{}{
			"admin_id": in.AdminId.String(), "payment_id": paymentId,
		})
	}
	return nil
}

func (s *reconciliationService) handleSubscriptionActivated(ctx context.Context, in ReconcileInput) error {
	if in.Webhook.Payload.Subscription == nil {
		return ErrMissingEntity
	}
	sub := in.Webhook.Payload.Subscription.Entity

	paymentId := sub.Id + ":activated"
	amount := decimal.Zero
	if in.Webhook.Payload.Payment != nil {
		paymentId = in.Webhook.Payload.Payment.Entity.Id
		amount = minorToMajor(in.Webhook.Payload.Payment.Entity.Amount)
	}

	res, err := s.lifecycle.Activate(ctx, ActivationRequest{
		AdminId:               in.AdminId,
		PaymentId:             paymentId,
		Amount:                amount,
		Plan:                  s.planOf(sub),
		GatewaySubscriptionId: sub.Id,
		ExternalEndDate:       sub.RecurringPeriodEnd(),
		Extend:                false,
		Now:                   in.Now,
	})
	if err != nil {
		return err
	}
	s.notifyActivation(ctx, res, amount)
	return nil
}

func (s *reconciliationService) handleSubscriptionCharged(ctx context.Context, in ReconcileInput) error {
	if in.Webhook.Payload.Subscription == nil {
		return ErrMissingEntity
	}
	sub := in.Webhook.Payload.Subscription.Entity

	paymentId := fmt.Sprintf("%s:charge:%d", sub.Id, sub.PaidCount)
	amount := decimal.Zero
	if in.Webhook.Payload.Payment != nil {
		p := in.Webhook.Payload.Payment.Entity
		paymentId = p.Id
		amount = minorToMajor(p.Amount)
		if err := s.recordPayment(ctx, in.AdminId, p, sub.Id, entity.PaymentStatusCompleted, ""); err != nil {
			return err
		}
	}

	res, err := s.lifecycle.Activate(ctx, ActivationRequest{
		AdminId:               in.AdminId,
		PaymentId:             paymentId,
		Amount:                amount,
		Plan:                  s.planOf(sub),
		GatewaySubscriptionId: sub.Id,
		ExternalEndDate:       sub.RecurringPeriodEnd(),
		Extend:                true,
		Now:                   in.Now,
	})
	if err != nil {
		return err
	}
	s.notifyActivation(ctx, res, amount)
	return nil
}

func (s *reconciliationService) handleSubscriptionHalted(ctx context.Context, in ReconcileInput) error {
	res, err := s.lifecycle.EnterGrace(ctx, in.AdminId, subscription.TriggerHalted, in.Now)
	if err = s.tolerateInvalid(err, in); err != nil {
		return err
	}
	if res != nil && res.Applied {
		s.notify(ctx, res.Admin, mailer.KindPaymentFailed, map[string]interface{}{"date": res.Admin.GraceEndDate})
	}
	return nil
}

func (s *reconciliationService) handleSubscriptionCancelled(ctx context.Context, in ReconcileInput) error {
	res, err := s.lifecycle.Cancel(ctx, in.AdminId, in.Now)
	if err = s.tolerateInvalid(err, in); err != nil {
		return err
	}
	if res != nil && res.Applied {
		s.notify(ctx, res.Admin, mailer.KindSubscriptionCancelled, map[string]interface{}{"date": res.Admin.SubscriptionEndDate})
	}
	return nil
}

// The gateway is still retrying the charge. Nothing changes locally until
// it reports charged or halted.
func (s *reconciliationService) handleSubscriptionPending(ctx context.Context, in ReconcileInput) error {
	s.logger.Info(reconcileModule, "Subscription charge pending at gateway", map[string]interface{}{
		"admin_id":        in.AdminId.String(),
		"subscription_id": in.Event.GatewaySubscriptionId,
	})
	return nil
}

// recordPayment upserts the Payment row. Completed rows are never downgraded.
func (s *reconciliationService) recordPayment(ctx context.Context, adminId uuid.UUID, p dto.PaymentEntity, subId string, status entity.PaymentStatus, reason string) error {
	if p.Id == "" {
		return nil
	}
	uow := s.uowFactory.NewUnitOfWork(ctx)
	repo := uow.PaymentRepository()

	existing, err := repo.FindOne(ctx, specification.ByGatewayPaymentID{ID: p.Id})
	if err != nil {
		return err
	}
	if existing == nil {
		currency := p.Currency
		if currency == "" {
			currency = "INR"
		}
		return repo.Create(ctx, &entity.Payment{
			AdminId:               adminId,
			GatewayPaymentId:      p.Id,
			GatewayOrderId:        p.OrderId,
			GatewaySubscriptionId: subId,
			Amount:                minorToMajor(p.Amount),
			Currency:              currency,
			Method:                p.Method,
			Status:                status,
			FailureReason:         reason,
		})
	}

	if status == entity.PaymentStatusCompleted && existing.Status == entity.PaymentStatusFailed {
		_, err = repo.UpdateStatus(ctx, p.Id, []entity.PaymentStatus{entity.PaymentStatusFailed}, status, "")
		return err
	}
	return nil
}

// tolerateInvalid turns "not applicable to the current status" into a logged
// no-op so that late events for an already moved-on tenant converge.
func (s *reconciliationService) tolerateInvalid(err error, in ReconcileInput) error {
	if err == nil || !errors.Is(err, ErrInvalidTransition) {
		return err
	}
	s.logger.Info(reconcileModule, "Event does not apply to current status, ignored", map[string]interface{}{
		"admin_id": in.AdminId.String(),
		"event":    in.Webhook.Event,
		"reason":   err.Error(),
	})
	return nil
}

func (s *reconciliationService) notifyActivation(ctx context.Context, res *ActivationResult, amount decimal.Decimal) {
	if res == nil || !res.Applied {
		return
	}
	kind := mailer.KindSubscriptionConfirmed
	if res.Renewal {
		kind = mailer.KindSubscriptionRenewed
	}
	s.notify(ctx, res.Admin, kind, map[string]interface{}{
		"date":   res.Period.EndDate,
		"amount": amount.StringFixed(2),
	})
}

// notify never fails the caller.
func (s *reconciliationService) notify(ctx context.Context, admin *entity.Admin, kind mailer.NotificationKind, data map[string]interface{}) {
	if s.dispatcher == nil || admin == nil {
		return
	}
	if err := s.dispatcher.Dispatch(ctx, notificationFor(admin, kind, data)); err != nil {
		s.logger.Warn(reconcileModule, "Notification not queued", map[string]interface{}{
			"admin_id": admin.Id.String(),
			"kind":     string(kind),
			"error":    err.Error(),
		})
	}
}

func (s *reconciliationService) planOf(sub dto.SubscriptionEntity) string {
	if sub.PlanId != "" {
		return sub.PlanId
	}
	return s.planName
}

// minorToMajor converts paise to rupees: 19900 -> 199.00.
func minorToMajor(amount int64) decimal.Decimal {
	return decimal.New(amount, -2)
}
