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
	"gym-saas-be/internal/pkg/serverutils"
	"gym-saas-be/internal/repository/specification"
	"gym-saas-be/internal/repository/unitofwork"
	"gym-saas-be/pkg/gateway"
	"gym-saas-be/pkg/subscription"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrNoGatewaySubscription   = errors.New("admin has no gateway subscription")
	ErrInvalidPaymentSignature = errors.New("invalid payment signature")
	ErrSubscriptionMismatch    = errors.New("subscription does not belong to this admin")
	ErrPlanNotConfigured       = errors.New("no subscription plan configured")
)

const subscriptionModule = "SUBSCRIPTION"

type SubscriptionSettings struct {
	KeyID      string
	KeySecret  string
	PlanID     string
	PlanName   string
	TotalCount int
}

type ISubscriptionService interface {
	CreateSubscription(ctx context.Context, adminId uuid.UUID, req dto.CreateSubscriptionRequest) (*dto.CreateSubscriptionResponse, error)
	VerifySubscription(ctx context.Context, adminId uuid.UUID, req dto.VerifySubscriptionRequest) (*dto.VerifySubscriptionResponse, error)
	CancelSubscription(ctx context.Context, adminId uuid.UUID) (*dto.CancelSubscriptionResponse, error)
	GetPaymentHistory(ctx context.Context, adminId uuid.UUID) ([]*dto.PaymentHistoryItem, error)
	GetStatus(ctx context.Context, adminId uuid.UUID) (*dto.SubscriptionStatusResponse, error)
}

type subscriptionService struct {
	uowFactory unitofwork.RepositoryFactory
	lifecycle  ILifecycleService
	gateway    gateway.Client
	dispatcher INotificationDispatcher
	settings   SubscriptionSettings
	clock      func() time.Time
	logger     logger.ILogger
}

func NewSubscriptionService(
	uowFactory unitofwork.RepositoryFactory,
	lifecycle ILifecycleService,
	gatewayClient gateway.Client,
	dispatcher INotificationDispatcher,
	settings SubscriptionSettings,
	clock func() time.Time,
	logger logger.ILogger,
) ISubscriptionService {
	if clock == nil {
		clock = time.Now
	}
	return &subscriptionService{
		uowFactory: uowFactory,
		lifecycle:  lifecycle,
		gateway:    gatewayClient,
		dispatcher: dispatcher,
		settings:   settings,
		clock:      clock,
		logger:     logger,
	}
}

func (s *subscriptionService) findAdmin(ctx context.Context, adminId uuid.UUID) (*entity.Admin, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	admin, err := uow.AdminRepository().FindOne(ctx, specification.ByID{ID: adminId})
	if err != nil {
		return nil, err
	}
	if admin == nil {
		return nil, ErrAdminNotFound
	}
	return admin, nil
}

func (s *subscriptionService) CreateSubscription(ctx context.Context, adminId uuid.UUID, req dto.CreateSubscriptionRequest) (*dto.CreateSubscriptionResponse, error) {
	now := s.clock().UTC()
	admin, err := s.findAdmin(ctx, adminId)
	if err != nil {
		return nil, err
	}

	planId := req.PlanId
	if planId == "" {
		planId = s.settings.PlanID
	}
	if planId == "" {
		return nil, ErrPlanNotConfigured
	}

	trialEnd := admin.TrialEndDate
	period := subscription.CalculateSubscriptionDates(admin.SubscriptionStatus, &trialEnd, admin.GraceEndDate, now)

	params := gateway.CreateSubscriptionParams{
		PlanId:         planId,
		TotalCount:     s.settings.TotalCount,
		CustomerNotify: true,
		Notes: map[string]string{
			"adminId":  admin.Id.String(),
			"gym_name": admin.GymName,
		},
	}
	// A tenant still in trial is billed from the day the trial ends.
	if admin.SubscriptionStatus == entity.SubscriptionStatusTrial && period.StartDate.After(now) {
		start := period.StartDate
		params.StartAt = &start
	}

	sub, err := s.gateway.CreateSubscription(ctx, params)
	if err != nil {
		s.logger.Error(subscriptionModule, "Gateway subscription creation failed", map[string]interface{}{
			"admin_id": admin.Id.String(),
			"plan_id":  planId,
			"error":    err.Error(),
		})
		return nil, err
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.AdminRepository().SetGatewaySubscription(ctx, admin.Id, sub.Id, planId); err != nil {
		return nil, fmt.Errorf("link gateway subscription: %w", err)
	}

	s.logger.Info(subscriptionModule, "Gateway subscription created", map[string]interface{}{
		"admin_id":        admin.Id.String(),
		"subscription_id": sub.Id,
		"plan_id":         planId,
	})

	return &dto.CreateSubscriptionResponse{
		SubscriptionId: sub.Id,
		PlanId:         planId,
		Status:         sub.Status,
		ShortURL:       sub.ShortURL,
		KeyId:          s.settings.KeyID,
		StartDate:      period.StartDate,
		EndDate:        period.EndDate,
	}, nil
}

// VerifySubscription handles the checkout callback. The webhook for the same
// payment may arrive before or after it; whichever comes second is a no-op.
func (s *subscriptionService) VerifySubscription(ctx context.Context, adminId uuid.UUID, req dto.VerifySubscriptionRequest) (*dto.VerifySubscriptionResponse, error) {
	now := s.clock().UTC()

	if err := gateway.VerifyPaymentSignature(req.PaymentId, req.SubscriptionId, req.Signature, s.settings.KeySecret); err != nil {
		s.logger.Warn(subscriptionModule, "Payment signature rejected", map[string]interface{}{
			"admin_id":   adminId.String(),
			"payment_id": req.PaymentId,
		})
		return nil, ErrInvalidPaymentSignature
	}

	admin, err := s.findAdmin(ctx, adminId)
	if err != nil {
		return nil, err
	}
	if admin.GatewaySubscriptionId != nil && *admin.GatewaySubscriptionId != req.SubscriptionId {
		return nil, ErrSubscriptionMismatch
	}

	amount, plan := s.planAmount(ctx, req.SubscriptionId, admin.GatewayPlanId)

	uow := s.uowFactory.NewUnitOfWork(ctx)
	paymentRepo := uow.PaymentRepository()
	existing, err := paymentRepo.FindOne(ctx, specification.ByGatewayPaymentID{ID: req.PaymentId})
	if err != nil {
		return nil, err
	}
	if existing == nil {
		if err := paymentRepo.Create(ctx, &entity.Payment{
			AdminId:               admin.Id,
			GatewayPaymentId:      req.PaymentId,
			GatewaySubscriptionId: req.SubscriptionId,
			Amount:                amount,
			Currency:              "INR",
			Status:                entity.PaymentStatusCompleted,
		}); err != nil {
			return nil, fmt.Errorf("record payment: %w", err)
		}
	}

	res, err := s.lifecycle.Activate(ctx, ActivationRequest{
		AdminId:               admin.Id,
		PaymentId:             req.PaymentId,
		Amount:                amount,
		Plan:                  plan,
		GatewaySubscriptionId: req.SubscriptionId,
		Now:                   now,
	})
	if err != nil {
		return nil, err
	}

	if res.Applied {
		kind := mailer.KindSubscriptionConfirmed
		if res.Renewal {
			kind = mailer.KindSubscriptionRenewed
		}
		s.notify(ctx, res.Admin, kind, map[string]interface{}{
			"date":   res.Period.EndDate,
			"amount": amount.StringFixed(2),
		})
	}

	return &dto.VerifySubscriptionResponse{
		Status:              string(res.Admin.SubscriptionStatus),
		PaymentId:           req.PaymentId,
		SubscriptionEndDate: res.Admin.SubscriptionEndDate,
		AlreadyProcessed:    !res.Applied,
	}, nil
}

// planAmount resolves the charged amount from the gateway plan. A gateway
// failure is not fatal: the payment is recorded with a zero amount.
func (s *subscriptionService) planAmount(ctx context.Context, subscriptionId, fallbackPlan string) (decimal.Decimal, string) {
	plan := fallbackPlan
	if plan == "" {
		plan = s.settings.PlanName
	}

	sub, err := s.gateway.FetchSubscription(ctx, subscriptionId)
	if err != nil {
		s.logger.Warn(subscriptionModule, "Could not fetch gateway subscription", map[string]interface{}{
			"subscription_id": subscriptionId,
			"error":           err.Error(),
		})
		return decimal.Zero, plan
	}
	if sub.PlanId == "" {
		return decimal.Zero, plan
	}

	p, err := s.gateway.FetchPlan(ctx, sub.PlanId)
	if err != nil {
		s.logger.Warn(subscriptionModule, "Could not fetch gateway plan", map[string]interface{}{
			"plan_id": sub.PlanId,
			"error":   err.Error(),
		})
		return decimal.Zero, sub.PlanId
	}
	return minorToMajor(p.Amount), sub.PlanId
}

func (s *subscriptionService) CancelSubscription(ctx context.Context, adminId uuid.UUID) (*dto.CancelSubscriptionResponse, error) {
	now := s.clock().UTC()
	admin, err := s.findAdmin(ctx, adminId)
	if err != nil {
		return nil, err
	}
	if admin.GatewaySubscriptionId == nil || *admin.GatewaySubscriptionId == "" {
		return nil, ErrNoGatewaySubscription
	}
	if admin.SubscriptionStatus != entity.SubscriptionStatusActive {
		return nil, ErrInvalidTransition
	}

	if !admin.CancellationScheduled {
		if _, err := s.gateway.CancelSubscription(ctx, *admin.GatewaySubscriptionId, true); err != nil {
			s.logger.Error(subscriptionModule, "Gateway cancellation failed", map[string]interface{}{
				"admin_id":        admin.Id.String(),
				"subscription_id": *admin.GatewaySubscriptionId,
				"error":           err.Error(),
			})
			return nil, err
		}
	}

	res, err := s.lifecycle.ScheduleCancellation(ctx, admin.Id, now)
	if err != nil {
		return nil, err
	}
	if res.Applied {
		s.notify(ctx, res.Admin, mailer.KindSubscriptionCancelled, map[string]interface{}{
			"date": res.Admin.SubscriptionEndDate,
		})
	}

	return &dto.CancelSubscriptionResponse{
		Status:                string(res.Admin.SubscriptionStatus),
		CancellationScheduled: res.Admin.CancellationScheduled,
		SubscriptionEndDate:   res.Admin.SubscriptionEndDate,
	}, nil
}

func (s *subscriptionService) GetPaymentHistory(ctx context.Context, adminId uuid.UUID) ([]*dto.PaymentHistoryItem, error) {
	admin, err := s.findAdmin(ctx, adminId)
	if err != nil {
		return nil, err
	}

	res := make([]*dto.PaymentHistoryItem, 0, len(admin.PaymentHistory))
	for _, h := range admin.PaymentHistory {
		res = append(res, &dto.PaymentHistoryItem{
			PaymentId: h.PaymentId,
			Amount:    h.Amount,
			Plan:      h.Plan,
			StartDate: h.StartDate,
			EndDate:   h.EndDate,
			Status:    string(h.Status),
			CreatedAt: h.CreatedAt,
		})
	}
	return res, nil
}

func (s *subscriptionService) GetStatus(ctx context.Context, adminId uuid.UUID) (*dto.SubscriptionStatusResponse, error) {
	admin, err := s.lifecycle.CurrentState(ctx, adminId, s.clock())
	if err != nil {
		return nil, err
	}
	if admin == nil {
		return nil, ErrAdminNotFound
	}
	return statusResponse(admin), nil
}

func statusResponse(admin *entity.Admin) *dto.SubscriptionStatusResponse {
	return &dto.SubscriptionStatusResponse{
		AdminId:               admin.Id,
		Status:                string(admin.SubscriptionStatus),
		TrialEndDate:          admin.TrialEndDate,
		GraceEndDate:          admin.GraceEndDate,
		SubscriptionEndDate:   admin.SubscriptionEndDate,
		CancellationScheduled: admin.CancellationScheduled,
		CanWrite:              serverutils.AllowsWrites(admin.SubscriptionStatus),
	}
}

func (s *subscriptionService) notify(ctx context.Context, admin *entity.Admin, kind mailer.NotificationKind, data map[string]interface{}) {
	if s.dispatcher == nil || admin == nil {
		return
	}
	if err := s.dispatcher.Dispatch(ctx, notificationFor(admin, kind, data)); err != nil {
		s.logger.Warn(subscriptionModule, "Notification not queued", map[string]interface{}{
			"admin_id": admin.Id.String(),
			"kind":     string(kind),
			"error":    err.Error(),
		})
	}
}
