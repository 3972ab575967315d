package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gym-saas-be/internal/entity"
	"gym-saas-be/internal/pkg/logger"
	"gym-saas-be/internal/repository/contract"
	"gym-saas-be/internal/repository/specification"
	"gym-saas-be/internal/repository/unitofwork"
	"gym-saas-be/pkg/events"
	"gym-saas-be/pkg/subscription"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrAdminNotFound      = errors.New("admin not found")
	ErrInvalidTransition  = errors.New("transition not allowed from current status")
	ErrTransitionConflict = errors.New("admin record kept changing, transition abandoned")
)

// Conditional updates that lose a race are re-read and retried this many times.
const maxCASAttempts = 3

const lifecycleModule = "LIFECYCLE"

// IStatusCache is the gate's short-lived view of tenant state.
type IStatusCache interface {
	Get(adminId uuid.UUID) (*entity.Admin, bool)
	Save(admin *entity.Admin)
	Invalidate(adminId uuid.UUID)
}

type ActivationRequest struct {
	AdminId   uuid.UUID
	PaymentId string
	Amount    decimal.Decimal
	Plan      string
	// GatewaySubscriptionId is linked to the admin on success when set.
	GatewaySubscriptionId string
	// ExternalEndDate is the gateway's view of the new period end. Advisory.
	ExternalEndDate *time.Time
	// Extend marks a recurring charge: an already active tenant gets a new
	// period appended to its current end date instead of a no-op.
	Extend bool
	Now    time.Time
}

type ActivationResult struct {
	Admin   *entity.Admin
	Applied bool
	// Reason explains a no-op: "already_recorded", "already_active" or
	// "already_covered".
	Reason  string
	From    entity.SubscriptionStatus
	Period  subscription.Period
	Renewal bool
}

type TransitionResult struct {
	Admin   *entity.Admin
	From    entity.SubscriptionStatus
	To      entity.SubscriptionStatus
	Applied bool
}

type ILifecycleService interface {
	StartTrial(admin *entity.Admin, now time.Time)
	Activate(ctx context.Context, req ActivationRequest) (*ActivationResult, error)
	EnterGrace(ctx context.Context, adminId uuid.UUID, trigger subscription.Trigger, now time.Time) (*TransitionResult, error)
	Expire(ctx context.Context, adminId uuid.UUID, trigger subscription.Trigger, now time.Time) (*TransitionResult, error)
	Cancel(ctx context.Context, adminId uuid.UUID, now time.Time) (*TransitionResult, error)
	ScheduleCancellation(ctx context.Context, adminId uuid.UUID, now time.Time) (*TransitionResult, error)

	// ApplyDue performs the date-triggered transition that is already due
	// for the admin, if any.
	ApplyDue(ctx context.Context, admin *entity.Admin, now time.Time) (*TransitionResult, error)
	// CurrentState loads the tenant (through the status cache) and applies a
	// due transition first. It backs the access gate.
	CurrentState(ctx context.Context, adminId uuid.UUID, now time.Time) (*entity.Admin, error)
}

type lifecycleService struct {
	uowFactory     unitofwork.RepositoryFactory
	policy         subscription.Policy
	statusCache    IStatusCache
	eventPublisher events.Publisher
	logger         logger.ILogger
}

func NewLifecycleService(
	uowFactory unitofwork.RepositoryFactory,
	policy subscription.Policy,
	statusCache IStatusCache,
	eventPublisher events.Publisher,
	logger logger.ILogger,
) ILifecycleService {
	return &lifecycleService{
		uowFactory:     uowFactory,
		policy:         policy,
		statusCache:    statusCache,
		eventPublisher: eventPublisher,
		logger:         logger,
	}
}

func (s *lifecycleService) StartTrial(admin *entity.Admin, now time.Time) {
	trialEnd := s.policy.TrialEnd(now)
	graceEnd := s.policy.InitialGraceEnd(trialEnd)

	admin.SubscriptionStatus = entity.SubscriptionStatusTrial
	admin.TrialEndDate = trialEnd
	admin.GraceEndDate = &graceEnd
	admin.SubscriptionEndDate = nil
	admin.CancellationScheduled = false
	if admin.PaymentHistory == nil {
		admin.PaymentHistory = []entity.PaymentHistoryEntry{}
	}
}

func (s *lifecycleService) Activate(ctx context.Context, req ActivationRequest) (*ActivationResult, error) {
	if req.PaymentId == "" {
		return nil, fmt.Errorf("activation for admin %s: payment id is required", req.AdminId)
	}
	now := req.Now.UTC()

	for attempt := 0; attempt < maxCASAttempts; attempt++ {
		uow := s.uowFactory.NewUnitOfWork(ctx)
		repo := uow.AdminRepository()

		admin, err := repo.FindOne(ctx, specification.ByID{ID: req.AdminId})
		if err != nil {
			return nil, err
		}
		if admin == nil {
			return nil, ErrAdminNotFound
		}

		result := &ActivationResult{Admin: admin, From: admin.SubscriptionStatus}

		if admin.HasPayment(req.PaymentId) {
			result.Reason = "already_recorded"
			return result, nil
		}

		renewal := admin.SubscriptionStatus == entity.SubscriptionStatusActive
		if renewal && !req.Extend {
			// A late or replayed activation must never move the end date.
			if admin.SubscriptionEndDate != nil {
				s.checkDrift(admin.Id, "subscription_end_date", *admin.SubscriptionEndDate, req.ExternalEndDate)
			}
			result.Reason = "already_active"
			return result, nil
		}

		// A charge whose billing cycle the tenant already has paid time for
		// (a stale or reordered delivery) must not stack another month.
		if renewal && admin.SubscriptionEndDate != nil && req.ExternalEndDate != nil &&
			!admin.SubscriptionEndDate.Before(req.ExternalEndDate.Add(-subscription.DriftThreshold)) {
			result.Reason = "already_covered"
			return result, nil
		}

		if !subscription.Allows(subscription.TriggerPaymentSucceeded, admin.SubscriptionStatus) {
			return result, ErrInvalidTransition
		}

		var period subscription.Period
		if renewal && admin.SubscriptionEndDate != nil {
			period = subscription.ExtensionPeriod(*admin.SubscriptionEndDate)
		} else {
			trialEnd := admin.TrialEndDate
			period = subscription.CalculateSubscriptionDates(admin.SubscriptionStatus, &trialEnd, admin.GraceEndDate, now)
		}
		s.checkDrift(admin.Id, "subscription_end_date", period.EndDate, req.ExternalEndDate)

		activation := contract.Activation{
			From:                []entity.SubscriptionStatus{admin.SubscriptionStatus},
			PreviousEndDate:     admin.SubscriptionEndDate,
			SubscriptionEndDate: period.EndDate,
			Entry: entity.PaymentHistoryEntry{
				PaymentId: req.PaymentId,
				Amount:    req.Amount,
				Plan:      req.Plan,
				StartDate: period.StartDate,
				EndDate:   period.EndDate,
				Status:    entity.PaymentHistoryStatusCompleted,
				CreatedAt: now,
			},
		}
		if req.GatewaySubscriptionId != "" {
			sid := req.GatewaySubscriptionId
			activation.GatewaySubscriptionId = &sid
		}

		ok, err := repo.Activate(ctx, admin.Id, activation)
		if err != nil {
			return nil, err
		}
		if !ok {
			s.logger.Debug(lifecycleModule, "Activation lost a concurrent update, retrying", map[string]interface{}{
				"admin_id": admin.Id.String(), "payment_id": req.PaymentId, "attempt": attempt + 1,
			})
			continue
		}

		updated, err := repo.FindOne(ctx, specification.ByID{ID: admin.Id})
		if err != nil {
			return nil, err
		}

		s.afterTransition(ctx, admin.Id, events.SubscriptionActivated, map[string]interface{}{
			"from":                  string(admin.SubscriptionStatus),
			"payment_id":            req.PaymentId,
			"amount":                req.Amount.StringFixed(2),
			"start_date":            period.StartDate,
			"subscription_end_date": period.EndDate,
			"renewal":               renewal,
		}, now)

		s.logger.Info(lifecycleModule, "Subscription activated", map[string]interface{}{
			"admin_id":   admin.Id.String(),
			"from":       string(admin.SubscriptionStatus),
			"payment_id": req.PaymentId,
			"end_date":   period.EndDate,
			"renewal":    renewal,
		})

		return &ActivationResult{
			Admin:   updated,
			Applied: true,
			From:    admin.SubscriptionStatus,
			Period:  period,
			Renewal: renewal,
		}, nil
	}

	return nil, ErrTransitionConflict
}

func (s *lifecycleService) EnterGrace(ctx context.Context, adminId uuid.UUID, trigger subscription.Trigger, now time.Time) (*TransitionResult, error) {
	graceEnd := s.policy.GraceEnd(now)
	return s.transition(ctx, adminId, trigger, now, func(admin *entity.Admin, update *contract.StatusUpdate) bool {
		update.GraceEndDate = &graceEnd
		return true
	})
}

func (s *lifecycleService) Expire(ctx context.Context, adminId uuid.UUID, trigger subscription.Trigger, now time.Time) (*TransitionResult, error) {
	return s.transition(ctx, adminId, trigger, now, func(admin *entity.Admin, update *contract.StatusUpdate) bool {
		switch admin.SubscriptionStatus {
		case entity.SubscriptionStatusActive:
			update.IfSubscriptionEndDate = admin.SubscriptionEndDate
		case entity.SubscriptionStatusGrace:
			update.IfGraceEndDate = admin.GraceEndDate
		}
		return true
	})
}

// Cancel is the hard transition. subscriptionEndDate is left untouched as the
// access cutoff record.
func (s *lifecycleService) Cancel(ctx context.Context, adminId uuid.UUID, now time.Time) (*TransitionResult, error) {
	return s.transition(ctx, adminId, subscription.TriggerCancelled, now, nil)
}

func (s *lifecycleService) ScheduleCancellation(ctx context.Context, adminId uuid.UUID, now time.Time) (*TransitionResult, error) {
	now = now.UTC()
	uow := s.uowFactory.NewUnitOfWork(ctx)
	repo := uow.AdminRepository()

	admin, err := repo.FindOne(ctx, specification.ByID{ID: adminId})
	if err != nil {
		return nil, err
	}
	if admin == nil {
		return nil, ErrAdminNotFound
	}

	result := &TransitionResult{Admin: admin, From: admin.SubscriptionStatus, To: admin.SubscriptionStatus}
	if admin.SubscriptionStatus != entity.SubscriptionStatusActive {
		return result, ErrInvalidTransition
	}
	if admin.CancellationScheduled {
		return result, nil
	}

	entry := entity.PaymentHistoryEntry{
		PaymentId: fmt.Sprintf("cancel:%s", now.Format(time.RFC3339)),
		Amount:    decimal.Zero,
		Plan:      admin.GatewayPlanId,
		Status:    entity.PaymentHistoryStatusCancellationScheduled,
		CreatedAt: now,
	}
	if admin.SubscriptionEndDate != nil {
		entry.StartDate = now
		entry.EndDate = *admin.SubscriptionEndDate
	}

	ok, err := repo.ScheduleCancellation(ctx, admin.Id, entry)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Someone else scheduled it or the tenant left active meanwhile.
		current, err := repo.FindOne(ctx, specification.ByID{ID: adminId})
		if err != nil {
			return nil, err
		}
		result.Admin = current
		if current != nil && current.CancellationScheduled {
			return result, nil
		}
		return result, ErrInvalidTransition
	}

	updated, err := repo.FindOne(ctx, specification.ByID{ID: adminId})
	if err != nil {
		return nil, err
	}

	s.afterTransition(ctx, adminId, events.SubscriptionCancellationScheduled, map[string]interface{}{
		"subscription_end_date": admin.SubscriptionEndDate,
	}, now)

	result.Admin = updated
	result.Applied = true
	return result, nil
}

// ApplyDue performs the date-triggered transition judged due on admin, which
// may be a snapshot read earlier in a sweep. The update only lands while the
// stored record still carries the boundary that was judged, so a renewal or
// a withdrawn cancellation committed since the snapshot wins.
func (s *lifecycleService) ApplyDue(ctx context.Context, admin *entity.Admin, now time.Time) (*TransitionResult, error) {
	now = now.UTC()
	if !isDue(admin, now) {
		return &TransitionResult{Admin: admin, From: admin.SubscriptionStatus, To: admin.SubscriptionStatus}, nil
	}

	judged := admin.SubscriptionStatus
	switch judged {
	case entity.SubscriptionStatusTrial:
		trialEnd := admin.TrialEndDate
		graceEnd := s.policy.GraceEnd(now)
		return s.transition(ctx, admin.Id, subscription.TriggerTrialEnded, now, func(fresh *entity.Admin, update *contract.StatusUpdate) bool {
			if fresh.SubscriptionStatus != judged || !fresh.TrialEndDate.Equal(trialEnd) {
				return false
			}
			update.GraceEndDate = &graceEnd
			return true
		})

	case entity.SubscriptionStatusGrace:
		graceEnd := *admin.GraceEndDate
		return s.transition(ctx, admin.Id, subscription.TriggerGraceEnded, now, func(fresh *entity.Admin, update *contract.StatusUpdate) bool {
			if fresh.SubscriptionStatus != judged || !sameInstant(fresh.GraceEndDate, graceEnd) {
				return false
			}
			update.IfGraceEndDate = &graceEnd
			return true
		})

	case entity.SubscriptionStatusActive:
		periodEnd := *admin.SubscriptionEndDate
		scheduled := admin.CancellationScheduled
		trigger := subscription.TriggerPeriodEnded
		if scheduled {
			trigger = subscription.TriggerCancelled
		}
		return s.transition(ctx, admin.Id, trigger, now, func(fresh *entity.Admin, update *contract.StatusUpdate) bool {
			if fresh.SubscriptionStatus != judged || !sameInstant(fresh.SubscriptionEndDate, periodEnd) ||
				fresh.CancellationScheduled != scheduled {
				return false
			}
			update.IfSubscriptionEndDate = &periodEnd
			update.IfCancellationScheduled = &scheduled
			return true
		})
	}
	return &TransitionResult{Admin: admin, From: admin.SubscriptionStatus, To: admin.SubscriptionStatus}, nil
}

func sameInstant(stored *time.Time, judged time.Time) bool {
	return stored != nil && stored.Equal(judged)
}

func (s *lifecycleService) CurrentState(ctx context.Context, adminId uuid.UUID, now time.Time) (*entity.Admin, error) {
	if s.statusCache != nil {
		if cached, ok := s.statusCache.Get(adminId); ok && !isDue(cached, now) {
			return cached, nil
		}
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	admin, err := uow.AdminRepository().FindOne(ctx, specification.ByID{ID: adminId})
	if err != nil || admin == nil {
		return admin, err
	}

	if isDue(admin, now) {
		res, err := s.ApplyDue(ctx, admin, now)
		if err != nil {
			return nil, err
		}
		if res.Applied {
			s.logger.Info("GATE", "Self-healed stale subscription state", map[string]interface{}{
				"admin_id": adminId.String(),
				"from":     string(res.From),
				"to":       string(res.To),
			})
		}
		admin = res.Admin
	}

	if s.statusCache != nil && admin != nil {
		s.statusCache.Save(admin)
	}
	return admin, nil
}

func isDue(admin *entity.Admin, now time.Time) bool {
	switch admin.SubscriptionStatus {
	case entity.SubscriptionStatusTrial:
		return now.After(admin.TrialEndDate)
	case entity.SubscriptionStatusGrace:
		return admin.GraceEndDate != nil && now.After(*admin.GraceEndDate)
	case entity.SubscriptionStatusActive:
		return admin.SubscriptionEndDate != nil && now.After(*admin.SubscriptionEndDate)
	}
	return false
}

// transition applies a status-only trigger with compare-and-swap on the
// status that was read. customize may add fields or extra conditions, or
// return false when the fresh record no longer warrants the trigger.
func (s *lifecycleService) transition(
	ctx context.Context,
	adminId uuid.UUID,
	trigger subscription.Trigger,
	now time.Time,
	customize func(admin *entity.Admin, update *contract.StatusUpdate) bool,
) (*TransitionResult, error) {
	now = now.UTC()
	to, ok := subscription.TargetOf(trigger)
	if !ok {
		return nil, fmt.Errorf("unknown trigger %q", trigger)
	}

	for attempt := 0; attempt < maxCASAttempts; attempt++ {
		uow := s.uowFactory.NewUnitOfWork(ctx)
		repo := uow.AdminRepository()

		admin, err := repo.FindOne(ctx, specification.ByID{ID: adminId})
		if err != nil {
			return nil, err
		}
		if admin == nil {
			return nil, ErrAdminNotFound
		}

		result := &TransitionResult{Admin: admin, From: admin.SubscriptionStatus, To: to}
		if admin.SubscriptionStatus == to {
			return result, nil
		}

		update := contract.StatusUpdate{
			From: []entity.SubscriptionStatus{admin.SubscriptionStatus},
			To:   to,
		}
		if customize != nil && !customize(admin, &update) {
			result.To = admin.SubscriptionStatus
			return result, nil
		}
		if !subscription.Allows(trigger, admin.SubscriptionStatus) {
			return result, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, trigger, admin.SubscriptionStatus)
		}

		applied, err := repo.UpdateStatus(ctx, adminId, update)
		if err != nil {
			return nil, err
		}
		if !applied {
			continue
		}

		updated, err := repo.FindOne(ctx, specification.ByID{ID: adminId})
		if err != nil {
			return nil, err
		}

		details := map[string]interface{}{
			"from":    string(admin.SubscriptionStatus),
			"trigger": string(trigger),
		}
		if update.GraceEndDate != nil {
			details["grace_end_date"] = *update.GraceEndDate
		}
		if admin.SubscriptionEndDate != nil {
			details["subscription_end_date"] = *admin.SubscriptionEndDate
		}
		s.afterTransition(ctx, adminId, eventTypeFor(to), details, now)

		s.logger.Info(lifecycleModule, "Subscription status changed", map[string]interface{}{
			"admin_id": adminId.String(),
			"from":     string(admin.SubscriptionStatus),
			"to":       string(to),
			"trigger":  string(trigger),
		})

		result.Admin = updated
		result.Applied = true
		return result, nil
	}

	return nil, ErrTransitionConflict
}

func (s *lifecycleService) afterTransition(ctx context.Context, adminId uuid.UUID, eventType string, data map[string]interface{}, now time.Time) {
	if s.statusCache != nil {
		s.statusCache.Invalidate(adminId)
	}
	if s.eventPublisher == nil {
		return
	}
	ev := events.NewSubscriptionEvent(eventType, adminId.String(), data, now)
	if err := s.eventPublisher.Publish(ctx, ev); err != nil {
		s.logger.Warn(lifecycleModule, "Failed to publish lifecycle event", map[string]interface{}{
			"admin_id": adminId.String(),
			"event":    eventType,
			"error":    err.Error(),
		})
	}
}

// checkDrift logs when the gateway's date disagrees with the local one by
// more than a day. The local date is always kept.
func (s *lifecycleService) checkDrift(adminId uuid.UUID, field string, local time.Time, external *time.Time) {
	if external == nil || external.IsZero() {
		return
	}
	diff, drifted := subscription.CheckDrift(local, *external)
	if !drifted {
		return
	}
	s.logger.Warn(lifecycleModule, "Gateway date drift detected, keeping local value", map[string]interface{}{
		"admin_id": adminId.String(),
		"field":    field,
		"local":    local,
		"external": external.UTC(),
		"drift":    diff.String(),
	})
}

func eventTypeFor(status entity.SubscriptionStatus) string {
	switch status {
	case entity.SubscriptionStatusGrace:
		return events.SubscriptionGraceEntered
	case entity.SubscriptionStatusExpired:
		return events.SubscriptionExpired
	case entity.SubscriptionStatusCancelled:
		return events.SubscriptionCancelled
	case entity.SubscriptionStatusActive:
		return events.SubscriptionActivated
	}
	return "subscription." + string(status)
}
