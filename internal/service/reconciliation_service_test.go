package service

import (
	"context"
	"testing"
	"time"

	"gym-saas-be/internal/dto"
	"gym-saas-be/internal/entity"
	"gym-saas-be/internal/pkg/mailer"
	"gym-saas-be/internal/repository/specification"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reconcileInput(hook dto.GatewayWebhook, admin *entity.Admin, now time.Time) ReconcileInput {
	return ReconcileInput{
		Event:   &entity.WebhookEvent{Event: hook.Event},
		Webhook: &hook,
		AdminId: admin.Id,
		Now:     now,
	}
}

func TestReconciliationService_Supports(t *testing.T) {
	r := newFixture(t).reconciler()
	for _, event := range []string{
		"payment.captured", "payment.failed", "payment.refunded", "refund.processed",
		"subscription.activated", "subscription.charged", "subscription.halted",
		"subscription.cancelled", "subscription.pending",
	} {
		assert.True(t, r.Supports(event), event)
	}
	assert.False(t, r.Supports("order.paid"))
}

func TestReconciliationService_PaymentFailed(t *testing.T) {
	ctx := context.Background()
	now := date(2024, time.February, 20)

	tests := []struct {
		name       string
		status     entity.SubscriptionStatus
		wantStatus entity.SubscriptionStatus
		wantKinds  []string
	}{
		{"trial enters grace", entity.SubscriptionStatusTrial, entity.SubscriptionStatusGrace, []string{string(mailer.KindPaymentFailed)}},
		{"active enters grace", entity.SubscriptionStatusActive, entity.SubscriptionStatusGrace, []string{string(mailer.KindPaymentFailed)}},
		{"late failure on expired is ignored", entity.SubscriptionStatusExpired, entity.SubscriptionStatusExpired, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			admin := f.seedAdmin(t, tt.status, nil)

			hook := paymentHook("payment.failed", admin.Id.String(), "pay_f", 19900)
			hook.Payload.Payment.Entity.Status = "failed"
			hook.Payload.Payment.Entity.ErrorDescription = "card declined"

			require.NoError(t, f.reconciler().Reconcile(ctx, reconcileInput(hook, admin, now)))
			assert.Equal(t, tt.wantStatus, f.admin(t, admin.Id).SubscriptionStatus)
			assert.Equal(t, tt.wantKinds, f.dispatcher.kinds())

			payment, err := f.uow.NewUnitOfWork(ctx).PaymentRepository().FindOne(ctx, specification.ByGatewayPaymentID{ID: "pay_f"})
			require.NoError(t, err)
			assert.Equal(t, entity.PaymentStatusFailed, payment.Status)
			assert.Equal(t, "card declined", payment.FailureReason)
		})
	}
}

func TestReconciliationService_RetriedPaymentUpgradesFailedRow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	admin := f.seedAdmin(t, entity.SubscriptionStatusTrial, nil)
	now := date(2024, time.February, 20)

	failed := paymentHook("payment.failed", admin.Id.String(), "pay_1", 19900)
	require.NoError(t, f.reconciler().Reconcile(ctx, reconcileInput(failed, admin, now)))

	captured := paymentHook("payment.captured", admin.Id.String(), "pay_1", 19900)
	require.NoError(t, f.reconciler().Reconcile(ctx, reconcileInput(captured, admin, now.Add(time.Hour))))

	payment, err := f.uow.NewUnitOfWork(ctx).PaymentRepository().FindOne(ctx, specification.ByGatewayPaymentID{ID: "pay_1"})
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentStatusCompleted, payment.Status)
	assert.Equal(t, entity.SubscriptionStatusActive, f.admin(t, admin.Id).SubscriptionStatus)
}

func TestReconciliationService_ChargedTwiceWithoutPaymentEntity(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	admin := f.seedAdmin(t, entity.SubscriptionStatusActive, func(a *entity.Admin) {
		a.SubscriptionEndDate = ptr(date(2024, time.April, 1))
	})
	now := date(2024, time.April, 1)

	// The charge is keyed on the paid count, so a redelivery cannot stack.
	hook := subscriptionHook("subscription.charged", "sub_1", date(2024, time.May, 1), 2)
	require.NoError(t, f.reconciler().Reconcile(ctx, reconcileInput(hook, admin, now)))
	require.NoError(t, f.reconciler().Reconcile(ctx, reconcileInput(hook, admin, now)))

	got := f.admin(t, admin.Id)
	assert.Equal(t, date(2024, time.May, 1), *got.SubscriptionEndDate)
	require.Len(t, got.PaymentHistory, 1)
	assert.Equal(t, "sub_1:charge:2", got.PaymentHistory[0].PaymentId)
	assert.Equal(t, []string{string(mailer.KindSubscriptionRenewed)}, f.dispatcher.kinds())
}

func TestReconciliationService_PendingChangesNothing(t *testing.T) {
	f := newFixture(t)
	admin := f.seedAdmin(t, entity.SubscriptionStatusActive, func(a *entity.Admin) {
		a.SubscriptionEndDate = ptr(date(2024, time.April, 1))
	})

	hook := subscriptionHook("subscription.pending", "sub_1", date(2024, time.April, 1), 1)
	require.NoError(t, f.reconciler().Reconcile(context.Background(), reconcileInput(hook, admin, date(2024, time.April, 1))))

	assert.Equal(t, entity.SubscriptionStatusActive, f.admin(t, admin.Id).SubscriptionStatus)
	assert.Empty(t, f.dispatcher.kinds())
}

func TestMinorToMajor(t *testing.T) {
	assert.Equal(t, "199.00", minorToMajor(19900).StringFixed(2))
	assert.Equal(t, "0.01", minorToMajor(1).StringFixed(2))
	assert.Equal(t, "0.00", minorToMajor(0).StringFixed(2))
}
