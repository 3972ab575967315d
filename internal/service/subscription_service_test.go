package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"gym-saas-be/internal/dto"
	"gym-saas-be/internal/entity"
	"gym-saas-be/internal/pkg/mailer"
	"gym-saas-be/pkg/gateway"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testKeySecret = "key_secret_test"

func (f *fixture) subscriptionService(client gateway.Client, now time.Time) ISubscriptionService {
	return NewSubscriptionService(f.uow, f.lifecycle, client, f.dispatcher, SubscriptionSettings{
		KeyID:      "rzp_test_key",
		KeySecret:  testKeySecret,
		PlanID:     "plan_monthly",
		PlanName:   "monthly",
		TotalCount: 12,
	}, func() time.Time { return now }, f.log)
}

func TestSubscriptionService_CreateSubscription(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	admin := f.seedAdmin(t, entity.SubscriptionStatusTrial, nil)
	now := date(2024, time.February, 10)

	client := new(MockGatewayClient)
	client.On("CreateSubscription", mock.Anything, mock.MatchedBy(func(p gateway.CreateSubscriptionParams) bool {
		return p.PlanId == "plan_monthly" &&
			p.TotalCount == 12 &&
			p.Notes["adminId"] == admin.Id.String() &&
			p.StartAt != nil && p.StartAt.Equal(date(2024, time.March, 1))
	})).Return(&gateway.Subscription{Id: "sub_new", Status: "created", ShortURL: "https://rzp.io/i/x"}, nil)

	res, err := f.subscriptionService(client, now).CreateSubscription(ctx, admin.Id, dto.CreateSubscriptionRequest{})
	require.NoError(t, err)
	assert.Equal(t, "sub_new", res.SubscriptionId)
	assert.Equal(t, "rzp_test_key", res.KeyId)
	assert.Equal(t, date(2024, time.March, 1), res.StartDate)
	assert.Equal(t, date(2024, time.April, 1), res.EndDate)

	got := f.admin(t, admin.Id)
	require.NotNil(t, got.GatewaySubscriptionId)
	assert.Equal(t, "sub_new", *got.GatewaySubscriptionId)
	assert.Equal(t, "plan_monthly", got.GatewayPlanId)
	assert.Equal(t, entity.SubscriptionStatusTrial, got.SubscriptionStatus, "creating is not paying")

	client.AssertExpectations(t)
}

func TestSubscriptionService_CreateSubscriptionGatewayFailure(t *testing.T) {
	f := newFixture(t)
	admin := f.seedAdmin(t, entity.SubscriptionStatusExpired, nil)

	client := new(MockGatewayClient)
	client.On("CreateSubscription", mock.Anything, mock.Anything).
		Return(nil, gateway.ErrSubscriptionCreationFailed)

	_, err := f.subscriptionService(client, date(2024, time.June, 1)).CreateSubscription(context.Background(), admin.Id, dto.CreateSubscriptionRequest{})
	assert.ErrorIs(t, err, gateway.ErrSubscriptionCreationFailed)
	assert.Nil(t, f.admin(t, admin.Id).GatewaySubscriptionId)
}

func TestSubscriptionService_VerifySubscription(t *testing.T) {
	ctx := context.Background()
	now := date(2024, time.February, 10)

	newClient := func() *MockGatewayClient {
		client := new(MockGatewayClient)
		client.On("FetchSubscription", mock.Anything, "sub_1").Return(&gateway.Subscription{Id: "sub_1", PlanId: "plan_monthly"}, nil)
		client.On("FetchPlan", mock.Anything, "plan_monthly").Return(&gateway.Plan{Id: "plan_monthly", Amount: 19900}, nil)
		return client
	}
	request := func() dto.VerifySubscriptionRequest {
		return dto.VerifySubscriptionRequest{
			PaymentId:      "pay_1",
			SubscriptionId: "sub_1",
			Signature:      gateway.Sign([]byte("pay_1|sub_1"), testKeySecret),
		}
	}

	t.Run("valid signature activates", func(t *testing.T) {
		f := newFixture(t)
		admin := f.seedAdmin(t, entity.SubscriptionStatusTrial, func(a *entity.Admin) { a.GatewaySubscriptionId = ptr("sub_1") })

		res, err := f.subscriptionService(newClient(), now).VerifySubscription(ctx, admin.Id, request())
		require.NoError(t, err)
		assert.Equal(t, "active", res.Status)
		assert.False(t, res.AlreadyProcessed)
		assert.Equal(t, date(2024, time.April, 1), *res.SubscriptionEndDate)

		got := f.admin(t, admin.Id)
		require.Len(t, got.PaymentHistory, 1)
		assert.Equal(t, "199.00", got.PaymentHistory[0].Amount.StringFixed(2))
		assert.Equal(t, "plan_monthly", got.PaymentHistory[0].Plan)
		assert.Equal(t, []string{string(mailer.KindSubscriptionConfirmed)}, f.dispatcher.kinds())
	})

	t.Run("bad signature changes nothing", func(t *testing.T) {
		f := newFixture(t)
		admin := f.seedAdmin(t, entity.SubscriptionStatusTrial, nil)
		req := request()
		req.Signature = gateway.Sign([]byte("pay_1|sub_1"), "wrong")

		_, err := f.subscriptionService(new(MockGatewayClient), now).VerifySubscription(ctx, admin.Id, req)
		assert.ErrorIs(t, err, ErrInvalidPaymentSignature)
		assert.Equal(t, entity.SubscriptionStatusTrial, f.admin(t, admin.Id).SubscriptionStatus)
	})

	t.Run("another tenant's subscription", func(t *testing.T) {
		f := newFixture(t)
		admin := f.seedAdmin(t, entity.SubscriptionStatusTrial, func(a *entity.Admin) { a.GatewaySubscriptionId = ptr("sub_other") })

		_, err := f.subscriptionService(new(MockGatewayClient), now).VerifySubscription(ctx, admin.Id, request())
		assert.ErrorIs(t, err, ErrSubscriptionMismatch)
	})

	t.Run("webhook already applied the payment", func(t *testing.T) {
		f := newFixture(t)
		admin := f.seedAdmin(t, entity.SubscriptionStatusTrial, func(a *entity.Admin) { a.GatewaySubscriptionId = ptr("sub_1") })

		body, sig := signedBody(t, paymentHook("payment.captured", admin.Id.String(), "pay_1", 19900))
		_, err := f.webhookService(now, nil).Ingest(ctx, body, sig, dto.IngestOptions{})
		require.NoError(t, err)

		res, err := f.subscriptionService(newClient(), now).VerifySubscription(ctx, admin.Id, request())
		require.NoError(t, err)
		assert.True(t, res.AlreadyProcessed)
		assert.Len(t, f.admin(t, admin.Id).PaymentHistory, 1)
		assert.Len(t, f.dispatcher.kinds(), 1)
	})

	t.Run("gateway lookup failure still activates", func(t *testing.T) {
		f := newFixture(t)
		admin := f.seedAdmin(t, entity.SubscriptionStatusTrial, nil)
		client := new(MockGatewayClient)
		client.On("FetchSubscription", mock.Anything, "sub_1").Return(nil, gateway.ErrSubscriptionFetchFailed)

		res, err := f.subscriptionService(client, now).VerifySubscription(ctx, admin.Id, request())
		require.NoError(t, err)
		assert.Equal(t, "active", res.Status)
		assert.True(t, f.admin(t, admin.Id).PaymentHistory[0].Amount.IsZero())
	})
}

func TestSubscriptionService_CancelThenGatewayCancels(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	end := date(2024, time.August, 1)
	admin := f.seedAdmin(t, entity.SubscriptionStatusActive, func(a *entity.Admin) {
		a.SubscriptionEndDate = &end
		a.GatewaySubscriptionId = ptr("sub_1")
	})
	now := date(2024, time.July, 10)

	client := new(MockGatewayClient)
	client.On("CancelSubscription", mock.Anything, "sub_1", true).
		Return(&gateway.Subscription{Id: "sub_1", Status: "active"}, nil).Once()
	svc := f.subscriptionService(client, now)

	res, err := svc.CancelSubscription(ctx, admin.Id)
	require.NoError(t, err)
	assert.Equal(t, "active", res.Status)
	assert.True(t, res.CancellationScheduled)
	assert.Equal(t, end, *res.SubscriptionEndDate)

	// Asking again does not call the gateway a second time.
	_, err = svc.CancelSubscription(ctx, admin.Id)
	require.NoError(t, err)
	client.AssertExpectations(t)

	got := f.admin(t, admin.Id)
	require.Len(t, got.PaymentHistory, 1)
	assert.Equal(t, entity.PaymentHistoryStatusCancellationScheduled, got.PaymentHistory[0].Status)
	assert.Equal(t, end, got.PaymentHistory[0].EndDate)

	body, sig := signedBody(t, subscriptionHook("subscription.cancelled", "sub_1", end, 1))
	_, err = f.webhookService(end, nil).Ingest(ctx, body, sig, dto.IngestOptions{})
	require.NoError(t, err)

	got = f.admin(t, admin.Id)
	assert.Equal(t, entity.SubscriptionStatusCancelled, got.SubscriptionStatus)
	assert.Equal(t, end, *got.SubscriptionEndDate)
}

func TestSubscriptionService_CancelErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("no gateway subscription", func(t *testing.T) {
		f := newFixture(t)
		admin := f.seedAdmin(t, entity.SubscriptionStatusActive, nil)
		_, err := f.subscriptionService(new(MockGatewayClient), time.Now()).CancelSubscription(ctx, admin.Id)
		assert.ErrorIs(t, err, ErrNoGatewaySubscription)
	})

	t.Run("not active", func(t *testing.T) {
		f := newFixture(t)
		admin := f.seedAdmin(t, entity.SubscriptionStatusGrace, func(a *entity.Admin) { a.GatewaySubscriptionId = ptr("sub_1") })
		_, err := f.subscriptionService(new(MockGatewayClient), time.Now()).CancelSubscription(ctx, admin.Id)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("gateway refuses", func(t *testing.T) {
		f := newFixture(t)
		admin := f.seedAdmin(t, entity.SubscriptionStatusActive, func(a *entity.Admin) {
			a.SubscriptionEndDate = ptr(date(2024, time.August, 1))
			a.GatewaySubscriptionId = ptr("sub_1")
		})
		client := new(MockGatewayClient)
		client.On("CancelSubscription", mock.Anything, "sub_1", true).
			Return(nil, errors.Join(gateway.ErrSubscriptionCancelFailed, errors.New("bad request")))

		_, err := f.subscriptionService(client, time.Now()).CancelSubscription(ctx, admin.Id)
		assert.ErrorIs(t, err, gateway.ErrSubscriptionCancelFailed)
		assert.False(t, f.admin(t, admin.Id).CancellationScheduled)
	})

	t.Run("unknown admin", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.subscriptionService(new(MockGatewayClient), time.Now()).CancelSubscription(ctx, uuid.New())
		assert.ErrorIs(t, err, ErrAdminNotFound)
	})
}

func TestSubscriptionService_StatusAndHistory(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	admin := f.seedAdmin(t, entity.SubscriptionStatusTrial, func(a *entity.Admin) {
		a.TrialEndDate = date(2024, time.March, 1)
	})
	svc := f.subscriptionService(new(MockGatewayClient), date(2024, time.March, 3))

	status, err := svc.GetStatus(ctx, admin.Id)
	require.NoError(t, err)
	assert.Equal(t, "grace", status.Status)
	assert.False(t, status.CanWrite)

	history, err := svc.GetPaymentHistory(ctx, admin.Id)
	require.NoError(t, err)
	assert.Empty(t, history)

	_, err = svc.GetStatus(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrAdminNotFound)
}
