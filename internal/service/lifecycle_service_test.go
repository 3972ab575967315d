package service

import (
	"context"
	"testing"
	"time"

	"gym-saas-be/internal/entity"
	"gym-saas-be/internal/repository/contract"
	"gym-saas-be/internal/repository/unitofwork"
	"gym-saas-be/pkg/events"
	"gym-saas-be/pkg/subscription"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLifecycleService_StartTrial(t *testing.T) {
	f := newFixture(t)
	now := time.Date(2024, time.January, 10, 10, 30, 0, 0, time.UTC)

	admin := &entity.Admin{}
	f.lifecycle.StartTrial(admin, now)

	assert.Equal(t, entity.SubscriptionStatusTrial, admin.SubscriptionStatus)
	assert.Equal(t, now.AddDate(0, 0, 30), admin.TrialEndDate)
	require.NotNil(t, admin.GraceEndDate)
	assert.Equal(t, admin.TrialEndDate.AddDate(0, 0, 3), *admin.GraceEndDate)
	assert.Nil(t, admin.SubscriptionEndDate)
	assert.NotNil(t, admin.PaymentHistory)
}

func TestLifecycleService_Activate(t *testing.T) {
	ctx := context.Background()
	amount := decimal.RequireFromString("199.00")

	t.Run("trial payment starts the period at trial end", func(t *testing.T) {
		f := newFixture(t)
		admin := f.seedAdmin(t, entity.SubscriptionStatusTrial, nil)

		res, err := f.lifecycle.Activate(ctx, ActivationRequest{
			AdminId:   admin.Id,
			PaymentId: "pay_1",
			Amount:    amount,
			Plan:      "monthly",
			Now:       date(2024, time.February, 10),
		})
		require.NoError(t, err)
		assert.True(t, res.Applied)
		assert.False(t, res.Renewal)
		assert.Equal(t, date(2024, time.March, 1), res.Period.StartDate)
		assert.Equal(t, date(2024, time.April, 1), res.Period.EndDate)

		got := f.admin(t, admin.Id)
		assert.Equal(t, entity.SubscriptionStatusActive, got.SubscriptionStatus)
		assert.Equal(t, date(2024, time.April, 1), *got.SubscriptionEndDate)
		require.Len(t, got.PaymentHistory, 1)
		assert.Equal(t, "pay_1", got.PaymentHistory[0].PaymentId)
		assert.True(t, amount.Equal(got.PaymentHistory[0].Amount))
		assert.Equal(t, entity.PaymentHistoryStatusCompleted, got.PaymentHistory[0].Status)
		assert.Equal(t, []string{events.SubscriptionActivated}, f.publisher.types())
	})

	t.Run("same payment twice appends once", func(t *testing.T) {
		f := newFixture(t)
		admin := f.seedAdmin(t, entity.SubscriptionStatusTrial, nil)
		req := ActivationRequest{AdminId: admin.Id, PaymentId: "pay_1", Amount: amount, Now: date(2024, time.February, 10)}

		_, err := f.lifecycle.Activate(ctx, req)
		require.NoError(t, err)
		res, err := f.lifecycle.Activate(ctx, req)
		require.NoError(t, err)

		assert.False(t, res.Applied)
		assert.Equal(t, "already_recorded", res.Reason)
		assert.Len(t, f.admin(t, admin.Id).PaymentHistory, 1)
	})

	t.Run("late activation never moves an active end date", func(t *testing.T) {
		f := newFixture(t)
		end := date(2024, time.May, 1)
		admin := f.seedAdmin(t, entity.SubscriptionStatusActive, func(a *entity.Admin) {
			a.SubscriptionEndDate = &end
		})

		res, err := f.lifecycle.Activate(ctx, ActivationRequest{
			AdminId:         admin.Id,
			PaymentId:       "sub_1:activated",
			ExternalEndDate: ptr(date(2024, time.April, 1)),
			Now:             date(2024, time.April, 20),
		})
		require.NoError(t, err)
		assert.False(t, res.Applied)
		assert.Equal(t, "already_active", res.Reason)
		assert.Equal(t, end, *f.admin(t, admin.Id).SubscriptionEndDate)
	})

	t.Run("recurring charge extends from the previous end", func(t *testing.T) {
		f := newFixture(t)
		end := date(2024, time.January, 31)
		admin := f.seedAdmin(t, entity.SubscriptionStatusActive, func(a *entity.Admin) {
			a.SubscriptionEndDate = &end
		})

		res, err := f.lifecycle.Activate(ctx, ActivationRequest{
			AdminId:   admin.Id,
			PaymentId: "pay_2",
			Amount:    amount,
			Extend:    true,
			Now:       date(2024, time.January, 30),
		})
		require.NoError(t, err)
		assert.True(t, res.Applied)
		assert.True(t, res.Renewal)
		assert.Equal(t, date(2024, time.February, 29), *f.admin(t, admin.Id).SubscriptionEndDate)
	})

	t.Run("charge for an already covered cycle is ignored", func(t *testing.T) {
		f := newFixture(t)
		end := date(2024, time.May, 1)
		admin := f.seedAdmin(t, entity.SubscriptionStatusActive, func(a *entity.Admin) {
			a.SubscriptionEndDate = &end
		})

		res, err := f.lifecycle.Activate(ctx, ActivationRequest{
			AdminId:         admin.Id,
			PaymentId:       "pay_old",
			Extend:          true,
			ExternalEndDate: ptr(date(2024, time.April, 1)),
			Now:             date(2024, time.April, 2),
		})
		require.NoError(t, err)
		assert.False(t, res.Applied)
		assert.Equal(t, "already_covered", res.Reason)
		assert.Equal(t, end, *f.admin(t, admin.Id).SubscriptionEndDate)
	})

	t.Run("expired tenant restarts today", func(t *testing.T) {
		f := newFixture(t)
		admin := f.seedAdmin(t, entity.SubscriptionStatusExpired, func(a *entity.Admin) {
			a.SubscriptionEndDate = ptr(date(2024, time.January, 1))
		})

		res, err := f.lifecycle.Activate(ctx, ActivationRequest{
			AdminId:   admin.Id,
			PaymentId: "pay_3",
			Now:       time.Date(2024, time.March, 15, 17, 45, 0, 0, time.UTC),
		})
		require.NoError(t, err)
		assert.Equal(t, date(2024, time.March, 15), res.Period.StartDate)
		assert.Equal(t, date(2024, time.April, 15), res.Period.EndDate)
	})

	t.Run("unknown admin", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.lifecycle.Activate(ctx, ActivationRequest{AdminId: uuid.New(), PaymentId: "pay", Now: time.Now()})
		assert.ErrorIs(t, err, ErrAdminNotFound)
	})

	t.Run("payment id is required", func(t *testing.T) {
		f := newFixture(t)
		admin := f.seedAdmin(t, entity.SubscriptionStatusTrial, nil)
		_, err := f.lifecycle.Activate(ctx, ActivationRequest{AdminId: admin.Id, Now: time.Now()})
		assert.Error(t, err)
	})
}

func TestLifecycleService_EnterGraceAndExpire(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, time.June, 3, 9, 0, 0, 0, time.UTC)

	f := newFixture(t)
	admin := f.seedAdmin(t, entity.SubscriptionStatusActive, func(a *entity.Admin) {
		a.SubscriptionEndDate = ptr(date(2024, time.July, 1))
	})

	res, err := f.lifecycle.EnterGrace(ctx, admin.Id, subscription.TriggerPaymentFailed, now)
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.Equal(t, entity.SubscriptionStatusActive, res.From)
	assert.Equal(t, entity.SubscriptionStatusGrace, res.To)
	assert.Equal(t, now.AddDate(0, 0, 7), *res.Admin.GraceEndDate)

	// Entering grace again is a no-op, not an error.
	res, err = f.lifecycle.EnterGrace(ctx, admin.Id, subscription.TriggerPaymentFailed, now.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, res.Applied)

	res, err = f.lifecycle.Expire(ctx, admin.Id, subscription.TriggerGraceEnded, now.AddDate(0, 0, 8))
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.Equal(t, entity.SubscriptionStatusExpired, f.admin(t, admin.Id).SubscriptionStatus)

	assert.Equal(t, []string{events.SubscriptionGraceEntered, events.SubscriptionExpired}, f.publisher.types())
}

func TestLifecycleService_RejectsInvalidTransitions(t *testing.T) {
	ctx := context.Background()
	now := date(2024, time.June, 3)

	tests := []struct {
		name   string
		status entity.SubscriptionStatus
		run    func(f *fixture, id uuid.UUID) error
	}{
		{"grace end on trial", entity.SubscriptionStatusTrial, func(f *fixture, id uuid.UUID) error {
			_, err := f.lifecycle.Expire(ctx, id, subscription.TriggerGraceEnded, now)
			return err
		}},
		{"payment failure on expired", entity.SubscriptionStatusExpired, func(f *fixture, id uuid.UUID) error {
			_, err := f.lifecycle.EnterGrace(ctx, id, subscription.TriggerPaymentFailed, now)
			return err
		}},
		{"cancel on expired", entity.SubscriptionStatusExpired, func(f *fixture, id uuid.UUID) error {
			_, err := f.lifecycle.Cancel(ctx, id, now)
			return err
		}},
		{"schedule cancellation on grace", entity.SubscriptionStatusGrace, func(f *fixture, id uuid.UUID) error {
			_, err := f.lifecycle.ScheduleCancellation(ctx, id, now)
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			admin := f.seedAdmin(t, tt.status, nil)

			err := tt.run(f, admin.Id)
			assert.ErrorIs(t, err, ErrInvalidTransition)
			assert.Equal(t, tt.status, f.admin(t, admin.Id).SubscriptionStatus)
			assert.Empty(t, f.publisher.types())
		})
	}
}

func TestLifecycleService_ScheduleCancellation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	end := date(2024, time.August, 1)
	admin := f.seedAdmin(t, entity.SubscriptionStatusActive, func(a *entity.Admin) {
		a.SubscriptionEndDate = &end
		a.GatewayPlanId = "plan_monthly"
	})
	now := date(2024, time.July, 10)

	res, err := f.lifecycle.ScheduleCancellation(ctx, admin.Id, now)
	require.NoError(t, err)
	assert.True(t, res.Applied)

	got := f.admin(t, admin.Id)
	assert.Equal(t, entity.SubscriptionStatusActive, got.SubscriptionStatus)
	assert.True(t, got.CancellationScheduled)
	assert.Equal(t, end, *got.SubscriptionEndDate)
	require.Len(t, got.PaymentHistory, 1)
	assert.Equal(t, entity.PaymentHistoryStatusCancellationScheduled, got.PaymentHistory[0].Status)
	assert.Equal(t, end, got.PaymentHistory[0].EndDate)
	assert.True(t, got.PaymentHistory[0].Amount.IsZero())

	res, err = f.lifecycle.ScheduleCancellation(ctx, admin.Id, now.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, res.Applied)
	assert.Len(t, f.admin(t, admin.Id).PaymentHistory, 1)
}

func TestLifecycleService_ApplyDue(t *testing.T) {
	ctx := context.Background()
	now := date(2024, time.September, 10)
	past := date(2024, time.September, 1)
	future := date(2024, time.October, 1)

	tests := []struct {
		name    string
		status  entity.SubscriptionStatus
		mutate  func(a *entity.Admin)
		want    entity.SubscriptionStatus
		applied bool
	}{
		{"trial ended", entity.SubscriptionStatusTrial, func(a *entity.Admin) { a.TrialEndDate = past }, entity.SubscriptionStatusGrace, true},
		{"trial running", entity.SubscriptionStatusTrial, func(a *entity.Admin) { a.TrialEndDate = future }, entity.SubscriptionStatusTrial, false},
		{"grace ended", entity.SubscriptionStatusGrace, func(a *entity.Admin) { a.GraceEndDate = ptr(past) }, entity.SubscriptionStatusExpired, true},
		{"period ended", entity.SubscriptionStatusActive, func(a *entity.Admin) { a.SubscriptionEndDate = ptr(past) }, entity.SubscriptionStatusExpired, true},
		{"period ended with cancellation scheduled", entity.SubscriptionStatusActive, func(a *entity.Admin) {
			a.SubscriptionEndDate = ptr(past)
			a.CancellationScheduled = true
		}, entity.SubscriptionStatusCancelled, true},
		{"expired stays", entity.SubscriptionStatusExpired, nil, entity.SubscriptionStatusExpired, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			admin := f.seedAdmin(t, tt.status, tt.mutate)

			res, err := f.lifecycle.ApplyDue(ctx, admin, now)
			require.NoError(t, err)
			assert.Equal(t, tt.applied, res.Applied)
			assert.Equal(t, tt.want, f.admin(t, admin.Id).SubscriptionStatus)
		})
	}
}

func TestLifecycleService_ApplyDueOnStaleSnapshot(t *testing.T) {
	ctx := context.Background()
	periodEnd := date(2024, time.April, 1)
	sweepAt := date(2024, time.April, 2)

	renew := func(t *testing.T, f *fixture, id uuid.UUID) {
		_, err := f.lifecycle.Activate(ctx, ActivationRequest{
			AdminId:   id,
			PaymentId: "pay_new",
			Amount:    decimal.NewFromInt(199),
			Extend:    true,
			Now:       date(2024, time.March, 31),
		})
		require.NoError(t, err)
	}

	tests := []struct {
		name          string
		status        entity.SubscriptionStatus
		mutate        func(a *entity.Admin)
		between       func(t *testing.T, f *fixture, id uuid.UUID)
		wantStatus    entity.SubscriptionStatus
		wantEnd       *time.Time
		wantScheduled bool
	}{
		{
			name:       "renewal after snapshot is not expired",
			status:     entity.SubscriptionStatusActive,
			mutate:     func(a *entity.Admin) { a.SubscriptionEndDate = ptr(periodEnd) },
			between:    renew,
			wantStatus: entity.SubscriptionStatusActive,
			wantEnd:    ptr(date(2024, time.May, 1)),
		},
		{
			name:   "renewal after snapshot withdraws the scheduled cancellation",
			status: entity.SubscriptionStatusActive,
			mutate: func(a *entity.Admin) {
				a.SubscriptionEndDate = ptr(periodEnd)
				a.CancellationScheduled = true
			},
			between:    renew,
			wantStatus: entity.SubscriptionStatusActive,
			wantEnd:    ptr(date(2024, time.May, 1)),
		},
		{
			name:   "cancellation scheduled after snapshot waits for the next sweep",
			status: entity.SubscriptionStatusActive,
			mutate: func(a *entity.Admin) { a.SubscriptionEndDate = ptr(periodEnd) },
			between: func(t *testing.T, f *fixture, id uuid.UUID) {
				_, err := f.lifecycle.ScheduleCancellation(ctx, id, date(2024, time.March, 31))
				require.NoError(t, err)
			},
			wantStatus:    entity.SubscriptionStatusActive,
			wantEnd:       ptr(periodEnd),
			wantScheduled: true,
		},
		{
			name:       "payment during grace after snapshot is not expired",
			status:     entity.SubscriptionStatusGrace,
			mutate:     func(a *entity.Admin) { a.GraceEndDate = ptr(periodEnd) },
			between:    renew,
			wantStatus: entity.SubscriptionStatusActive,
			wantEnd:    ptr(date(2024, time.May, 1)),
		},
		{
			name:       "payment during trial after snapshot does not enter grace",
			status:     entity.SubscriptionStatusTrial,
			mutate:     func(a *entity.Admin) { a.TrialEndDate = periodEnd },
			between:    renew,
			wantStatus: entity.SubscriptionStatusActive,
			wantEnd:    ptr(date(2024, time.May, 1)),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			admin := f.seedAdmin(t, tt.status, tt.mutate)
			snapshot := f.admin(t, admin.Id)

			tt.between(t, f, admin.Id)

			res, err := f.lifecycle.ApplyDue(ctx, snapshot, sweepAt)
			require.NoError(t, err)
			assert.False(t, res.Applied)

			got := f.admin(t, admin.Id)
			assert.Equal(t, tt.wantStatus, got.SubscriptionStatus)
			require.NotNil(t, got.SubscriptionEndDate)
			assert.Equal(t, *tt.wantEnd, *got.SubscriptionEndDate)
			assert.Equal(t, tt.wantScheduled, got.CancellationScheduled)
		})
	}
}

func TestLifecycleService_CurrentStateSelfHeals(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	admin := f.seedAdmin(t, entity.SubscriptionStatusTrial, func(a *entity.Admin) {
		a.TrialEndDate = date(2024, time.March, 1)
	})
	now := date(2024, time.March, 5)

	got, err := f.lifecycle.CurrentState(ctx, admin.Id, now)
	require.NoError(t, err)
	assert.Equal(t, entity.SubscriptionStatusGrace, got.SubscriptionStatus)
	assert.Equal(t, entity.SubscriptionStatusGrace, f.admin(t, admin.Id).SubscriptionStatus)

	cached, ok := f.cache.Get(admin.Id)
	require.True(t, ok)
	assert.Equal(t, entity.SubscriptionStatusGrace, cached.SubscriptionStatus)

	// A transition drops the cached copy.
	_, err = f.lifecycle.Activate(ctx, ActivationRequest{AdminId: admin.Id, PaymentId: "pay_1", Now: now})
	require.NoError(t, err)
	_, ok = f.cache.Get(admin.Id)
	assert.False(t, ok)
}

func TestLifecycleService_CurrentStateUnknownAdmin(t *testing.T) {
	f := newFixture(t)
	got, err := f.lifecycle.CurrentState(context.Background(), uuid.New(), time.Now())
	require.NoError(t, err)
	assert.Nil(t, got)
}

// losingAdminRepository never wins a conditional update, as if another writer
// always got there first.
type losingAdminRepository struct {
	contract.AdminRepository
}

func (r losingAdminRepository) UpdateStatus(ctx context.Context, id uuid.UUID, update contract.StatusUpdate) (bool, error) {
	return false, nil
}

func (r losingAdminRepository) Activate(ctx context.Context, id uuid.UUID, activation contract.Activation) (bool, error) {
	return false, nil
}

type losingUnitOfWork struct {
	unitofwork.UnitOfWork
}

func (u losingUnitOfWork) AdminRepository() contract.AdminRepository {
	return losingAdminRepository{u.UnitOfWork.AdminRepository()}
}

type losingFactory struct {
	inner unitofwork.RepositoryFactory
}

func (f losingFactory) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return losingUnitOfWork{f.inner.NewUnitOfWork(ctx)}
}

func TestLifecycleService_GivesUpAfterRepeatedConflicts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	admin := f.seedAdmin(t, entity.SubscriptionStatusTrial, nil)
	lifecycle := NewLifecycleService(losingFactory{f.uow}, subscription.DefaultPolicy(), nil, nil, f.log)

	_, err := lifecycle.EnterGrace(ctx, admin.Id, subscription.TriggerTrialEnded, date(2024, time.March, 2))
	assert.ErrorIs(t, err, ErrTransitionConflict)

	_, err = lifecycle.Activate(ctx, ActivationRequest{AdminId: admin.Id, PaymentId: "pay_1", Now: date(2024, time.March, 2)})
	assert.ErrorIs(t, err, ErrTransitionConflict)

	assert.Equal(t, entity.SubscriptionStatusTrial, f.admin(t, admin.Id).SubscriptionStatus)
}
