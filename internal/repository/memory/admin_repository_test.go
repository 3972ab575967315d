package memory

import (
	"context"
	"testing"
	"time"

	"gym-saas-be/internal/entity"
	"gym-saas-be/internal/repository/contract"
	"gym-saas-be/internal/repository/specification"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedAdmin(t *testing.T, repo contract.AdminRepository, status entity.SubscriptionStatus) *entity.Admin {
	t.Helper()
	admin := &entity.Admin{
		Id:                 uuid.New(),
		Email:              uuid.NewString() + "@gym.test",
		FullName:           "Owner",
		SubscriptionStatus: status,
		TrialEndDate:       time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, repo.Create(context.Background(), admin))
	return admin
}

func TestAdminRepository_UpdateStatusIsConditional(t *testing.T) {
	ctx := context.Background()
	repo := NewAdminRepository(NewStore())
	admin := seedAdmin(t, repo, entity.SubscriptionStatusActive)

	graceEnd := time.Date(2024, time.March, 8, 0, 0, 0, 0, time.UTC)
	applied, err := repo.UpdateStatus(ctx, admin.Id, contract.StatusUpdate{
		From:         []entity.SubscriptionStatus{entity.SubscriptionStatusTrial},
		To:           entity.SubscriptionStatusGrace,
		GraceEndDate: &graceEnd,
	})
	require.NoError(t, err)
	assert.False(t, applied)

	applied, err = repo.UpdateStatus(ctx, admin.Id, contract.StatusUpdate{
		From:         []entity.SubscriptionStatus{entity.SubscriptionStatusTrial, entity.SubscriptionStatusActive},
		To:           entity.SubscriptionStatusGrace,
		GraceEndDate: &graceEnd,
	})
	require.NoError(t, err)
	assert.True(t, applied)

	got, err := repo.FindOne(ctx, specification.ByID{ID: admin.Id})
	require.NoError(t, err)
	assert.Equal(t, entity.SubscriptionStatusGrace, got.SubscriptionStatus)
	assert.Equal(t, graceEnd, *got.GraceEndDate)
}

func TestAdminRepository_ActivateRejectsStaleEndDateAndRepeatedPayment(t *testing.T) {
	ctx := context.Background()
	repo := NewAdminRepository(NewStore())
	admin := seedAdmin(t, repo, entity.SubscriptionStatusTrial)

	end := time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC)
	activation := contract.Activation{
		From:                []entity.SubscriptionStatus{entity.SubscriptionStatusTrial},
		SubscriptionEndDate: end,
		Entry: entity.PaymentHistoryEntry{
			PaymentId: "pay_1",
			Amount:    decimal.RequireFromString("199.00"),
			Status:    entity.PaymentHistoryStatusCompleted,
		},
	}

	applied, err := repo.Activate(ctx, admin.Id, activation)
	require.NoError(t, err)
	assert.True(t, applied)

	// Same payment again, from the now-current state.
	activation.From = []entity.SubscriptionStatus{entity.SubscriptionStatusActive}
	activation.PreviousEndDate = &end
	applied, err = repo.Activate(ctx, admin.Id, activation)
	require.NoError(t, err)
	assert.False(t, applied)

	// New payment but computed from an outdated end date.
	stale := end.AddDate(0, -1, 0)
	activation.Entry.PaymentId = "pay_2"
	activation.PreviousEndDate = &stale
	applied, err = repo.Activate(ctx, admin.Id, activation)
	require.NoError(t, err)
	assert.False(t, applied)

	got, _ := repo.FindOne(ctx, specification.ByID{ID: admin.Id})
	assert.Len(t, got.PaymentHistory, 1)
	assert.Equal(t, entity.SubscriptionStatusActive, got.SubscriptionStatus)
}

func TestAdminRepository_ScheduleCancellationOnce(t *testing.T) {
	ctx := context.Background()
	repo := NewAdminRepository(NewStore())
	admin := seedAdmin(t, repo, entity.SubscriptionStatusActive)
	entry := entity.PaymentHistoryEntry{Status: entity.PaymentHistoryStatusCancellationScheduled}

	applied, err := repo.ScheduleCancellation(ctx, admin.Id, entry)
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = repo.ScheduleCancellation(ctx, admin.Id, entry)
	require.NoError(t, err)
	assert.False(t, applied)
}

func TestAdminRepository_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewAdminRepository(NewStore())
	admin := seedAdmin(t, repo, entity.SubscriptionStatusTrial)

	got, _ := repo.FindOne(ctx, specification.ByID{ID: admin.Id})
	got.SubscriptionStatus = entity.SubscriptionStatusExpired

	again, _ := repo.FindOne(ctx, specification.ByID{ID: admin.Id})
	assert.Equal(t, entity.SubscriptionStatusTrial, again.SubscriptionStatus)
}

func TestAdminRepository_UpdateStatusHonorsCancellationFlag(t *testing.T) {
	ctx := context.Background()
	repo := NewAdminRepository(NewStore())
	admin := seedAdmin(t, repo, entity.SubscriptionStatusActive)

	scheduled := true
	applied, err := repo.UpdateStatus(ctx, admin.Id, contract.StatusUpdate{
		From:                    []entity.SubscriptionStatus{entity.SubscriptionStatusActive},
		To:                      entity.SubscriptionStatusCancelled,
		IfCancellationScheduled: &scheduled,
	})
	require.NoError(t, err)
	assert.False(t, applied)

	scheduled = false
	applied, err = repo.UpdateStatus(ctx, admin.Id, contract.StatusUpdate{
		From:                    []entity.SubscriptionStatus{entity.SubscriptionStatusActive},
		To:                      entity.SubscriptionStatusExpired,
		IfCancellationScheduled: &scheduled,
	})
	require.NoError(t, err)
	assert.True(t, applied)
}
