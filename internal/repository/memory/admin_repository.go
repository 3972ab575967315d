package memory

import (
	"context"
	"fmt"
	"slices"
	"time"

	"gym-saas-be/internal/entity"
	"gym-saas-be/internal/repository/contract"
	"gym-saas-be/internal/repository/specification"

	"github.com/google/uuid"
)

type adminRepository struct {
	store *Store
}

func NewAdminRepository(store *Store) contract.AdminRepository {
	return &adminRepository{store: store}
}

func (r *adminRepository) Create(ctx context.Context, admin *entity.Admin) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if admin.Id == uuid.Nil {
		admin.Id = uuid.New()
	}
	for _, a := range r.store.admins {
		if a.Email == admin.Email {
			return fmt.Errorf("admin with email %s already exists", admin.Email)
		}
	}
	now := time.Now().UTC()
	if admin.CreatedAt.IsZero() {
		admin.CreatedAt = now
	}
	admin.UpdatedAt = now
	if admin.PaymentHistory == nil {
		admin.PaymentHistory = []entity.PaymentHistoryEntry{}
	}
	r.store.admins = append(r.store.admins, cloneAdmin(admin))
	return nil
}

func (r *adminRepository) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Admin, error) {
	all, err := r.FindAll(ctx, specs...)
	if err != nil || len(all) == 0 {
		return nil, err
	}
	return all[0], nil
}

func (r *adminRepository) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Admin, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make([]*entity.Admin, 0)
	for _, a := range r.store.admins {
		if matchesAll(a, specs) {
			out = append(out, cloneAdmin(a))
		}
	}
	return shape(out, specs), nil
}

func (r *adminRepository) find(id uuid.UUID) *entity.Admin {
	for _, a := range r.store.admins {
		if a.Id == id {
			return a
		}
	}
	return nil
}

func (r *adminRepository) UpdateStatus(ctx context.Context, id uuid.UUID, update contract.StatusUpdate) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	a := r.find(id)
	if a == nil || !slices.Contains(update.From, a.SubscriptionStatus) {
		return false, nil
	}
	if update.IfSubscriptionEndDate != nil && !sameEndDate(a.SubscriptionEndDate, update.IfSubscriptionEndDate) {
		return false, nil
	}
	if update.IfGraceEndDate != nil && !sameEndDate(a.GraceEndDate, update.IfGraceEndDate) {
		return false, nil
	}
	if update.IfCancellationScheduled != nil && a.CancellationScheduled != *update.IfCancellationScheduled {
		return false, nil
	}
	a.SubscriptionStatus = update.To
	if update.GraceEndDate != nil {
		a.GraceEndDate = clonePtr(update.GraceEndDate)
	}
	a.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (r *adminRepository) Activate(ctx context.Context, id uuid.UUID, activation contract.Activation) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	a := r.find(id)
	if a == nil || !slices.Contains(activation.From, a.SubscriptionStatus) {
		return false, nil
	}
	if !sameEndDate(a.SubscriptionEndDate, activation.PreviousEndDate) {
		return false, nil
	}
	if a.HasPayment(activation.Entry.PaymentId) {
		return false, nil
	}

	end := activation.SubscriptionEndDate
	a.SubscriptionStatus = entity.SubscriptionStatusActive
	a.SubscriptionEndDate = &end
	a.CancellationScheduled = false
	if activation.GatewaySubscriptionId != nil {
		sid := *activation.GatewaySubscriptionId
		a.GatewaySubscriptionId = &sid
	}
	a.PaymentHistory = append(a.PaymentHistory, activation.Entry)
	a.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (r *adminRepository) ScheduleCancellation(ctx context.Context, id uuid.UUID, entry entity.PaymentHistoryEntry) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	a := r.find(id)
	if a == nil || a.SubscriptionStatus != entity.SubscriptionStatusActive || a.CancellationScheduled {
		return false, nil
	}
	a.CancellationScheduled = true
	a.PaymentHistory = append(a.PaymentHistory, entry)
	a.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (r *adminRepository) SetGatewaySubscription(ctx context.Context, id uuid.UUID, gatewaySubscriptionId, planId string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	a := r.find(id)
	if a == nil {
		return fmt.Errorf("admin %s not found", id)
	}
	for _, other := range r.store.admins {
		if other.Id != id && other.GatewaySubscriptionId != nil && *other.GatewaySubscriptionId == gatewaySubscriptionId {
			return fmt.Errorf("gateway subscription %s already linked", gatewaySubscriptionId)
		}
	}
	a.GatewaySubscriptionId = &gatewaySubscriptionId
	a.GatewayPlanId = planId
	a.UpdatedAt = time.Now().UTC()
	return nil
}

func sameEndDate(current, expected *time.Time) bool {
	if current == nil || expected == nil {
		return current == nil && expected == nil
	}
	return current.Equal(*expected)
}
