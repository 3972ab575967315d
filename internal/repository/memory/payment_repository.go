package memory

import (
	"context"
	"slices"
	"time"

	"gym-saas-be/internal/entity"
	"gym-saas-be/internal/repository/contract"
	"gym-saas-be/internal/repository/specification"

	"github.com/google/uuid"
)

type paymentRepository struct {
	store *Store
}

func NewPaymentRepository(store *Store) contract.PaymentRepository {
	return &paymentRepository{store: store}
}

func (r *paymentRepository) Create(ctx context.Context, payment *entity.Payment) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, p := range r.store.payments {
		if p.GatewayPaymentId == payment.GatewayPaymentId {
			return nil
		}
	}
	if payment.Id == uuid.Nil {
		payment.Id = uuid.New()
	}
	now := time.Now().UTC()
	payment.CreatedAt = now
	payment.UpdatedAt = now
	c := *payment
	r.store.payments = append(r.store.payments, &c)
	return nil
}

func (r *paymentRepository) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Payment, error) {
	all, err := r.FindAll(ctx, specs...)
	if err != nil || len(all) == 0 {
		return nil, err
	}
	return all[0], nil
}

func (r *paymentRepository) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Payment, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make([]*entity.Payment, 0)
	for _, p := range r.store.payments {
		if matchesAll(p, specs) {
			c := *p
			out = append(out, &c)
		}
	}
	return shape(out, specs), nil
}

func (r *paymentRepository) UpdateStatus(ctx context.Context, gatewayPaymentId string, from []entity.PaymentStatus, to entity.PaymentStatus, reason string) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, p := range r.store.payments {
		if p.GatewayPaymentId != gatewayPaymentId {
			continue
		}
		if !slices.Contains(from, p.Status) {
			return false, nil
		}
		p.Status = to
		p.FailureReason = reason
		p.UpdatedAt = time.Now().UTC()
		return true, nil
	}
	return false, nil
}
