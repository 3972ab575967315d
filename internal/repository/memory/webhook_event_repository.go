package memory

import (
	"context"

	"gym-saas-be/internal/entity"
	"gym-saas-be/internal/repository/contract"
	"gym-saas-be/internal/repository/specification"

	"github.com/google/uuid"
)

type webhookEventRepository struct {
	store *Store
}

func NewWebhookEventRepository(store *Store) contract.WebhookEventRepository {
	return &webhookEventRepository{store: store}
}

func (r *webhookEventRepository) Create(ctx context.Context, event *entity.WebhookEvent) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if event.Id == uuid.Nil {
		event.Id = uuid.New()
	}
	r.store.events = append(r.store.events, cloneEvent(event))
	return nil
}

func (r *webhookEventRepository) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.WebhookEvent, error) {
	all, err := r.FindAll(ctx, specs...)
	if err != nil || len(all) == 0 {
		return nil, err
	}
	return all[0], nil
}

func (r *webhookEventRepository) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.WebhookEvent, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make([]*entity.WebhookEvent, 0)
	for _, e := range r.store.events {
		if matchesAll(e, specs) {
			out = append(out, cloneEvent(e))
		}
	}
	return shape(out, specs), nil
}

func (r *webhookEventRepository) ExistsProcessed(ctx context.Context, gatewayPaymentId, event string) (bool, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, e := range r.store.events {
		if e.GatewayPaymentId == gatewayPaymentId && e.Event == event && e.Processed {
			return true, nil
		}
	}
	return false, nil
}

func (r *webhookEventRepository) UpdateOutcome(ctx context.Context, id uuid.UUID, outcome contract.WebhookOutcome) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, e := range r.store.events {
		if e.Id != id {
			continue
		}
		e.Processed = outcome.Processed
		e.Duplicate = outcome.Duplicate
		e.IssueFlag = outcome.IssueFlag
		e.ErrorReason = outcome.ErrorReason
		e.ProcessedAt = clonePtr(outcome.ProcessedAt)
		if outcome.AdminId != nil {
			e.AdminId = clonePtr(outcome.AdminId)
		}
		return nil
	}
	return nil
}
