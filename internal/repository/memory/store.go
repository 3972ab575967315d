package memory

import (
	"slices"
	"sync"

	"gym-saas-be/internal/entity"
	"gym-saas-be/internal/repository/specification"
)

// Store holds every in-process table behind one lock so that the conditional
// updates below are atomic in the same way as their SQL counterparts.
type Store struct {
	mu       sync.RWMutex
	admins   []*entity.Admin
	trainers []*entity.Trainer
	events   []*entity.WebhookEvent
	payments []*entity.Payment
}

func NewStore() *Store {
	return &Store{}
}

func matchesAll(record interface{}, specs []specification.Specification) bool {
	for _, spec := range specs {
		if m, ok := spec.(specification.Matcher); ok && !m.Matches(record) {
			return false
		}
	}
	return true
}

// shape applies ordering direction and pagination to an already filtered,
// insertion-ordered result.
func shape[T any](items []T, specs []specification.Specification) []T {
	for _, spec := range specs {
		if o, ok := spec.(specification.OrderBy); ok && o.Desc {
			slices.Reverse(items)
		}
	}
	for _, spec := range specs {
		p, ok := spec.(specification.Pagination)
		if !ok {
			continue
		}
		if p.Offset >= len(items) {
			return items[:0]
		}
		items = items[p.Offset:]
		if p.Limit > 0 && p.Limit < len(items) {
			items = items[:p.Limit]
		}
	}
	return items
}

func cloneAdmin(a *entity.Admin) *entity.Admin {
	c := *a
	c.PaymentHistory = slices.Clone(a.PaymentHistory)
	c.GraceEndDate = clonePtr(a.GraceEndDate)
	c.SubscriptionEndDate = clonePtr(a.SubscriptionEndDate)
	if a.GatewaySubscriptionId != nil {
		id := *a.GatewaySubscriptionId
		c.GatewaySubscriptionId = &id
	}
	return &c
}

func cloneEvent(e *entity.WebhookEvent) *entity.WebhookEvent {
	c := *e
	c.Payload = slices.Clone(e.Payload)
	c.ProcessedAt = clonePtr(e.ProcessedAt)
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
