package contract

import (
	"context"
	"time"

	"gym-saas-be/internal/entity"
	"gym-saas-be/internal/repository/specification"

	"github.com/google/uuid"
)

// WebhookOutcome is written back to the audit row once processing finishes.
type WebhookOutcome struct {
	AdminId     *uuid.UUID
	Processed   bool
	Duplicate   bool
	IssueFlag   bool
	ErrorReason string
	ProcessedAt *time.Time
}

type WebhookEventRepository interface {
	Create(ctx context.Context, event *entity.WebhookEvent) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.WebhookEvent, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.WebhookEvent, error)
	ExistsProcessed(ctx context.Context, gatewayPaymentId, event string) (bool, error)
	UpdateOutcome(ctx context.Context, id uuid.UUID, outcome WebhookOutcome) error
}
