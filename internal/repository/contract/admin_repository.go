package contract

import (
	"context"
	"time"

	"gym-saas-be/internal/entity"
	"gym-saas-be/internal/repository/specification"

	"github.com/google/uuid"
)

// StatusUpdate is applied only while the admin is in one of From. The If*
// fields, when set, additionally require the stored boundary to be unchanged
// since it was read, so a date-triggered transition cannot override a
// concurrent renewal.
type StatusUpdate struct {
	From         []entity.SubscriptionStatus
	To           entity.SubscriptionStatus
	GraceEndDate *time.Time

	IfSubscriptionEndDate   *time.Time
	IfGraceEndDate          *time.Time
	IfCancellationScheduled *bool
}

// Activation moves an admin to active and appends one history entry in a
// single conditional statement. It applies only when the current status is in
// From, the current subscription end date equals PreviousEndDate (nil meaning
// unset) and no completed entry with Entry.PaymentId exists yet.
type Activation struct {
	From                  []entity.SubscriptionStatus
	PreviousEndDate       *time.Time
	SubscriptionEndDate   time.Time
	GatewaySubscriptionId *string
	Entry                 entity.PaymentHistoryEntry
}

type AdminRepository interface {
	Create(ctx context.Context, admin *entity.Admin) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Admin, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Admin, error)

	// Conditional updates. The bool result reports whether a row matched.
	UpdateStatus(ctx context.Context, id uuid.UUID, update StatusUpdate) (bool, error)
	Activate(ctx context.Context, id uuid.UUID, activation Activation) (bool, error)
	ScheduleCancellation(ctx context.Context, id uuid.UUID, entry entity.PaymentHistoryEntry) (bool, error)
	SetGatewaySubscription(ctx context.Context, id uuid.UUID, gatewaySubscriptionId, planId string) error
}
