package contract

import (
	"context"

	"gym-saas-be/internal/entity"
	"gym-saas-be/internal/repository/specification"
)

type PaymentRepository interface {
	Create(ctx context.Context, payment *entity.Payment) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Payment, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Payment, error)

	// UpdateStatus changes the status only while the current one is in from.
	UpdateStatus(ctx context.Context, gatewayPaymentId string, from []entity.PaymentStatus, to entity.PaymentStatus, reason string) (bool, error)
}
