package unitofwork

import (
	"context"

	"gym-saas-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	AdminRepository() contract.AdminRepository
	TrainerRepository() contract.TrainerRepository
	WebhookEventRepository() contract.WebhookEventRepository
	PaymentRepository() contract.PaymentRepository
}
