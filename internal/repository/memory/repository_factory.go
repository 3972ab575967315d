package memory

import (
	"context"

	"gym-saas-be/internal/repository/contract"
	"gym-saas-be/internal/repository/unitofwork"
)

// RepositoryFactory serves unit-of-work instances over a shared in-process
// Store. Transactions are no-ops; every repository call is already atomic.
type RepositoryFactory struct {
	Store *Store
}

func NewRepositoryFactory(store *Store) *RepositoryFactory {
	return &RepositoryFactory{Store: store}
}

func (f *RepositoryFactory) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return &unitOfWork{store: f.Store}
}

type unitOfWork struct {
	store *Store
}

func (u *unitOfWork) Begin(ctx context.Context) error { return nil }
func (u *unitOfWork) Commit() error                   { return nil }
func (u *unitOfWork) Rollback() error                 { return nil }

func (u *unitOfWork) AdminRepository() contract.AdminRepository {
	return NewAdminRepository(u.store)
}

func (u *unitOfWork) TrainerRepository() contract.TrainerRepository {
	return NewTrainerRepository(u.store)
}

func (u *unitOfWork) WebhookEventRepository() contract.WebhookEventRepository {
	return NewWebhookEventRepository(u.store)
}

func (u *unitOfWork) PaymentRepository() contract.PaymentRepository {
	return NewPaymentRepository(u.store)
}
