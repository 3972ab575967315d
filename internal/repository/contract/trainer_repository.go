package contract

import (
	"context"

	"gym-saas-be/internal/entity"
	"gym-saas-be/internal/repository/specification"

	"github.com/google/uuid"
)

type TrainerRepository interface {
	Create(ctx context.Context, trainer *entity.Trainer) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Trainer, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Trainer, error)
	Delete(ctx context.Context, adminId, id uuid.UUID) (bool, error)
}
