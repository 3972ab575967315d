package memory

import (
	"context"
	"fmt"
	"time"

	"gym-saas-be/internal/entity"
	"gym-saas-be/internal/repository/contract"
	"gym-saas-be/internal/repository/specification"

	"github.com/google/uuid"
)

type trainerRepository struct {
	store *Store
}

func NewTrainerRepository(store *Store) contract.TrainerRepository {
	return &trainerRepository{store: store}
}

func (r *trainerRepository) Create(ctx context.Context, trainer *entity.Trainer) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, t := range r.store.trainers {
		if t.Email == trainer.Email {
			return fmt.Errorf("trainer with email %s already exists", trainer.Email)
		}
	}
	if trainer.Id == uuid.Nil {
		trainer.Id = uuid.New()
	}
	now := time.Now().UTC()
	trainer.CreatedAt = now
	trainer.UpdatedAt = now
	c := *trainer
	r.store.trainers = append(r.store.trainers, &c)
	return nil
}

func (r *trainerRepository) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Trainer, error) {
	all, err := r.FindAll(ctx, specs...)
	if err != nil || len(all) == 0 {
		return nil, err
	}
	return all[0], nil
}

func (r *trainerRepository) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Trainer, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make([]*entity.Trainer, 0)
	for _, t := range r.store.trainers {
		if matchesAll(t, specs) {
			c := *t
			out = append(out, &c)
		}
	}
	return shape(out, specs), nil
}

func (r *trainerRepository) Delete(ctx context.Context, adminId, id uuid.UUID) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for i, t := range r.store.trainers {
		if t.Id == id && t.AdminId == adminId {
			r.store.trainers = append(r.store.trainers[:i], r.store.trainers[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}
