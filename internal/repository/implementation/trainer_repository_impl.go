package implementation

import (
	"context"
	"errors"

	"gym-saas-be/internal/entity"
	"gym-saas-be/internal/mapper"
	"gym-saas-be/internal/model"
	"gym-saas-be/internal/repository/contract"
	"gym-saas-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TrainerRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.TrainerMapper
}

func NewTrainerRepository(db *gorm.DB) contract.TrainerRepository {
	return &TrainerRepositoryImpl{
		db:     db,
		mapper: mapper.NewTrainerMapper(),
	}
}

func (r *TrainerRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *TrainerRepositoryImpl) Create(ctx context.Context, trainer *entity.Trainer) error {
	m := r.mapper.ToModel(trainer)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*trainer = *r.mapper.ToEntity(m)
	return nil
}

func (r *TrainerRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Trainer, error) {
	var m model.Trainer
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *TrainerRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Trainer, error) {
	var models []*model.Trainer
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.Trainer, len(models))
	for i, m := range models {
		entities[i] = r.mapper.ToEntity(m)
	}
	return entities, nil
}

func (r *TrainerRepositoryImpl) Delete(ctx context.Context, adminId, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND admin_id = ?", id, adminId).
		Delete(&model.Trainer{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
