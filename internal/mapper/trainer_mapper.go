package mapper

import (
	"gym-saas-be/internal/entity"
	"gym-saas-be/internal/model"
)

type TrainerMapper struct{}

func NewTrainerMapper() *TrainerMapper {
	return &TrainerMapper{}
}

func (m *TrainerMapper) ToEntity(t *model.Trainer) *entity.Trainer {
	if t == nil {
		return nil
	}
	return &entity.Trainer{
		Id:           t.Id,
		AdminId:      t.AdminId,
		Email:        t.Email,
		FullName:     t.FullName,
		Speciality:   t.Speciality,
		PasswordHash: t.PasswordHash,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
}

func (m *TrainerMapper) ToModel(t *entity.Trainer) *model.Trainer {
	if t == nil {
		return nil
	}
	return &model.Trainer{
		Id:           t.Id,
		AdminId:      t.AdminId,
		Email:        t.Email,
		FullName:     t.FullName,
		Speciality:   t.Speciality,
		PasswordHash: t.PasswordHash,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
}
