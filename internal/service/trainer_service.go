package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gym-saas-be/internal/dto"
	"gym-saas-be/internal/entity"
	"gym-saas-be/internal/repository/specification"
	"gym-saas-be/internal/repository/unitofwork"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var ErrTrainerNotFound = errors.New("trainer not found")

// ITrainerService manages the staff of a gym. Its write operations sit behind
// the access gate.
type ITrainerService interface {
	List(ctx context.Context, adminId uuid.UUID) ([]*dto.TrainerResponse, error)
	Create(ctx context.Context, adminId uuid.UUID, req *dto.CreateTrainerRequest) (*dto.TrainerResponse, error)
	Delete(ctx context.Context, adminId, trainerId uuid.UUID) error
}

type trainerService struct {
	uowFactory unitofwork.RepositoryFactory
}

func NewTrainerService(uowFactory unitofwork.RepositoryFactory) ITrainerService {
	return &trainerService{uowFactory: uowFactory}
}

func (s *trainerService) List(ctx context.Context, adminId uuid.UUID) ([]*dto.TrainerResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	trainers, err := uow.TrainerRepository().FindAll(ctx,
		specification.ByAdminID{AdminID: adminId},
		specification.OrderBy{Field: "created_at"},
	)
	if err != nil {
		return nil, err
	}

	res := make([]*dto.TrainerResponse, 0, len(trainers))
	for _, t := range trainers {
		res = append(res, toTrainerResponse(t))
	}
	return res, nil
}

func (s *trainerService) Create(ctx context.Context, adminId uuid.UUID, req *dto.CreateTrainerRequest) (*dto.TrainerResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	uow := s.uowFactory.NewUnitOfWork(ctx)
	repo := uow.TrainerRepository()

	existing, err := repo.FindOne(ctx, specification.ByEmail{Email: email})
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	trainer := &entity.Trainer{
		Id:           uuid.New(),
		AdminId:      adminId,
		Email:        email,
		FullName:     req.FullName,
		Speciality:   req.Speciality,
		PasswordHash: string(hash),
	}
	if err := repo.Create(ctx, trainer); err != nil {
		return nil, fmt.Errorf("create trainer: %w", err)
	}
	return toTrainerResponse(trainer), nil
}

func (s *trainerService) Delete(ctx context.Context, adminId, trainerId uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	deleted, err := uow.TrainerRepository().Delete(ctx, adminId, trainerId)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrTrainerNotFound
	}
	return nil
}

func toTrainerResponse(t *entity.Trainer) *dto.TrainerResponse {
	return &dto.TrainerResponse{
		Id:         t.Id,
		Email:      t.Email,
		FullName:   t.FullName,
		Speciality: t.Speciality,
	}
}
