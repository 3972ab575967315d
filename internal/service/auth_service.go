// FILE: internal/service/auth_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gym-saas-be/internal/dto"
	"gym-saas-be/internal/entity"
	"gym-saas-be/internal/pkg/logger"
	"gym-saas-be/internal/pkg/serverutils"
	"gym-saas-be/internal/repository/specification"
	"gym-saas-be/internal/repository/unitofwork"
	"gym-saas-be/pkg/events"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

const authModule = "AUTH"

type IAuthService interface {
	Register(ctx context.Context, req *dto.RegisterRequest) (*dto.LoginResponse, error)
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error)
	LoginTrainer(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error)
}

type authService struct {
	uowFactory     unitofwork.RepositoryFactory
	lifecycle      ILifecycleService
	eventPublisher events.Publisher
	clock          func() time.Time
	logger         logger.ILogger
}

func NewAuthService(
	uowFactory unitofwork.RepositoryFactory,
	lifecycle ILifecycleService,
	eventPublisher events.Publisher,
	clock func() time.Time,
	logger logger.ILogger,
) IAuthService {
	if clock == nil {
		clock = time.Now
	}
	return &authService{
		uowFactory:     uowFactory,
		lifecycle:      lifecycle,
		eventPublisher: eventPublisher,
		clock:          clock,
		logger:         logger,
	}
}

// Register creates the tenant account and starts its trial.
func (s *authService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.LoginResponse, error) {
	now := s.clock().UTC()
	email := strings.ToLower(strings.TrimSpace(req.Email))

	uow := s.uowFactory.NewUnitOfWork(ctx)
	adminRepo := uow.AdminRepository()

	existing, err := adminRepo.FindOne(ctx, specification.ByEmail{Email: email})
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

	admin := &entity.Admin{
		Id:           uuid.New(),
		Email:        email,
		FullName:     req.FullName,
		GymName:      req.GymName,
		Phone:        req.Phone,
		PasswordHash: string(hash),
		CreatedAt:    now,
	}
	s.lifecycle.StartTrial(admin, now)

	if err := adminRepo.Create(ctx, admin); err != nil {
		return nil, fmt.Errorf("create admin: %w", err)
	}

	s.logger.Info(authModule, "Admin registered, trial started", map[string]interface{}{
		"admin_id":       admin.Id.String(),
		"trial_end_date": admin.TrialEndDate,
	})

	if s.eventPublisher != nil {
		ev := events.NewSubscriptionEvent(events.SubscriptionTrialStarted, admin.Id.String(), map[string]interface{}{
			"trial_end_date": admin.TrialEndDate,
			"grace_end_date": admin.GraceEndDate,
		}, now)
		if err := s.eventPublisher.Publish(ctx, ev); err != nil {
			s.logger.Warn(authModule, "Failed to publish trial started event", map[string]interface{}{
				"admin_id": admin.Id.String(),
				"error":    err.Error(),
			})
		}
	}

	return s.issue(entity.Principal{Role: entity.PrincipalRoleAdmin, SubjectId: admin.Id, AdminId: admin.Id}, admin)
}

func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	admin, err := uow.AdminRepository().FindOne(ctx, specification.ByEmail{Email: strings.ToLower(strings.TrimSpace(req.Email))})
	if err != nil {
		return nil, err
	}
	if admin == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	// Status shown at login must not be stale.
	current, err := s.lifecycle.CurrentState(ctx, admin.Id, s.clock())
	if err != nil {
		return nil, err
	}
	if current != nil {
		admin = current
	}

	return s.issue(entity.Principal{Role: entity.PrincipalRoleAdmin, SubjectId: admin.Id, AdminId: admin.Id}, admin)
}

// LoginTrainer authenticates a trainer. The token carries the owning admin so
// that the access gate checks the tenant's subscription, not the trainer's.
func (s *authService) LoginTrainer(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	trainer, err := uow.TrainerRepository().FindOne(ctx, specification.ByEmail{Email: strings.ToLower(strings.TrimSpace(req.Email))})
	if err != nil {
		return nil, err
	}
	if trainer == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(trainer.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	admin, err := s.lifecycle.CurrentState(ctx, trainer.AdminId, s.clock())
	if err != nil {
		return nil, err
	}
	if admin == nil {
		return nil, ErrAdminNotFound
	}

	return s.issue(entity.Principal{Role: entity.PrincipalRoleTrainer, SubjectId: trainer.Id, AdminId: admin.Id}, admin)
}

func (s *authService) issue(p entity.Principal, admin *entity.Admin) (*dto.LoginResponse, error) {
	token, err := serverutils.IssueToken(p)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &dto.LoginResponse{
		AccessToken:  token,
		Role:         string(p.Role),
		UserId:       p.SubjectId,
		AdminId:      p.AdminId,
		Subscription: statusResponse(admin),
	}, nil
}
