package dto

import "github.com/google/uuid"

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	FullName string `json:"full_name" validate:"required"`
	GymName  string `json:"gym_name" validate:"required"`
	Phone    string `json:"phone"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	AccessToken  string                      `json:"access_token"`
	Role         string                      `json:"role"`
	UserId       uuid.UUID                   `json:"user_id"`
	AdminId      uuid.UUID                   `json:"admin_id"`
	Subscription *SubscriptionStatusResponse `json:"subscription,omitempty"`
}

type CreateTrainerRequest struct {
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required,min=8"`
	FullName   string `json:"full_name" validate:"required"`
	Speciality string `json:"speciality"`
}

type TrainerResponse struct {
	Id         uuid.UUID `json:"id"`
	Email      string    `json:"email"`
	FullName   string    `json:"full_name"`
	Speciality string    `json:"speciality"`
}
