package entity

import (
	"time"

	"github.com/google/uuid"
)

type Trainer struct {
	Id           uuid.UUID
	AdminId      uuid.UUID
	Email        string
	FullName     string
	Speciality   string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
