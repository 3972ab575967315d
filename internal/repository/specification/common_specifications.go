package specification

import (
	"fmt"

	"gym-saas-be/internal/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ByID filters by ID
type ByID struct {
	ID uuid.UUID
}

func (s ByID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("id = ?", s.ID)
}

func (s ByID) Matches(record interface{}) bool {
	switch r := record.(type) {
	case *entity.Admin:
		return r.Id == s.ID
	case *entity.Trainer:
		return r.Id == s.ID
	case *entity.WebhookEvent:
		return r.Id == s.ID
	case *entity.Payment:
		return r.Id == s.ID
	}
	return false
}

// ByAdminID filters records owned by a tenant
type ByAdminID struct {
	AdminID uuid.UUID
}

func (s ByAdminID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("admin_id = ?", s.AdminID)
}

func (s ByAdminID) Matches(record interface{}) bool {
	switch r := record.(type) {
	case *entity.Trainer:
		return r.AdminId == s.AdminID
	case *entity.Payment:
		return r.AdminId == s.AdminID
	case *entity.WebhookEvent:
		return r.AdminId != nil && *r.AdminId == s.AdminID
	}
	return false
}

// ByEmail filters admins or trainers by login email
type ByEmail struct {
	Email string
}

func (s ByEmail) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("email = ?", s.Email)
}

func (s ByEmail) Matches(record interface{}) bool {
	switch r := record.(type) {
	case *entity.Admin:
		return r.Email == s.Email
	case *entity.Trainer:
		return r.Email == s.Email
	}
	return false
}

// OrderBy applies ordering
type OrderBy struct {
	Field string
	Desc  bool
}

func (s OrderBy) Apply(db *gorm.DB) *gorm.DB {
	direction := "ASC"
	if s.Desc {
		direction = "DESC"
	}
	return db.Order(fmt.Sprintf("%s %s", s.Field, direction))
}

// Pagination
type Pagination struct {
	Limit  int
	Offset int
}

func (s Pagination) Apply(db *gorm.DB) *gorm.DB {
	return db.Limit(s.Limit).Offset(s.Offset)
}
