package entity

import "github.com/google/uuid"

type PrincipalRole string

const (
	PrincipalRoleAdmin   PrincipalRole = "admin"
	PrincipalRoleTrainer PrincipalRole = "trainer"
)

// Principal is the authenticated caller, resolved once from the access token.
// Trainers act on behalf of the admin (tenant) that employs them.
type Principal struct {
	Role      PrincipalRole
	SubjectId uuid.UUID
	AdminId   uuid.UUID
}

func (p Principal) IsAdmin() bool {
	return p.Role == PrincipalRoleAdmin
}

func (p Principal) TenantId() uuid.UUID {
	return p.AdminId
}
