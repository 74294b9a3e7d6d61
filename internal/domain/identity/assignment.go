package identity

import (
	"strings"

	"github.com/google/uuid"
	"github.com/schoolms/backend/internal/domain/shared"
)

// AssignmentRole describes what kind of account an assignment grants
type AssignmentRole string

const (
	AssignmentRoleAdmin   AssignmentRole = "admin"
	AssignmentRoleTeacher AssignmentRole = "teacher"
	AssignmentRoleStudent AssignmentRole = "student"
	AssignmentRoleParent  AssignmentRole = "parent"
)

// TenantAssignment maps a principal's email to its owning tenant. It is the
// server-side record consulted by the tenant resolver; one email belongs to
// exactly one tenant.
type TenantAssignment struct {
	shared.BaseEntity
	Email    string         `gorm:"type:varchar(200);not null;uniqueIndex"`
	TenantID uuid.UUID      `gorm:"type:uuid;not null;index"`
	Role     AssignmentRole `gorm:"type:varchar(20);not null;default:'student'"`
}

// TableName returns the table name for GORM
func (TenantAssignment) TableName() string {
	return "tenant_user_assignments"
}

// NewTenantAssignment creates an assignment of an email to a tenant
func NewTenantAssignment(email string, tenantID uuid.UUID, role AssignmentRole) (*TenantAssignment, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, shared.NewDomainError("INVALID_EMAIL", "Assignment email cannot be empty")
	}
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Assignment tenant ID cannot be empty")
	}

	return &TenantAssignment{
		BaseEntity: shared.NewBaseEntity(),
		Email:      email,
		TenantID:   tenantID,
		Role:       role,
	}, nil
}
