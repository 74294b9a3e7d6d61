package identity

import (
	"strings"
	"time"

	"github.com/schoolms/backend/internal/domain/shared"
)

// TenantStatus represents the status of a tenant
type TenantStatus string

const (
	TenantStatusActive    TenantStatus = "active"
	TenantStatusSuspended TenantStatus = "suspended" // Suspended due to payment/violation issues
	TenantStatusInactive  TenantStatus = "inactive"
)

// TenantLimits holds resource limits for a tenant
type TenantLimits struct {
	MaxStudents int `json:"max_students"` // Maximum number of enrolled students
	MaxTeachers int `json:"max_teachers"` // Maximum number of teacher accounts
	MaxClasses  int `json:"max_classes"`  // Maximum number of classes
}

// DefaultTenantLimits returns the default limits for a new tenant
func DefaultTenantLimits() TenantLimits {
	return TenantLimits{
		MaxStudents: 500,
		MaxTeachers: 50,
		MaxClasses:  30,
	}
}

// Tenant represents a school/organization in the multi-tenant system.
// It is the aggregate root for tenant-related operations. The identifier
// is immutable once the tenant is created.
type Tenant struct {
	shared.BaseEntity
	Code         string       `gorm:"type:varchar(50);not null;uniqueIndex"`
	Name         string       `gorm:"type:varchar(200);not null"`
	Status       TenantStatus `gorm:"type:varchar(20);not null;default:'active'"`
	Subdomain    string       `gorm:"type:varchar(200);uniqueIndex"`
	ContactName  string       `gorm:"type:varchar(100)"`
	ContactPhone string       `gorm:"type:varchar(50)"`
	ContactEmail string       `gorm:"type:varchar(200)"`
	Limits       TenantLimits `gorm:"embedded;embeddedPrefix:limit_"`
	Features     string       `gorm:"type:text;default:'{}'"` // JSON object of enabled feature flags
}

// TableName returns the table name for GORM
func (Tenant) TableName() string {
	return "tenants"
}

// NewTenant creates a new tenant with required fields
func NewTenant(code, name string) (*Tenant, error) {
	if err := validateTenantCode(code); err != nil {
		return nil, err
	}
	if err := validateTenantName(name); err != nil {
		return nil, err
	}

	return &Tenant{
		BaseEntity: shared.NewBaseEntity(),
		Code:       strings.ToUpper(code),
		Name:       name,
		Status:     TenantStatusActive,
		Limits:     DefaultTenantLimits(),
		Features:   "{}",
	}, nil
}

// Update updates the tenant's basic information
func (t *Tenant) Update(name string) error {
	if err := validateTenantName(name); err != nil {
		return err
	}

	t.Name = name
	t.UpdatedAt = time.Now()
	return nil
}

// SetContact sets the tenant's contact information
func (t *Tenant) SetContact(contactName, phone, email string) error {
	if contactName != "" && len(contactName) > 100 {
		return shared.NewDomainError("INVALID_CONTACT_NAME", "Contact name cannot exceed 100 characters")
	}
	if phone != "" && len(phone) > 50 {
		return shared.NewDomainError("INVALID_PHONE", "Phone cannot exceed 50 characters")
	}
	if email != "" && len(email) > 200 {
		return shared.NewDomainError("INVALID_EMAIL", "Email cannot exceed 200 characters")
	}

	t.ContactName = contactName
	t.ContactPhone = phone
	t.ContactEmail = email
	t.UpdatedAt = time.Now()
	return nil
}

// SetSubdomain sets the tenant's subdomain
func (t *Tenant) SetSubdomain(subdomain string) error {
	if subdomain != "" && len(subdomain) > 200 {
		return shared.NewDomainError("INVALID_SUBDOMAIN", "Subdomain cannot exceed 200 characters")
	}
	if subdomain != "" {
		subdomain = strings.ToLower(strings.TrimSpace(subdomain))
	}

	t.Subdomain = subdomain
	t.UpdatedAt = time.Now()
	return nil
}

// UpdateLimits updates the tenant's resource limits
func (t *Tenant) UpdateLimits(limits TenantLimits) error {
	if limits.MaxStudents < 0 {
		return shared.NewDomainError("INVALID_MAX_STUDENTS", "Max students cannot be negative")
	}
	if limits.MaxTeachers < 0 {
		return shared.NewDomainError("INVALID_MAX_TEACHERS", "Max teachers cannot be negative")
	}
	if limits.MaxClasses < 0 {
		return shared.NewDomainError("INVALID_MAX_CLASSES", "Max classes cannot be negative")
	}

	t.Limits = limits
	t.UpdatedAt = time.Now()
	return nil
}

// Activate activates the tenant
func (t *Tenant) Activate() error {
	if t.Status == TenantStatusActive {
		return shared.NewDomainError("ALREADY_ACTIVE", "Tenant is already active")
	}

	t.Status = TenantStatusActive
	t.UpdatedAt = time.Now()
	return nil
}

// Deactivate deactivates the tenant
func (t *Tenant) Deactivate() error {
	if t.Status == TenantStatusInactive {
		return shared.NewDomainError("ALREADY_INACTIVE", "Tenant is already inactive")
	}

	t.Status = TenantStatusInactive
	t.UpdatedAt = time.Now()
	return nil
}

// Suspend suspends the tenant (e.g., due to payment issues)
func (t *Tenant) Suspend() error {
	if t.Status == TenantStatusSuspended {
		return shared.NewDomainError("ALREADY_SUSPENDED", "Tenant is already suspended")
	}

	t.Status = TenantStatusSuspended
	t.UpdatedAt = time.Now()
	return nil
}

// IsActive returns true if the tenant is active
func (t *Tenant) IsActive() bool {
	return t.Status == TenantStatusActive
}

// CanAddStudent returns true if the tenant can enroll more students
func (t *Tenant) CanAddStudent(currentStudentCount int) bool {
	return currentStudentCount < t.Limits.MaxStudents
}

// CanAddTeacher returns true if the tenant can add more teacher accounts
func (t *Tenant) CanAddTeacher(currentTeacherCount int) bool {
	return currentTeacherCount < t.Limits.MaxTeachers
}

// CanAddClass returns true if the tenant can add more classes
func (t *Tenant) CanAddClass(currentClassCount int) bool {
	return currentClassCount < t.Limits.MaxClasses
}

// Validation functions

func validateTenantCode(code string) error {
	if code == "" {
		return shared.NewDomainError("INVALID_CODE", "Tenant code cannot be empty")
	}
	if len(code) > 50 {
		return shared.NewDomainError("INVALID_CODE", "Tenant code cannot exceed 50 characters")
	}
	for _, r := range code {
		if !((r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '-') {
			return shared.NewDomainError("INVALID_CODE", "Tenant code can only contain letters, numbers, underscores, and hyphens")
		}
	}
	return nil
}

func validateTenantName(name string) error {
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Tenant name cannot be empty")
	}
	if len(name) > 200 {
		return shared.NewDomainError("INVALID_NAME", "Tenant name cannot exceed 200 characters")
	}
	return nil
}
