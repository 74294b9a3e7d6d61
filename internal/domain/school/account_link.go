package school

import (
	"context"

	"github.com/google/uuid"
	"github.com/schoolms/backend/internal/domain/shared"
)

// LinkRelation describes how an account is linked to a student record
type LinkRelation string

const (
	LinkRelationStudent LinkRelation = "student"
	LinkRelationParent  LinkRelation = "parent"
)

// AccountLink connects a student record to a signed-up account. A student
// has at most one linked student account and at most one linked parent
// account; students with no link simply receive no notifications.
type AccountLink struct {
	shared.TenantEntity
	StudentID uuid.UUID    `gorm:"type:uuid;not null;index"`
	AccountID uuid.UUID    `gorm:"type:uuid;not null;index"`
	Relation  LinkRelation `gorm:"type:varchar(20);not null"`
	PushToken string       `gorm:"type:varchar(500)"` // empty when the device never registered
}

// TableName returns the table name for GORM
func (AccountLink) TableName() string {
	return "account_links"
}

// NewAccountLink links an account to a student record
func NewAccountLink(tenantID, studentID, accountID uuid.UUID, relation LinkRelation) (*AccountLink, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Link tenant ID cannot be empty")
	}
	if studentID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_STUDENT", "Link student ID cannot be empty")
	}
	if accountID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ACCOUNT", "Link account ID cannot be empty")
	}

	return &AccountLink{
		TenantEntity: shared.NewTenantEntity(tenantID),
		StudentID:    studentID,
		AccountID:    accountID,
		Relation:     relation,
	}, nil
}

// SetPushToken records the device push token for this account
func (l *AccountLink) SetPushToken(token string) {
	l.PushToken = token
}

// AccountLinkRepository defines the interface for account link lookups
type AccountLinkRepository interface {
	// FindByStudentIDs returns all links for the given student records
	FindByStudentIDs(ctx context.Context, studentIDs []uuid.UUID) ([]*AccountLink, error)

	// Save creates or updates a link
	Save(ctx context.Context, link *AccountLink) error
}
