package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/schoolms/backend/internal/domain/notification"
	"github.com/schoolms/backend/internal/domain/school"
	"github.com/schoolms/backend/internal/infrastructure/persistence/scope"
)

// TenantIDSource supplies the currently resolved tenant id. The tenant
// context satisfies this; nothing else is allowed to.
type TenantIDSource interface {
	TenantID() (uuid.UUID, bool)
}

// scopedDB builds a fail-closed scoped handle for the current tenant.
// Before resolution completes this returns scope.ErrTenantIDRequired, which
// is exactly the fail-closed behavior tenant-scoped repositories need.
func scopedDB(db *gorm.DB, src TenantIDSource) (*scope.ScopedDB, error) {
	tenantID, ok := src.TenantID()
	if !ok {
		return nil, scope.ErrTenantIDRequired
	}
	return scope.New(db, tenantID)
}

// TenantNotificationRepository is a notification.Repository that binds to
// the tenant resolved at call time rather than at construction time. Every
// call re-reads the tenant context, so a cleared context immediately cuts
// off access.
type TenantNotificationRepository struct {
	db  *gorm.DB
	src TenantIDSource
}

// NewTenantNotificationRepository creates a repository following the
// current tenant context
func NewTenantNotificationRepository(db *gorm.DB, src TenantIDSource) *TenantNotificationRepository {
	return &TenantNotificationRepository{db: db, src: src}
}

func (r *TenantNotificationRepository) scoped() (*GormNotificationRepository, error) {
	sdb, err := scopedDB(r.db, r.src)
	if err != nil {
		return nil, err
	}
	return NewGormNotificationRepository(sdb), nil
}

// Create saves a notification together with its recipient records
func (r *TenantNotificationRepository) Create(ctx context.Context, n *notification.NotificationRecord, recipients []*notification.RecipientRecord) error {
	repo, err := r.scoped()
	if err != nil {
		return err
	}
	return repo.Create(ctx, n, recipients)
}

// FindRecentDuplicate returns a recent notification matching the dedup key
func (r *TenantNotificationRepository) FindRecentDuplicate(ctx context.Context, nType notification.NotificationType, studentName, examName string, since time.Time) (*notification.NotificationRecord, error) {
	repo, err := r.scoped()
	if err != nil {
		return nil, err
	}
	return repo.FindRecentDuplicate(ctx, nType, studentName, examName, since)
}

// MarkSent sets the notification and its recipients to sent
func (r *TenantNotificationRepository) MarkSent(ctx context.Context, notificationID uuid.UUID, at time.Time) error {
	repo, err := r.scoped()
	if err != nil {
		return err
	}
	return repo.MarkSent(ctx, notificationID, at)
}

// MarkRecipientRead marks one recipient's copy as read
func (r *TenantNotificationRepository) MarkRecipientRead(ctx context.Context, recipientRecordID, recipientID uuid.UUID) error {
	repo, err := r.scoped()
	if err != nil {
		return err
	}
	return repo.MarkRecipientRead(ctx, recipientRecordID, recipientID)
}

// FindForRecipient lists recipient entries for an account
func (r *TenantNotificationRepository) FindForRecipient(ctx context.Context, recipientID uuid.UUID, limit int) ([]*notification.RecipientRecord, error) {
	repo, err := r.scoped()
	if err != nil {
		return nil, err
	}
	return repo.FindForRecipient(ctx, recipientID, limit)
}

var _ notification.Repository = (*TenantNotificationRepository)(nil)

// TenantAccountLinkRepository is an AccountLinkRepository bound to the
// tenant resolved at call time
type TenantAccountLinkRepository struct {
	db  *gorm.DB
	src TenantIDSource
}

// NewTenantAccountLinkRepository creates a repository following the current
// tenant context
func NewTenantAccountLinkRepository(db *gorm.DB, src TenantIDSource) *TenantAccountLinkRepository {
	return &TenantAccountLinkRepository{db: db, src: src}
}

func (r *TenantAccountLinkRepository) scoped() (*GormAccountLinkRepository, error) {
	sdb, err := scopedDB(r.db, r.src)
	if err != nil {
		return nil, err
	}
	return NewGormAccountLinkRepository(sdb), nil
}

// FindByStudentIDs returns all links for the given student records
func (r *TenantAccountLinkRepository) FindByStudentIDs(ctx context.Context, studentIDs []uuid.UUID) ([]*school.AccountLink, error) {
	repo, err := r.scoped()
	if err != nil {
		return nil, err
	}
	return repo.FindByStudentIDs(ctx, studentIDs)
}

// Save creates or updates a link
func (r *TenantAccountLinkRepository) Save(ctx context.Context, link *school.AccountLink) error {
	repo, err := r.scoped()
	if err != nil {
		return err
	}
	return repo.Save(ctx, link)
}

var _ school.AccountLinkRepository = (*TenantAccountLinkRepository)(nil)
