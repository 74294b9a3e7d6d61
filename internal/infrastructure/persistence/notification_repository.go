package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/schoolms/backend/internal/domain/notification"
	"github.com/schoolms/backend/internal/domain/shared"
	"github.com/schoolms/backend/internal/infrastructure/persistence/scope"
)

// GormNotificationRepository implements notification.Repository on the
// tenant-scoped query surface. It cannot be constructed without a resolved
// tenant because ScopedDB cannot.
type GormNotificationRepository struct {
	sdb *scope.ScopedDB
}

// NewGormNotificationRepository creates a repository bound to one tenant
func NewGormNotificationRepository(sdb *scope.ScopedDB) *GormNotificationRepository {
	return &GormNotificationRepository{sdb: sdb}
}

// Create saves a notification and its recipient records. The notification
// row is written first; a recipient insertion failure leaves it in place
// and surfaces as PartialDeliveryError.
func (r *GormNotificationRepository) Create(ctx context.Context, n *notification.NotificationRecord, recipients []*notification.RecipientRecord) error {
	for _, rec := range recipients {
		if err := rec.ValidateParent(n); err != nil {
			return err
		}
	}

	if err := r.sdb.Create(ctx, n); err != nil {
		return err
	}

	if len(recipients) == 0 {
		return nil
	}
	if err := r.sdb.Create(ctx, recipients); err != nil {
		return &notification.PartialDeliveryError{NotificationID: n.ID, Err: err}
	}
	return nil
}

// FindRecentDuplicate returns an existing notification of the same type
// whose student and exam names contain the given substrings, created at or
// after since. Returns nil when none exists.
func (r *GormNotificationRepository) FindRecentDuplicate(ctx context.Context, nType notification.NotificationType, studentName, examName string, since time.Time) (*notification.NotificationRecord, error) {
	var matches []notification.NotificationRecord
	err := r.sdb.FindPage(ctx, &matches, "created_at DESC", 1,
		"type = ? AND created_at >= ? AND student_name LIKE ? AND exam_name LIKE ?",
		nType, since, "%"+studentName+"%", "%"+examName+"%")
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, nil
	}
	return &matches[0], nil
}

// MarkSent sets the notification and all its recipient records to sent
// with one shared timestamp
func (r *GormNotificationRepository) MarkSent(ctx context.Context, notificationID uuid.UUID, at time.Time) error {
	return r.sdb.Transaction(ctx, func(tx *scope.ScopedDB) error {
		affected, err := tx.Updates(ctx, &notification.NotificationRecord{}, map[string]any{
			"delivery_status": notification.DeliveryStatusSent,
			"sent_at":         at,
			"updated_at":      at,
		}, "id = ?", notificationID)
		if err != nil {
			return err
		}
		if affected == 0 {
			return shared.ErrNotFound
		}

		_, err = tx.Updates(ctx, &notification.RecipientRecord{}, map[string]any{
			"delivery_status": notification.DeliveryStatusSent,
			"updated_at":      at,
		}, "notification_id = ?", notificationID)
		return err
	})
}

// MarkRecipientRead marks one recipient's copy as read. The recipient id
// is part of the predicate so accounts can only mutate their own entry.
func (r *GormNotificationRepository) MarkRecipientRead(ctx context.Context, recipientRecordID, recipientID uuid.UUID) error {
	affected, err := r.sdb.Updates(ctx, &notification.RecipientRecord{}, map[string]any{
		"is_read":    true,
		"updated_at": time.Now(),
	}, "id = ? AND recipient_id = ?", recipientRecordID, recipientID)
	if err != nil {
		return err
	}
	if affected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// FindForRecipient lists recipient entries for an account, newest first
func (r *GormNotificationRepository) FindForRecipient(ctx context.Context, recipientID uuid.UUID, limit int) ([]*notification.RecipientRecord, error) {
	var entries []*notification.RecipientRecord
	err := r.sdb.FindPage(ctx, &entries, "created_at DESC", limit, "recipient_id = ?", recipientID)
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Ensure GormNotificationRepository implements notification.Repository
var _ notification.Repository = (*GormNotificationRepository)(nil)
