package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for notification persistence. All
// operations are tenant-scoped by the implementation.
type Repository interface {
	// Create saves a notification together with its recipient records.
	// If recipient insertion fails after the notification row is written,
	// the notification is considered partially delivered; the caller
	// records the failure but does not roll back.
	Create(ctx context.Context, n *NotificationRecord, recipients []*RecipientRecord) error

	// FindRecentDuplicate returns an existing notification of the same
	// type whose student and exam names contain the given substrings,
	// created at or after since. Returns nil when none exists.
	FindRecentDuplicate(ctx context.Context, nType NotificationType, studentName, examName string, since time.Time) (*NotificationRecord, error)

	// MarkSent sets the notification and all its recipient records to
	// sent with a single shared timestamp.
	MarkSent(ctx context.Context, notificationID uuid.UUID, at time.Time) error

	// MarkRecipientRead marks one recipient's copy as read. Recipients
	// may only mutate their own entry.
	MarkRecipientRead(ctx context.Context, recipientRecordID, recipientID uuid.UUID) error

	// FindForRecipient lists recipient entries for an account, newest
	// first, joined with their parent notifications.
	FindForRecipient(ctx context.Context, recipientID uuid.UUID, limit int) ([]*RecipientRecord, error)
}
