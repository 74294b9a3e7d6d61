package notification

import (
	"time"

	"github.com/google/uuid"
	"github.com/schoolms/backend/internal/domain/shared"
)

// NotificationType classifies the logical event behind a notification
type NotificationType string

const (
	TypeGradeEntry   NotificationType = "grade_entry"
	TypeExamSchedule NotificationType = "exam_schedule"
	TypeAttendance   NotificationType = "attendance"
	TypeAnnouncement NotificationType = "announcement"
)

// DeliveryStatus represents the in-app delivery state of a notification
type DeliveryStatus string

const (
	DeliveryStatusPending DeliveryStatus = "pending"
	DeliveryStatusSent    DeliveryStatus = "sent"
	DeliveryStatusFailed  DeliveryStatus = "failed"
)

// RecipientType distinguishes student accounts from parent accounts
type RecipientType string

const (
	RecipientTypeStudent RecipientType = "student"
	RecipientTypeParent  RecipientType = "parent"
)

// NotificationRecord is one row per logical notification event (e.g. one
// grade-entry batch for one student), not per recipient. StudentName and
// ExamName participate in the duplicate-suppression heuristic; there is no
// natural key spanning type+student+exam in the underlying store.
type NotificationRecord struct {
	shared.TenantEntity
	Type           NotificationType `gorm:"type:varchar(30);not null;index"`
	Title          string           `gorm:"type:varchar(200);not null"`
	Message        string           `gorm:"type:text;not null"`
	SentBy         uuid.UUID        `gorm:"type:uuid;not null"`
	StudentName    string           `gorm:"type:varchar(100);index"`
	ExamName       string           `gorm:"type:varchar(200)"`
	ClassName      string           `gorm:"type:varchar(100)"`
	SubjectName    string           `gorm:"type:varchar(100)"`
	DeliveryStatus DeliveryStatus   `gorm:"type:varchar(20);not null;default:'pending'"`
	SentAt         *time.Time
}

// TableName returns the table name for GORM
func (NotificationRecord) TableName() string {
	return "notifications"
}

// NewNotificationRecord creates a pending notification for one logical event
func NewNotificationRecord(tenantID, sentBy uuid.UUID, nType NotificationType, title, message string) (*NotificationRecord, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Notification tenant ID cannot be empty")
	}
	if title == "" {
		return nil, shared.NewDomainError("INVALID_TITLE", "Notification title cannot be empty")
	}
	if message == "" {
		return nil, shared.NewDomainError("INVALID_MESSAGE", "Notification message cannot be empty")
	}

	return &NotificationRecord{
		TenantEntity:   shared.NewTenantEntity(tenantID),
		Type:           nType,
		Title:          title,
		Message:        message,
		SentBy:         sentBy,
		DeliveryStatus: DeliveryStatusPending,
	}, nil
}

// MarkSent transitions the record to sent at the given timestamp. All
// recipient records of one fanout share the same timestamp.
func (n *NotificationRecord) MarkSent(at time.Time) {
	n.DeliveryStatus = DeliveryStatusSent
	n.SentAt = &at
	n.UpdatedAt = at
}

// MarkFailed transitions the record to failed
func (n *NotificationRecord) MarkFailed() {
	n.DeliveryStatus = DeliveryStatusFailed
	n.UpdatedAt = time.Now()
}

// RecipientRecord is the per-recipient delivery state for one notification.
// Many-to-one with NotificationRecord.
type RecipientRecord struct {
	shared.TenantEntity
	NotificationID uuid.UUID      `gorm:"type:uuid;not null;index"`
	RecipientID    uuid.UUID      `gorm:"type:uuid;not null;index"`
	RecipientType  RecipientType  `gorm:"type:varchar(20);not null"`
	IsRead         bool           `gorm:"not null;default:false"`
	DeliveryStatus DeliveryStatus `gorm:"type:varchar(20);not null;default:'pending'"`
}

// TableName returns the table name for GORM
func (RecipientRecord) TableName() string {
	return "notification_recipients"
}

// NewRecipientRecord creates a pending recipient entry for a notification
func NewRecipientRecord(n *NotificationRecord, recipientID uuid.UUID, rType RecipientType) (*RecipientRecord, error) {
	if recipientID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_RECIPIENT", "Recipient ID cannot be empty")
	}

	return &RecipientRecord{
		TenantEntity:   shared.NewTenantEntity(n.TenantID),
		NotificationID: n.ID,
		RecipientID:    recipientID,
		RecipientType:  rType,
		DeliveryStatus: DeliveryStatusPending,
	}, nil
}

// ValidateParent checks the tenant invariant against the parent record.
// The backend does not enforce this through foreign-key structure, so it is
// checked explicitly before persisting.
func (r *RecipientRecord) ValidateParent(n *NotificationRecord) error {
	if r.NotificationID != n.ID {
		return shared.NewDomainError("RECIPIENT_MISMATCH", "Recipient does not belong to this notification")
	}
	if r.TenantID != n.TenantID {
		return shared.NewDomainError("TENANT_MISMATCH", "Recipient tenant does not match notification tenant")
	}
	return nil
}

// MarkSent transitions the recipient entry to sent
func (r *RecipientRecord) MarkSent(at time.Time) {
	r.DeliveryStatus = DeliveryStatusSent
	r.UpdatedAt = at
}

// MarkFailed transitions the recipient entry to failed
func (r *RecipientRecord) MarkFailed() {
	r.DeliveryStatus = DeliveryStatusFailed
	r.UpdatedAt = time.Now()
}

// MarkRead marks the recipient's own copy as read
func (r *RecipientRecord) MarkRead() {
	r.IsRead = true
	r.UpdatedAt = time.Now()
}
