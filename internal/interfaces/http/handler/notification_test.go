package handler

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appnotification "github.com/schoolms/backend/internal/application/notification"
	"github.com/schoolms/backend/internal/domain/notification"
	"github.com/schoolms/backend/internal/domain/school"
	"github.com/schoolms/backend/internal/domain/shared"
	"github.com/schoolms/backend/internal/infrastructure/config"
	"github.com/schoolms/backend/internal/interfaces/http/dto"
	"github.com/schoolms/backend/internal/interfaces/http/middleware"
)

// inboxRepo keeps notifications in memory for handler tests
type inboxRepo struct {
	mu         sync.Mutex
	records    []*notification.NotificationRecord
	recipients []*notification.RecipientRecord
	listErr    error
	markErr    error
}

func (r *inboxRepo) Create(ctx context.Context, n *notification.NotificationRecord, recipients []*notification.RecipientRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, n)
	r.recipients = append(r.recipients, recipients...)
	return nil
}

func (r *inboxRepo) FindRecentDuplicate(ctx context.Context, nType notification.NotificationType, studentName, examName string, since time.Time) (*notification.NotificationRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.Type == nType &&
			strings.Contains(rec.StudentName, studentName) &&
			strings.Contains(rec.ExamName, examName) &&
			!rec.CreatedAt.Before(since) {
			return rec, nil
		}
	}
	return nil, nil
}

func (r *inboxRepo) MarkSent(ctx context.Context, notificationID uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.ID == notificationID {
			rec.MarkSent(at)
		}
	}
	for _, rec := range r.recipients {
		if rec.NotificationID == notificationID {
			rec.MarkSent(at)
		}
	}
	return nil
}

func (r *inboxRepo) MarkRecipientRead(ctx context.Context, recipientRecordID, recipientID uuid.UUID) error {
	if r.markErr != nil {
		return r.markErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.recipients {
		if rec.ID == recipientRecordID && rec.RecipientID == recipientID {
			rec.MarkRead()
			return nil
		}
	}
	return shared.ErrNotFound
}

func (r *inboxRepo) FindForRecipient(ctx context.Context, recipientID uuid.UUID, limit int) ([]*notification.RecipientRecord, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*notification.RecipientRecord
	for _, rec := range r.recipients {
		if rec.RecipientID == recipientID {
			out = append(out, rec)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

type linkRepo struct {
	links []*school.AccountLink
}

func (r *linkRepo) FindByStudentIDs(ctx context.Context, studentIDs []uuid.UUID) ([]*school.AccountLink, error) {
	wanted := make(map[uuid.UUID]bool, len(studentIDs))
	for _, id := range studentIDs {
		wanted[id] = true
	}
	var out []*school.AccountLink
	for _, l := range r.links {
		if wanted[l.StudentID] {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r *linkRepo) Save(ctx context.Context, link *school.AccountLink) error {
	r.links = append(r.links, link)
	return nil
}

type recordingSender struct {
	mu   sync.Mutex
	sent []notification.PushMessage
}

func (s *recordingSender) Send(ctx context.Context, msg notification.PushMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg)
	return nil
}

type notificationFixture struct {
	router    *gin.Engine
	repo      *inboxRepo
	links     *linkRepo
	sender    *recordingSender
	tenantID  uuid.UUID
	accountID uuid.UUID
}

// authenticated simulates the upstream auth and tenant middleware
func authenticated(accountID, tenantID uuid.UUID) gin.HandlerFunc {
	return func(c *gin.Context) {
		if accountID != uuid.Nil {
			c.Set(middleware.AccountIDKey, accountID.String())
		}
		if tenantID != uuid.Nil {
			c.Set(middleware.TenantIDKey, tenantID.String())
		}
		c.Next()
	}
}

func newNotificationFixture(t *testing.T, accountID uuid.UUID) *notificationFixture {
	t.Helper()

	f := &notificationFixture{
		repo:      &inboxRepo{},
		links:     &linkRepo{},
		sender:    &recordingSender{},
		tenantID:  uuid.New(),
		accountID: accountID,
	}

	logger := zap.NewNop()
	fanout := appnotification.NewFanoutService(f.repo, f.links, f.sender, config.NotificationConfig{
		DedupWindow:     24 * time.Hour,
		MaxConcurrency:  4,
		RecipientsLimit: 50,
	}, logger)

	guard := func(c *gin.Context) { c.Next() }
	h := NewNotificationHandler(fanout, f.repo, guard, logger)

	router := gin.New()
	router.Use(authenticated(accountID, f.tenantID))
	h.RegisterRoutes(router.Group("/api/v1"))
	f.router = router
	return f
}

func (f *notificationFixture) addLink(t *testing.T, studentID uuid.UUID, relation school.LinkRelation, token string) *school.AccountLink {
	t.Helper()
	link, err := school.NewAccountLink(f.tenantID, studentID, uuid.New(), relation)
	require.NoError(t, err)
	if token != "" {
		link.SetPushToken(token)
	}
	require.NoError(t, f.links.Save(context.Background(), link))
	return link
}

func TestNotificationHandler_Fanout(t *testing.T) {
	t.Run("delivers to linked accounts and reports the summary", func(t *testing.T) {
		f := newNotificationFixture(t, uuid.New())

		linked := uuid.New()
		unlinked := uuid.New()
		f.addLink(t, linked, school.LinkRelationStudent, "tok-student")
		f.addLink(t, linked, school.LinkRelationParent, "tok-parent")

		w := doJSON(t, f.router, http.MethodPost, "/api/v1/notifications/fanout", gin.H{
			"type": "grade_entry",
			"students": []gin.H{
				{"id": linked.String(), "name": "Alice Chen"},
				{"id": unlinked.String(), "name": "Bob Lee"},
			},
			"subject_name": "Mathematics",
			"exam_name":    "Midterm Exam",
		})

		require.Equal(t, http.StatusOK, w.Code)
		data := dataMap(t, decodeResponse(t, w))
		assert.Equal(t, float64(1), data["sent"])
		assert.Equal(t, float64(0), data["failed"])
		assert.Equal(t, float64(1), data["student_recipients"])
		assert.Equal(t, float64(1), data["parent_recipients"])
		assert.Equal(t, float64(2), data["push_attempted"])
		assert.Equal(t, float64(2), data["push_delivered"])
		assert.Equal(t, float64(1), data["push_success_ratio"])

		require.Len(t, f.repo.records, 1)
		assert.Equal(t, f.tenantID, f.repo.records[0].TenantID)
		assert.Len(t, f.repo.recipients, 2)
		assert.Len(t, f.sender.sent, 2)
	})

	t.Run("skips a recent duplicate", func(t *testing.T) {
		f := newNotificationFixture(t, uuid.New())
		student := uuid.New()
		f.addLink(t, student, school.LinkRelationStudent, "")

		body := gin.H{
			"type":      "grade_entry",
			"students":  []gin.H{{"id": student.String(), "name": "Alice Chen"}},
			"exam_name": "Midterm Exam",
		}

		first := doJSON(t, f.router, http.MethodPost, "/api/v1/notifications/fanout", body)
		require.Equal(t, http.StatusOK, first.Code)

		second := doJSON(t, f.router, http.MethodPost, "/api/v1/notifications/fanout", body)
		require.Equal(t, http.StatusOK, second.Code)

		data := dataMap(t, decodeResponse(t, second))
		assert.Equal(t, float64(0), data["sent"])
		assert.Equal(t, float64(1), data["skipped"])
		assert.Len(t, f.repo.records, 1)
	})

	t.Run("rejects an unknown notification type", func(t *testing.T) {
		f := newNotificationFixture(t, uuid.New())

		w := doJSON(t, f.router, http.MethodPost, "/api/v1/notifications/fanout", gin.H{
			"type":     "marketing_blast",
			"students": []gin.H{{"id": uuid.New().String(), "name": "Alice Chen"}},
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("rejects an empty student list", func(t *testing.T) {
		f := newNotificationFixture(t, uuid.New())

		w := doJSON(t, f.router, http.MethodPost, "/api/v1/notifications/fanout", gin.H{
			"type":     "grade_entry",
			"students": []gin.H{},
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestNotificationHandler_List(t *testing.T) {
	t.Run("returns the calling account's entries", func(t *testing.T) {
		accountID := uuid.New()
		f := newNotificationFixture(t, accountID)

		student := uuid.New()
		f.addLink(t, student, school.LinkRelationStudent, "")
		record, err := notification.NewNotificationRecord(f.tenantID, uuid.New(),
			notification.TypeGradeEntry, "New grade", "Alice Chen received a grade")
		require.NoError(t, err)
		mine, err := notification.NewRecipientRecord(record, accountID, notification.RecipientTypeStudent)
		require.NoError(t, err)
		other, err := notification.NewRecipientRecord(record, uuid.New(), notification.RecipientTypeParent)
		require.NoError(t, err)
		require.NoError(t, f.repo.Create(context.Background(), record, []*notification.RecipientRecord{mine, other}))

		w := doJSON(t, f.router, http.MethodGet, "/api/v1/notifications", nil)
		require.Equal(t, http.StatusOK, w.Code)

		resp := decodeResponse(t, w)
		entries, ok := resp.Data.([]any)
		require.True(t, ok)
		require.Len(t, entries, 1)
		entry := entries[0].(map[string]any)
		assert.Equal(t, mine.ID.String(), entry["id"])
		assert.Equal(t, record.ID.String(), entry["notification_id"])
		assert.Equal(t, "student", entry["recipient_type"])
		assert.Equal(t, false, entry["is_read"])
	})

	t.Run("rejects an unauthenticated caller", func(t *testing.T) {
		f := newNotificationFixture(t, uuid.Nil)

		w := doJSON(t, f.router, http.MethodGet, "/api/v1/notifications", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestNotificationHandler_MarkRead(t *testing.T) {
	newEntry := func(t *testing.T, f *notificationFixture, recipientID uuid.UUID) *notification.RecipientRecord {
		t.Helper()
		record, err := notification.NewNotificationRecord(f.tenantID, uuid.New(),
			notification.TypeGradeEntry, "New grade", "Alice Chen received a grade")
		require.NoError(t, err)
		entry, err := notification.NewRecipientRecord(record, recipientID, notification.RecipientTypeStudent)
		require.NoError(t, err)
		require.NoError(t, f.repo.Create(context.Background(), record, []*notification.RecipientRecord{entry}))
		return entry
	}

	t.Run("marks the caller's own entry", func(t *testing.T) {
		accountID := uuid.New()
		f := newNotificationFixture(t, accountID)
		entry := newEntry(t, f, accountID)

		w := doJSON(t, f.router, http.MethodPost, "/api/v1/notifications/"+entry.ID.String()+"/read", nil)
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.True(t, entry.IsRead)
	})

	t.Run("yields not found for someone else's entry", func(t *testing.T) {
		f := newNotificationFixture(t, uuid.New())
		entry := newEntry(t, f, uuid.New())

		w := doJSON(t, f.router, http.MethodPost, "/api/v1/notifications/"+entry.ID.String()+"/read", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.False(t, entry.IsRead)
	})

	t.Run("rejects a malformed entry id", func(t *testing.T) {
		f := newNotificationFixture(t, uuid.New())

		w := doJSON(t, f.router, http.MethodPost, "/api/v1/notifications/not-a-uuid/read", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		resp := decodeResponse(t, w)
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeBadRequest, resp.Error.Code)
	})
}
