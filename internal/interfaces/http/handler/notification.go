package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	appnotification "github.com/schoolms/backend/internal/application/notification"
	"github.com/schoolms/backend/internal/domain/notification"
	"github.com/schoolms/backend/internal/interfaces/http/dto"
	"github.com/schoolms/backend/internal/interfaces/http/middleware"
)

// NotificationHandler exposes notification fanout and the recipient inbox.
// All routes sit behind the tenant guard: no READY tenant context, no
// notification access.
type NotificationHandler struct {
	BaseHandler
	fanout      *appnotification.FanoutService
	repo        notification.Repository
	tenantGuard gin.HandlerFunc
	logger      *zap.Logger
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(
	fanout *appnotification.FanoutService,
	repo notification.Repository,
	tenantGuard gin.HandlerFunc,
	logger *zap.Logger,
) *NotificationHandler {
	return &NotificationHandler{
		fanout:      fanout,
		repo:        repo,
		tenantGuard: tenantGuard,
		logger:      logger,
	}
}

// RegisterRoutes registers notification routes
func (h *NotificationHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/notifications")
	g.Use(h.tenantGuard)
	{
		g.POST("/fanout", h.Fanout)
		g.GET("", h.List)
		g.POST("/:id/read", h.MarkRead)
	}
}

type fanoutStudent struct {
	ID   string `json:"id" binding:"required,uuid"`
	Name string `json:"name" binding:"required"`
}

type fanoutRequest struct {
	Type        string          `json:"type" binding:"required,oneof=grade_entry exam_schedule attendance announcement"`
	Students    []fanoutStudent `json:"students" binding:"required,min=1,dive"`
	SubjectName string          `json:"subject_name"`
	ExamName    string          `json:"exam_name"`
	ClassName   string          `json:"class_name"`
}

type fanoutResponse struct {
	StudentRecipients int     `json:"student_recipients"`
	ParentRecipients  int     `json:"parent_recipients"`
	Sent              int     `json:"sent"`
	Failed            int     `json:"failed"`
	Skipped           int     `json:"skipped"`
	PushAttempted     int     `json:"push_attempted"`
	PushDelivered     int     `json:"push_delivered"`
	PushSuccessRatio  float64 `json:"push_success_ratio"`
}

// Fanout distributes a notification to the accounts linked to the given
// students. Push failures are reported in the summary, never as an error.
func (h *NotificationHandler) Fanout(c *gin.Context) {
	var req fanoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	students := make([]appnotification.StudentRef, 0, len(req.Students))
	for _, s := range req.Students {
		id, err := uuid.Parse(s.ID)
		if err != nil {
			h.BadRequest(c, "Invalid student id: "+s.ID)
			return
		}
		students = append(students, appnotification.StudentRef{ID: id, Name: s.Name})
	}

	result, err := h.fanout.Fanout(c.Request.Context(), appnotification.FanoutInput{
		Type:        notification.NotificationType(req.Type),
		SentBy:      middleware.GetAccountID(c),
		Students:    students,
		SubjectName: req.SubjectName,
		ExamName:    req.ExamName,
		ClassName:   req.ClassName,
	})
	if err != nil {
		h.logger.Error("notification fanout failed", zap.Error(err))
		h.DomainError(c, err)
		return
	}

	h.Success(c, fanoutResponse{
		StudentRecipients: result.StudentRecipients,
		ParentRecipients:  result.ParentRecipients,
		Sent:              result.Sent,
		Failed:            result.Failed,
		Skipped:           result.Skipped,
		PushAttempted:     result.PushAttempted,
		PushDelivered:     result.PushDelivered,
		PushSuccessRatio:  result.PushSuccessRatio(),
	})
}

type inboxEntry struct {
	ID             string `json:"id"`
	NotificationID string `json:"notification_id"`
	RecipientType  string `json:"recipient_type"`
	IsRead         bool   `json:"is_read"`
	DeliveryStatus string `json:"delivery_status"`
}

// List returns the calling account's notification entries, newest first
func (h *NotificationHandler) List(c *gin.Context) {
	req := dto.DefaultListRequest()
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, "Invalid list parameters")
		return
	}

	accountID := middleware.GetAccountID(c)
	if accountID == uuid.Nil {
		h.Unauthorized(c, "Not authenticated")
		return
	}

	entries, err := h.repo.FindForRecipient(c.Request.Context(), accountID, req.Limit)
	if err != nil {
		h.logger.Error("notification list failed", zap.Error(err))
		h.DomainError(c, err)
		return
	}

	out := make([]inboxEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, inboxEntry{
			ID:             e.ID.String(),
			NotificationID: e.NotificationID.String(),
			RecipientType:  string(e.RecipientType),
			IsRead:         e.IsRead,
			DeliveryStatus: string(e.DeliveryStatus),
		})
	}
	h.Success(c, out)
}

// MarkRead marks one of the calling account's entries as read. Accounts can
// only mutate their own entries; anyone else's id yields not found.
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	entryID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid notification entry id")
		return
	}
	accountID := middleware.GetAccountID(c)
	if accountID == uuid.Nil {
		h.Unauthorized(c, "Not authenticated")
		return
	}

	if err := h.repo.MarkRecipientRead(c.Request.Context(), entryID, accountID); err != nil {
		h.DomainError(c, err)
		return
	}
	h.NoContent(c)
}
