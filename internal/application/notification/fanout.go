package notification

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/schoolms/backend/internal/domain/notification"
	"github.com/schoolms/backend/internal/domain/school"
	"github.com/schoolms/backend/internal/domain/shared"
	"github.com/schoolms/backend/internal/infrastructure/config"
)

// StudentRef identifies one affected student in a fanout request. The name
// participates in duplicate suppression, so it must be the display name as
// stored on the student record.
type StudentRef struct {
	ID   uuid.UUID
	Name string
}

// FanoutInput describes one batch of logical notification events, e.g. the
// grade entries saved for an exam.
type FanoutInput struct {
	Type        notification.NotificationType
	SentBy      uuid.UUID
	Students    []StudentRef
	SubjectName string
	ExamName    string
	ClassName   string
}

// FanoutResult aggregates the outcome of one fanout call. In-app delivery
// and push delivery are counted independently.
type FanoutResult struct {
	StudentRecipients int // resolved student accounts
	ParentRecipients  int // resolved parent accounts
	Sent              int // notifications created and marked sent
	Failed            int // notifications that could not be fully persisted
	Skipped           int // suppressed as duplicates of a recent notification
	PushAttempted     int
	PushDelivered     int
}

// ResolvedRecipients returns the total number of accounts that will receive
// an in-app notification
func (r FanoutResult) ResolvedRecipients() int {
	return r.StudentRecipients + r.ParentRecipients
}

// PushSuccessRatio returns delivered/attempted, or 1 when no push was due
func (r FanoutResult) PushSuccessRatio() float64 {
	if r.PushAttempted == 0 {
		return 1
	}
	return float64(r.PushDelivered) / float64(r.PushAttempted)
}

// pushJob is one pending push dispatch for a resolved recipient
type pushJob struct {
	token string
	msg   notification.PushMessage
}

// FanoutService distributes one logical event to the accounts linked to the
// affected students. Recipients are resolved through account links, recent
// near-duplicates are suppressed, and push delivery runs concurrently as a
// best-effort channel that never affects the persisted records.
type FanoutService struct {
	repo        notification.Repository
	links       school.AccountLinkRepository
	sender      notification.PushSender
	dedupWindow time.Duration
	maxParallel int
	maxStudents int
	logger      *zap.Logger
}

// NewFanoutService creates a fanout service with the configured policy
func NewFanoutService(
	repo notification.Repository,
	links school.AccountLinkRepository,
	sender notification.PushSender,
	cfg config.NotificationConfig,
	logger *zap.Logger,
) *FanoutService {
	return &FanoutService{
		repo:        repo,
		links:       links,
		sender:      sender,
		dedupWindow: cfg.DedupWindow,
		maxParallel: cfg.MaxConcurrency,
		maxStudents: cfg.RecipientsLimit,
		logger:      logger,
	}
}

// Fanout resolves recipients for each affected student, creates one
// notification per student that has at least one linked account, and
// dispatches push delivery. Students with no linked accounts are excluded
// silently; duplicate events within the dedup window are skipped.
func (s *FanoutService) Fanout(ctx context.Context, input FanoutInput) (*FanoutResult, error) {
	if len(input.Students) == 0 {
		return &FanoutResult{}, nil
	}
	if s.maxStudents > 0 && len(input.Students) > s.maxStudents {
		return nil, shared.NewDomainError("TOO_MANY_RECIPIENTS",
			fmt.Sprintf("Fanout limited to %d students per call", s.maxStudents))
	}

	ids := make([]uuid.UUID, 0, len(input.Students))
	for _, st := range input.Students {
		ids = append(ids, st.ID)
	}
	links, err := s.links.FindByStudentIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byStudent := make(map[uuid.UUID][]*school.AccountLink, len(links))
	for _, link := range links {
		byStudent[link.StudentID] = append(byStudent[link.StudentID], link)
	}

	result := &FanoutResult{}
	var jobs []pushJob
	since := time.Now().Add(-s.dedupWindow)

	for _, student := range input.Students {
		studentLinks := byStudent[student.ID]
		if len(studentLinks) == 0 {
			continue
		}

		dup, err := s.repo.FindRecentDuplicate(ctx, input.Type, student.Name, input.ExamName, since)
		if err != nil {
			return nil, err
		}
		if dup != nil {
			s.logger.Info("skipping duplicate notification",
				zap.String("type", string(input.Type)),
				zap.String("student", student.Name),
				zap.String("exam", input.ExamName),
				zap.String("existing_id", dup.ID.String()),
			)
			result.Skipped++
			continue
		}

		studentJobs, err := s.deliverOne(ctx, input, student, studentLinks, result)
		if err != nil {
			s.logger.Error("notification fanout failed for student",
				zap.String("student_id", student.ID.String()),
				zap.Error(err),
			)
			result.Failed++
			continue
		}
		jobs = append(jobs, studentJobs...)
		result.Sent++
	}

	s.dispatchPush(ctx, jobs, result)
	return result, nil
}

// deliverOne creates and marks sent the notification for one student.
// Returns the push jobs for its resolved recipients.
func (s *FanoutService) deliverOne(
	ctx context.Context,
	input FanoutInput,
	student StudentRef,
	links []*school.AccountLink,
	result *FanoutResult,
) ([]pushJob, error) {
	title, message := composeContent(input, student)

	tenantID := links[0].TenantID
	record, err := notification.NewNotificationRecord(tenantID, input.SentBy, input.Type, title, message)
	if err != nil {
		return nil, err
	}
	record.StudentName = student.Name
	record.ExamName = input.ExamName
	record.ClassName = input.ClassName
	record.SubjectName = input.SubjectName

	recipients := make([]*notification.RecipientRecord, 0, len(links))
	var jobs []pushJob
	for _, link := range links {
		rType := notification.RecipientTypeStudent
		if link.Relation == school.LinkRelationParent {
			rType = notification.RecipientTypeParent
		}
		recipient, err := notification.NewRecipientRecord(record, link.AccountID, rType)
		if err != nil {
			return nil, err
		}
		recipients = append(recipients, recipient)

		if rType == notification.RecipientTypeParent {
			result.ParentRecipients++
		} else {
			result.StudentRecipients++
		}

		if link.PushToken != "" {
			jobs = append(jobs, pushJob{
				token: link.PushToken,
				msg: notification.PushMessage{
					Token: link.PushToken,
					Title: title,
					Body:  message,
					Data: map[string]string{
						"notification_id": record.ID.String(),
						"type":            string(input.Type),
					},
				},
			})
		}
	}

	if err := s.repo.Create(ctx, record, recipients); err != nil {
		return nil, err
	}
	if err := s.repo.MarkSent(ctx, record.ID, time.Now()); err != nil {
		return nil, err
	}
	return jobs, nil
}

// dispatchPush delivers push messages concurrently with a bounded worker
// count. Every job settles; individual failures are logged and counted,
// never propagated.
func (s *FanoutService) dispatchPush(ctx context.Context, jobs []pushJob, result *FanoutResult) {
	if len(jobs) == 0 {
		return
	}

	limit := s.maxParallel
	if limit <= 0 {
		limit = 1
	}
	sem := make(chan struct{}, limit)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		delivered int
	)
	for _, job := range jobs {
		wg.Add(1)
		sem <- struct{}{}
		go func(job pushJob) {
			defer wg.Done()
			defer func() { <-sem }()

			if err := s.sender.Send(ctx, job.msg); err != nil {
				s.logger.Warn("push delivery failed",
					zap.String("title", job.msg.Title),
					zap.Error(err),
				)
				return
			}
			mu.Lock()
			delivered++
			mu.Unlock()
		}(job)
	}
	wg.Wait()

	result.PushAttempted = len(jobs)
	result.PushDelivered = delivered
}

// composeContent builds the user-facing title and message for one student
func composeContent(input FanoutInput, student StudentRef) (string, string) {
	switch input.Type {
	case notification.TypeGradeEntry:
		title := fmt.Sprintf("New grades: %s", input.ExamName)
		msg := fmt.Sprintf("Grades for %s (%s) have been published for %s.",
			input.ExamName, input.SubjectName, student.Name)
		return title, msg
	case notification.TypeExamSchedule:
		title := fmt.Sprintf("Exam scheduled: %s", input.ExamName)
		msg := fmt.Sprintf("%s (%s) has been scheduled for class %s.",
			input.ExamName, input.SubjectName, input.ClassName)
		return title, msg
	case notification.TypeAttendance:
		title := "Attendance update"
		msg := fmt.Sprintf("An attendance record was updated for %s.", student.Name)
		return title, msg
	default:
		title := "School announcement"
		msg := fmt.Sprintf("A new announcement is available for %s.", student.Name)
		return title, msg
	}
}
