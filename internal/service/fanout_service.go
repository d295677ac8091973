package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/openclass/lms-api/internal/models"
	"github.com/openclass/lms-api/internal/observability"
	"github.com/openclass/lms-api/internal/repository"
)

// LiveBroadcaster pushes freshly created notifications to connected clients.
type LiveBroadcaster interface {
	Broadcast(notification models.Notification)
}

// NotificationFanout expands a domain event into one notification record per
// recipient. Every method is best-effort: failures are logged and swallowed
// so the triggering operation never fails because of notification delivery.
type NotificationFanout interface {
	AssignmentCreated(ctx context.Context, assignment models.Assignment)
	AssignmentGraded(ctx context.Context, assignment models.Assignment, studentID uint)
	ForumThreadCreated(ctx context.Context, thread models.ForumThread, course models.Course)
	ForumReplyCreated(ctx context.Context, thread models.ForumThread, priorReplies []models.ForumReply, reply models.ForumReply)
	TicketCreated(ctx context.Context, ticket models.SupportTicket)
	TicketStaffReply(ctx context.Context, ticket models.SupportTicket)
	TicketOwnerReply(ctx context.Context, ticket models.SupportTicket)
	TicketStatusChanged(ctx context.Context, ticket models.SupportTicket)
}

type fanoutService struct {
	directory     Directory
	notifications repository.NotificationRepository
	live          LiveBroadcaster
	logger        zerolog.Logger
	tracer        trace.Tracer
}

// NewNotificationFanout constructs the fanout service. live may be nil when
// no realtime delivery channel is wired.
func NewNotificationFanout(directory Directory, notifications repository.NotificationRepository, live LiveBroadcaster, logger zerolog.Logger) NotificationFanout {
	return &fanoutService{
		directory:     directory,
		notifications: notifications,
		live:          live,
		logger:        logger.With().Str("component", "notification_fanout").Logger(),
		tracer:        otel.Tracer("github.com/openclass/lms-api/internal/service/fanout"),
	}
}

// AssignmentCreated notifies every distinct student enrolled in the
// assignment's course.
func (s *fanoutService) AssignmentCreated(ctx context.Context, assignment models.Assignment) {
	enrollments, err := s.directory.EnrollmentsByCourse(ctx, assignment.CourseID)
	if err != nil {
		s.fail(models.NotificationKindAssignmentCreated, err)
		return
	}

	recipients := newRecipientSet()
	for _, enrollment := range enrollments {
		recipients.add(enrollment.StudentID)
	}

	s.emit(ctx, recipients, models.Notification{
		Kind:      models.NotificationKindAssignmentCreated,
		Title:     "New assignment published",
		Body:      fmt.Sprintf("Assignment %q is due %s.", assignment.Title, assignment.DueDate.Format("Jan 2, 2006")),
		RelatedID: assignment.ID,
	})
}

// AssignmentGraded notifies only the graded student.
func (s *fanoutService) AssignmentGraded(ctx context.Context, assignment models.Assignment, studentID uint) {
	recipients := newRecipientSet()
	recipients.add(studentID)

	s.emit(ctx, recipients, models.Notification{
		Kind:      models.NotificationKindAssignmentGraded,
		Title:     "Assignment graded",
		Body:      fmt.Sprintf("Your submission for %q has been graded.", assignment.Title),
		RelatedID: assignment.ID,
	})
}

// ForumThreadCreated notifies every enrolled student, the course instructor
// and every admin. The creating actor is intentionally not excluded.
func (s *fanoutService) ForumThreadCreated(ctx context.Context, thread models.ForumThread, course models.Course) {
	enrollments, err := s.directory.EnrollmentsByCourse(ctx, thread.CourseID)
	if err != nil {
		s.fail(models.NotificationKindForumThreadCreated, err)
		return
	}

	admins, err := s.directory.Admins(ctx)
	if err != nil {
		s.fail(models.NotificationKindForumThreadCreated, err)
		return
	}

	recipients := newRecipientSet()
	for _, enrollment := range enrollments {
		recipients.add(enrollment.StudentID)
	}
	recipients.add(course.InstructorID)
	for _, admin := range admins {
		recipients.add(admin.ID)
	}

	s.emit(ctx, recipients, models.Notification{
		Kind:      models.NotificationKindForumThreadCreated,
		Title:     "New forum thread",
		Body:      fmt.Sprintf("A new thread %q was opened.", thread.Title),
		RelatedID: thread.ID,
	})
}

// ForumReplyCreated notifies the thread author and every distinct prior reply
// author, excluding the actor who posted the new reply. The participant list
// is a read-then-write snapshot; concurrent replies may miss each other,
// which is accepted behaviour.
func (s *fanoutService) ForumReplyCreated(ctx context.Context, thread models.ForumThread, priorReplies []models.ForumReply, reply models.ForumReply) {
	recipients := newRecipientSet()
	recipients.add(thread.AuthorID)
	for _, prior := range priorReplies {
		recipients.add(prior.AuthorID)
	}
	recipients.remove(reply.AuthorID)

	s.emit(ctx, recipients, models.Notification{
		Kind:      models.NotificationKindForumReply,
		Title:     "New reply",
		Body:      fmt.Sprintf("There is a new reply in %q.", thread.Title),
		RelatedID: thread.ID,
	})
}

// TicketCreated notifies every admin.
func (s *fanoutService) TicketCreated(ctx context.Context, ticket models.SupportTicket) {
	admins, err := s.directory.Admins(ctx)
	if err != nil {
		s.fail(models.NotificationKindTicketCreated, err)
		return
	}

	recipients := newRecipientSet()
	for _, admin := range admins {
		recipients.add(admin.ID)
	}

	s.emit(ctx, recipients, models.Notification{
		Kind:      models.NotificationKindTicketCreated,
		Title:     "New support ticket",
		Body:      fmt.Sprintf("Ticket %q was opened.", ticket.Subject),
		RelatedID: ticket.ID,
	})
}

// TicketStaffReply notifies the ticket owner.
func (s *fanoutService) TicketStaffReply(ctx context.Context, ticket models.SupportTicket) {
	recipients := newRecipientSet()
	recipients.add(ticket.OwnerID)

	s.emit(ctx, recipients, models.Notification{
		Kind:      models.NotificationKindTicketReply,
		Title:     "Support replied to your ticket",
		Body:      fmt.Sprintf("There is a new reply on %q.", ticket.Subject),
		RelatedID: ticket.ID,
	})
}

// TicketOwnerReply notifies the assignee if one is set; otherwise nobody.
func (s *fanoutService) TicketOwnerReply(ctx context.Context, ticket models.SupportTicket) {
	if ticket.AssignedTo == nil {
		return
	}

	recipients := newRecipientSet()
	recipients.add(*ticket.AssignedTo)

	s.emit(ctx, recipients, models.Notification{
		Kind:      models.NotificationKindTicketReply,
		Title:     "Ticket updated",
		Body:      fmt.Sprintf("The reporter replied on %q.", ticket.Subject),
		RelatedID: ticket.ID,
	})
}

// TicketStatusChanged notifies the ticket owner.
func (s *fanoutService) TicketStatusChanged(ctx context.Context, ticket models.SupportTicket) {
	recipients := newRecipientSet()
	recipients.add(ticket.OwnerID)

	s.emit(ctx, recipients, models.Notification{
		Kind:      models.NotificationKindTicketStatus,
		Title:     "Ticket status changed",
		Body:      fmt.Sprintf("Ticket %q is now %s.", ticket.Subject, ticket.Status),
		RelatedID: ticket.ID,
	})
}

// emit materialises one notification per recipient and inserts them as a
// single batch. Insert failures are logged only; partial delivery is
// acceptable for this best-effort path.
func (s *fanoutService) emit(ctx context.Context, recipients *recipientSet, template models.Notification) {
	if recipients.empty() {
		return
	}

	ctx, span := s.tracer.Start(ctx, "fanout.emit", trace.WithAttributes(
		attribute.String("fanout.kind", template.Kind),
		attribute.Int("fanout.recipients", recipients.len()),
	))
	defer span.End()

	notifications := make([]models.Notification, 0, recipients.len())
	for _, recipientID := range recipients.ids() {
		notification := template
		notification.RecipientID = recipientID
		notifications = append(notifications, notification)
	}

	if err := s.notifications.InsertMany(ctx, notifications); err != nil {
		span.RecordError(err)
		s.fail(template.Kind, err)
		return
	}

	observability.NotificationsFanout().WithLabelValues(template.Kind).Add(float64(len(notifications)))

	if s.live != nil {
		for _, notification := range notifications {
			s.live.Broadcast(notification)
		}
	}
}

func (s *fanoutService) fail(kind string, err error) {
	observability.FanoutFailures().WithLabelValues(kind).Inc()
	s.logger.Error().Err(err).Str("kind", kind).Msg("notification fanout failed")
}

// recipientSet de-duplicates recipients while preserving insertion order so
// batches are deterministic.
type recipientSet struct {
	seen  map[uint]struct{}
	order []uint
}

func newRecipientSet() *recipientSet {
	return &recipientSet{seen: make(map[uint]struct{})}
}

func (r *recipientSet) add(id uint) {
	if id == 0 {
		return
	}
	if _, ok := r.seen[id]; ok {
		return
	}
	r.seen[id] = struct{}{}
	r.order = append(r.order, id)
}

func (r *recipientSet) remove(id uint) {
	if _, ok := r.seen[id]; !ok {
		return
	}
	delete(r.seen, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

func (r *recipientSet) ids() []uint { return r.order }

func (r *recipientSet) len() int { return len(r.order) }

func (r *recipientSet) empty() bool { return len(r.order) == 0 }
