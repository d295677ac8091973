package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/openclass/lms-api/internal/models"
)

var (
	// ErrForbidden indicates the actor is not allowed to perform the operation.
	ErrForbidden = errors.New("insufficient permissions")
	// ErrAccessCheck indicates a lookup required to evaluate an access rule
	// could not complete. Callers must deny the operation (fail closed).
	ErrAccessCheck = errors.New("access check failed")
)

// Actor is the authenticated caller of an operation.
type Actor struct {
	ID   uint
	Role string
}

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool { return a.Role == models.RoleAdmin }

// IsInstructor reports whether the actor holds the instructor role.
func (a Actor) IsInstructor() bool { return a.Role == models.RoleInstructor }

// IsStaff reports whether the actor acts in a staff capacity.
func (a Actor) IsStaff() bool { return a.IsAdmin() || a.IsInstructor() }

// Directory provides the enrollment/course/user-membership facts used by
// access checks and notification fanout.
type Directory interface {
	EnrollmentsByStudent(ctx context.Context, studentID uint) ([]models.Enrollment, error)
	EnrollmentsByCourse(ctx context.Context, courseID uint) ([]models.Enrollment, error)
	CoursesByIDs(ctx context.Context, ids []uint) ([]models.Course, error)
	Admins(ctx context.Context) ([]models.User, error)
}

// AccessResolver decides whether an actor may read or modify a support ticket
// or forum thread. All checks are pure predicates over supplied data plus
// directory lookups.
type AccessResolver interface {
	CanAccessTicket(ctx context.Context, actor Actor, ticket models.SupportTicket) (bool, error)
	CanModifyTicketStatus(ctx context.Context, actor Actor, ticket models.SupportTicket) (bool, error)
	CanReplyToForum(actor Actor, thread models.ForumThread) bool
}

type accessResolver struct {
	directory Directory
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewAccessResolver constructs an access resolver over the directory.
func NewAccessResolver(directory Directory, logger zerolog.Logger) AccessResolver {
	return &accessResolver{
		directory: directory,
		logger:    logger.With().Str("component", "access_resolver").Logger(),
		tracer:    otel.Tracer("github.com/openclass/lms-api/internal/service/access"),
	}
}

// CanAccessTicket grants admins unconditionally, owners on their own tickets,
// and instructors that teach at least one course the ticket owner is
// enrolled in.
func (r *accessResolver) CanAccessTicket(ctx context.Context, actor Actor, ticket models.SupportTicket) (bool, error) {
	if actor.IsAdmin() {
		return true, nil
	}
	if actor.ID == ticket.OwnerID {
		return true, nil
	}
	if actor.IsInstructor() {
		return r.teachesStudent(ctx, actor.ID, ticket.OwnerID)
	}
	return false, nil
}

// CanModifyTicketStatus is the same rule minus the owner branch: a student
// may never change their own ticket's status.
func (r *accessResolver) CanModifyTicketStatus(ctx context.Context, actor Actor, ticket models.SupportTicket) (bool, error) {
	if actor.IsAdmin() {
		return true, nil
	}
	if actor.IsInstructor() {
		return r.teachesStudent(ctx, actor.ID, ticket.OwnerID)
	}
	return false, nil
}

// CanReplyToForum permits any authenticated actor to reply to an unlocked
// thread.
func (r *accessResolver) CanReplyToForum(_ Actor, thread models.ForumThread) bool {
	return !thread.Locked
}

// teachesStudent checks whether the instructor owns at least one course the
// student is enrolled in: fetch the student's enrollments, then the courses
// among those ids owned by the instructor.
func (r *accessResolver) teachesStudent(ctx context.Context, instructorID, studentID uint) (bool, error) {
	ctx, span := r.tracer.Start(ctx, "access.teaches_student", trace.WithAttributes(
		attribute.Int("access.instructor_id", int(instructorID)),
		attribute.Int("access.student_id", int(studentID)),
	))
	defer span.End()

	enrollments, err := r.directory.EnrollmentsByStudent(ctx, studentID)
	if err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("%w: enrollments for student %d: %v", ErrAccessCheck, studentID, err)
	}

	if len(enrollments) == 0 {
		return false, nil
	}

	seen := make(map[uint]struct{}, len(enrollments))
	courseIDs := make([]uint, 0, len(enrollments))
	for _, enrollment := range enrollments {
		if _, ok := seen[enrollment.CourseID]; ok {
			continue
		}
		seen[enrollment.CourseID] = struct{}{}
		courseIDs = append(courseIDs, enrollment.CourseID)
	}

	courses, err := r.directory.CoursesByIDs(ctx, courseIDs)
	if err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("%w: courses %v: %v", ErrAccessCheck, courseIDs, err)
	}

	for _, course := range courses {
		if course.InstructorID == instructorID {
			return true, nil
		}
	}

	return false, nil
}
