package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/openclass/lms-api/internal/models"
)

// Directory aggregates the enrollment, course and user lookups needed to
// evaluate access rules and compute notification recipients.
type Directory struct {
	enrollments EnrollmentRepository
	courses     CourseRepository
	users       UserRepository
}

// NewDirectory constructs a directory over the standard repositories.
func NewDirectory(db *gorm.DB) *Directory {
	return &Directory{
		enrollments: NewEnrollmentRepository(db),
		courses:     NewCourseRepository(db),
		users:       NewUserRepository(db),
	}
}

// EnrollmentsByStudent returns every enrollment held by the given student.
func (d *Directory) EnrollmentsByStudent(ctx context.Context, studentID uint) ([]models.Enrollment, error) {
	return d.enrollments.ListByStudent(ctx, studentID)
}

// EnrollmentsByCourse returns every enrollment in the given course.
func (d *Directory) EnrollmentsByCourse(ctx context.Context, courseID uint) ([]models.Enrollment, error) {
	return d.enrollments.ListByCourse(ctx, courseID)
}

// CoursesByIDs returns the courses matching the supplied identifiers.
func (d *Directory) CoursesByIDs(ctx context.Context, ids []uint) ([]models.Course, error) {
	return d.courses.FindByIDs(ctx, ids)
}

// Admins returns every admin account on the platform.
func (d *Directory) Admins(ctx context.Context) ([]models.User, error) {
	return d.users.ListAdmins(ctx)
}
