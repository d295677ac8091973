package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"

	"github.com/openclass/lms-api/internal/dto"
	"github.com/openclass/lms-api/internal/models"
	"github.com/openclass/lms-api/internal/repository"
)

// ErrAlreadyEnrolled indicates the student already holds an enrollment in
// the course.
var ErrAlreadyEnrolled = errors.New("student already enrolled in course")

// CourseService exposes course and enrollment use-cases.
type CourseService interface {
	Create(ctx context.Context, actor Actor, payload dto.CourseCreateRequest) (dto.CourseResponse, error)
	Get(ctx context.Context, id uint) (dto.CourseResponse, error)
	List(ctx context.Context, limit, offset int) ([]dto.CourseResponse, error)
	Update(ctx context.Context, id uint, actor Actor, payload dto.CourseUpdateRequest) (dto.CourseResponse, error)
	Delete(ctx context.Context, id uint, actor Actor) error
	Enroll(ctx context.Context, actor Actor, payload dto.EnrollmentCreateRequest) (dto.EnrollmentResponse, error)
	ListEnrollments(ctx context.Context, courseID uint) ([]dto.EnrollmentResponse, error)
}

type courseService struct {
	courses     repository.CourseRepository
	enrollments repository.EnrollmentRepository
	validator   *validator.Validate
	logger      zerolog.Logger
	sanitizer   *bluemonday.Policy
}

// NewCourseService constructs a course service.
func NewCourseService(courses repository.CourseRepository, enrollments repository.EnrollmentRepository, validate *validator.Validate, logger zerolog.Logger) CourseService {
	return &courseService{
		courses:     courses,
		enrollments: enrollments,
		validator:   validate,
		logger:      logger.With().Str("component", "course_service").Logger(),
		sanitizer:   bluemonday.UGCPolicy(),
	}
}

func (s *courseService) Create(ctx context.Context, actor Actor, payload dto.CourseCreateRequest) (dto.CourseResponse, error) {
	if !actor.IsStaff() {
		return dto.CourseResponse{}, ErrForbidden
	}

	if err := s.validator.Struct(payload); err != nil {
		return dto.CourseResponse{}, err
	}

	title := strings.TrimSpace(s.sanitizer.Sanitize(payload.Title))
	if title == "" {
		return dto.CourseResponse{}, errors.New("course title empty after sanitization")
	}

	course := models.Course{
		Title:        title,
		Description:  strings.TrimSpace(s.sanitizer.Sanitize(payload.Description)),
		InstructorID: actor.ID,
	}

	if err := s.courses.Create(ctx, &course); err != nil {
		return dto.CourseResponse{}, err
	}

	s.logger.Info().Uint("course_id", course.ID).Uint("instructor_id", actor.ID).Msg("course created")

	return dto.NewCourseResponse(course), nil
}

func (s *courseService) Get(ctx context.Context, id uint) (dto.CourseResponse, error) {
	course, err := s.courses.FindByID(ctx, id)
	if err != nil {
		return dto.CourseResponse{}, err
	}
	return dto.NewCourseResponse(course), nil
}

func (s *courseService) List(ctx context.Context, limit, offset int) ([]dto.CourseResponse, error) {
	courses, err := s.courses.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	return dto.NewCourseResponseSlice(courses), nil
}

func (s *courseService) Update(ctx context.Context, id uint, actor Actor, payload dto.CourseUpdateRequest) (dto.CourseResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.CourseResponse{}, err
	}

	course, err := s.courses.FindByID(ctx, id)
	if err != nil {
		return dto.CourseResponse{}, err
	}

	if course.InstructorID != actor.ID && !actor.IsAdmin() {
		return dto.CourseResponse{}, ErrForbidden
	}

	if payload.Title != nil {
		title := strings.TrimSpace(s.sanitizer.Sanitize(*payload.Title))
		if title == "" {
			return dto.CourseResponse{}, errors.New("course title empty after sanitization")
		}
		course.Title = title
	}
	if payload.Description != nil {
		course.Description = strings.TrimSpace(s.sanitizer.Sanitize(*payload.Description))
	}

	if err := s.courses.Update(ctx, &course); err != nil {
		return dto.CourseResponse{}, err
	}

	return dto.NewCourseResponse(course), nil
}

func (s *courseService) Delete(ctx context.Context, id uint, actor Actor) error {
	course, err := s.courses.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if course.InstructorID != actor.ID && !actor.IsAdmin() {
		return ErrForbidden
	}

	return s.courses.Delete(ctx, id)
}

func (s *courseService) Enroll(ctx context.Context, actor Actor, payload dto.EnrollmentCreateRequest) (dto.EnrollmentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.EnrollmentResponse{}, err
	}

	// Ensure the course exists before linking.
	if _, err := s.courses.FindByID(ctx, payload.CourseID); err != nil {
		return dto.EnrollmentResponse{}, err
	}

	exists, err := s.enrollments.Exists(ctx, actor.ID, payload.CourseID)
	if err != nil {
		return dto.EnrollmentResponse{}, err
	}
	if exists {
		return dto.EnrollmentResponse{}, ErrAlreadyEnrolled
	}

	enrollment := models.Enrollment{
		StudentID: actor.ID,
		CourseID:  payload.CourseID,
	}

	if err := s.enrollments.Create(ctx, &enrollment); err != nil {
		return dto.EnrollmentResponse{}, err
	}

	s.logger.Info().Uint("student_id", actor.ID).Uint("course_id", payload.CourseID).Msg("student enrolled")

	return dto.NewEnrollmentResponse(enrollment), nil
}

func (s *courseService) ListEnrollments(ctx context.Context, courseID uint) ([]dto.EnrollmentResponse, error) {
	enrollments, err := s.enrollments.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	return dto.NewEnrollmentResponseSlice(enrollments), nil
}
