package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/openclass/lms-api/internal/dto"
	"github.com/openclass/lms-api/internal/models"
	"github.com/openclass/lms-api/internal/observability"
	"github.com/openclass/lms-api/internal/repository"
)

var (
	// ErrUploadTooLarge indicates the attachment exceeded the configured limit.
	ErrUploadTooLarge = errors.New("file exceeds maximum allowed size")
	// ErrUploadTypeNotAllowed indicates the MIME type is not permitted.
	ErrUploadTypeNotAllowed = errors.New("file type not allowed")
	// ErrInvalidRubric indicates the rubric did not conform to the schema.
	ErrInvalidRubric = errors.New("rubric does not match schema")
	// ErrAlreadyGraded indicates the submission has already received a grade.
	ErrAlreadyGraded = errors.New("submission already graded")
)

const rubricSchema = `{
	"type": "object",
	"required": ["criteria"],
	"properties": {
		"criteria": {
			"type": "array",
			"minItems": 1,
			"items": {
				"type": "object",
				"required": ["name", "points"],
				"properties": {
					"name": {"type": "string", "minLength": 1},
					"points": {"type": "number", "minimum": 0},
					"description": {"type": "string"}
				}
			}
		},
		"total_points": {"type": "number", "minimum": 0}
	}
}`

var allowedAttachmentTypes = []string{
	"application/pdf",
	"application/zip",
	"image/png",
	"image/jpeg",
	"text/plain",
}

// FileStorage abstracts attachment upload destinations.
type FileStorage interface {
	Upload(ctx context.Context, name string, reader io.Reader) (string, error)
}

// AssignmentService exposes assignment and grading use-cases.
type AssignmentService interface {
	Create(ctx context.Context, actor Actor, payload dto.AssignmentCreateRequest, attachment *multipart.FileHeader) (dto.AssignmentResponse, error)
	Get(ctx context.Context, id uint) (dto.AssignmentResponse, error)
	ListByCourse(ctx context.Context, courseID uint, limit, offset int) ([]dto.AssignmentResponse, error)
	Submit(ctx context.Context, actor Actor, payload dto.SubmissionCreateRequest) (dto.SubmissionResponse, error)
	Grade(ctx context.Context, submissionID uint, actor Actor, payload dto.GradeRequest) (dto.SubmissionResponse, error)
	ListSubmissions(ctx context.Context, assignmentID uint, actor Actor) ([]dto.SubmissionResponse, error)
}

type assignmentService struct {
	assignments repository.AssignmentRepository
	submissions repository.SubmissionRepository
	courses     repository.CourseRepository
	enrollments repository.EnrollmentRepository
	storage     FileStorage
	fanout      NotificationFanout
	validator   *validator.Validate
	logger      zerolog.Logger
	tracer      trace.Tracer
	rubric      *jsonschema.Schema
	maxUpload   int64
	now         func() time.Time
}

// NewAssignmentService constructs an assignment service. storage may be nil
// when attachment upload is disabled.
func NewAssignmentService(
	assignments repository.AssignmentRepository,
	submissions repository.SubmissionRepository,
	courses repository.CourseRepository,
	enrollments repository.EnrollmentRepository,
	storage FileStorage,
	fanout NotificationFanout,
	validate *validator.Validate,
	maxUploadMB int,
	logger zerolog.Logger,
) (AssignmentService, error) {
	schema, err := jsonschema.CompileString("rubric.schema.json", rubricSchema)
	if err != nil {
		return nil, fmt.Errorf("failed to compile rubric schema: %w", err)
	}

	if maxUploadMB <= 0 {
		maxUploadMB = 10
	}

	return &assignmentService{
		assignments: assignments,
		submissions: submissions,
		courses:     courses,
		enrollments: enrollments,
		storage:     storage,
		fanout:      fanout,
		validator:   validate,
		logger:      logger.With().Str("component", "assignment_service").Logger(),
		tracer:      otel.Tracer("github.com/openclass/lms-api/internal/service/assignment"),
		rubric:      schema,
		maxUpload:   int64(maxUploadMB) * 1024 * 1024,
		now:         time.Now,
	}, nil
}

func (s *assignmentService) Create(ctx context.Context, actor Actor, payload dto.AssignmentCreateRequest, attachment *multipart.FileHeader) (dto.AssignmentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AssignmentResponse{}, err
	}

	course, err := s.courses.FindByID(ctx, payload.CourseID)
	if err != nil {
		return dto.AssignmentResponse{}, err
	}

	if course.InstructorID != actor.ID && !actor.IsAdmin() {
		return dto.AssignmentResponse{}, ErrForbidden
	}

	if payload.Rubric != nil {
		if err := s.rubric.Validate(map[string]interface{}(payload.Rubric)); err != nil {
			return dto.AssignmentResponse{}, fmt.Errorf("%w: %v", ErrInvalidRubric, err)
		}
	}

	spanCtx, span := s.tracer.Start(ctx, "assignment.create", trace.WithAttributes(
		attribute.Int("assignment.course_id", int(payload.CourseID)),
	))
	defer span.End()

	fileURL := ""
	if attachment != nil {
		fileURL, err = s.storeAttachment(spanCtx, attachment)
		if err != nil {
			span.RecordError(err)
			return dto.AssignmentResponse{}, err
		}
	}

	assignment := models.Assignment{
		CourseID:    payload.CourseID,
		Title:       strings.TrimSpace(payload.Title),
		Description: payload.Description,
		DueDate:     payload.DueDate,
		FileURL:     fileURL,
		Rubric:      payload.Rubric,
	}

	if err := s.assignments.Create(spanCtx, &assignment); err != nil {
		span.RecordError(err)
		return dto.AssignmentResponse{}, err
	}

	s.logger.Info().Uint("assignment_id", assignment.ID).Uint("course_id", course.ID).Msg("assignment published")

	s.fanout.AssignmentCreated(spanCtx, assignment)

	return dto.NewAssignmentResponse(assignment), nil
}

func (s *assignmentService) Get(ctx context.Context, id uint) (dto.AssignmentResponse, error) {
	assignment, err := s.assignments.FindByID(ctx, id)
	if err != nil {
		return dto.AssignmentResponse{}, err
	}
	return dto.NewAssignmentResponse(assignment), nil
}

func (s *assignmentService) ListByCourse(ctx context.Context, courseID uint, limit, offset int) ([]dto.AssignmentResponse, error) {
	assignments, err := s.assignments.ListByCourse(ctx, courseID, limit, offset)
	if err != nil {
		return nil, err
	}
	return dto.NewAssignmentResponseSlice(assignments), nil
}

func (s *assignmentService) Submit(ctx context.Context, actor Actor, payload dto.SubmissionCreateRequest) (dto.SubmissionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, err
	}

	assignment, err := s.assignments.FindByID(ctx, payload.AssignmentID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	enrolled, err := s.enrollments.Exists(ctx, actor.ID, assignment.CourseID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}
	if !enrolled {
		return dto.SubmissionResponse{}, ErrForbidden
	}

	submission := models.Submission{
		AssignmentID: payload.AssignmentID,
		StudentID:    actor.ID,
		Content:      payload.Content,
	}

	if err := s.submissions.Create(ctx, &submission); err != nil {
		return dto.SubmissionResponse{}, err
	}

	return dto.NewSubmissionResponse(submission), nil
}

func (s *assignmentService) Grade(ctx context.Context, submissionID uint, actor Actor, payload dto.GradeRequest) (dto.SubmissionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, err
	}

	submission, err := s.submissions.FindByID(ctx, submissionID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	assignment, err := s.assignments.FindByID(ctx, submission.AssignmentID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	course, err := s.courses.FindByID(ctx, assignment.CourseID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	if course.InstructorID != actor.ID && !actor.IsAdmin() {
		return dto.SubmissionResponse{}, ErrForbidden
	}

	if submission.IsGraded() {
		return dto.SubmissionResponse{}, ErrAlreadyGraded
	}

	now := s.now().UTC()
	grade := payload.Grade
	submission.Grade = &grade
	submission.Feedback = payload.Feedback
	submission.GradedAt = &now

	if err := s.submissions.Update(ctx, &submission); err != nil {
		return dto.SubmissionResponse{}, err
	}

	s.logger.Info().Uint("submission_id", submission.ID).Float64("grade", grade).Msg("submission graded")

	s.fanout.AssignmentGraded(ctx, assignment, submission.StudentID)

	return dto.NewSubmissionResponse(submission), nil
}

func (s *assignmentService) ListSubmissions(ctx context.Context, assignmentID uint, actor Actor) ([]dto.SubmissionResponse, error) {
	assignment, err := s.assignments.FindByID(ctx, assignmentID)
	if err != nil {
		return nil, err
	}

	course, err := s.courses.FindByID(ctx, assignment.CourseID)
	if err != nil {
		return nil, err
	}

	if course.InstructorID != actor.ID && !actor.IsAdmin() {
		return nil, ErrForbidden
	}

	submissions, err := s.submissions.ListByAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}

	return dto.NewSubmissionResponseSlice(submissions), nil
}

// storeAttachment validates the upload and pushes it to the configured
// storage backend.
func (s *assignmentService) storeAttachment(ctx context.Context, file *multipart.FileHeader) (string, error) {
	if s.storage == nil {
		return "", errors.New("attachment storage is not configured")
	}

	if file.Size > s.maxUpload {
		observability.UploadRejected().WithLabelValues("size").Inc()
		return "", ErrUploadTooLarge
	}

	handle, err := file.Open()
	if err != nil {
		return "", err
	}
	defer handle.Close()

	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, io.LimitReader(handle, s.maxUpload+1)); err != nil {
		return "", err
	}
	if int64(buf.Len()) > s.maxUpload {
		observability.UploadRejected().WithLabelValues("size").Inc()
		return "", ErrUploadTooLarge
	}

	detected := mimetype.Detect(buf.Bytes())
	allowed := false
	for _, candidate := range allowedAttachmentTypes {
		if detected.Is(candidate) {
			allowed = true
			break
		}
	}
	if !allowed {
		observability.UploadRejected().WithLabelValues("type").Inc()
		return "", fmt.Errorf("%w: %s", ErrUploadTypeNotAllowed, detected.String())
	}

	return s.storage.Upload(ctx, file.Filename, bytes.NewReader(buf.Bytes()))
}
