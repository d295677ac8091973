package dto

import (
	"time"

	"github.com/openclass/lms-api/internal/models"
)

// AssignmentCreateRequest describes the payload to publish an assignment.
type AssignmentCreateRequest struct {
	CourseID    uint                   `json:"course_id" form:"course_id" validate:"required"`
	Title       string                 `json:"title" form:"title" validate:"required,min=3,max=255"`
	Description string                 `json:"description" form:"description" validate:"omitempty,max=20000"`
	DueDate     time.Time              `json:"due_date" form:"due_date" validate:"required"`
	Rubric      map[string]interface{} `json:"rubric" validate:"omitempty"`
}

// SubmissionCreateRequest describes a student submission payload.
type SubmissionCreateRequest struct {
	AssignmentID uint   `json:"assignment_id" validate:"required"`
	Content      string `json:"content" validate:"required,min=1,max=50000"`
}

// GradeRequest describes the payload used by instructors to grade a submission.
type GradeRequest struct {
	Grade    float64 `json:"grade" validate:"min=0,max=100"`
	Feedback string  `json:"feedback" validate:"omitempty,max=10000"`
}

// AssignmentResponse is the serialized representation of an assignment.
type AssignmentResponse struct {
	ID          uint                   `json:"id"`
	CourseID    uint                   `json:"course_id"`
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	DueDate     time.Time              `json:"due_date"`
	FileURL     string                 `json:"file_url,omitempty"`
	Rubric      map[string]interface{} `json:"rubric,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
}

// SubmissionResponse is the serialized representation of a submission.
type SubmissionResponse struct {
	ID           uint       `json:"id"`
	AssignmentID uint       `json:"assignment_id"`
	StudentID    uint       `json:"student_id"`
	Content      string     `json:"content"`
	FileURL      string     `json:"file_url,omitempty"`
	Grade        *float64   `json:"grade,omitempty"`
	Feedback     string     `json:"feedback,omitempty"`
	GradedAt     *time.Time `json:"graded_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// NewAssignmentResponse converts a model into a DTO.
func NewAssignmentResponse(assignment models.Assignment) AssignmentResponse {
	return AssignmentResponse{
		ID:          assignment.ID,
		CourseID:    assignment.CourseID,
		Title:       assignment.Title,
		Description: assignment.Description,
		DueDate:     assignment.DueDate,
		FileURL:     assignment.FileURL,
		Rubric:      assignment.Rubric,
		CreatedAt:   assignment.CreatedAt,
	}
}

// NewAssignmentResponseSlice converts a slice of models into DTOs.
func NewAssignmentResponseSlice(assignments []models.Assignment) []AssignmentResponse {
	out := make([]AssignmentResponse, 0, len(assignments))
	for _, assignment := range assignments {
		out = append(out, NewAssignmentResponse(assignment))
	}
	return out
}

// NewSubmissionResponse converts a model into a DTO.
func NewSubmissionResponse(submission models.Submission) SubmissionResponse {
	return SubmissionResponse{
		ID:           submission.ID,
		AssignmentID: submission.AssignmentID,
		StudentID:    submission.StudentID,
		Content:      submission.Content,
		FileURL:      submission.FileURL,
		Grade:        submission.Grade,
		Feedback:     submission.Feedback,
		GradedAt:     submission.GradedAt,
		CreatedAt:    submission.CreatedAt,
	}
}

// NewSubmissionResponseSlice converts a slice of models into DTOs.
func NewSubmissionResponseSlice(submissions []models.Submission) []SubmissionResponse {
	out := make([]SubmissionResponse, 0, len(submissions))
	for _, submission := range submissions {
		out = append(out, NewSubmissionResponse(submission))
	}
	return out
}
