package models

import (
	"time"

	"gorm.io/datatypes"
)

// Assignment represents a graded piece of coursework published to a course.
type Assignment struct {
	ID          uint              `gorm:"primaryKey" json:"id"`
	CourseID    uint              `gorm:"index;not null" json:"course_id"`
	Title       string            `gorm:"size:255;not null" json:"title"`
	Description string            `gorm:"type:text" json:"description"`
	DueDate     time.Time         `gorm:"not null" json:"due_date"`
	FileURL     string            `gorm:"size:512" json:"file_url"`
	Rubric      datatypes.JSONMap `gorm:"type:json" json:"rubric"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	Submissions []Submission      `json:"submissions,omitempty"`
}

// IsPastDue returns true when the assignment deadline has already passed.
func (a Assignment) IsPastDue(reference time.Time) bool {
	return reference.After(a.DueDate)
}

// Submission is a student's answer to an assignment.
type Submission struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	AssignmentID uint       `gorm:"index;not null" json:"assignment_id"`
	StudentID    uint       `gorm:"index;not null" json:"student_id"`
	Content      string     `gorm:"type:text" json:"content"`
	FileURL      string     `gorm:"size:512" json:"file_url"`
	Grade        *float64   `json:"grade,omitempty"`
	Feedback     string     `gorm:"type:text" json:"feedback"`
	GradedAt     *time.Time `json:"graded_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// IsGraded reports whether the submission has received a grade.
func (s Submission) IsGraded() bool {
	return s.Grade != nil
}
