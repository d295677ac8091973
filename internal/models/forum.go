package models

import (
	"time"

	"gorm.io/datatypes"
)

// ForumThread represents a discussion topic within a course.
type ForumThread struct {
	ID        uint              `gorm:"primaryKey" json:"id"`
	CourseID  uint              `gorm:"index;not null" json:"course_id"`
	AuthorID  uint              `gorm:"index;not null" json:"author_id"`
	Title     string            `gorm:"size:255;not null" json:"title"`
	Content   string            `gorm:"type:text" json:"content"`
	Pinned    bool              `gorm:"not null;default:false" json:"pinned"`
	Locked    bool              `gorm:"not null;default:false" json:"locked"`
	Metadata  datatypes.JSONMap `gorm:"type:json" json:"metadata"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
	Replies   []ForumReply      `gorm:"foreignKey:ThreadID" json:"replies,omitempty"`
}

// ForumReply represents a reply within a thread. Replies are append-only.
type ForumReply struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ThreadID  uint      `gorm:"index;not null" json:"thread_id"`
	AuthorID  uint      `gorm:"index;not null" json:"author_id"`
	Content   string    `gorm:"type:text" json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
