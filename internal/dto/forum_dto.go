package dto

import (
	"time"

	"github.com/openclass/lms-api/internal/models"
)

// ThreadCreateRequest describes the payload to open a forum thread.
type ThreadCreateRequest struct {
	CourseID uint   `json:"course_id" validate:"required"`
	Title    string `json:"title" validate:"required,min=3,max=255"`
	Content  string `json:"content" validate:"omitempty,max=50000"`
}

// ReplyCreateRequest describes the payload to append a reply to a thread.
type ReplyCreateRequest struct {
	ThreadID uint   `json:"thread_id" validate:"required"`
	Content  string `json:"content" validate:"required,min=1,max=50000"`
}

// ThreadModerateRequest toggles moderation flags on a thread.
type ThreadModerateRequest struct {
	Pinned *bool `json:"pinned"`
	Locked *bool `json:"locked"`
}

// ThreadResponse is the serialized representation of a forum thread.
type ThreadResponse struct {
	ID        uint            `json:"id"`
	CourseID  uint            `json:"course_id"`
	AuthorID  uint            `json:"author_id"`
	Title     string          `json:"title"`
	Content   string          `json:"content"`
	Pinned    bool            `json:"pinned"`
	Locked    bool            `json:"locked"`
	CreatedAt time.Time       `json:"created_at"`
	Replies   []ReplyResponse `json:"replies,omitempty"`
}

// ReplyResponse is the serialized representation of a forum reply.
type ReplyResponse struct {
	ID        uint      `json:"id"`
	ThreadID  uint      `json:"thread_id"`
	AuthorID  uint      `json:"author_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// NewThreadResponse converts a model into a DTO.
func NewThreadResponse(thread models.ForumThread) ThreadResponse {
	return ThreadResponse{
		ID:        thread.ID,
		CourseID:  thread.CourseID,
		AuthorID:  thread.AuthorID,
		Title:     thread.Title,
		Content:   thread.Content,
		Pinned:    thread.Pinned,
		Locked:    thread.Locked,
		CreatedAt: thread.CreatedAt,
		Replies:   NewReplyResponseSlice(thread.Replies),
	}
}

// NewThreadResponseSlice converts a slice of models into DTOs.
func NewThreadResponseSlice(threads []models.ForumThread) []ThreadResponse {
	out := make([]ThreadResponse, 0, len(threads))
	for _, thread := range threads {
		out = append(out, NewThreadResponse(thread))
	}
	return out
}

// NewReplyResponse converts a model into a DTO.
func NewReplyResponse(reply models.ForumReply) ReplyResponse {
	return ReplyResponse{
		ID:        reply.ID,
		ThreadID:  reply.ThreadID,
		AuthorID:  reply.AuthorID,
		Content:   reply.Content,
		CreatedAt: reply.CreatedAt,
	}
}

// NewReplyResponseSlice converts a slice of models into DTOs.
func NewReplyResponseSlice(replies []models.ForumReply) []ReplyResponse {
	if len(replies) == 0 {
		return nil
	}
	out := make([]ReplyResponse, 0, len(replies))
	for _, reply := range replies {
		out = append(out, NewReplyResponse(reply))
	}
	return out
}
