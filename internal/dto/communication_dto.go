package dto

import (
	"time"

	"github.com/openclass/lms-api/internal/models"
)

// ChatSendRequest represents the payload sent from clients to broadcast a chat message.
type ChatSendRequest struct {
	RoomID     string `json:"room_id" validate:"required,min=3,max=128"`
	Content    string `json:"content" validate:"required,min=1,max=4000"`
	Type       string `json:"type" validate:"omitempty,oneof=text image file system"`
	ReceiverID *uint  `json:"receiver_id"`
}

// ChatHistoryQuery represents query filters for retrieving chat history.
type ChatHistoryQuery struct {
	RoomID string     `query:"room_id" validate:"required,min=3,max=128"`
	Before *time.Time `query:"before"`
	Limit  int        `query:"limit" validate:"omitempty,min=1,max=100"`
}

// ChatMessageResponse is the serialized representation of a chat message.
type ChatMessageResponse struct {
	ID         uint      `json:"id"`
	RoomID     string    `json:"room_id"`
	SenderID   uint      `json:"sender_id"`
	ReceiverID *uint     `json:"receiver_id,omitempty"`
	Content    string    `json:"content"`
	Type       string    `json:"type"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewChatMessageResponse converts a model into a DTO.
func NewChatMessageResponse(message models.ChatMessage) ChatMessageResponse {
	return ChatMessageResponse{
		ID:         message.ID,
		RoomID:     message.RoomID,
		SenderID:   message.SenderID,
		ReceiverID: message.ReceiverID,
		Content:    message.Content,
		Type:       message.Type,
		CreatedAt:  message.CreatedAt,
	}
}

// NewChatMessageResponseSlice converts a slice of models into DTOs.
func NewChatMessageResponseSlice(messages []models.ChatMessage) []ChatMessageResponse {
	out := make([]ChatMessageResponse, 0, len(messages))
	for _, message := range messages {
		out = append(out, NewChatMessageResponse(message))
	}
	return out
}

// NotificationResponse is the serialized representation of a notification.
type NotificationResponse struct {
	ID          uint       `json:"id"`
	RecipientID uint       `json:"recipient_id"`
	Kind        string     `json:"kind"`
	Title       string     `json:"title"`
	Body        string     `json:"body"`
	RelatedID   uint       `json:"related_id,omitempty"`
	Read        bool       `json:"read"`
	ReadAt      *time.Time `json:"read_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// NewNotificationResponse converts a model into a DTO.
func NewNotificationResponse(notification models.Notification) NotificationResponse {
	return NotificationResponse{
		ID:          notification.ID,
		RecipientID: notification.RecipientID,
		Kind:        notification.Kind,
		Title:       notification.Title,
		Body:        notification.Body,
		RelatedID:   notification.RelatedID,
		Read:        notification.Read,
		ReadAt:      notification.ReadAt,
		CreatedAt:   notification.CreatedAt,
	}
}

// NewNotificationResponseSlice converts a slice of models into DTOs.
func NewNotificationResponseSlice(notifications []models.Notification) []NotificationResponse {
	out := make([]NotificationResponse, 0, len(notifications))
	for _, notification := range notifications {
		out = append(out, NewNotificationResponse(notification))
	}
	return out
}
