package models

import "time"

// Notification kinds emitted by the fanout service.
const (
	NotificationKindAssignmentCreated  = "assignment_created"
	NotificationKindAssignmentGraded   = "assignment_graded"
	NotificationKindForumThreadCreated = "forum_thread_created"
	NotificationKindForumReply         = "forum_reply"
	NotificationKindTicketCreated      = "ticket_created"
	NotificationKindTicketReply        = "ticket_reply"
	NotificationKindTicketStatus       = "ticket_status"
)

// Notification is a per-recipient record created by the fanout service.
// Immutable after creation except for the Read/ReadAt pair.
type Notification struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	RecipientID uint       `gorm:"index;not null" json:"recipient_id"`
	Kind        string     `gorm:"size:64;not null" json:"kind"`
	Title       string     `gorm:"size:255;not null" json:"title"`
	Body        string     `gorm:"type:text" json:"body"`
	RelatedID   uint       `gorm:"index" json:"related_id"`
	Read        bool       `gorm:"not null;default:false" json:"read"`
	ReadAt      *time.Time `json:"read_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ChatMessage represents a single chat payload exchanged within a room.
type ChatMessage struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	SenderID   uint      `gorm:"index;not null" json:"sender_id"`
	ReceiverID *uint     `gorm:"index" json:"receiver_id,omitempty"`
	RoomID     string    `gorm:"size:128;index;not null" json:"room_id"`
	Content    string    `gorm:"type:text" json:"content"`
	Type       string    `gorm:"size:32;default:text" json:"type"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
