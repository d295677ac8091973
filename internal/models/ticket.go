package models

import "time"

// TicketStatus tracks the support ticket lifecycle.
type TicketStatus string

// Possible ticket statuses.
const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusInProgress TicketStatus = "in-progress"
	TicketStatusResolved   TicketStatus = "resolved"
	TicketStatusClosed     TicketStatus = "closed"
)

// Valid reports whether the status is one of the known lifecycle values.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusOpen, TicketStatusInProgress, TicketStatusResolved, TicketStatusClosed:
		return true
	}
	return false
}

// SupportTicket represents a support request raised by a student.
// AssignedTo, once set, only changes through an admin status update.
type SupportTicket struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	OwnerID    uint            `gorm:"index;not null" json:"owner_id"`
	AssignedTo *uint           `gorm:"index" json:"assigned_to,omitempty"`
	Subject    string          `gorm:"size:255;not null" json:"subject"`
	Status     TicketStatus    `gorm:"size:32;not null;default:open;index" json:"status"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
	Messages   []TicketMessage `gorm:"foreignKey:TicketID" json:"messages,omitempty"`
}

// TicketMessage captures one entry in a ticket conversation.
type TicketMessage struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	TicketID  uint      `gorm:"index;not null" json:"ticket_id"`
	SenderID  uint      `gorm:"index;not null" json:"sender_id"`
	Body      string    `gorm:"type:text;not null" json:"body"`
	IsStaff   bool      `gorm:"not null;default:false" json:"is_staff"`
	CreatedAt time.Time `json:"created_at"`
}
