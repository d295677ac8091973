package dto

import (
	"time"

	"github.com/openclass/lms-api/internal/models"
)

// TicketCreateRequest describes the payload to raise a support ticket.
type TicketCreateRequest struct {
	Subject string `json:"subject" validate:"required,min=3,max=255"`
	Body    string `json:"body" validate:"required,min=1,max=20000"`
}

// TicketReplyRequest appends a message to a ticket conversation.
type TicketReplyRequest struct {
	Body string `json:"body" validate:"required,min=1,max=20000"`
}

// TicketStatusUpdateRequest changes a ticket's status and optional assignee.
type TicketStatusUpdateRequest struct {
	Status     string `json:"status" validate:"required,oneof=open in-progress resolved closed"`
	AssignedTo *uint  `json:"assigned_to"`
}

// TicketMessageResponse is the serialized representation of a ticket message.
type TicketMessageResponse struct {
	ID        uint      `json:"id"`
	TicketID  uint      `json:"ticket_id"`
	SenderID  uint      `json:"sender_id"`
	Body      string    `json:"body"`
	IsStaff   bool      `json:"is_staff"`
	CreatedAt time.Time `json:"created_at"`
}

// TicketResponse is the serialized representation of a support ticket.
type TicketResponse struct {
	ID         uint                    `json:"id"`
	OwnerID    uint                    `json:"owner_id"`
	AssignedTo *uint                   `json:"assigned_to,omitempty"`
	Subject    string                  `json:"subject"`
	Status     string                  `json:"status"`
	CreatedAt  time.Time               `json:"created_at"`
	Messages   []TicketMessageResponse `json:"messages,omitempty"`
}

// NewTicketMessageResponse converts a model into a DTO.
func NewTicketMessageResponse(message models.TicketMessage) TicketMessageResponse {
	return TicketMessageResponse{
		ID:        message.ID,
		TicketID:  message.TicketID,
		SenderID:  message.SenderID,
		Body:      message.Body,
		IsStaff:   message.IsStaff,
		CreatedAt: message.CreatedAt,
	}
}

// NewTicketResponse converts a model into a DTO.
func NewTicketResponse(ticket models.SupportTicket) TicketResponse {
	response := TicketResponse{
		ID:         ticket.ID,
		OwnerID:    ticket.OwnerID,
		AssignedTo: ticket.AssignedTo,
		Subject:    ticket.Subject,
		Status:     string(ticket.Status),
		CreatedAt:  ticket.CreatedAt,
	}
	for _, message := range ticket.Messages {
		response.Messages = append(response.Messages, NewTicketMessageResponse(message))
	}
	return response
}

// NewTicketResponseSlice converts a slice of models into DTOs.
func NewTicketResponseSlice(tickets []models.SupportTicket) []TicketResponse {
	out := make([]TicketResponse, 0, len(tickets))
	for _, ticket := range tickets {
		out = append(out, NewTicketResponse(ticket))
	}
	return out
}
