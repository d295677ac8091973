package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/openclass/lms-api/internal/dto"
	"github.com/openclass/lms-api/internal/models"
	"github.com/openclass/lms-api/internal/repository"
)

// ErrInvalidTicketStatus indicates an unknown lifecycle value was supplied.
var ErrInvalidTicketStatus = errors.New("invalid ticket status")

// TicketService exposes support ticket use-cases.
type TicketService interface {
	Create(ctx context.Context, actor Actor, payload dto.TicketCreateRequest) (dto.TicketResponse, error)
	Get(ctx context.Context, id uint, actor Actor) (dto.TicketResponse, error)
	ListMine(ctx context.Context, actor Actor, limit, offset int) ([]dto.TicketResponse, error)
	ListAll(ctx context.Context, actor Actor, limit, offset int) ([]dto.TicketResponse, error)
	Reply(ctx context.Context, id uint, actor Actor, payload dto.TicketReplyRequest) (dto.TicketResponse, error)
	UpdateStatus(ctx context.Context, id uint, actor Actor, payload dto.TicketStatusUpdateRequest) (dto.TicketResponse, error)
	Delete(ctx context.Context, id uint, actor Actor) error
}

type ticketService struct {
	repo      repository.TicketRepository
	access    AccessResolver
	fanout    NotificationFanout
	validator *validator.Validate
	logger    zerolog.Logger
	tracer    trace.Tracer
	sanitizer *bluemonday.Policy
}

// NewTicketService constructs a ticket service.
func NewTicketService(repo repository.TicketRepository, access AccessResolver, fanout NotificationFanout, validate *validator.Validate, logger zerolog.Logger) TicketService {
	return &ticketService{
		repo:      repo,
		access:    access,
		fanout:    fanout,
		validator: validate,
		logger:    logger.With().Str("component", "ticket_service").Logger(),
		tracer:    otel.Tracer("github.com/openclass/lms-api/internal/service/ticket"),
		sanitizer: bluemonday.StrictPolicy(),
	}
}

func (s *ticketService) Create(ctx context.Context, actor Actor, payload dto.TicketCreateRequest) (dto.TicketResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.TicketResponse{}, err
	}

	subject := strings.TrimSpace(s.sanitizer.Sanitize(payload.Subject))
	body := strings.TrimSpace(s.sanitizer.Sanitize(payload.Body))
	if subject == "" || body == "" {
		return dto.TicketResponse{}, errors.New("ticket content empty after sanitization")
	}

	spanCtx, span := s.tracer.Start(ctx, "ticket.create", trace.WithAttributes(
		attribute.Int("ticket.owner_id", int(actor.ID)),
	))
	defer span.End()

	ticket := models.SupportTicket{
		OwnerID: actor.ID,
		Subject: subject,
		Status:  models.TicketStatusOpen,
		Messages: []models.TicketMessage{{
			SenderID: actor.ID,
			Body:     body,
			IsStaff:  actor.IsStaff(),
		}},
	}

	if err := s.repo.Create(spanCtx, &ticket); err != nil {
		span.RecordError(err)
		return dto.TicketResponse{}, err
	}

	s.logger.Info().Uint("ticket_id", ticket.ID).Uint("owner_id", actor.ID).Msg("support ticket created")

	s.fanout.TicketCreated(spanCtx, ticket)

	return dto.NewTicketResponse(ticket), nil
}

func (s *ticketService) Get(ctx context.Context, id uint, actor Actor) (dto.TicketResponse, error) {
	ticket, err := s.repo.FindByIDWithMessages(ctx, id)
	if err != nil {
		return dto.TicketResponse{}, err
	}

	allowed, err := s.access.CanAccessTicket(ctx, actor, ticket)
	if err != nil {
		return dto.TicketResponse{}, err
	}
	if !allowed {
		return dto.TicketResponse{}, ErrForbidden
	}

	return dto.NewTicketResponse(ticket), nil
}

func (s *ticketService) ListMine(ctx context.Context, actor Actor, limit, offset int) ([]dto.TicketResponse, error) {
	tickets, err := s.repo.ListByOwner(ctx, actor.ID, limit, offset)
	if err != nil {
		return nil, err
	}
	return dto.NewTicketResponseSlice(tickets), nil
}

func (s *ticketService) ListAll(ctx context.Context, actor Actor, limit, offset int) ([]dto.TicketResponse, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}

	tickets, err := s.repo.ListAll(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	return dto.NewTicketResponseSlice(tickets), nil
}

// Reply appends a message to the conversation. A staff reply on an open
// ticket moves it to in-progress. The reply notification is the only one
// emitted for that transition.
func (s *ticketService) Reply(ctx context.Context, id uint, actor Actor, payload dto.TicketReplyRequest) (dto.TicketResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.TicketResponse{}, err
	}

	body := strings.TrimSpace(s.sanitizer.Sanitize(payload.Body))
	if body == "" {
		return dto.TicketResponse{}, errors.New("reply body empty after sanitization")
	}

	ticket, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return dto.TicketResponse{}, err
	}

	allowed, err := s.access.CanAccessTicket(ctx, actor, ticket)
	if err != nil {
		return dto.TicketResponse{}, err
	}
	if !allowed {
		return dto.TicketResponse{}, ErrForbidden
	}

	isStaffReply := actor.IsStaff() && actor.ID != ticket.OwnerID

	message := models.TicketMessage{
		TicketID: ticket.ID,
		SenderID: actor.ID,
		Body:     body,
		IsStaff:  isStaffReply,
	}

	if err := s.repo.AppendMessage(ctx, &message); err != nil {
		return dto.TicketResponse{}, err
	}

	if isStaffReply && ticket.Status == models.TicketStatusOpen {
		ticket.Status = models.TicketStatusInProgress
		if err := s.repo.Update(ctx, &ticket); err != nil {
			return dto.TicketResponse{}, err
		}
	}

	if isStaffReply {
		s.fanout.TicketStaffReply(ctx, ticket)
	} else {
		s.fanout.TicketOwnerReply(ctx, ticket)
	}

	ticket.Messages = append(ticket.Messages, message)

	return dto.NewTicketResponse(ticket), nil
}

func (s *ticketService) UpdateStatus(ctx context.Context, id uint, actor Actor, payload dto.TicketStatusUpdateRequest) (dto.TicketResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.TicketResponse{}, err
	}

	status := models.TicketStatus(payload.Status)
	if !status.Valid() {
		return dto.TicketResponse{}, ErrInvalidTicketStatus
	}

	ticket, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return dto.TicketResponse{}, err
	}

	allowed, err := s.access.CanModifyTicketStatus(ctx, actor, ticket)
	if err != nil {
		return dto.TicketResponse{}, err
	}
	if !allowed {
		return dto.TicketResponse{}, ErrForbidden
	}

	ticket.Status = status
	if payload.AssignedTo != nil {
		ticket.AssignedTo = payload.AssignedTo
	}

	if err := s.repo.Update(ctx, &ticket); err != nil {
		return dto.TicketResponse{}, err
	}

	s.logger.Info().Uint("ticket_id", ticket.ID).Str("status", string(status)).Msg("ticket status updated")

	s.fanout.TicketStatusChanged(ctx, ticket)

	return dto.NewTicketResponse(ticket), nil
}

func (s *ticketService) Delete(ctx context.Context, id uint, actor Actor) error {
	ticket, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if ticket.OwnerID != actor.ID && !actor.IsAdmin() {
		return ErrForbidden
	}

	return s.repo.Delete(ctx, id)
}
