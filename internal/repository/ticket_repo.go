package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/openclass/lms-api/internal/models"
)

// TicketRepository handles persistence for support tickets.
type TicketRepository interface {
	Create(ctx context.Context, ticket *models.SupportTicket) error
	FindByID(ctx context.Context, id uint) (models.SupportTicket, error)
	FindByIDWithMessages(ctx context.Context, id uint) (models.SupportTicket, error)
	ListByOwner(ctx context.Context, ownerID uint, limit, offset int) ([]models.SupportTicket, error)
	ListAll(ctx context.Context, limit, offset int) ([]models.SupportTicket, error)
	AppendMessage(ctx context.Context, message *models.TicketMessage) error
	Update(ctx context.Context, ticket *models.SupportTicket) error
	Delete(ctx context.Context, id uint) error
	CountActiveByOwner(ctx context.Context, ownerID uint) (int64, error)
}

type ticketRepository struct {
	db *gorm.DB
}

// NewTicketRepository constructs a repository backed by GORM.
func NewTicketRepository(db *gorm.DB) TicketRepository {
	return &ticketRepository{db: db}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *models.SupportTicket) error {
	return r.db.WithContext(ctx).Create(ticket).Error
}

func (r *ticketRepository) FindByID(ctx context.Context, id uint) (models.SupportTicket, error) {
	var ticket models.SupportTicket
	if err := r.db.WithContext(ctx).First(&ticket, id).Error; err != nil {
		return models.SupportTicket{}, err
	}
	return ticket, nil
}

func (r *ticketRepository) FindByIDWithMessages(ctx context.Context, id uint) (models.SupportTicket, error) {
	var ticket models.SupportTicket
	if err := r.db.WithContext(ctx).
		Preload("Messages", func(db *gorm.DB) *gorm.DB {
			return db.Order("ticket_messages.created_at ASC")
		}).
		First(&ticket, id).Error; err != nil {
		return models.SupportTicket{}, err
	}
	return ticket, nil
}

func (r *ticketRepository) ListByOwner(ctx context.Context, ownerID uint, limit, offset int) ([]models.SupportTicket, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var tickets []models.SupportTicket
	if err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&tickets).Error; err != nil {
		return nil, err
	}
	return tickets, nil
}

func (r *ticketRepository) ListAll(ctx context.Context, limit, offset int) ([]models.SupportTicket, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var tickets []models.SupportTicket
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&tickets).Error; err != nil {
		return nil, err
	}
	return tickets, nil
}

func (r *ticketRepository) AppendMessage(ctx context.Context, message *models.TicketMessage) error {
	return r.db.WithContext(ctx).Create(message).Error
}

func (r *ticketRepository) Update(ctx context.Context, ticket *models.SupportTicket) error {
	return r.db.WithContext(ctx).Save(ticket).Error
}

func (r *ticketRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Select("Messages").Delete(&models.SupportTicket{ID: id}).Error
}

// CountActiveByOwner counts tickets that have not yet been resolved or closed.
func (r *ticketRepository) CountActiveByOwner(ctx context.Context, ownerID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.SupportTicket{}).
		Where("owner_id = ? AND status IN ?", ownerID, []models.TicketStatus{models.TicketStatusOpen, models.TicketStatusInProgress}).
		Count(&count).Error
	return count, err
}
