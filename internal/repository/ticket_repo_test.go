package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/openclass/lms-api/internal/models"
)

func setupTicketDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.SupportTicket{}, &models.TicketMessage{}))
	return db
}

func TestTicketCreateWithFirstMessage(t *testing.T) {
	db := setupTicketDB(t)
	repo := NewTicketRepository(db)

	ticket := models.SupportTicket{
		OwnerID: 601,
		Subject: "Cannot log in",
		Status:  models.TicketStatusOpen,
		Messages: []models.TicketMessage{
			{SenderID: 601, Body: "Password reset loops forever."},
		},
	}
	require.NoError(t, repo.Create(context.Background(), &ticket))
	require.NotZero(t, ticket.ID)

	stored, err := repo.FindByIDWithMessages(context.Background(), ticket.ID)
	require.NoError(t, err)
	require.Equal(t, "Cannot log in", stored.Subject)
	require.Len(t, stored.Messages, 1)
	require.Equal(t, ticket.ID, stored.Messages[0].TicketID)
}

func TestTicketMessagesOrderedOldestFirst(t *testing.T) {
	db := setupTicketDB(t)
	repo := NewTicketRepository(db)

	ticket := models.SupportTicket{OwnerID: 611, Subject: "Grades missing", Status: models.TicketStatusOpen}
	require.NoError(t, repo.Create(context.Background(), &ticket))

	base := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, repo.AppendMessage(context.Background(), &models.TicketMessage{
		TicketID: ticket.ID, SenderID: 611, Body: "Second", CreatedAt: base,
	}))
	require.NoError(t, repo.AppendMessage(context.Background(), &models.TicketMessage{
		TicketID: ticket.ID, SenderID: 1, Body: "First", IsStaff: true, CreatedAt: base.Add(-time.Minute),
	}))

	stored, err := repo.FindByIDWithMessages(context.Background(), ticket.ID)
	require.NoError(t, err)
	require.Len(t, stored.Messages, 2)
	require.Equal(t, "First", stored.Messages[0].Body)
	require.Equal(t, "Second", stored.Messages[1].Body)
}

func TestTicketListByOwner(t *testing.T) {
	db := setupTicketDB(t)
	repo := NewTicketRepository(db)

	require.NoError(t, repo.Create(context.Background(), &models.SupportTicket{OwnerID: 621, Subject: "A", Status: models.TicketStatusOpen}))
	require.NoError(t, repo.Create(context.Background(), &models.SupportTicket{OwnerID: 621, Subject: "B", Status: models.TicketStatusClosed}))
	require.NoError(t, repo.Create(context.Background(), &models.SupportTicket{OwnerID: 622, Subject: "C", Status: models.TicketStatusOpen}))

	tickets, err := repo.ListByOwner(context.Background(), 621, 0, 0)
	require.NoError(t, err)
	require.Len(t, tickets, 2)
	for _, ticket := range tickets {
		require.Equal(t, uint(621), ticket.OwnerID)
	}
}

func TestTicketCountActiveByOwner(t *testing.T) {
	db := setupTicketDB(t)
	repo := NewTicketRepository(db)

	require.NoError(t, repo.Create(context.Background(), &models.SupportTicket{OwnerID: 631, Subject: "A", Status: models.TicketStatusOpen}))
	require.NoError(t, repo.Create(context.Background(), &models.SupportTicket{OwnerID: 631, Subject: "B", Status: models.TicketStatusInProgress}))
	require.NoError(t, repo.Create(context.Background(), &models.SupportTicket{OwnerID: 631, Subject: "C", Status: models.TicketStatusResolved}))
	require.NoError(t, repo.Create(context.Background(), &models.SupportTicket{OwnerID: 631, Subject: "D", Status: models.TicketStatusClosed}))

	count, err := repo.CountActiveByOwner(context.Background(), 631)
	require.NoError(t, err)
	require.Equal(t, int64(2), count)
}

func TestTicketUpdateStatusAndAssignee(t *testing.T) {
	db := setupTicketDB(t)
	repo := NewTicketRepository(db)

	ticket := models.SupportTicket{OwnerID: 641, Subject: "Broken link", Status: models.TicketStatusOpen}
	require.NoError(t, repo.Create(context.Background(), &ticket))

	assignee := uint(7)
	ticket.Status = models.TicketStatusInProgress
	ticket.AssignedTo = &assignee
	require.NoError(t, repo.Update(context.Background(), &ticket))

	stored, err := repo.FindByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	require.Equal(t, models.TicketStatusInProgress, stored.Status)
	require.NotNil(t, stored.AssignedTo)
	require.Equal(t, uint(7), *stored.AssignedTo)
}

func TestTicketDeleteRemovesRecord(t *testing.T) {
	db := setupTicketDB(t)
	repo := NewTicketRepository(db)

	ticket := models.SupportTicket{
		OwnerID:  651,
		Subject:  "Duplicate",
		Status:   models.TicketStatusOpen,
		Messages: []models.TicketMessage{{SenderID: 651, Body: "Please remove."}},
	}
	require.NoError(t, repo.Create(context.Background(), &ticket))
	require.NoError(t, repo.Delete(context.Background(), ticket.ID))

	_, err := repo.FindByID(context.Background(), ticket.ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
