package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/openclass/lms-api/internal/models"
)

type recordingNotificationRepo struct {
	inserted  [][]models.Notification
	insertErr error
	unread    int64
}

func (r *recordingNotificationRepo) InsertMany(_ context.Context, notifications []models.Notification) error {
	if r.insertErr != nil {
		return r.insertErr
	}
	r.inserted = append(r.inserted, notifications)
	return nil
}

func (r *recordingNotificationRepo) ListByRecipient(context.Context, uint, int, int) ([]models.Notification, error) {
	return nil, nil
}

func (r *recordingNotificationRepo) MarkRead(context.Context, uint, uint) (models.Notification, error) {
	return models.Notification{}, nil
}

func (r *recordingNotificationRepo) MarkAllRead(context.Context, uint) (int64, error) {
	return 0, nil
}

func (r *recordingNotificationRepo) CountUnread(context.Context, uint) (int64, error) {
	return r.unread, nil
}

func (r *recordingNotificationRepo) lastBatch() []models.Notification {
	if len(r.inserted) == 0 {
		return nil
	}
	return r.inserted[len(r.inserted)-1]
}

func recipientIDs(batch []models.Notification) []uint {
	ids := make([]uint, 0, len(batch))
	for _, n := range batch {
		ids = append(ids, n.RecipientID)
	}
	return ids
}

type recordingBroadcaster struct {
	broadcasts []models.Notification
}

func (b *recordingBroadcaster) Broadcast(notification models.Notification) {
	b.broadcasts = append(b.broadcasts, notification)
}

func TestAssignmentCreatedNotifiesDistinctEnrolledStudents(t *testing.T) {
	directory := &stubDirectory{
		enrollmentsByCourse: map[uint][]models.Enrollment{
			// Student 4 appears twice; only one notification may result.
			10: {{StudentID: 4, CourseID: 10}, {StudentID: 4, CourseID: 10}, {StudentID: 6, CourseID: 10}},
		},
	}
	repo := &recordingNotificationRepo{}
	fanout := NewNotificationFanout(directory, repo, nil, zerolog.Nop())

	fanout.AssignmentCreated(context.Background(), models.Assignment{ID: 1, CourseID: 10, Title: "Essay", DueDate: time.Now().Add(24 * time.Hour)})

	batch := repo.lastBatch()
	require.Equal(t, []uint{4, 6}, recipientIDs(batch))
	for _, n := range batch {
		require.Equal(t, models.NotificationKindAssignmentCreated, n.Kind)
		require.Equal(t, uint(1), n.RelatedID)
	}
}

func TestAssignmentGradedNotifiesOnlyStudent(t *testing.T) {
	repo := &recordingNotificationRepo{}
	fanout := NewNotificationFanout(&stubDirectory{}, repo, nil, zerolog.Nop())

	fanout.AssignmentGraded(context.Background(), models.Assignment{ID: 2, Title: "Essay"}, 9)

	require.Equal(t, []uint{9}, recipientIDs(repo.lastBatch()))
}

func TestForumThreadCreatedIncludesCreator(t *testing.T) {
	directory := &stubDirectory{
		enrollmentsByCourse: map[uint][]models.Enrollment{
			10: {{StudentID: 4, CourseID: 10}, {StudentID: 5, CourseID: 10}},
		},
		admins: []models.User{{ID: 1, Role: models.RoleAdmin}},
	}
	repo := &recordingNotificationRepo{}
	fanout := NewNotificationFanout(directory, repo, nil, zerolog.Nop())

	// Student 4 created the thread and still receives a notification.
	thread := models.ForumThread{ID: 20, CourseID: 10, AuthorID: 4, Title: "Question"}
	fanout.ForumThreadCreated(context.Background(), thread, models.Course{ID: 10, InstructorID: 7})

	require.Equal(t, []uint{4, 5, 7, 1}, recipientIDs(repo.lastBatch()))
}

func TestForumReplyNotifiesParticipantsExcludingActor(t *testing.T) {
	repo := &recordingNotificationRepo{}
	fanout := NewNotificationFanout(&stubDirectory{}, repo, nil, zerolog.Nop())

	thread := models.ForumThread{ID: 20, AuthorID: 3, Title: "Question"}
	prior := []models.ForumReply{
		{AuthorID: 4}, {AuthorID: 5}, {AuthorID: 4}, {AuthorID: 3},
	}
	fanout.ForumReplyCreated(context.Background(), thread, prior, models.ForumReply{AuthorID: 5})

	require.Equal(t, []uint{3, 4}, recipientIDs(repo.lastBatch()))
}

func TestForumReplyByThreadAuthorExcludesSelf(t *testing.T) {
	repo := &recordingNotificationRepo{}
	fanout := NewNotificationFanout(&stubDirectory{}, repo, nil, zerolog.Nop())

	thread := models.ForumThread{ID: 20, AuthorID: 3, Title: "Question"}
	prior := []models.ForumReply{{AuthorID: 4}}
	fanout.ForumReplyCreated(context.Background(), thread, prior, models.ForumReply{AuthorID: 3})

	require.Equal(t, []uint{4}, recipientIDs(repo.lastBatch()))
}

func TestForumReplyNoRecipientsInsertsNothing(t *testing.T) {
	repo := &recordingNotificationRepo{}
	fanout := NewNotificationFanout(&stubDirectory{}, repo, nil, zerolog.Nop())

	// First reply by the thread author: no one left to notify.
	thread := models.ForumThread{ID: 20, AuthorID: 3}
	fanout.ForumReplyCreated(context.Background(), thread, nil, models.ForumReply{AuthorID: 3})

	require.Empty(t, repo.inserted)
}

func TestTicketCreatedNotifiesAllAdmins(t *testing.T) {
	directory := &stubDirectory{
		admins: []models.User{{ID: 1}, {ID: 2}},
	}
	repo := &recordingNotificationRepo{}
	fanout := NewNotificationFanout(directory, repo, nil, zerolog.Nop())

	fanout.TicketCreated(context.Background(), models.SupportTicket{ID: 30, OwnerID: 5, Subject: "Help"})

	require.Equal(t, []uint{1, 2}, recipientIDs(repo.lastBatch()))
}

func TestTicketOwnerReplyWithoutAssigneeNotifiesNobody(t *testing.T) {
	repo := &recordingNotificationRepo{}
	fanout := NewNotificationFanout(&stubDirectory{}, repo, nil, zerolog.Nop())

	fanout.TicketOwnerReply(context.Background(), models.SupportTicket{ID: 30, OwnerID: 5, AssignedTo: nil})

	require.Empty(t, repo.inserted)
}

func TestTicketOwnerReplyNotifiesAssignee(t *testing.T) {
	repo := &recordingNotificationRepo{}
	fanout := NewNotificationFanout(&stubDirectory{}, repo, nil, zerolog.Nop())

	assignee := uint(8)
	fanout.TicketOwnerReply(context.Background(), models.SupportTicket{ID: 30, OwnerID: 5, AssignedTo: &assignee})

	require.Equal(t, []uint{8}, recipientIDs(repo.lastBatch()))
}

func TestFanoutSwallowsInsertFailure(t *testing.T) {
	repo := &recordingNotificationRepo{insertErr: errors.New("disk full")}
	fanout := NewNotificationFanout(&stubDirectory{}, repo, nil, zerolog.Nop())

	require.NotPanics(t, func() {
		fanout.TicketStaffReply(context.Background(), models.SupportTicket{ID: 30, OwnerID: 5, Subject: "Help"})
	})
}

func TestFanoutSwallowsDirectoryFailure(t *testing.T) {
	directory := &stubDirectory{adminsErr: errors.New("unavailable")}
	repo := &recordingNotificationRepo{}
	fanout := NewNotificationFanout(directory, repo, nil, zerolog.Nop())

	require.NotPanics(t, func() {
		fanout.TicketCreated(context.Background(), models.SupportTicket{ID: 30, Subject: "Help"})
	})
	require.Empty(t, repo.inserted)
}

func TestFanoutBroadcastsToLiveSubscribers(t *testing.T) {
	repo := &recordingNotificationRepo{}
	live := &recordingBroadcaster{}
	fanout := NewNotificationFanout(&stubDirectory{}, repo, live, zerolog.Nop())

	fanout.TicketStatusChanged(context.Background(), models.SupportTicket{ID: 30, OwnerID: 5, Subject: "Help", Status: models.TicketStatusResolved})

	require.Len(t, live.broadcasts, 1)
	require.Equal(t, uint(5), live.broadcasts[0].RecipientID)
	require.Equal(t, models.NotificationKindTicketStatus, live.broadcasts[0].Kind)
}
