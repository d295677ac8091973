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

func setupChatDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.ChatMessage{}))
	return db
}

func TestChatHistoryChronological(t *testing.T) {
	db := setupChatDB(t)
	repo := NewChatRepository(db)

	base := time.Now().UTC().Truncate(time.Second)
	for i, content := range []string{"one", "two", "three"} {
		require.NoError(t, repo.Save(context.Background(), &models.ChatMessage{
			SenderID:  901,
			RoomID:    "room-901",
			Content:   content,
			Type:      "text",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	messages, err := repo.ListByRoom(context.Background(), "room-901", time.Time{}, 0)
	require.NoError(t, err)
	require.Len(t, messages, 3)
	require.Equal(t, "one", messages[0].Content)
	require.Equal(t, "three", messages[2].Content)
}

func TestChatHistoryBeforeCursor(t *testing.T) {
	db := setupChatDB(t)
	repo := NewChatRepository(db)

	base := time.Now().UTC().Truncate(time.Second)
	for i, content := range []string{"one", "two", "three"} {
		require.NoError(t, repo.Save(context.Background(), &models.ChatMessage{
			SenderID:  911,
			RoomID:    "room-911",
			Content:   content,
			Type:      "text",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	messages, err := repo.ListByRoom(context.Background(), "room-911", base.Add(2*time.Minute), 0)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	require.Equal(t, "two", messages[1].Content)
}

func TestChatLatestByRoom(t *testing.T) {
	db := setupChatDB(t)
	repo := NewChatRepository(db)

	base := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, repo.Save(context.Background(), &models.ChatMessage{
		SenderID: 921, RoomID: "room-921", Content: "old", Type: "text", CreatedAt: base.Add(-time.Hour),
	}))
	require.NoError(t, repo.Save(context.Background(), &models.ChatMessage{
		SenderID: 922, RoomID: "room-921", Content: "new", Type: "text", CreatedAt: base,
	}))

	latest, err := repo.LatestByRoom(context.Background(), "room-921")
	require.NoError(t, err)
	require.Equal(t, "new", latest.Content)

	_, err = repo.LatestByRoom(context.Background(), "room-empty")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
