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

func setupAssignmentDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Assignment{}, &models.Submission{}))
	return db
}

func TestAssignmentListByCourseIDs(t *testing.T) {
	db := setupAssignmentDB(t)
	repo := NewAssignmentRepository(db)

	base := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, repo.Create(context.Background(), &models.Assignment{CourseID: 951, Title: "Later", DueDate: base.Add(48 * time.Hour)}))
	require.NoError(t, repo.Create(context.Background(), &models.Assignment{CourseID: 952, Title: "Sooner", DueDate: base.Add(24 * time.Hour)}))
	require.NoError(t, repo.Create(context.Background(), &models.Assignment{CourseID: 953, Title: "Elsewhere", DueDate: base.Add(12 * time.Hour)}))

	assignments, err := repo.ListByCourseIDs(context.Background(), []uint{951, 952})
	require.NoError(t, err)
	require.Len(t, assignments, 2)
	// Ordered by due date ascending.
	require.Equal(t, "Sooner", assignments[0].Title)
	require.Equal(t, "Later", assignments[1].Title)
}

func TestAssignmentListByCourseIDsEmptyInput(t *testing.T) {
	db := setupAssignmentDB(t)
	repo := NewAssignmentRepository(db)

	assignments, err := repo.ListByCourseIDs(context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, assignments)
}

func TestSubmissionListByStudent(t *testing.T) {
	db := setupAssignmentDB(t)
	repo := NewSubmissionRepository(db)

	require.NoError(t, repo.Create(context.Background(), &models.Submission{AssignmentID: 961, StudentID: 962, Content: "answer"}))
	require.NoError(t, repo.Create(context.Background(), &models.Submission{AssignmentID: 961, StudentID: 963, Content: "answer"}))

	submissions, err := repo.ListByStudent(context.Background(), 962)
	require.NoError(t, err)
	require.Len(t, submissions, 1)
	require.Equal(t, uint(961), submissions[0].AssignmentID)
}
