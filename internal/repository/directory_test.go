package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/openclass/lms-api/internal/models"
)

func setupDirectoryDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Course{}, &models.Enrollment{}))
	return db
}

func TestDirectoryEnrollmentLookups(t *testing.T) {
	db := setupDirectoryDB(t)
	directory := NewDirectory(db)

	require.NoError(t, db.Create(&[]models.Enrollment{
		{StudentID: 805, CourseID: 810},
		{StudentID: 805, CourseID: 811},
		{StudentID: 806, CourseID: 810},
	}).Error)

	byStudent, err := directory.EnrollmentsByStudent(context.Background(), 805)
	require.NoError(t, err)
	require.Len(t, byStudent, 2)

	byCourse, err := directory.EnrollmentsByCourse(context.Background(), 810)
	require.NoError(t, err)
	require.Len(t, byCourse, 2)
}

func TestDirectoryCoursesByIDs(t *testing.T) {
	db := setupDirectoryDB(t)
	directory := NewDirectory(db)

	require.NoError(t, db.Create(&[]models.Course{
		{ID: 821, Title: "Algorithms", InstructorID: 7},
		{ID: 822, Title: "Databases", InstructorID: 8},
	}).Error)

	courses, err := directory.CoursesByIDs(context.Background(), []uint{821, 822})
	require.NoError(t, err)
	require.Len(t, courses, 2)

	none, err := directory.CoursesByIDs(context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestDirectoryAdmins(t *testing.T) {
	db := setupDirectoryDB(t)
	directory := NewDirectory(db)

	require.NoError(t, db.Create(&[]models.User{
		{Name: "Root", Email: "root-831@example.test", Role: models.RoleAdmin},
		{Name: "Teach", Email: "teach-831@example.test", Role: models.RoleInstructor},
		{Name: "Learn", Email: "learn-831@example.test", Role: models.RoleStudent},
	}).Error)

	admins, err := directory.Admins(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, admins)
	for _, admin := range admins {
		require.Equal(t, models.RoleAdmin, admin.Role)
	}
}

func TestEnrollmentExists(t *testing.T) {
	db := setupDirectoryDB(t)
	repo := NewEnrollmentRepository(db)

	require.NoError(t, repo.Create(context.Background(), &models.Enrollment{StudentID: 845, CourseID: 846}))

	enrolled, err := repo.Exists(context.Background(), 845, 846)
	require.NoError(t, err)
	require.True(t, enrolled)

	enrolled, err = repo.Exists(context.Background(), 845, 999)
	require.NoError(t, err)
	require.False(t, enrolled)
}
