package service

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/openclass/lms-api/internal/dto"
	"github.com/openclass/lms-api/internal/models"
)

type fakeStorage struct {
	uploads []string
}

func (f *fakeStorage) Upload(_ context.Context, name string, reader io.Reader) (string, error) {
	if _, err := io.Copy(io.Discard, reader); err != nil {
		return "", err
	}
	f.uploads = append(f.uploads, name)
	return "https://cdn.example.test/" + name, nil
}

func makeFileHeader(t *testing.T, name string, content []byte) *multipart.FileHeader {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("attachment", name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	form, err := multipart.NewReader(body, writer.Boundary()).ReadForm(int64(len(content)) + 1<<20)
	require.NoError(t, err)
	return form.File["attachment"][0]
}

func validRubric() map[string]interface{} {
	return map[string]interface{}{
		"criteria": []interface{}{
			map[string]interface{}{"name": "Correctness", "points": 60.0},
			map[string]interface{}{"name": "Style", "points": 40.0},
		},
		"total_points": 100.0,
	}
}

func newAssignmentFixture(t *testing.T) (*stubAssignmentRepo, *stubSubmissionRepo, *fakeStorage, *recordingFanout, AssignmentService) {
	t.Helper()

	assignments := &stubAssignmentRepo{}
	submissions := &stubSubmissionRepo{}
	courses := &stubCourseRepo{courses: map[uint]models.Course{
		10: {ID: 10, InstructorID: 7, Title: "Algorithms"},
	}}
	enrollments := &stubEnrollmentRepo{byStudent: map[uint][]models.Enrollment{
		5: {{StudentID: 5, CourseID: 10}},
	}}
	storage := &fakeStorage{}
	fanout := &recordingFanout{}

	svc, err := NewAssignmentService(assignments, submissions, courses, enrollments, storage, fanout,
		validator.New(validator.WithRequiredStructEnabled()), 1, zerolog.Nop())
	require.NoError(t, err)
	return assignments, submissions, storage, fanout, svc
}

func TestAssignmentCreateByCourseInstructor(t *testing.T) {
	assignments, _, _, fanout, svc := newAssignmentFixture(t)

	created, err := svc.Create(context.Background(), Actor{ID: 7, Role: models.RoleInstructor}, dto.AssignmentCreateRequest{
		CourseID: 10,
		Title:    "Problem set 1",
		DueDate:  time.Now().Add(7 * 24 * time.Hour),
		Rubric:   validRubric(),
	}, nil)
	require.NoError(t, err)
	require.Equal(t, uint(10), created.CourseID)
	require.Len(t, assignments.assignments, 1)
	require.Equal(t, 1, fanout.assignmentCreated)
}

func TestAssignmentCreateDeniedForOtherInstructor(t *testing.T) {
	_, _, _, fanout, svc := newAssignmentFixture(t)

	_, err := svc.Create(context.Background(), Actor{ID: 9, Role: models.RoleInstructor}, dto.AssignmentCreateRequest{
		CourseID: 10,
		Title:    "Problem set 1",
		DueDate:  time.Now().Add(24 * time.Hour),
	}, nil)
	require.ErrorIs(t, err, ErrForbidden)
	require.Zero(t, fanout.assignmentCreated)
}

func TestAssignmentCreateRejectsMalformedRubric(t *testing.T) {
	_, _, _, _, svc := newAssignmentFixture(t)

	_, err := svc.Create(context.Background(), Actor{ID: 7, Role: models.RoleInstructor}, dto.AssignmentCreateRequest{
		CourseID: 10,
		Title:    "Problem set 1",
		DueDate:  time.Now().Add(24 * time.Hour),
		Rubric: map[string]interface{}{
			"criteria": []interface{}{
				map[string]interface{}{"points": 60.0}, // name missing
			},
		},
	}, nil)
	require.ErrorIs(t, err, ErrInvalidRubric)
}

func TestAssignmentCreateStoresAllowedAttachment(t *testing.T) {
	_, _, storage, _, svc := newAssignmentFixture(t)

	png := append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 64)...)
	file := makeFileHeader(t, "diagram.png", png)

	created, err := svc.Create(context.Background(), Actor{ID: 7, Role: models.RoleInstructor}, dto.AssignmentCreateRequest{
		CourseID: 10,
		Title:    "Problem set 1",
		DueDate:  time.Now().Add(24 * time.Hour),
	}, file)
	require.NoError(t, err)
	require.Equal(t, "https://cdn.example.test/diagram.png", created.FileURL)
	require.Equal(t, []string{"diagram.png"}, storage.uploads)
}

func TestAssignmentCreateRejectsDisallowedType(t *testing.T) {
	_, _, storage, _, svc := newAssignmentFixture(t)

	// ELF header, not on the allow-list.
	file := makeFileHeader(t, "payload.bin", []byte("\x7fELF\x02\x01\x01\x00"))

	_, err := svc.Create(context.Background(), Actor{ID: 7, Role: models.RoleInstructor}, dto.AssignmentCreateRequest{
		CourseID: 10,
		Title:    "Problem set 1",
		DueDate:  time.Now().Add(24 * time.Hour),
	}, file)
	require.ErrorIs(t, err, ErrUploadTypeNotAllowed)
	require.Empty(t, storage.uploads)
}

func TestAssignmentCreateRejectsOversizedAttachment(t *testing.T) {
	_, _, storage, _, svc := newAssignmentFixture(t)

	// Fixture limit is 1 MB.
	file := makeFileHeader(t, "huge.txt", bytes.Repeat([]byte("a"), 1<<20+1))

	_, err := svc.Create(context.Background(), Actor{ID: 7, Role: models.RoleInstructor}, dto.AssignmentCreateRequest{
		CourseID: 10,
		Title:    "Problem set 1",
		DueDate:  time.Now().Add(24 * time.Hour),
	}, file)
	require.ErrorIs(t, err, ErrUploadTooLarge)
	require.Empty(t, storage.uploads)
}

func TestSubmitRequiresEnrollment(t *testing.T) {
	assignments, _, _, _, svc := newAssignmentFixture(t)
	assignments.assignments = []models.Assignment{{ID: 1, CourseID: 10, DueDate: time.Now().Add(24 * time.Hour)}}

	_, err := svc.Submit(context.Background(), Actor{ID: 6, Role: models.RoleStudent}, dto.SubmissionCreateRequest{
		AssignmentID: 1,
		Content:      "My answer.",
	})
	require.ErrorIs(t, err, ErrForbidden)

	submitted, err := svc.Submit(context.Background(), Actor{ID: 5, Role: models.RoleStudent}, dto.SubmissionCreateRequest{
		AssignmentID: 1,
		Content:      "My answer.",
	})
	require.NoError(t, err)
	require.Equal(t, uint(5), submitted.StudentID)
}

func TestGradeByCourseInstructorNotifiesStudent(t *testing.T) {
	assignments, submissions, _, fanout, svc := newAssignmentFixture(t)
	assignments.assignments = []models.Assignment{{ID: 1, CourseID: 10, Title: "Problem set 1"}}
	submissions.submissions = []models.Submission{{ID: 1, AssignmentID: 1, StudentID: 5, Content: "My answer."}}

	graded, err := svc.Grade(context.Background(), 1, Actor{ID: 7, Role: models.RoleInstructor}, dto.GradeRequest{
		Grade:    87,
		Feedback: "Solid work.",
	})
	require.NoError(t, err)
	require.NotNil(t, graded.Grade)
	require.Equal(t, 87.0, *graded.Grade)
	require.NotNil(t, graded.GradedAt)
	require.Equal(t, 1, fanout.assignmentGraded)
}

func TestGradeDeniedForOtherInstructor(t *testing.T) {
	assignments, submissions, _, _, svc := newAssignmentFixture(t)
	assignments.assignments = []models.Assignment{{ID: 1, CourseID: 10}}
	submissions.submissions = []models.Submission{{ID: 1, AssignmentID: 1, StudentID: 5}}

	_, err := svc.Grade(context.Background(), 1, Actor{ID: 9, Role: models.RoleInstructor}, dto.GradeRequest{Grade: 50})
	require.ErrorIs(t, err, ErrForbidden)
}

func TestGradeRejectsSecondGrade(t *testing.T) {
	assignments, submissions, _, fanout, svc := newAssignmentFixture(t)
	existing := 91.0
	assignments.assignments = []models.Assignment{{ID: 1, CourseID: 10}}
	submissions.submissions = []models.Submission{{ID: 1, AssignmentID: 1, StudentID: 5, Grade: &existing}}

	_, err := svc.Grade(context.Background(), 1, Actor{ID: 7, Role: models.RoleInstructor}, dto.GradeRequest{Grade: 50})
	require.ErrorIs(t, err, ErrAlreadyGraded)
	require.Zero(t, fanout.assignmentGraded)
}

func TestListSubmissionsRestrictedToCourseStaff(t *testing.T) {
	assignments, submissions, _, _, svc := newAssignmentFixture(t)
	assignments.assignments = []models.Assignment{{ID: 1, CourseID: 10}}
	submissions.submissions = []models.Submission{{ID: 1, AssignmentID: 1, StudentID: 5}}

	_, err := svc.ListSubmissions(context.Background(), 1, Actor{ID: 5, Role: models.RoleStudent})
	require.ErrorIs(t, err, ErrForbidden)

	list, err := svc.ListSubmissions(context.Background(), 1, Actor{ID: 7, Role: models.RoleInstructor})
	require.NoError(t, err)
	require.Len(t, list, 1)
}
