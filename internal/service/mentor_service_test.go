package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/studenthub/hub-api/internal/models"
	"github.com/studenthub/hub-api/internal/repository"
	appErrors "github.com/studenthub/hub-api/pkg/errors"
)

type mockFacultyRepo struct {
	faculty   map[string]*models.FacultyDetail
	students  *mockStudentReader
	assignErr error
}

func (m *mockFacultyRepo) FindByID(ctx context.Context, userID string) (*models.FacultyDetail, error) {
	if f, ok := m.faculty[userID]; ok {
		return f, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockFacultyRepo) AssignMentee(ctx context.Context, studentID, facultyID string) error {
	if m.assignErr != nil {
		return m.assignErr
	}
	mentor := m.faculty[facultyID]
	if mentor.CurrentMentees >= mentor.MaxMentees {
		return repository.ErrCapacityReached
	}
	student := m.students.students[studentID]
	if student.MentorID != nil && *student.MentorID == facultyID {
		return nil
	}
	if student.MentorID != nil {
		if previous, ok := m.faculty[*student.MentorID]; ok {
			previous.CurrentMentees--
		}
	}
	mentor.CurrentMentees++
	id := facultyID
	student.MentorID = &id
	return nil
}

func mentorFixture(id string, maxMentees int) *models.FacultyDetail {
	return &models.FacultyDetail{
		FacultyProfile: models.FacultyProfile{
			UserID:     id,
			Department: "CSE",
			CanMentor:  true,
			MaxMentees: maxMentees,
		},
		FullName: "Dr. Rao",
	}
}

func TestMentorAssign(t *testing.T) {
	students := &mockStudentReader{students: map[string]*models.StudentDetail{
		"s1": {StudentProfile: models.StudentProfile{UserID: "s1"}, FullName: "Asha"},
	}}
	faculty := &mockFacultyRepo{
		faculty:  map[string]*models.FacultyDetail{"f1": mentorFixture("f1", 5)},
		students: students,
	}
	notify := &mockNotifier{}
	svc := NewMentorService(faculty, students, notify, zap.NewNop())

	student, err := svc.Assign(context.Background(), "s1", "f1")
	require.NoError(t, err)
	require.NotNil(t, student.MentorID)
	assert.Equal(t, "f1", *student.MentorID)
	assert.Equal(t, 1, faculty.faculty["f1"].CurrentMentees)

	// both parties are told
	require.Len(t, notify.sent, 2)
	assert.Equal(t, "s1", notify.sent[0].UserID)
	assert.Equal(t, "f1", notify.sent[1].UserID)
	assert.Equal(t, models.NotificationMentorAssigned, notify.sent[0].Type)
}

func TestMentorAssignCapacityReached(t *testing.T) {
	mentor := mentorFixture("f1", 2)
	mentor.CurrentMentees = 2
	students := &mockStudentReader{students: map[string]*models.StudentDetail{
		"s1": {StudentProfile: models.StudentProfile{UserID: "s1"}},
	}}
	faculty := &mockFacultyRepo{
		faculty:  map[string]*models.FacultyDetail{"f1": mentor},
		students: students,
	}
	svc := NewMentorService(faculty, students, &mockNotifier{}, zap.NewNop())

	_, err := svc.Assign(context.Background(), "s1", "f1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrCapacityExceeded.Code, appErrors.FromError(err).Code)
}

func TestMentorAssignNotAccepting(t *testing.T) {
	mentor := mentorFixture("f1", 5)
	mentor.CanMentor = false
	students := &mockStudentReader{students: map[string]*models.StudentDetail{
		"s1": {StudentProfile: models.StudentProfile{UserID: "s1"}},
	}}
	faculty := &mockFacultyRepo{
		faculty:  map[string]*models.FacultyDetail{"f1": mentor},
		students: students,
	}
	svc := NewMentorService(faculty, students, &mockNotifier{}, zap.NewNop())

	_, err := svc.Assign(context.Background(), "s1", "f1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestMentorReassignReleasesPreviousSlot(t *testing.T) {
	previousID := "f1"
	students := &mockStudentReader{students: map[string]*models.StudentDetail{
		"s1": {StudentProfile: models.StudentProfile{UserID: "s1", MentorID: &previousID}},
	}}
	previous := mentorFixture("f1", 5)
	previous.CurrentMentees = 1
	faculty := &mockFacultyRepo{
		faculty: map[string]*models.FacultyDetail{
			"f1": previous,
			"f2": mentorFixture("f2", 5),
		},
		students: students,
	}
	svc := NewMentorService(faculty, students, &mockNotifier{}, zap.NewNop())

	student, err := svc.Assign(context.Background(), "s1", "f2")
	require.NoError(t, err)
	assert.Equal(t, "f2", *student.MentorID)
	assert.Equal(t, 0, faculty.faculty["f1"].CurrentMentees)
	assert.Equal(t, 1, faculty.faculty["f2"].CurrentMentees)
}

func TestMentorAssignSameMentorNoNotification(t *testing.T) {
	mentorID := "f1"
	students := &mockStudentReader{students: map[string]*models.StudentDetail{
		"s1": {StudentProfile: models.StudentProfile{UserID: "s1", MentorID: &mentorID}},
	}}
	mentor := mentorFixture("f1", 5)
	mentor.CurrentMentees = 1
	faculty := &mockFacultyRepo{
		faculty:  map[string]*models.FacultyDetail{"f1": mentor},
		students: students,
	}
	notify := &mockNotifier{}
	svc := NewMentorService(faculty, students, notify, zap.NewNop())

	student, err := svc.Assign(context.Background(), "s1", "f1")
	require.NoError(t, err)
	assert.Equal(t, "f1", *student.MentorID)
	assert.Empty(t, notify.sent)
	assert.Equal(t, 1, faculty.faculty["f1"].CurrentMentees)
}

func TestMentorAssignStudentNotFound(t *testing.T) {
	faculty := &mockFacultyRepo{faculty: map[string]*models.FacultyDetail{"f1": mentorFixture("f1", 5)}}
	svc := NewMentorService(faculty, &mockStudentReader{}, &mockNotifier{}, zap.NewNop())

	_, err := svc.Assign(context.Background(), "missing", "f1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestMentorMentees(t *testing.T) {
	mentorID := "f1"
	students := &mockStudentReader{students: map[string]*models.StudentDetail{
		"s1": {StudentProfile: models.StudentProfile{UserID: "s1", MentorID: &mentorID}},
		"s2": {StudentProfile: models.StudentProfile{UserID: "s2"}},
	}}
	faculty := &mockFacultyRepo{
		faculty:  map[string]*models.FacultyDetail{"f1": mentorFixture("f1", 5)},
		students: students,
	}
	svc := NewMentorService(faculty, students, &mockNotifier{}, zap.NewNop())

	mentees, err := svc.Mentees(context.Background(), "f1")
	require.NoError(t, err)
	require.Len(t, mentees, 1)
	assert.Equal(t, "s1", mentees[0].UserID)
}
