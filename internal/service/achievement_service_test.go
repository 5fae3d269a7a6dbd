package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/studenthub/hub-api/internal/models"
	"github.com/studenthub/hub-api/internal/repository"
	appErrors "github.com/studenthub/hub-api/pkg/errors"
)

type mockAchievementRepo struct {
	achievements map[string]models.Achievement
	created      *models.Achievement
	approved     []string
	rejected     []string
	approveErr   error
	rejectErr    error
}

func (m *mockAchievementRepo) Create(ctx context.Context, achievement *models.Achievement) error {
	if m.achievements == nil {
		m.achievements = make(map[string]models.Achievement)
	}
	if achievement.ID == "" {
		achievement.ID = "new-achievement"
	}
	m.achievements[achievement.ID] = *achievement
	m.created = achievement
	return nil
}

func (m *mockAchievementRepo) FindByID(ctx context.Context, id string) (*models.Achievement, error) {
	if a, ok := m.achievements[id]; ok {
		return &a, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAchievementRepo) FindDetailByID(ctx context.Context, id string) (*models.AchievementDetail, error) {
	if a, ok := m.achievements[id]; ok {
		return &models.AchievementDetail{Achievement: a}, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAchievementRepo) List(ctx context.Context, filter models.AchievementFilter) ([]models.AchievementDetail, int, error) {
	return nil, 0, nil
}

func (m *mockAchievementRepo) Approve(ctx context.Context, id, approverID string, credits float64) error {
	if m.approveErr != nil {
		return m.approveErr
	}
	a := m.achievements[id]
	a.Status = models.AchievementApproved
	a.Credits = credits
	m.achievements[id] = a
	m.approved = append(m.approved, id)
	return nil
}

func (m *mockAchievementRepo) Reject(ctx context.Context, id, approverID, reason string) error {
	if m.rejectErr != nil {
		return m.rejectErr
	}
	a := m.achievements[id]
	a.Status = models.AchievementRejected
	m.achievements[id] = a
	m.rejected = append(m.rejected, id)
	return nil
}

type mockCategoryReader struct {
	categories map[string]*models.AchievementCategory
}

func (m *mockCategoryReader) FindByID(ctx context.Context, id string) (*models.AchievementCategory, error) {
	if c, ok := m.categories[id]; ok {
		return c, nil
	}
	return nil, sql.ErrNoRows
}

type mockStudentReader struct {
	students map[string]*models.StudentDetail
}

func (m *mockStudentReader) FindByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	if s, ok := m.students[id]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockStudentReader) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	var list []models.StudentDetail
	for _, s := range m.students {
		if filter.MentorID == "" || (s.MentorID != nil && *s.MentorID == filter.MentorID) {
			list = append(list, *s)
		}
	}
	return list, len(list), nil
}

type mockUserReader struct {
	users map[string]*models.User
}

func (m *mockUserReader) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

type mockApproverLookup struct {
	approvers []string
}

func (m *mockApproverLookup) ListApproversByDepartment(ctx context.Context, institutionID, department string) ([]string, error) {
	return m.approvers, nil
}

type mockPolicy struct {
	allowed    bool
	limited    bool
	maxCredits float64
	canCreate  bool
	canMentor  bool
}

func (m *mockPolicy) CanApproveAchievements(ctx context.Context, user *models.User) (bool, bool, float64, error) {
	return m.allowed, m.limited, m.maxCredits, nil
}

func (m *mockPolicy) CanCreateEvents(ctx context.Context, user *models.User) (bool, error) {
	return m.canCreate, nil
}

func (m *mockPolicy) CanMentor(ctx context.Context, user *models.User) (bool, error) {
	return m.canMentor, nil
}

type mockBadgeEvaluator struct {
	evaluated []string
}

func (m *mockBadgeEvaluator) Evaluate(ctx context.Context, studentID string) ([]models.Badge, error) {
	m.evaluated = append(m.evaluated, studentID)
	return nil, nil
}

type mockNotifier struct {
	sent []models.Notification
}

func (m *mockNotifier) Notify(notification models.Notification) {
	m.sent = append(m.sent, notification)
}

func (m *mockNotifier) NotifyAll(userIDs []string, notification models.Notification) {
	for _, id := range userIDs {
		n := notification
		n.UserID = id
		m.sent = append(m.sent, n)
	}
}

type mockAnalytics struct {
	invalidated []string
}

func (m *mockAnalytics) Invalidate(ctx context.Context, institutionID string) {
	m.invalidated = append(m.invalidated, institutionID)
}

func newAchievementService(repo *mockAchievementRepo, students *mockStudentReader, users *mockUserReader, policy ApprovalPolicy, badges *mockBadgeEvaluator, notify *mockNotifier) *AchievementService {
	return NewAchievementService(AchievementServiceParams{
		Repo: repo,
		Categories: &mockCategoryReader{categories: map[string]*models.AchievementCategory{
			"cat1": {ID: "cat1", Name: "Hackathon", Active: true},
			"cat2": {ID: "cat2", Name: "Retired", Active: false},
		}},
		Students:  students,
		Users:     users,
		Approvers: &mockApproverLookup{approvers: []string{"f1", "f2"}},
		Policy:    policy,
		Badges:    badges,
		Notifier:  notify,
		Validator: validator.New(),
		Logger:    zap.NewNop(),
	})
}

func TestAchievementSubmit(t *testing.T) {
	repo := &mockAchievementRepo{}
	mentor := "m1"
	students := &mockStudentReader{students: map[string]*models.StudentDetail{
		"s1": {StudentProfile: models.StudentProfile{UserID: "s1", MentorID: &mentor}, FullName: "Ada"},
	}}
	notify := &mockNotifier{}
	svc := newAchievementService(repo, students, &mockUserReader{}, &mockPolicy{}, &mockBadgeEvaluator{}, notify)

	detail, err := svc.Submit(context.Background(), SubmitAchievementRequest{
		StudentID:    "s1",
		CategoryID:   "cat1",
		Title:        "Won regional hackathon",
		DateAchieved: time.Now().Add(-24 * time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, models.AchievementPending, detail.Status)
	assert.Zero(t, detail.Credits)
	require.Len(t, notify.sent, 1)
	assert.Equal(t, "m1", notify.sent[0].UserID)
	assert.Equal(t, models.NotificationAchievementSubmitted, notify.sent[0].Type)
}

func TestAchievementSubmitFutureDate(t *testing.T) {
	students := &mockStudentReader{students: map[string]*models.StudentDetail{
		"s1": {StudentProfile: models.StudentProfile{UserID: "s1"}},
	}}
	svc := newAchievementService(&mockAchievementRepo{}, students, &mockUserReader{}, &mockPolicy{}, &mockBadgeEvaluator{}, &mockNotifier{})

	_, err := svc.Submit(context.Background(), SubmitAchievementRequest{
		StudentID:    "s1",
		CategoryID:   "cat1",
		Title:        "Time traveller",
		DateAchieved: time.Now().Add(48 * time.Hour),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAchievementSubmitInactiveCategory(t *testing.T) {
	students := &mockStudentReader{students: map[string]*models.StudentDetail{
		"s1": {StudentProfile: models.StudentProfile{UserID: "s1"}},
	}}
	svc := newAchievementService(&mockAchievementRepo{}, students, &mockUserReader{}, &mockPolicy{}, &mockBadgeEvaluator{}, &mockNotifier{})

	_, err := svc.Submit(context.Background(), SubmitAchievementRequest{
		StudentID:    "s1",
		CategoryID:   "cat2",
		Title:        "Old category",
		DateAchieved: time.Now().Add(-time.Hour),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAchievementSubmitRoutesToDepartmentWithoutMentor(t *testing.T) {
	students := &mockStudentReader{students: map[string]*models.StudentDetail{
		"s1": {StudentProfile: models.StudentProfile{UserID: "s1", Department: "CS"}},
	}}
	notify := &mockNotifier{}
	svc := newAchievementService(&mockAchievementRepo{}, students, &mockUserReader{}, &mockPolicy{}, &mockBadgeEvaluator{}, notify)

	_, err := svc.Submit(context.Background(), SubmitAchievementRequest{
		StudentID:    "s1",
		CategoryID:   "cat1",
		Title:        "Paper accepted",
		DateAchieved: time.Now().Add(-time.Hour),
	})
	require.NoError(t, err)
	require.Len(t, notify.sent, 2)
	assert.ElementsMatch(t, []string{"f1", "f2"}, []string{notify.sent[0].UserID, notify.sent[1].UserID})
}

func TestAchievementApprove(t *testing.T) {
	repo := &mockAchievementRepo{achievements: map[string]models.Achievement{
		"a1": {ID: "a1", StudentID: "s1", Title: "Won", Status: models.AchievementPending},
	}}
	users := &mockUserReader{users: map[string]*models.User{"f1": {ID: "f1", Role: models.RoleFaculty}}}
	badges := &mockBadgeEvaluator{}
	notify := &mockNotifier{}
	svc := newAchievementService(repo, &mockStudentReader{}, users, &mockPolicy{allowed: true, limited: true, maxCredits: 10}, badges, notify)

	detail, err := svc.Approve(context.Background(), "a1", "f1", 5)
	require.NoError(t, err)
	assert.Equal(t, models.AchievementApproved, detail.Status)
	assert.Equal(t, 5.0, detail.Credits)
	assert.Equal(t, []string{"s1"}, badges.evaluated)
	require.Len(t, notify.sent, 1)
	assert.Equal(t, models.NotificationAchievementApproved, notify.sent[0].Type)
}

func TestAchievementApproveCreditLimit(t *testing.T) {
	repo := &mockAchievementRepo{achievements: map[string]models.Achievement{
		"a1": {ID: "a1", StudentID: "s1", Status: models.AchievementPending},
	}}
	users := &mockUserReader{users: map[string]*models.User{"f1": {ID: "f1", Role: models.RoleFaculty}}}
	svc := newAchievementService(repo, &mockStudentReader{}, users, &mockPolicy{allowed: true, limited: true, maxCredits: 10}, &mockBadgeEvaluator{}, &mockNotifier{})

	_, err := svc.Approve(context.Background(), "a1", "f1", 15)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrCreditLimitExceeded.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.approved)
}

func TestAchievementApproveAdminUnlimited(t *testing.T) {
	repo := &mockAchievementRepo{achievements: map[string]models.Achievement{
		"a1": {ID: "a1", StudentID: "s1", Status: models.AchievementPending},
	}}
	users := &mockUserReader{users: map[string]*models.User{"admin": {ID: "admin", Role: models.RoleInstitutionAdmin}}}
	svc := newAchievementService(repo, &mockStudentReader{}, users, &mockPolicy{allowed: true, limited: false}, &mockBadgeEvaluator{}, &mockNotifier{})

	detail, err := svc.Approve(context.Background(), "a1", "admin", 500)
	require.NoError(t, err)
	assert.Equal(t, 500.0, detail.Credits)
}

func TestAchievementApproveForbidden(t *testing.T) {
	repo := &mockAchievementRepo{achievements: map[string]models.Achievement{
		"a1": {ID: "a1", StudentID: "s1", Status: models.AchievementPending},
	}}
	users := &mockUserReader{users: map[string]*models.User{"s2": {ID: "s2", Role: models.RoleStudent}}}
	svc := newAchievementService(repo, &mockStudentReader{}, users, &mockPolicy{allowed: false}, &mockBadgeEvaluator{}, &mockNotifier{})

	_, err := svc.Approve(context.Background(), "a1", "s2", 5)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestAchievementApproveAlreadyDecided(t *testing.T) {
	repo := &mockAchievementRepo{achievements: map[string]models.Achievement{
		"a1": {ID: "a1", StudentID: "s1", Status: models.AchievementApproved, Credits: 5},
	}}
	users := &mockUserReader{users: map[string]*models.User{"f1": {ID: "f1", Role: models.RoleFaculty}}}
	svc := newAchievementService(repo, &mockStudentReader{}, users, &mockPolicy{allowed: true}, &mockBadgeEvaluator{}, &mockNotifier{})

	_, err := svc.Approve(context.Background(), "a1", "f1", 5)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidState.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.approved)
}

func TestAchievementApproveLostRace(t *testing.T) {
	// passes the pending pre-check but loses the conditional update
	repo := &mockAchievementRepo{
		achievements: map[string]models.Achievement{
			"a1": {ID: "a1", StudentID: "s1", Status: models.AchievementPending},
		},
		approveErr: repository.ErrStateConflict,
	}
	users := &mockUserReader{users: map[string]*models.User{"f1": {ID: "f1", Role: models.RoleFaculty}}}
	badges := &mockBadgeEvaluator{}
	svc := newAchievementService(repo, &mockStudentReader{}, users, &mockPolicy{allowed: true}, badges, &mockNotifier{})

	_, err := svc.Approve(context.Background(), "a1", "f1", 5)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidState.Code, appErrors.FromError(err).Code)
	assert.Empty(t, badges.evaluated)
}

func TestAchievementDecisionsInvalidateAnalytics(t *testing.T) {
	repo := &mockAchievementRepo{achievements: map[string]models.Achievement{
		"a1": {ID: "a1", StudentID: "s1", Status: models.AchievementPending},
		"a2": {ID: "a2", StudentID: "s1", Status: models.AchievementPending},
	}}
	students := &mockStudentReader{students: map[string]*models.StudentDetail{
		"s1": {StudentProfile: models.StudentProfile{UserID: "s1", InstitutionID: "inst-1"}},
	}}
	users := &mockUserReader{users: map[string]*models.User{"f1": {ID: "f1", Role: models.RoleFaculty}}}
	analytics := &mockAnalytics{}
	svc := NewAchievementService(AchievementServiceParams{
		Repo:       repo,
		Categories: &mockCategoryReader{},
		Students:   students,
		Users:      users,
		Approvers:  &mockApproverLookup{},
		Policy:     &mockPolicy{allowed: true},
		Badges:     &mockBadgeEvaluator{},
		Notifier:   &mockNotifier{},
		Analytics:  analytics,
		Validator:  validator.New(),
		Logger:     zap.NewNop(),
	})

	_, err := svc.Approve(context.Background(), "a1", "f1", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"inst-1"}, analytics.invalidated)

	_, err = svc.Reject(context.Background(), "a2", "f1", "duplicate submission")
	require.NoError(t, err)
	assert.Equal(t, []string{"inst-1", "inst-1"}, analytics.invalidated)
}

func TestAchievementRejectRequiresReason(t *testing.T) {
	repo := &mockAchievementRepo{achievements: map[string]models.Achievement{
		"a1": {ID: "a1", StudentID: "s1", Status: models.AchievementPending},
	}}
	users := &mockUserReader{users: map[string]*models.User{"f1": {ID: "f1", Role: models.RoleFaculty}}}
	svc := newAchievementService(repo, &mockStudentReader{}, users, &mockPolicy{allowed: true}, &mockBadgeEvaluator{}, &mockNotifier{})

	_, err := svc.Reject(context.Background(), "a1", "f1", "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	detail, err := svc.Reject(context.Background(), "a1", "f1", "insufficient evidence")
	require.NoError(t, err)
	assert.Equal(t, models.AchievementRejected, detail.Status)
}

func TestAchievementApproveNotFound(t *testing.T) {
	svc := newAchievementService(&mockAchievementRepo{}, &mockStudentReader{}, &mockUserReader{}, &mockPolicy{allowed: true}, &mockBadgeEvaluator{}, &mockNotifier{})

	_, err := svc.Approve(context.Background(), "missing", "f1", 5)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
