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

type mockEventRepo struct {
	events         map[string]*models.EventDetail
	participations map[string]models.EventParticipation
	registerErr    error
	completeErr    error
	cancelErr      error
	statusErr      error
	completedCreds float64
}

func participationKey(eventID, studentID string) string {
	return eventID + "/" + studentID
}

func (m *mockEventRepo) Create(ctx context.Context, event *models.Event, roles []models.EventRole) error {
	if m.events == nil {
		m.events = make(map[string]*models.EventDetail)
	}
	if event.ID == "" {
		event.ID = "new-event"
	}
	m.events[event.ID] = &models.EventDetail{Event: *event, Roles: roles}
	return nil
}

func (m *mockEventRepo) FindByID(ctx context.Context, id string) (*models.EventDetail, error) {
	if e, ok := m.events[id]; ok {
		return e, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockEventRepo) List(ctx context.Context, filter models.EventFilter) ([]models.Event, int, error) {
	return nil, 0, nil
}

func (m *mockEventRepo) UpdateStatus(ctx context.Context, id string, from []models.EventStatus, to models.EventStatus) error {
	if m.statusErr != nil {
		return m.statusErr
	}
	e := m.events[id]
	for _, f := range from {
		if e.Status == f {
			e.Status = to
			return nil
		}
	}
	return repository.ErrStateConflict
}

func (m *mockEventRepo) FindParticipation(ctx context.Context, eventID, studentID string) (*models.EventParticipation, error) {
	if p, ok := m.participations[participationKey(eventID, studentID)]; ok {
		return &p, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockEventRepo) Register(ctx context.Context, participation *models.EventParticipation) error {
	if m.registerErr != nil {
		return m.registerErr
	}
	if m.participations == nil {
		m.participations = make(map[string]models.EventParticipation)
	}
	participation.ID = "new-participation"
	m.participations[participationKey(participation.EventID, participation.StudentID)] = *participation
	return nil
}

func (m *mockEventRepo) MarkAttended(ctx context.Context, eventID, studentID string) error {
	key := participationKey(eventID, studentID)
	p, ok := m.participations[key]
	if !ok || p.Status != models.ParticipationRegistered {
		return repository.ErrStateConflict
	}
	p.Status = models.ParticipationAttended
	m.participations[key] = p
	return nil
}

func (m *mockEventRepo) Complete(ctx context.Context, eventID, studentID string) (float64, error) {
	if m.completeErr != nil {
		return 0, m.completeErr
	}
	key := participationKey(eventID, studentID)
	p, ok := m.participations[key]
	if !ok {
		return 0, sql.ErrNoRows
	}
	if p.Status != models.ParticipationRegistered && p.Status != models.ParticipationAttended {
		return 0, repository.ErrStateConflict
	}
	p.Status = models.ParticipationCompleted
	p.CreditsEarned = m.completedCreds
	m.participations[key] = p
	return m.completedCreds, nil
}

func (m *mockEventRepo) Cancel(ctx context.Context, eventID, studentID string) error {
	if m.cancelErr != nil {
		return m.cancelErr
	}
	key := participationKey(eventID, studentID)
	p, ok := m.participations[key]
	if !ok || p.Status != models.ParticipationRegistered {
		return repository.ErrStateConflict
	}
	p.Status = models.ParticipationCancelled
	m.participations[key] = p
	return nil
}

func (m *mockEventRepo) ListParticipationsByEvent(ctx context.Context, eventID string) ([]models.EventParticipation, error) {
	var list []models.EventParticipation
	for _, p := range m.participations {
		if p.EventID == eventID {
			list = append(list, p)
		}
	}
	return list, nil
}

func (m *mockEventRepo) ListParticipationsByStudent(ctx context.Context, studentID string) ([]models.EventParticipation, error) {
	var list []models.EventParticipation
	for _, p := range m.participations {
		if p.StudentID == studentID {
			list = append(list, p)
		}
	}
	return list, nil
}

func publishedEvent(id string) *models.EventDetail {
	now := time.Now().UTC()
	return &models.EventDetail{
		Event: models.Event{
			ID:                   id,
			Title:                "Tech fest",
			Status:               models.EventPublished,
			StartDate:            now.Add(48 * time.Hour),
			EndDate:              now.Add(72 * time.Hour),
			RegistrationDeadline: now.Add(24 * time.Hour),
		},
		Roles: []models.EventRole{
			{EventID: id, Role: models.RoleVolunteer, Credits: 2, MaxCount: 5},
			{EventID: id, Role: models.RoleParticipant, Credits: 1, MaxCount: 100},
		},
	}
}

func newEventService(repo *mockEventRepo, users *mockUserReader, policy ApprovalPolicy, badges *mockBadgeEvaluator, notify *mockNotifier) *EventService {
	return NewEventService(EventServiceParams{
		Repo:      repo,
		Users:     users,
		Policy:    policy,
		Notifier:  notify,
		Badges:    badges,
		Validator: validator.New(),
		Logger:    zap.NewNop(),
	})
}

func TestEventCreate(t *testing.T) {
	repo := &mockEventRepo{}
	users := &mockUserReader{users: map[string]*models.User{"f1": {ID: "f1", Role: models.RoleFaculty}}}
	svc := newEventService(repo, users, &mockPolicy{canCreate: true}, &mockBadgeEvaluator{}, &mockNotifier{})

	now := time.Now().UTC()
	detail, err := svc.Create(context.Background(), CreateEventRequest{
		CreatedBy:            "f1",
		Title:                "Hackathon",
		StartDate:            now.Add(48 * time.Hour),
		EndDate:              now.Add(72 * time.Hour),
		RegistrationDeadline: now.Add(24 * time.Hour),
		Roles: []EventRoleRequest{
			{Role: models.RoleParticipant, Credits: 1, MaxCount: 50},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, models.EventDraft, detail.Status)
	require.Len(t, detail.Roles, 1)
}

func TestEventCreateForbidden(t *testing.T) {
	users := &mockUserReader{users: map[string]*models.User{"s1": {ID: "s1", Role: models.RoleStudent}}}
	svc := newEventService(&mockEventRepo{}, users, &mockPolicy{canCreate: false}, &mockBadgeEvaluator{}, &mockNotifier{})

	now := time.Now().UTC()
	_, err := svc.Create(context.Background(), CreateEventRequest{
		CreatedBy:            "s1",
		Title:                "Hackathon",
		StartDate:            now.Add(48 * time.Hour),
		EndDate:              now.Add(72 * time.Hour),
		RegistrationDeadline: now.Add(24 * time.Hour),
		Roles:                []EventRoleRequest{{Role: models.RoleParticipant, Credits: 1, MaxCount: 50}},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestEventCreateDuplicateRole(t *testing.T) {
	users := &mockUserReader{users: map[string]*models.User{"f1": {ID: "f1", Role: models.RoleFaculty}}}
	svc := newEventService(&mockEventRepo{}, users, &mockPolicy{canCreate: true}, &mockBadgeEvaluator{}, &mockNotifier{})

	now := time.Now().UTC()
	_, err := svc.Create(context.Background(), CreateEventRequest{
		CreatedBy:            "f1",
		Title:                "Hackathon",
		StartDate:            now.Add(48 * time.Hour),
		EndDate:              now.Add(72 * time.Hour),
		RegistrationDeadline: now.Add(24 * time.Hour),
		Roles: []EventRoleRequest{
			{Role: models.RoleParticipant, Credits: 1, MaxCount: 50},
			{Role: models.RoleParticipant, Credits: 2, MaxCount: 10},
		},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestEventRegister(t *testing.T) {
	repo := &mockEventRepo{events: map[string]*models.EventDetail{"e1": publishedEvent("e1")}}
	svc := newEventService(repo, &mockUserReader{}, &mockPolicy{}, &mockBadgeEvaluator{}, &mockNotifier{})

	participation, err := svc.Register(context.Background(), "e1", "s1", RegisterEventRequest{Role: models.RoleVolunteer})
	require.NoError(t, err)
	assert.Equal(t, models.ParticipationRegistered, participation.Status)
	assert.Equal(t, models.RoleVolunteer, participation.Role)
}

func TestEventRegisterNotPublished(t *testing.T) {
	event := publishedEvent("e1")
	event.Status = models.EventDraft
	repo := &mockEventRepo{events: map[string]*models.EventDetail{"e1": event}}
	svc := newEventService(repo, &mockUserReader{}, &mockPolicy{}, &mockBadgeEvaluator{}, &mockNotifier{})

	_, err := svc.Register(context.Background(), "e1", "s1", RegisterEventRequest{Role: models.RoleVolunteer})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidState.Code, appErrors.FromError(err).Code)
}

func TestEventRegisterDeadlinePassed(t *testing.T) {
	event := publishedEvent("e1")
	event.RegistrationDeadline = time.Now().UTC().Add(-time.Hour)
	repo := &mockEventRepo{events: map[string]*models.EventDetail{"e1": event}}
	svc := newEventService(repo, &mockUserReader{}, &mockPolicy{}, &mockBadgeEvaluator{}, &mockNotifier{})

	_, err := svc.Register(context.Background(), "e1", "s1", RegisterEventRequest{Role: models.RoleVolunteer})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrDeadlinePassed.Code, appErrors.FromError(err).Code)
}

func TestEventRegisterAtDeadlineInstant(t *testing.T) {
	event := publishedEvent("e1")
	event.RegistrationDeadline = time.Now().UTC()
	repo := &mockEventRepo{events: map[string]*models.EventDetail{"e1": event}}
	svc := newEventService(repo, &mockUserReader{}, &mockPolicy{}, &mockBadgeEvaluator{}, &mockNotifier{})

	_, err := svc.Register(context.Background(), "e1", "s1", RegisterEventRequest{Role: models.RoleVolunteer})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrDeadlinePassed.Code, appErrors.FromError(err).Code)
}

func TestEventRegisterRoleFull(t *testing.T) {
	repo := &mockEventRepo{
		events:      map[string]*models.EventDetail{"e1": publishedEvent("e1")},
		registerErr: repository.ErrCapacityReached,
	}
	svc := newEventService(repo, &mockUserReader{}, &mockPolicy{}, &mockBadgeEvaluator{}, &mockNotifier{})

	_, err := svc.Register(context.Background(), "e1", "s1", RegisterEventRequest{Role: models.RoleVolunteer})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrRoleFull.Code, appErrors.FromError(err).Code)
}

func TestEventRegisterDuplicate(t *testing.T) {
	repo := &mockEventRepo{
		events:      map[string]*models.EventDetail{"e1": publishedEvent("e1")},
		registerErr: repository.ErrDuplicate,
	}
	svc := newEventService(repo, &mockUserReader{}, &mockPolicy{}, &mockBadgeEvaluator{}, &mockNotifier{})

	_, err := svc.Register(context.Background(), "e1", "s1", RegisterEventRequest{Role: models.RoleVolunteer})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrDuplicateRegistration.Code, appErrors.FromError(err).Code)
}

func TestEventRegisterUnknownRole(t *testing.T) {
	event := publishedEvent("e1")
	event.Roles = event.Roles[:1] // volunteer only
	repo := &mockEventRepo{events: map[string]*models.EventDetail{"e1": event}}
	svc := newEventService(repo, &mockUserReader{}, &mockPolicy{}, &mockBadgeEvaluator{}, &mockNotifier{})

	_, err := svc.Register(context.Background(), "e1", "s1", RegisterEventRequest{Role: models.RoleParticipant})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestEventComplete(t *testing.T) {
	event := publishedEvent("e1")
	event.Status = models.EventCompleted
	repo := &mockEventRepo{
		events: map[string]*models.EventDetail{"e1": event},
		participations: map[string]models.EventParticipation{
			participationKey("e1", "s1"): {EventID: "e1", StudentID: "s1", Role: models.RoleVolunteer, Status: models.ParticipationAttended},
		},
		completedCreds: 2,
	}
	badges := &mockBadgeEvaluator{}
	notify := &mockNotifier{}
	svc := newEventService(repo, &mockUserReader{}, &mockPolicy{}, badges, notify)

	participation, err := svc.Complete(context.Background(), "e1", "s1")
	require.NoError(t, err)
	assert.Equal(t, models.ParticipationCompleted, participation.Status)
	assert.Equal(t, 2.0, participation.CreditsEarned)
	assert.Equal(t, []string{"s1"}, badges.evaluated)
	require.Len(t, notify.sent, 1)
	assert.Equal(t, models.NotificationEventCompleted, notify.sent[0].Type)
}

func TestEventCompleteInvalidatesAnalytics(t *testing.T) {
	event := publishedEvent("e1")
	event.Status = models.EventCompleted
	event.InstitutionID = "inst-1"
	repo := &mockEventRepo{
		events: map[string]*models.EventDetail{"e1": event},
		participations: map[string]models.EventParticipation{
			participationKey("e1", "s1"): {EventID: "e1", StudentID: "s1", Role: models.RoleVolunteer, Status: models.ParticipationAttended},
		},
		completedCreds: 2,
	}
	analytics := &mockAnalytics{}
	svc := NewEventService(EventServiceParams{
		Repo:      repo,
		Users:     &mockUserReader{},
		Policy:    &mockPolicy{},
		Notifier:  &mockNotifier{},
		Badges:    &mockBadgeEvaluator{},
		Analytics: analytics,
		Validator: validator.New(),
		Logger:    zap.NewNop(),
	})

	_, err := svc.Complete(context.Background(), "e1", "s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"inst-1"}, analytics.invalidated)
}

func TestEventCompleteBeforeEventDone(t *testing.T) {
	repo := &mockEventRepo{
		events: map[string]*models.EventDetail{"e1": publishedEvent("e1")},
		participations: map[string]models.EventParticipation{
			participationKey("e1", "s1"): {EventID: "e1", StudentID: "s1", Status: models.ParticipationRegistered},
		},
	}
	svc := newEventService(repo, &mockUserReader{}, &mockPolicy{}, &mockBadgeEvaluator{}, &mockNotifier{})

	_, err := svc.Complete(context.Background(), "e1", "s1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidState.Code, appErrors.FromError(err).Code)
}

func TestEventCompleteIdempotenceGuard(t *testing.T) {
	event := publishedEvent("e1")
	event.Status = models.EventCompleted
	repo := &mockEventRepo{
		events: map[string]*models.EventDetail{"e1": event},
		participations: map[string]models.EventParticipation{
			participationKey("e1", "s1"): {EventID: "e1", StudentID: "s1", Status: models.ParticipationCompleted, CreditsEarned: 2},
		},
	}
	svc := newEventService(repo, &mockUserReader{}, &mockPolicy{}, &mockBadgeEvaluator{}, &mockNotifier{})

	_, err := svc.Complete(context.Background(), "e1", "s1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidState.Code, appErrors.FromError(err).Code)
}

func TestEventCancelRegistration(t *testing.T) {
	repo := &mockEventRepo{
		events: map[string]*models.EventDetail{"e1": publishedEvent("e1")},
		participations: map[string]models.EventParticipation{
			participationKey("e1", "s1"): {EventID: "e1", StudentID: "s1", Status: models.ParticipationRegistered},
		},
	}
	svc := newEventService(repo, &mockUserReader{}, &mockPolicy{}, &mockBadgeEvaluator{}, &mockNotifier{})

	participation, err := svc.CancelRegistration(context.Background(), "e1", "s1")
	require.NoError(t, err)
	assert.Equal(t, models.ParticipationCancelled, participation.Status)
}

func TestEventCancelAfterStart(t *testing.T) {
	event := publishedEvent("e1")
	event.StartDate = time.Now().UTC().Add(-time.Hour)
	repo := &mockEventRepo{
		events: map[string]*models.EventDetail{"e1": event},
		participations: map[string]models.EventParticipation{
			participationKey("e1", "s1"): {EventID: "e1", StudentID: "s1", Status: models.ParticipationRegistered},
		},
	}
	svc := newEventService(repo, &mockUserReader{}, &mockPolicy{}, &mockBadgeEvaluator{}, &mockNotifier{})

	_, err := svc.CancelRegistration(context.Background(), "e1", "s1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidState.Code, appErrors.FromError(err).Code)
}

func TestEventStatusTransitions(t *testing.T) {
	repo := &mockEventRepo{events: map[string]*models.EventDetail{"e1": publishedEvent("e1")}}
	repo.events["e1"].Status = models.EventDraft
	svc := newEventService(repo, &mockUserReader{}, &mockPolicy{}, &mockBadgeEvaluator{}, &mockNotifier{})

	detail, err := svc.UpdateStatus(context.Background(), "e1", models.EventPublished)
	require.NoError(t, err)
	assert.Equal(t, models.EventPublished, detail.Status)

	// skipping ONGOING is rejected by the guard
	_, err = svc.UpdateStatus(context.Background(), "e1", models.EventCompleted)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidState.Code, appErrors.FromError(err).Code)

	_, err = svc.UpdateStatus(context.Background(), "e1", models.EventDraft)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
