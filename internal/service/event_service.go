package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/studenthub/hub-api/internal/models"
	"github.com/studenthub/hub-api/internal/repository"
	appErrors "github.com/studenthub/hub-api/pkg/errors"
)

type eventRepository interface {
	Create(ctx context.Context, event *models.Event, roles []models.EventRole) error
	FindByID(ctx context.Context, id string) (*models.EventDetail, error)
	List(ctx context.Context, filter models.EventFilter) ([]models.Event, int, error)
	UpdateStatus(ctx context.Context, id string, from []models.EventStatus, to models.EventStatus) error
	FindParticipation(ctx context.Context, eventID, studentID string) (*models.EventParticipation, error)
	Register(ctx context.Context, participation *models.EventParticipation) error
	MarkAttended(ctx context.Context, eventID, studentID string) error
	Complete(ctx context.Context, eventID, studentID string) (float64, error)
	Cancel(ctx context.Context, eventID, studentID string) error
	ListParticipationsByEvent(ctx context.Context, eventID string) ([]models.EventParticipation, error)
	ListParticipationsByStudent(ctx context.Context, studentID string) ([]models.EventParticipation, error)
}

// EventRoleRequest declares one role slot pool on event creation.
type EventRoleRequest struct {
	Role     models.EventRoleName `json:"role" validate:"required,oneof=ORGANIZER VOLUNTEER PARTICIPANT"`
	Credits  float64              `json:"credits" validate:"gte=0"`
	MaxCount int                  `json:"max_count" validate:"gt=0"`
}

// CreateEventRequest is the organizer-facing event creation payload.
type CreateEventRequest struct {
	InstitutionID        string             `json:"-"`
	CreatedBy            string             `json:"-"`
	Title                string             `json:"title" validate:"required"`
	Description          string             `json:"description"`
	Venue                string             `json:"venue"`
	StartDate            time.Time          `json:"start_date" validate:"required"`
	EndDate              time.Time          `json:"end_date" validate:"required"`
	RegistrationDeadline time.Time          `json:"registration_deadline" validate:"required"`
	Roles                []EventRoleRequest `json:"roles" validate:"required,min=1,dive"`
}

// RegisterEventRequest is the student registration payload.
type RegisterEventRequest struct {
	Role models.EventRoleName `json:"role" validate:"required,oneof=ORGANIZER VOLUNTEER PARTICIPANT"`
}

// EventService manages the event lifecycle and role-capacity registration.
type EventService struct {
	repo      eventRepository
	users     userReader
	policy    ApprovalPolicy
	notify    notifier
	badges    badgeEvaluator
	analytics analyticsInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// EventServiceParams bundles the service dependencies.
type EventServiceParams struct {
	Repo      eventRepository
	Users     userReader
	Policy    ApprovalPolicy
	Notifier  notifier
	Badges    badgeEvaluator
	Analytics analyticsInvalidator
	Validator *validator.Validate
	Logger    *zap.Logger
}

// NewEventService constructs EventService.
func NewEventService(params EventServiceParams) *EventService {
	if params.Validator == nil {
		params.Validator = validator.New()
	}
	if params.Logger == nil {
		params.Logger = zap.NewNop()
	}
	return &EventService{
		repo:      params.Repo,
		users:     params.Users,
		policy:    params.Policy,
		notify:    params.Notifier,
		badges:    params.Badges,
		analytics: params.Analytics,
		validator: params.Validator,
		logger:    params.Logger,
	}
}

// Create persists a new event in DRAFT with its role capacity pools. The
// creator must hold event-creation power. Duplicate roles within one request
// are rejected up front.
func (s *EventService) Create(ctx context.Context, req CreateEventRequest) (*models.EventDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid event payload")
	}
	if !req.EndDate.After(req.StartDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end date must be after start date")
	}
	if req.RegistrationDeadline.After(req.StartDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "registration deadline must not be after start date")
	}
	seen := map[models.EventRoleName]bool{}
	for _, role := range req.Roles {
		if seen[role.Role] {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("duplicate role %s", role.Role))
		}
		seen[role.Role] = true
	}

	creator, err := s.users.FindByID(ctx, req.CreatedBy)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "creator not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load creator")
	}
	canCreate, err := s.policy.CanCreateEvents(ctx, creator)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve event power")
	}
	if !canCreate {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "caller may not create events")
	}

	event := &models.Event{
		InstitutionID:        req.InstitutionID,
		CreatedBy:            req.CreatedBy,
		Title:                req.Title,
		Description:          req.Description,
		Venue:                req.Venue,
		StartDate:            req.StartDate.UTC(),
		EndDate:              req.EndDate.UTC(),
		RegistrationDeadline: req.RegistrationDeadline.UTC(),
		Status:               models.EventDraft,
	}
	roles := make([]models.EventRole, 0, len(req.Roles))
	for _, r := range req.Roles {
		roles = append(roles, models.EventRole{
			Role:     r.Role,
			Credits:  r.Credits,
			MaxCount: r.MaxCount,
		})
	}
	if err := s.repo.Create(ctx, event, roles); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create event")
	}
	return s.Get(ctx, event.ID)
}

// Get returns an event with its role capacities.
func (s *EventService) Get(ctx context.Context, id string) (*models.EventDetail, error) {
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	return detail, nil
}

// List returns events with pagination metadata.
func (s *EventService) List(ctx context.Context, filter models.EventFilter) ([]models.Event, *models.Pagination, error) {
	events, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list events")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return events, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// allowed event status transitions
var eventTransitions = map[models.EventStatus][]models.EventStatus{
	models.EventPublished: {models.EventDraft},
	models.EventOngoing:   {models.EventPublished},
	models.EventCompleted: {models.EventOngoing},
	models.EventCancelled: {models.EventDraft, models.EventPublished, models.EventOngoing},
}

// UpdateStatus moves an event along its lifecycle. Illegal transitions and
// terminal states surface as InvalidState.
func (s *EventService) UpdateStatus(ctx context.Context, eventID string, to models.EventStatus) (*models.EventDetail, error) {
	from, ok := eventTransitions[to]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("cannot transition an event to %s", to))
	}
	event, err := s.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateStatus(ctx, eventID, from, to); err != nil {
		if errors.Is(err, repository.ErrStateConflict) {
			return nil, appErrors.Clone(appErrors.ErrInvalidState, fmt.Sprintf("event cannot move to %s from its current state", to))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update event status")
	}
	// the active-event count in the institution aggregates just changed
	if s.analytics != nil {
		s.analytics.Invalidate(ctx, event.InstitutionID)
	}
	return s.Get(ctx, eventID)
}

// Register claims one slot of the requested role for the student. It fails
// with DeadlinePassed after the registration deadline, RoleFull when the
// role's pool is exhausted, and DuplicateRegistration when the student
// already holds a participation in this event.
func (s *EventService) Register(ctx context.Context, eventID, studentID string, req RegisterEventRequest) (*models.EventParticipation, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}

	event, err := s.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event.Status != models.EventPublished {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "event is not open for registration")
	}
	// the deadline instant itself is closed
	if !time.Now().UTC().Before(event.RegistrationDeadline) {
		return nil, appErrors.Clone(appErrors.ErrDeadlinePassed, "registration deadline has passed")
	}
	roleExists := false
	for _, role := range event.Roles {
		if role.Role == req.Role {
			roleExists = true
			break
		}
	}
	if !roleExists {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("event has no %s role", req.Role))
	}

	participation := &models.EventParticipation{
		EventID:   eventID,
		StudentID: studentID,
		Role:      req.Role,
		Status:    models.ParticipationRegistered,
	}
	if err := s.repo.Register(ctx, participation); err != nil {
		switch {
		case errors.Is(err, repository.ErrCapacityReached):
			return nil, appErrors.Clone(appErrors.ErrRoleFull, fmt.Sprintf("no %s slots remain", req.Role))
		case errors.Is(err, repository.ErrDuplicate):
			return nil, appErrors.Clone(appErrors.ErrDuplicateRegistration, "student is already registered for this event")
		default:
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to register for event")
		}
	}
	return participation, nil
}

// MarkAttended records that a registered student showed up.
func (s *EventService) MarkAttended(ctx context.Context, eventID, studentID string) (*models.EventParticipation, error) {
	if err := s.repo.MarkAttended(ctx, eventID, studentID); err != nil {
		if errors.Is(err, repository.ErrStateConflict) {
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "participation is not in a registered state")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark attendance")
	}
	return s.participation(ctx, eventID, studentID)
}

// Complete finalizes a participation, granting the role's credits to the
// student's totals in the same transaction, then triggers badge evaluation.
func (s *EventService) Complete(ctx context.Context, eventID, studentID string) (*models.EventParticipation, error) {
	event, err := s.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event.Status != models.EventCompleted {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "event has not been completed")
	}

	credits, err := s.repo.Complete(ctx, eventID, studentID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrStateConflict):
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "participation cannot be completed from its current state")
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "participation not found")
		default:
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to complete participation")
		}
	}

	if s.badges != nil {
		if _, err := s.badges.Evaluate(ctx, studentID); err != nil {
			s.logger.Warn("badge evaluation failed", zap.String("student_id", studentID), zap.Error(err))
		}
	}
	if s.analytics != nil {
		s.analytics.Invalidate(ctx, event.InstitutionID)
	}
	s.notify.Notify(models.Notification{
		UserID:     studentID,
		Type:       models.NotificationEventCompleted,
		Title:      "Event participation completed",
		Body:       fmt.Sprintf("You earned %.1f credits from %q", credits, event.Title),
		ResourceID: &event.ID,
	})
	return s.participation(ctx, eventID, studentID)
}

// CancelRegistration releases the student's slot back to the role pool.
// Cancellation closes once the event has started.
func (s *EventService) CancelRegistration(ctx context.Context, eventID, studentID string) (*models.EventParticipation, error) {
	event, err := s.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !time.Now().UTC().Before(event.StartDate) {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "registrations cannot be cancelled after the event starts")
	}
	if err := s.repo.Cancel(ctx, eventID, studentID); err != nil {
		if errors.Is(err, repository.ErrStateConflict) {
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "participation cannot be cancelled from its current state")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel registration")
	}
	return s.participation(ctx, eventID, studentID)
}

// ListParticipants returns all participations of an event.
func (s *EventService) ListParticipants(ctx context.Context, eventID string) ([]models.EventParticipation, error) {
	if _, err := s.Get(ctx, eventID); err != nil {
		return nil, err
	}
	participations, err := s.repo.ListParticipationsByEvent(ctx, eventID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list participants")
	}
	return participations, nil
}

// ListStudentParticipations returns all participations of a student.
func (s *EventService) ListStudentParticipations(ctx context.Context, studentID string) ([]models.EventParticipation, error) {
	participations, err := s.repo.ListParticipationsByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list participations")
	}
	return participations, nil
}

func (s *EventService) participation(ctx context.Context, eventID, studentID string) (*models.EventParticipation, error) {
	participation, err := s.repo.FindParticipation(ctx, eventID, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "participation not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load participation")
	}
	return participation, nil
}
