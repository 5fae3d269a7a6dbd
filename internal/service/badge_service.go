package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/studenthub/hub-api/internal/models"
	"github.com/studenthub/hub-api/internal/repository"
	appErrors "github.com/studenthub/hub-api/pkg/errors"
)

type badgeRepository interface {
	ListActive(ctx context.Context) ([]models.Badge, error)
	FindByID(ctx context.Context, id string) (*models.Badge, error)
	Create(ctx context.Context, badge *models.Badge) error
	ListEarnedIDs(ctx context.Context, studentID string) (map[string]bool, error)
	ListEarned(ctx context.Context, studentID string) ([]models.StudentBadgeDetail, error)
	Award(ctx context.Context, studentID, badgeID string, earnedAt time.Time) (bool, error)
}

type participationCounter interface {
	CountCompletedByStudent(ctx context.Context, studentID string) (int, error)
}

// CreateBadgeRequest is the admin payload for defining a badge.
type CreateBadgeRequest struct {
	Name           string                   `json:"name" validate:"required"`
	Description    string                   `json:"description"`
	IconURL        string                   `json:"icon_url" validate:"omitempty,url"`
	CriteriaType   models.BadgeCriteriaType `json:"criteria_type" validate:"required,oneof=achievement_count credit_threshold event_participation skill_based"`
	Threshold      int                      `json:"threshold" validate:"gte=0"`
	RequiredSkills []string                 `json:"required_skills"`
}

// BadgeService defines badges and evaluates students against them.
// Evaluation is idempotent: awarding is insert-only and re-running it after
// a transition a student already earned from is a no-op.
type BadgeService struct {
	repo           badgeRepository
	students       studentReader
	participations participationCounter
	notify         notifier
	validator      *validator.Validate
	logger         *zap.Logger
}

// NewBadgeService constructs BadgeService.
func NewBadgeService(repo badgeRepository, students studentReader, participations participationCounter, notify notifier, logger *zap.Logger) *BadgeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BadgeService{
		repo:           repo,
		students:       students,
		participations: participations,
		notify:         notify,
		validator:      validator.New(),
		logger:         logger,
	}
}

// Create defines a new badge.
func (s *BadgeService) Create(ctx context.Context, req CreateBadgeRequest) (*models.Badge, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid badge payload")
	}
	if req.CriteriaType == models.CriteriaSkillBased && len(req.RequiredSkills) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "skill_based badges require at least one skill")
	}
	if req.CriteriaType != models.CriteriaSkillBased && req.Threshold <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "threshold must be positive")
	}

	badge := &models.Badge{
		Name:           req.Name,
		Description:    req.Description,
		IconURL:        req.IconURL,
		CriteriaType:   req.CriteriaType,
		Threshold:      req.Threshold,
		RequiredSkills: req.RequiredSkills,
		Active:         true,
	}
	if err := s.repo.Create(ctx, badge); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "a badge with this name already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create badge")
	}
	return badge, nil
}

// List returns all active badge definitions.
func (s *BadgeService) List(ctx context.Context) ([]models.Badge, error) {
	badges, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list badges")
	}
	return badges, nil
}

// ListEarned returns the badges a student has earned.
func (s *BadgeService) ListEarned(ctx context.Context, studentID string) ([]models.StudentBadgeDetail, error) {
	badges, err := s.repo.ListEarned(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list earned badges")
	}
	return badges, nil
}

// Evaluate checks the student against every active badge they have not yet
// earned and awards the ones whose criteria are met. Returns the badges
// newly awarded in this pass.
func (s *BadgeService) Evaluate(ctx context.Context, studentID string) ([]models.Badge, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	badges, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list badges")
	}
	earned, err := s.repo.ListEarnedIDs(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list earned badges")
	}

	completedEvents := -1 // resolved lazily, only when some badge needs it
	var awarded []models.Badge
	now := time.Now().UTC()
	for _, badge := range badges {
		if earned[badge.ID] {
			continue
		}
		met := false
		switch badge.CriteriaType {
		case models.CriteriaAchievementCount:
			met = student.AchievementsCount >= badge.Threshold
		case models.CriteriaCreditThreshold:
			met = student.TotalCredits >= float64(badge.Threshold)
		case models.CriteriaEventParticipation:
			if completedEvents < 0 {
				completedEvents, err = s.participations.CountCompletedByStudent(ctx, studentID)
				if err != nil {
					return awarded, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count completed events")
				}
			}
			met = completedEvents >= badge.Threshold
		case models.CriteriaSkillBased:
			met = hasAllSkills(student.Skills, badge.RequiredSkills)
		}
		if !met {
			continue
		}
		inserted, err := s.repo.Award(ctx, studentID, badge.ID, now)
		if err != nil {
			return awarded, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to award badge")
		}
		if !inserted {
			continue
		}
		awarded = append(awarded, badge)
		s.notify.Notify(models.Notification{
			UserID:     studentID,
			Type:       models.NotificationBadgeEarned,
			Title:      "Badge earned",
			Body:       fmt.Sprintf("You earned the %q badge", badge.Name),
			ResourceID: &badge.ID,
		})
	}
	return awarded, nil
}

func hasAllSkills(have, required []string) bool {
	if len(required) == 0 {
		return false
	}
	set := make(map[string]bool, len(have))
	for _, skill := range have {
		set[strings.ToLower(skill)] = true
	}
	for _, skill := range required {
		if !set[strings.ToLower(skill)] {
			return false
		}
	}
	return true
}
