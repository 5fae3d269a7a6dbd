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

type achievementRepository interface {
	Create(ctx context.Context, achievement *models.Achievement) error
	FindByID(ctx context.Context, id string) (*models.Achievement, error)
	FindDetailByID(ctx context.Context, id string) (*models.AchievementDetail, error)
	List(ctx context.Context, filter models.AchievementFilter) ([]models.AchievementDetail, int, error)
	Approve(ctx context.Context, id, approverID string, credits float64) error
	Reject(ctx context.Context, id, approverID, reason string) error
}

type categoryReader interface {
	FindByID(ctx context.Context, id string) (*models.AchievementCategory, error)
}

type studentReader interface {
	FindByID(ctx context.Context, userID string) (*models.StudentDetail, error)
}

type userReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type approverLookup interface {
	ListApproversByDepartment(ctx context.Context, institutionID, department string) ([]string, error)
}

type badgeEvaluator interface {
	Evaluate(ctx context.Context, studentID string) ([]models.Badge, error)
}

type notifier interface {
	Notify(notification models.Notification)
	NotifyAll(userIDs []string, notification models.Notification)
}

type analyticsInvalidator interface {
	Invalidate(ctx context.Context, institutionID string)
}

// SubmitAchievementRequest describes the student submission payload.
type SubmitAchievementRequest struct {
	StudentID    string    `json:"-"`
	CategoryID   string    `json:"category_id" validate:"required"`
	Title        string    `json:"title" validate:"required"`
	Description  string    `json:"description"`
	DateAchieved time.Time `json:"date_achieved" validate:"required"`
	EvidenceURLs []string  `json:"evidence_urls" validate:"dive,url"`
	SkillTags    []string  `json:"skill_tags"`
}

// DecideAchievementRequest describes the reviewer decision payload.
type DecideAchievementRequest struct {
	Status          models.AchievementStatus `json:"status" validate:"required,oneof=APPROVED REJECTED"`
	Credits         float64                  `json:"credits" validate:"gte=0"`
	RejectionReason string                   `json:"rejection_reason"`
}

// AchievementService orchestrates the achievement lifecycle: submission,
// review decisions, credit assignment and the follow-on badge evaluation.
type AchievementService struct {
	repo       achievementRepository
	categories categoryReader
	students   studentReader
	users      userReader
	approvers  approverLookup
	policy     ApprovalPolicy
	badges     badgeEvaluator
	notify     notifier
	analytics  analyticsInvalidator
	validator  *validator.Validate
	logger     *zap.Logger
}

// AchievementServiceParams bundles the service dependencies.
type AchievementServiceParams struct {
	Repo       achievementRepository
	Categories categoryReader
	Students   studentReader
	Users      userReader
	Approvers  approverLookup
	Policy     ApprovalPolicy
	Badges     badgeEvaluator
	Notifier   notifier
	Analytics  analyticsInvalidator
	Validator  *validator.Validate
	Logger     *zap.Logger
}

// NewAchievementService constructs AchievementService.
func NewAchievementService(params AchievementServiceParams) *AchievementService {
	if params.Validator == nil {
		params.Validator = validator.New()
	}
	if params.Logger == nil {
		params.Logger = zap.NewNop()
	}
	return &AchievementService{
		repo:       params.Repo,
		categories: params.Categories,
		students:   params.Students,
		users:      params.Users,
		approvers:  params.Approvers,
		policy:     params.Policy,
		badges:     params.Badges,
		notify:     params.Notifier,
		analytics:  params.Analytics,
		validator:  params.Validator,
		logger:     params.Logger,
	}
}

// Submit creates a pending achievement for a student and routes a review
// notification to their mentor, or to the department's approvers when no
// mentor is assigned.
func (s *AchievementService) Submit(ctx context.Context, req SubmitAchievementRequest) (*models.AchievementDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid achievement payload")
	}
	if req.DateAchieved.After(time.Now().UTC()) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date achieved cannot be in the future")
	}

	student, err := s.students.FindByID(ctx, req.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	category, err := s.categories.FindByID(ctx, req.CategoryID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "category not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load category")
	}
	if !category.Active {
		return nil, appErrors.Clone(appErrors.ErrValidation, "category is no longer active")
	}

	achievement := &models.Achievement{
		StudentID:    req.StudentID,
		CategoryID:   req.CategoryID,
		Title:        req.Title,
		Description:  req.Description,
		DateAchieved: req.DateAchieved.UTC(),
		EvidenceURLs: req.EvidenceURLs,
		SkillTags:    req.SkillTags,
		Status:       models.AchievementPending,
		Credits:      0,
	}
	if err := s.repo.Create(ctx, achievement); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create achievement")
	}

	s.routeSubmissionNotification(ctx, student, achievement)

	detail, err := s.repo.FindDetailByID(ctx, achievement.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load achievement detail")
	}
	return detail, nil
}

func (s *AchievementService) routeSubmissionNotification(ctx context.Context, student *models.StudentDetail, achievement *models.Achievement) {
	notification := models.Notification{
		Type:       models.NotificationAchievementSubmitted,
		Title:      "Achievement awaiting review",
		Body:       fmt.Sprintf("%s submitted %q for review", student.FullName, achievement.Title),
		ResourceID: &achievement.ID,
	}
	if student.MentorID != nil {
		notification.UserID = *student.MentorID
		s.notify.Notify(notification)
		return
	}
	approvers, err := s.approvers.ListApproversByDepartment(ctx, student.InstitutionID, student.Department)
	if err != nil {
		s.logger.Warn("failed to resolve department approvers", zap.Error(err))
		return
	}
	s.notify.NotifyAll(approvers, notification)
}

// Approve transitions a pending achievement to APPROVED with the granted
// credits. The approver must hold approval power and, unless exempt, stay
// within their per-approval credit limit. A lost race against another
// decision surfaces as InvalidState with nothing written.
func (s *AchievementService) Approve(ctx context.Context, achievementID, approverID string, credits float64) (*models.AchievementDetail, error) {
	if credits < 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "credits must not be negative")
	}

	achievement, err := s.loadForDecision(ctx, achievementID)
	if err != nil {
		return nil, err
	}

	approver, err := s.loadApprover(ctx, approverID)
	if err != nil {
		return nil, err
	}

	allowed, limited, maxCredits, err := s.policy.CanApproveAchievements(ctx, approver)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve approval power")
	}
	if !allowed {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "caller may not approve achievements")
	}
	if limited && credits > maxCredits {
		return nil, appErrors.Clone(appErrors.ErrCreditLimitExceeded,
			fmt.Sprintf("credits %.1f exceed approver limit %.1f", credits, maxCredits))
	}

	if err := s.repo.Approve(ctx, achievement.ID, approverID, credits); err != nil {
		if errors.Is(err, repository.ErrStateConflict) {
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "achievement is no longer pending")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to approve achievement")
	}

	s.evaluateBadges(ctx, achievement.StudentID)
	s.invalidateAnalytics(ctx, achievement.StudentID)
	s.notify.Notify(models.Notification{
		UserID:     achievement.StudentID,
		Type:       models.NotificationAchievementApproved,
		Title:      "Achievement approved",
		Body:       fmt.Sprintf("%q was approved for %.1f credits", achievement.Title, credits),
		ResourceID: &achievement.ID,
	})

	detail, err := s.repo.FindDetailByID(ctx, achievement.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load achievement detail")
	}
	return detail, nil
}

// Reject transitions a pending achievement to REJECTED with a reason.
func (s *AchievementService) Reject(ctx context.Context, achievementID, approverID, reason string) (*models.AchievementDetail, error) {
	if reason == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "rejection reason is required")
	}

	achievement, err := s.loadForDecision(ctx, achievementID)
	if err != nil {
		return nil, err
	}

	approver, err := s.loadApprover(ctx, approverID)
	if err != nil {
		return nil, err
	}

	allowed, _, _, err := s.policy.CanApproveAchievements(ctx, approver)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve approval power")
	}
	if !allowed {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "caller may not reject achievements")
	}

	if err := s.repo.Reject(ctx, achievement.ID, approverID, reason); err != nil {
		if errors.Is(err, repository.ErrStateConflict) {
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "achievement is no longer pending")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reject achievement")
	}

	s.invalidateAnalytics(ctx, achievement.StudentID)
	s.notify.Notify(models.Notification{
		UserID:     achievement.StudentID,
		Type:       models.NotificationAchievementRejected,
		Title:      "Achievement rejected",
		Body:       fmt.Sprintf("%q was rejected: %s", achievement.Title, reason),
		ResourceID: &achievement.ID,
	})

	detail, err := s.repo.FindDetailByID(ctx, achievement.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load achievement detail")
	}
	return detail, nil
}

// Get returns a single achievement with context.
func (s *AchievementService) Get(ctx context.Context, id string) (*models.AchievementDetail, error) {
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "achievement not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load achievement")
	}
	return detail, nil
}

// List returns achievements with pagination metadata.
func (s *AchievementService) List(ctx context.Context, filter models.AchievementFilter) ([]models.AchievementDetail, *models.Pagination, error) {
	achievements, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list achievements")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return achievements, pagination, nil
}

func (s *AchievementService) loadForDecision(ctx context.Context, id string) (*models.Achievement, error) {
	achievement, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "achievement not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load achievement")
	}
	if achievement.Status != models.AchievementPending {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "achievement has already been decided")
	}
	return achievement, nil
}

func (s *AchievementService) loadApprover(ctx context.Context, approverID string) (*models.User, error) {
	approver, err := s.users.FindByID(ctx, approverID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "approver not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load approver")
	}
	return approver, nil
}

// invalidateAnalytics drops the student's institution aggregates so the next
// analytics read recomputes the decided counts and credit totals.
func (s *AchievementService) invalidateAnalytics(ctx context.Context, studentID string) {
	if s.analytics == nil {
		return
	}
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		s.logger.Warn("failed to resolve institution for analytics invalidation", zap.String("student_id", studentID), zap.Error(err))
		return
	}
	s.analytics.Invalidate(ctx, student.InstitutionID)
}

func (s *AchievementService) evaluateBadges(ctx context.Context, studentID string) {
	if s.badges == nil {
		return
	}
	if _, err := s.badges.Evaluate(ctx, studentID); err != nil {
		s.logger.Warn("badge evaluation failed", zap.String("student_id", studentID), zap.Error(err))
	}
}
