package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/studenthub/hub-api/internal/models"
	"github.com/studenthub/hub-api/internal/repository"
	appErrors "github.com/studenthub/hub-api/pkg/errors"
)

type categoryRepository interface {
	FindByID(ctx context.Context, id string) (*models.AchievementCategory, error)
	List(ctx context.Context, includeInactive bool) ([]models.AchievementCategory, error)
	Create(ctx context.Context, category *models.AchievementCategory) error
	Deactivate(ctx context.Context, id string) error
}

// CreateCategoryRequest is the admin payload for defining a category.
type CreateCategoryRequest struct {
	Name             string   `json:"name" validate:"required"`
	Description      string   `json:"description"`
	CreditMultiplier float64  `json:"credit_multiplier" validate:"gt=0"`
	Tags             []string `json:"tags"`
}

// CategoryService manages achievement category reference data. Categories
// are deactivated rather than deleted so historical achievements keep a
// resolvable category.
type CategoryService struct {
	repo      categoryRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCategoryService constructs CategoryService.
func NewCategoryService(repo categoryRepository, logger *zap.Logger) *CategoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CategoryService{repo: repo, validator: validator.New(), logger: logger}
}

// Create defines a new active category.
func (s *CategoryService) Create(ctx context.Context, req CreateCategoryRequest) (*models.AchievementCategory, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid category payload")
	}
	category := &models.AchievementCategory{
		Name:             req.Name,
		Description:      req.Description,
		CreditMultiplier: req.CreditMultiplier,
		Tags:             req.Tags,
		Active:           true,
	}
	if err := s.repo.Create(ctx, category); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "a category with this name already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create category")
	}
	return category, nil
}

// List returns categories; inactive ones are included only on request.
func (s *CategoryService) List(ctx context.Context, includeInactive bool) ([]models.AchievementCategory, error) {
	categories, err := s.repo.List(ctx, includeInactive)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list categories")
	}
	return categories, nil
}

// Get returns one category.
func (s *CategoryService) Get(ctx context.Context, id string) (*models.AchievementCategory, error) {
	category, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "category not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load category")
	}
	return category, nil
}

// Deactivate retires a category from new submissions.
func (s *CategoryService) Deactivate(ctx context.Context, id string) error {
	if err := s.repo.Deactivate(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "category not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate category")
	}
	return nil
}
