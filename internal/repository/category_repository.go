package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/studenthub/hub-api/internal/models"
)

// CategoryRepository handles the achievement category reference data.
type CategoryRepository struct {
	db *sqlx.DB
}

// NewCategoryRepository constructs the repository.
func NewCategoryRepository(db *sqlx.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// FindByID returns a category by identifier.
func (r *CategoryRepository) FindByID(ctx context.Context, id string) (*models.AchievementCategory, error) {
	const query = `SELECT id, name, description, credit_multiplier, tags, active, created_at FROM achievement_categories WHERE id = $1`
	var category models.AchievementCategory
	if err := r.db.GetContext(ctx, &category, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find category: %w", err)
	}
	return &category, nil
}

// List returns categories, optionally including inactive ones.
func (r *CategoryRepository) List(ctx context.Context, includeInactive bool) ([]models.AchievementCategory, error) {
	query := `SELECT id, name, description, credit_multiplier, tags, active, created_at FROM achievement_categories`
	if !includeInactive {
		query += ` WHERE active`
	}
	query += ` ORDER BY name ASC`
	var categories []models.AchievementCategory
	if err := r.db.SelectContext(ctx, &categories, query); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// Create persists a new category.
func (r *CategoryRepository) Create(ctx context.Context, category *models.AchievementCategory) error {
	if category.ID == "" {
		category.ID = uuid.NewString()
	}
	if category.CreatedAt.IsZero() {
		category.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO achievement_categories (id, name, description, credit_multiplier, tags, active, created_at)
        VALUES (:id, :name, :description, :credit_multiplier, :tags, :active, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, category); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create category: %w", err)
	}
	return nil
}

// Deactivate retires a category. Categories referenced by achievements are
// never deleted so past approvals stay auditable.
func (r *CategoryRepository) Deactivate(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE achievement_categories SET active = FALSE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deactivate category: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deactivate category: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
