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

// BadgeRepository handles badge reference data and earned badges.
type BadgeRepository struct {
	db *sqlx.DB
}

// NewBadgeRepository constructs the repository.
func NewBadgeRepository(db *sqlx.DB) *BadgeRepository {
	return &BadgeRepository{db: db}
}

const badgeColumns = `id, name, description, icon_url, criteria_type, threshold, required_skills, active, created_at`

// ListActive returns all active badges.
func (r *BadgeRepository) ListActive(ctx context.Context) ([]models.Badge, error) {
	query := fmt.Sprintf(`SELECT %s FROM badges WHERE active ORDER BY name`, badgeColumns)
	var badges []models.Badge
	if err := r.db.SelectContext(ctx, &badges, query); err != nil {
		return nil, fmt.Errorf("list badges: %w", err)
	}
	return badges, nil
}

// FindByID returns a badge by identifier.
func (r *BadgeRepository) FindByID(ctx context.Context, id string) (*models.Badge, error) {
	query := fmt.Sprintf(`SELECT %s FROM badges WHERE id = $1`, badgeColumns)
	var badge models.Badge
	if err := r.db.GetContext(ctx, &badge, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find badge: %w", err)
	}
	return &badge, nil
}

// Create persists a new badge definition.
func (r *BadgeRepository) Create(ctx context.Context, badge *models.Badge) error {
	if badge.ID == "" {
		badge.ID = uuid.NewString()
	}
	if badge.CreatedAt.IsZero() {
		badge.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO badges (id, name, description, icon_url, criteria_type, threshold, required_skills, active, created_at)
        VALUES (:id, :name, :description, :icon_url, :criteria_type, :threshold, :required_skills, :active, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, badge); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create badge: %w", err)
	}
	return nil
}

// ListEarnedIDs returns the badge IDs already held by a student.
func (r *BadgeRepository) ListEarnedIDs(ctx context.Context, studentID string) (map[string]bool, error) {
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, `SELECT badge_id FROM student_badges WHERE student_id = $1`, studentID); err != nil {
		return nil, fmt.Errorf("list earned badge ids: %w", err)
	}
	earned := make(map[string]bool, len(ids))
	for _, id := range ids {
		earned[id] = true
	}
	return earned, nil
}

// ListEarned returns a student's badges with reference data.
func (r *BadgeRepository) ListEarned(ctx context.Context, studentID string) ([]models.StudentBadgeDetail, error) {
	const query = `SELECT sb.student_id, sb.badge_id, sb.earned_at, b.name, b.description, b.icon_url
        FROM student_badges sb JOIN badges b ON b.id = sb.badge_id
        WHERE sb.student_id = $1 ORDER BY sb.earned_at DESC`
	var badges []models.StudentBadgeDetail
	if err := r.db.SelectContext(ctx, &badges, query, studentID); err != nil {
		return nil, fmt.Errorf("list earned badges: %w", err)
	}
	return badges, nil
}

// Award records an earned badge. The insert is idempotent: re-evaluation of
// an already-earned badge is a no-op and the method reports whether a new
// row was written.
func (r *BadgeRepository) Award(ctx context.Context, studentID, badgeID string, earnedAt time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `INSERT INTO student_badges (student_id, badge_id, earned_at)
        VALUES ($1, $2, $3) ON CONFLICT (student_id, badge_id) DO NOTHING`,
		studentID, badgeID, earnedAt)
	if err != nil {
		return false, fmt.Errorf("award badge: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("award badge: %w", err)
	}
	return affected > 0, nil
}
