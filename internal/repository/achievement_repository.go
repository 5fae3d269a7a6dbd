package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/studenthub/hub-api/internal/models"
)

// AchievementRepository handles persistence of the achievement lifecycle.
type AchievementRepository struct {
	db *sqlx.DB
}

// NewAchievementRepository constructs the repository.
func NewAchievementRepository(db *sqlx.DB) *AchievementRepository {
	return &AchievementRepository{db: db}
}

const achievementColumns = `id, student_id, category_id, title, description, date_achieved, evidence_urls, skill_tags, status, credits, approved_by, approved_at, rejection_reason, created_at, updated_at`

// Create persists a new pending achievement.
func (r *AchievementRepository) Create(ctx context.Context, achievement *models.Achievement) error {
	if achievement.ID == "" {
		achievement.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if achievement.CreatedAt.IsZero() {
		achievement.CreatedAt = now
	}
	achievement.UpdatedAt = now
	if achievement.Status == "" {
		achievement.Status = models.AchievementPending
	}
	const query = `INSERT INTO achievements (id, student_id, category_id, title, description, date_achieved, evidence_urls, skill_tags, status, credits, created_at, updated_at)
        VALUES (:id, :student_id, :category_id, :title, :description, :date_achieved, :evidence_urls, :skill_tags, :status, :credits, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, achievement); err != nil {
		return fmt.Errorf("create achievement: %w", err)
	}
	return nil
}

// FindByID returns an achievement by identifier.
func (r *AchievementRepository) FindByID(ctx context.Context, id string) (*models.Achievement, error) {
	query := fmt.Sprintf(`SELECT %s FROM achievements WHERE id = $1`, achievementColumns)
	var achievement models.Achievement
	if err := r.db.GetContext(ctx, &achievement, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find achievement: %w", err)
	}
	return &achievement, nil
}

// FindDetailByID returns an achievement with category and student context.
func (r *AchievementRepository) FindDetailByID(ctx context.Context, id string) (*models.AchievementDetail, error) {
	const query = `SELECT a.id, a.student_id, a.category_id, a.title, a.description, a.date_achieved, a.evidence_urls, a.skill_tags,
        a.status, a.credits, a.approved_by, a.approved_at, a.rejection_reason, a.created_at, a.updated_at,
        c.name AS category_name, u.full_name AS student_name
        FROM achievements a
        JOIN achievement_categories c ON c.id = a.category_id
        JOIN users u ON u.id = a.student_id
        WHERE a.id = $1`
	var detail models.AchievementDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find achievement detail: %w", err)
	}
	return &detail, nil
}

// List returns achievements filtered by the provided criteria.
func (r *AchievementRepository) List(ctx context.Context, filter models.AchievementFilter) ([]models.AchievementDetail, int, error) {
	base := `FROM achievements a
JOIN achievement_categories c ON c.id = a.category_id
JOIN users u ON u.id = a.student_id
LEFT JOIN student_profiles p ON p.user_id = a.student_id`
	var conditions []string
	var args []interface{}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("a.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.CategoryID != "" {
		conditions = append(conditions, fmt.Sprintf("a.category_id = $%d", len(args)+1))
		args = append(args, filter.CategoryID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("a.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.Department != "" {
		conditions = append(conditions, fmt.Sprintf("p.department = $%d", len(args)+1))
		args = append(args, filter.Department)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"created_at":    "a.created_at",
		"date_achieved": "a.date_achieved",
		"credits":       "a.credits",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "a.created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT a.id, a.student_id, a.category_id, a.title, a.description, a.date_achieved, a.evidence_urls, a.skill_tags,
        a.status, a.credits, a.approved_by, a.approved_at, a.rejection_reason, a.created_at, a.updated_at,
        c.name AS category_name, u.full_name AS student_name
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, base+clause, orderBy, order, size, offset)

	var achievements []models.AchievementDetail
	if err := r.db.SelectContext(ctx, &achievements, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list achievements: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count achievements: %w", err)
	}
	return achievements, total, nil
}

// Approve transitions a pending achievement to APPROVED and applies the
// credit increments to the owning student in one transaction. The status
// guard makes concurrent decisions race-safe: the loser's update matches no
// row and the call returns ErrStateConflict with nothing written.
func (r *AchievementRepository) Approve(ctx context.Context, id, approverID string, credits float64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin approve tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	var studentID string
	err = tx.GetContext(ctx, &studentID, `UPDATE achievements
        SET status = $2, credits = $3, approved_by = $4, approved_at = $5, updated_at = $5
        WHERE id = $1 AND status = $6
        RETURNING student_id`,
		id, models.AchievementApproved, credits, approverID, now, models.AchievementPending)
	if err != nil {
		if err == sql.ErrNoRows {
			err = ErrStateConflict
			return err
		}
		return fmt.Errorf("approve achievement: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `UPDATE student_profiles
        SET total_credits = total_credits + $2, achievements_count = achievements_count + 1, updated_at = $3
        WHERE user_id = $1`, studentID, credits, now); err != nil {
		return fmt.Errorf("apply credit increments: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit approve tx: %w", err)
	}
	return nil
}

// Reject transitions a pending achievement to REJECTED with a reason. No
// counters change. Returns ErrStateConflict when the achievement is no
// longer pending.
func (r *AchievementRepository) Reject(ctx context.Context, id, approverID, reason string) error {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `UPDATE achievements
        SET status = $2, rejection_reason = $3, approved_by = $4, updated_at = $5
        WHERE id = $1 AND status = $6`,
		id, models.AchievementRejected, reason, approverID, now, models.AchievementPending)
	if err != nil {
		return fmt.Errorf("reject achievement: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reject achievement: %w", err)
	}
	if affected == 0 {
		return ErrStateConflict
	}
	return nil
}
