package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/studenthub/hub-api/internal/models"
)

// AnalyticsRepository aggregates read-only institution statistics.
type AnalyticsRepository struct {
	db *sqlx.DB
}

// NewAnalyticsRepository constructs the repository.
func NewAnalyticsRepository(db *sqlx.DB) *AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

// DepartmentCredits summarises stored aggregates per department. The
// per-student counters are authoritative (they move inside the approval and
// completion transactions), so this is a cheap rollup, not a rescan of
// achievements.
func (r *AnalyticsRepository) DepartmentCredits(ctx context.Context, institutionID string) ([]models.DepartmentCredits, error) {
	const query = `SELECT department, COUNT(*) AS student_count,
        COALESCE(SUM(total_credits), 0) AS total_credits,
        COALESCE(SUM(achievements_count), 0) AS achievements_count
        FROM student_profiles WHERE institution_id = $1
        GROUP BY department ORDER BY total_credits DESC`
	var rows []models.DepartmentCredits
	if err := r.db.SelectContext(ctx, &rows, query, institutionID); err != nil {
		return nil, fmt.Errorf("department credits: %w", err)
	}
	return rows, nil
}

// AchievementStatusCounts returns pending/approved/rejected totals for an
// institution.
func (r *AnalyticsRepository) AchievementStatusCounts(ctx context.Context, institutionID string) (pending, approved, rejected int, err error) {
	const query = `SELECT
        COUNT(*) FILTER (WHERE a.status = 'PENDING') AS pending,
        COUNT(*) FILTER (WHERE a.status = 'APPROVED') AS approved,
        COUNT(*) FILTER (WHERE a.status = 'REJECTED') AS rejected
        FROM achievements a
        JOIN student_profiles p ON p.user_id = a.student_id
        WHERE p.institution_id = $1`
	row := struct {
		Pending  int `db:"pending"`
		Approved int `db:"approved"`
		Rejected int `db:"rejected"`
	}{}
	if err = r.db.GetContext(ctx, &row, query, institutionID); err != nil {
		return 0, 0, 0, fmt.Errorf("achievement status counts: %w", err)
	}
	return row.Pending, row.Approved, row.Rejected, nil
}

// ActiveEventCount returns the number of published or ongoing events.
func (r *AnalyticsRepository) ActiveEventCount(ctx context.Context, institutionID string) (int, error) {
	var count int
	const query = `SELECT COUNT(*) FROM events WHERE institution_id = $1 AND status IN ('PUBLISHED', 'ONGOING')`
	if err := r.db.GetContext(ctx, &count, query, institutionID); err != nil {
		return 0, fmt.Errorf("active event count: %w", err)
	}
	return count, nil
}

// TopSkills returns the most frequent skill tags across approved
// achievements for an institution.
func (r *AnalyticsRepository) TopSkills(ctx context.Context, institutionID string, limit int) ([]models.SkillCount, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	query := fmt.Sprintf(`SELECT skill, COUNT(*) AS count FROM (
        SELECT UNNEST(a.skill_tags) AS skill
        FROM achievements a
        JOIN student_profiles p ON p.user_id = a.student_id
        WHERE p.institution_id = $1 AND a.status = 'APPROVED'
    ) s GROUP BY skill ORDER BY count DESC, skill ASC LIMIT %d`, limit)
	var skills []models.SkillCount
	if err := r.db.SelectContext(ctx, &skills, query, institutionID); err != nil {
		return nil, fmt.Errorf("top skills: %w", err)
	}
	return skills, nil
}
