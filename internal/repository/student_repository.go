package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/studenthub/hub-api/internal/models"
)

// StudentRepository handles persistence of student profiles.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs the repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

const studentDetailColumns = `p.user_id, p.institution_id, p.department, p.roll_number, p.batch, p.course, p.year, p.semester, p.cgpa,
        p.skills, p.interests, p.total_credits, p.achievements_count, p.mentor_id, p.created_at, p.updated_at,
        u.full_name, u.email, u.privacy_mode, u.active`

// FindByID returns a student profile with identity context.
func (r *StudentRepository) FindByID(ctx context.Context, userID string) (*models.StudentDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM student_profiles p JOIN users u ON u.id = p.user_id WHERE p.user_id = $1`, studentDetailColumns)
	var detail models.StudentDetail
	if err := r.db.GetContext(ctx, &detail, query, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find student profile: %w", err)
	}
	return &detail, nil
}

// List returns student profiles filtered by the provided criteria.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	base := `FROM student_profiles p JOIN users u ON u.id = p.user_id`
	var conditions []string
	var args []interface{}

	if filter.InstitutionID != "" {
		conditions = append(conditions, fmt.Sprintf("p.institution_id = $%d", len(args)+1))
		args = append(args, filter.InstitutionID)
	}
	if filter.Department != "" {
		conditions = append(conditions, fmt.Sprintf("p.department = $%d", len(args)+1))
		args = append(args, filter.Department)
	}
	if filter.Batch != "" {
		conditions = append(conditions, fmt.Sprintf("p.batch = $%d", len(args)+1))
		args = append(args, filter.Batch)
	}
	if filter.MentorID != "" {
		conditions = append(conditions, fmt.Sprintf("p.mentor_id = $%d", len(args)+1))
		args = append(args, filter.MentorID)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(u.full_name) LIKE $%d OR LOWER(p.roll_number) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"full_name":     "u.full_name",
		"total_credits": "p.total_credits",
		"created_at":    "p.created_at",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "u.full_name"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
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

	query := fmt.Sprintf(`SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d`, studentDetailColumns, base+clause, orderBy, order, size, offset)

	var students []models.StudentDetail
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// Create persists a new student profile.
func (r *StudentRepository) Create(ctx context.Context, profile *models.StudentProfile) error {
	now := time.Now().UTC()
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}
	profile.UpdatedAt = now
	const query = `INSERT INTO student_profiles (user_id, institution_id, department, roll_number, batch, course, year, semester, cgpa, skills, interests, total_credits, achievements_count, mentor_id, created_at, updated_at)
        VALUES (:user_id, :institution_id, :department, :roll_number, :batch, :course, :year, :semester, :cgpa, :skills, :interests, :total_credits, :achievements_count, :mentor_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, profile); err != nil {
		return fmt.Errorf("create student profile: %w", err)
	}
	return nil
}

// UpdateProfile updates the student-editable profile fields.
func (r *StudentRepository) UpdateProfile(ctx context.Context, userID string, skills, interests []string, cgpa float64, semester int) error {
	const query = `UPDATE student_profiles SET skills = $2, interests = $3, cgpa = $4, semester = $5, updated_at = $6 WHERE user_id = $1`
	if _, err := r.db.ExecContext(ctx, query, userID, pq.StringArray(skills), pq.StringArray(interests), cgpa, semester, time.Now().UTC()); err != nil {
		return fmt.Errorf("update student profile: %w", err)
	}
	return nil
}
