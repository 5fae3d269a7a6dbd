package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/studenthub/hub-api/internal/models"
)

// FacultyRepository handles persistence of faculty profiles and the
// mentor-mentee binding.
type FacultyRepository struct {
	db *sqlx.DB
}

// NewFacultyRepository constructs the repository.
func NewFacultyRepository(db *sqlx.DB) *FacultyRepository {
	return &FacultyRepository{db: db}
}

const facultyDetailColumns = `f.user_id, f.institution_id, f.department, f.designation, f.can_mentor, f.max_mentees, f.current_mentees,
        f.can_approve_achievements, f.can_create_events, f.max_credit_value, f.created_at, f.updated_at,
        u.full_name, u.email, u.active`

// FindByID returns a faculty profile with identity context.
func (r *FacultyRepository) FindByID(ctx context.Context, userID string) (*models.FacultyDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM faculty_profiles f JOIN users u ON u.id = f.user_id WHERE f.user_id = $1`, facultyDetailColumns)
	var detail models.FacultyDetail
	if err := r.db.GetContext(ctx, &detail, query, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find faculty profile: %w", err)
	}
	return &detail, nil
}

// ListApproversByDepartment returns faculty user IDs in a department that
// hold achievement approval power. Used to route submission notifications
// when a student has no mentor.
func (r *FacultyRepository) ListApproversByDepartment(ctx context.Context, institutionID, department string) ([]string, error) {
	const query = `SELECT f.user_id FROM faculty_profiles f JOIN users u ON u.id = f.user_id
        WHERE f.institution_id = $1 AND f.department = $2 AND f.can_approve_achievements AND u.active`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, institutionID, department); err != nil {
		return nil, fmt.Errorf("list department approvers: %w", err)
	}
	return ids, nil
}

// Create persists a new faculty profile.
func (r *FacultyRepository) Create(ctx context.Context, profile *models.FacultyProfile) error {
	now := time.Now().UTC()
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}
	profile.UpdatedAt = now
	const query = `INSERT INTO faculty_profiles (user_id, institution_id, department, designation, can_mentor, max_mentees, current_mentees, can_approve_achievements, can_create_events, max_credit_value, created_at, updated_at)
        VALUES (:user_id, :institution_id, :department, :designation, :can_mentor, :max_mentees, :current_mentees, :can_approve_achievements, :can_create_events, :max_credit_value, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, profile); err != nil {
		return fmt.Errorf("create faculty profile: %w", err)
	}
	return nil
}

// AssignMentee binds a student to a mentor in one transaction: the new
// mentor's counter is incremented only while below max_mentees, the previous
// mentor (if any) is decremented, and the student's mentor reference is
// updated. Returns ErrCapacityReached when the mentor has no free slot.
func (r *FacultyRepository) AssignMentee(ctx context.Context, studentID, facultyID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin assign mentee tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var currentMentor *string
	if err = tx.GetContext(ctx, &currentMentor, `SELECT mentor_id FROM student_profiles WHERE user_id = $1 FOR UPDATE`, studentID); err != nil {
		if err == sql.ErrNoRows {
			return err
		}
		return fmt.Errorf("lock student profile: %w", err)
	}

	if currentMentor != nil && *currentMentor == facultyID {
		// Already assigned; nothing to move.
		return tx.Commit()
	}

	now := time.Now().UTC()

	res, err := tx.ExecContext(ctx, `UPDATE faculty_profiles SET current_mentees = current_mentees + 1, updated_at = $2
        WHERE user_id = $1 AND can_mentor AND current_mentees < max_mentees`, facultyID, now)
	if err != nil {
		return fmt.Errorf("increment mentee count: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("increment mentee count: %w", err)
	}
	if affected == 0 {
		err = ErrCapacityReached
		return err
	}

	if currentMentor != nil {
		if _, err = tx.ExecContext(ctx, `UPDATE faculty_profiles SET current_mentees = GREATEST(current_mentees - 1, 0), updated_at = $2 WHERE user_id = $1`, *currentMentor, now); err != nil {
			return fmt.Errorf("decrement previous mentor: %w", err)
		}
	}

	if _, err = tx.ExecContext(ctx, `UPDATE student_profiles SET mentor_id = $2, updated_at = $3 WHERE user_id = $1`, studentID, facultyID, now); err != nil {
		return fmt.Errorf("set student mentor: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit assign mentee tx: %w", err)
	}
	return nil
}
