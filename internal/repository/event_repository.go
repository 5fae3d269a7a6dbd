package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/studenthub/hub-api/internal/models"
)

// EventRepository handles persistence of events, per-role capacities and
// participations.
type EventRepository struct {
	db *sqlx.DB
}

// NewEventRepository constructs the repository.
func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

const eventColumns = `id, institution_id, created_by, title, description, venue, start_date, end_date, registration_deadline, status, created_at, updated_at`

const participationColumns = `id, event_id, student_id, role, status, credits_earned, registered_at, completed_at`

// Create persists a new event together with its role capacities.
func (r *EventRepository) Create(ctx context.Context, event *models.Event, roles []models.EventRole) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if event.CreatedAt.IsZero() {
		event.CreatedAt = now
	}
	event.UpdatedAt = now
	if event.Status == "" {
		event.Status = models.EventDraft
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create event tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const eventQuery = `INSERT INTO events (id, institution_id, created_by, title, description, venue, start_date, end_date, registration_deadline, status, created_at, updated_at)
        VALUES (:id, :institution_id, :created_by, :title, :description, :venue, :start_date, :end_date, :registration_deadline, :status, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, eventQuery, event); err != nil {
		return fmt.Errorf("create event: %w", err)
	}

	const roleQuery = `INSERT INTO event_roles (event_id, role, credits, max_count, current_count) VALUES ($1, $2, $3, $4, 0)`
	for _, role := range roles {
		if _, err = tx.ExecContext(ctx, roleQuery, event.ID, role.Role, role.Credits, role.MaxCount); err != nil {
			return fmt.Errorf("create event role %s: %w", role.Role, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create event tx: %w", err)
	}
	return nil
}

// FindByID returns an event with its role capacities.
func (r *EventRepository) FindByID(ctx context.Context, id string) (*models.EventDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM events WHERE id = $1`, eventColumns)
	var event models.Event
	if err := r.db.GetContext(ctx, &event, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find event: %w", err)
	}

	var roles []models.EventRole
	const rolesQuery = `SELECT event_id, role, credits, max_count, current_count FROM event_roles WHERE event_id = $1 ORDER BY role`
	if err := r.db.SelectContext(ctx, &roles, rolesQuery, id); err != nil {
		return nil, fmt.Errorf("find event roles: %w", err)
	}

	return &models.EventDetail{Event: event, Roles: roles}, nil
}

// List returns events filtered by the provided criteria.
func (r *EventRepository) List(ctx context.Context, filter models.EventFilter) ([]models.Event, int, error) {
	base := `FROM events`
	var conditions []string
	var args []interface{}

	if filter.InstitutionID != "" {
		conditions = append(conditions, fmt.Sprintf("institution_id = $%d", len(args)+1))
		args = append(args, filter.InstitutionID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("start_date >= $%d", len(args)+1))
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("start_date <= $%d", len(args)+1))
		args = append(args, *filter.To)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"start_date": "start_date",
		"created_at": "created_at",
		"title":      "title",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "start_date"
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

	query := fmt.Sprintf(`SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d`, eventColumns, base+clause, orderBy, order, size, offset)

	var events []models.Event
	if err := r.db.SelectContext(ctx, &events, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list events: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count events: %w", err)
	}
	return events, total, nil
}

// UpdateStatus moves an event to a new status if it is currently in one of
// the allowed source states. Returns ErrStateConflict otherwise.
func (r *EventRepository) UpdateStatus(ctx context.Context, id string, from []models.EventStatus, to models.EventStatus) error {
	sources := make([]string, len(from))
	for i, s := range from {
		sources[i] = string(s)
	}
	res, err := r.db.ExecContext(ctx, `UPDATE events SET status = $2, updated_at = $3 WHERE id = $1 AND status = ANY($4)`,
		id, to, time.Now().UTC(), pq.Array(sources))
	if err != nil {
		return fmt.Errorf("update event status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update event status: %w", err)
	}
	if affected == 0 {
		return ErrStateConflict
	}
	return nil
}

// FindParticipation returns a participation for the (event, student) pair.
func (r *EventRepository) FindParticipation(ctx context.Context, eventID, studentID string) (*models.EventParticipation, error) {
	query := fmt.Sprintf(`SELECT %s FROM event_participations WHERE event_id = $1 AND student_id = $2`, participationColumns)
	var participation models.EventParticipation
	if err := r.db.GetContext(ctx, &participation, query, eventID, studentID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find participation: %w", err)
	}
	return &participation, nil
}

// Register creates a participation and claims a role slot in one
// transaction. The slot claim is a conditional update so two students cannot
// both take the last slot: the loser's update matches no row and the call
// returns ErrCapacityReached with the insert rolled back. A second
// registration for the same (event, student) pair trips the unique
// constraint and returns ErrDuplicate.
func (r *EventRepository) Register(ctx context.Context, participation *models.EventParticipation) error {
	if participation.ID == "" {
		participation.ID = uuid.NewString()
	}
	if participation.RegisteredAt.IsZero() {
		participation.RegisteredAt = time.Now().UTC()
	}
	if participation.Status == "" {
		participation.Status = models.ParticipationRegistered
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin register tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `UPDATE event_roles SET current_count = current_count + 1
        WHERE event_id = $1 AND role = $2 AND current_count < max_count`,
		participation.EventID, participation.Role)
	if err != nil {
		return fmt.Errorf("claim role slot: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("claim role slot: %w", err)
	}
	if affected == 0 {
		err = ErrCapacityReached
		return err
	}

	const insertQuery = `INSERT INTO event_participations (id, event_id, student_id, role, status, credits_earned, registered_at)
        VALUES (:id, :event_id, :student_id, :role, :status, :credits_earned, :registered_at)`
	if _, err = tx.NamedExecContext(ctx, insertQuery, participation); err != nil {
		if isUniqueViolation(err) {
			err = ErrDuplicate
			return err
		}
		return fmt.Errorf("create participation: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit register tx: %w", err)
	}
	return nil
}

// MarkAttended transitions a registered participation to ATTENDED.
func (r *EventRepository) MarkAttended(ctx context.Context, eventID, studentID string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE event_participations SET status = $3
        WHERE event_id = $1 AND student_id = $2 AND status = $4`,
		eventID, studentID, models.ParticipationAttended, models.ParticipationRegistered)
	if err != nil {
		return fmt.Errorf("mark attended: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark attended: %w", err)
	}
	if affected == 0 {
		return ErrStateConflict
	}
	return nil
}

// Complete transitions a REGISTERED or ATTENDED participation to COMPLETED,
// copies the role's credits onto the participation and applies the credit
// increment to the student, all in one transaction. Returns the credits
// earned. A participation that is cancelled or already completed yields
// ErrStateConflict.
func (r *EventRepository) Complete(ctx context.Context, eventID, studentID string) (float64, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin complete tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	var credits float64
	err = tx.GetContext(ctx, &credits, `UPDATE event_participations p
        SET status = $3, completed_at = $4, credits_earned = er.credits
        FROM event_roles er
        WHERE p.event_id = $1 AND p.student_id = $2
          AND er.event_id = p.event_id AND er.role = p.role
          AND p.status = ANY($5)
        RETURNING p.credits_earned`,
		eventID, studentID, models.ParticipationCompleted, now,
		pq.Array([]string{string(models.ParticipationRegistered), string(models.ParticipationAttended)}))
	if err != nil {
		if err == sql.ErrNoRows {
			err = ErrStateConflict
			return 0, err
		}
		return 0, fmt.Errorf("complete participation: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `UPDATE student_profiles SET total_credits = total_credits + $2, updated_at = $3 WHERE user_id = $1`,
		studentID, credits, now); err != nil {
		return 0, fmt.Errorf("apply participation credits: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit complete tx: %w", err)
	}
	return credits, nil
}

// Cancel releases a REGISTERED participation and frees its role slot in one
// transaction. Returns ErrStateConflict when the participation is not
// cancellable.
func (r *EventRepository) Cancel(ctx context.Context, eventID, studentID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin cancel tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var role models.EventRoleName
	err = tx.GetContext(ctx, &role, `UPDATE event_participations SET status = $3
        WHERE event_id = $1 AND student_id = $2 AND status = $4
        RETURNING role`,
		eventID, studentID, models.ParticipationCancelled, models.ParticipationRegistered)
	if err != nil {
		if err == sql.ErrNoRows {
			err = ErrStateConflict
			return err
		}
		return fmt.Errorf("cancel participation: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `UPDATE event_roles SET current_count = GREATEST(current_count - 1, 0)
        WHERE event_id = $1 AND role = $2`, eventID, role); err != nil {
		return fmt.Errorf("release role slot: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit cancel tx: %w", err)
	}
	return nil
}

// ListParticipationsByEvent returns all participations for an event.
func (r *EventRepository) ListParticipationsByEvent(ctx context.Context, eventID string) ([]models.EventParticipation, error) {
	query := fmt.Sprintf(`SELECT %s FROM event_participations WHERE event_id = $1 ORDER BY registered_at`, participationColumns)
	var participations []models.EventParticipation
	if err := r.db.SelectContext(ctx, &participations, query, eventID); err != nil {
		return nil, fmt.Errorf("list event participations: %w", err)
	}
	return participations, nil
}

// ListParticipationsByStudent returns a student's participations.
func (r *EventRepository) ListParticipationsByStudent(ctx context.Context, studentID string) ([]models.EventParticipation, error) {
	query := fmt.Sprintf(`SELECT %s FROM event_participations WHERE student_id = $1 ORDER BY registered_at DESC`, participationColumns)
	var participations []models.EventParticipation
	if err := r.db.SelectContext(ctx, &participations, query, studentID); err != nil {
		return nil, fmt.Errorf("list student participations: %w", err)
	}
	return participations, nil
}

// CountCompletedByStudent returns the number of completed participations for
// a student. Used by badge evaluation.
func (r *EventRepository) CountCompletedByStudent(ctx context.Context, studentID string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM event_participations WHERE student_id = $1 AND status = $2`,
		studentID, models.ParticipationCompleted); err != nil {
		return 0, fmt.Errorf("count completed participations: %w", err)
	}
	return count, nil
}
