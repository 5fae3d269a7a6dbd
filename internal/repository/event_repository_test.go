package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/studenthub/hub-api/internal/models"
)

func newEventRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestEventRepositoryRegister(t *testing.T) {
	db, mock, cleanup := newEventRepoMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE event_roles SET current_count = current_count + 1")).
		WithArgs("evt-1", models.RoleVolunteer).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO event_participations")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	participation := &models.EventParticipation{EventID: "evt-1", StudentID: "stu-1", Role: models.RoleVolunteer}
	err := repo.Register(context.Background(), participation)
	require.NoError(t, err)
	require.NotEmpty(t, participation.ID)
	require.Equal(t, models.ParticipationRegistered, participation.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepositoryRegisterRoleFull(t *testing.T) {
	db, mock, cleanup := newEventRepoMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE event_roles SET current_count = current_count + 1")).
		WithArgs("evt-1", models.RoleVolunteer).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Register(context.Background(), &models.EventParticipation{EventID: "evt-1", StudentID: "stu-1", Role: models.RoleVolunteer})
	require.ErrorIs(t, err, ErrCapacityReached)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepositoryRegisterDuplicate(t *testing.T) {
	db, mock, cleanup := newEventRepoMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE event_roles SET current_count = current_count + 1")).
		WithArgs("evt-1", models.RoleVolunteer).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO event_participations")).
		WillReturnError(&pq.Error{Code: pqUniqueViolation})
	mock.ExpectRollback()

	err := repo.Register(context.Background(), &models.EventParticipation{EventID: "evt-1", StudentID: "stu-1", Role: models.RoleVolunteer})
	require.ErrorIs(t, err, ErrDuplicate)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepositoryComplete(t *testing.T) {
	db, mock, cleanup := newEventRepoMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE event_participations p")).
		WillReturnRows(sqlmock.NewRows([]string{"credits_earned"}).AddRow(2.5))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE student_profiles SET total_credits = total_credits + $2")).
		WithArgs("stu-1", 2.5, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	credits, err := repo.Complete(context.Background(), "evt-1", "stu-1")
	require.NoError(t, err)
	require.Equal(t, 2.5, credits)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepositoryCompleteConflict(t *testing.T) {
	db, mock, cleanup := newEventRepoMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE event_participations p")).
		WillReturnRows(sqlmock.NewRows([]string{"credits_earned"}))
	mock.ExpectRollback()

	_, err := repo.Complete(context.Background(), "evt-1", "stu-1")
	require.ErrorIs(t, err, ErrStateConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepositoryCancelReleasesSlot(t *testing.T) {
	db, mock, cleanup := newEventRepoMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE event_participations SET status = $3")).
		WithArgs("evt-1", "stu-1", models.ParticipationCancelled, models.ParticipationRegistered).
		WillReturnRows(sqlmock.NewRows([]string{"role"}).AddRow("VOLUNTEER"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE event_roles SET current_count = GREATEST(current_count - 1, 0)")).
		WithArgs("evt-1", models.RoleVolunteer).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Cancel(context.Background(), "evt-1", "stu-1")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepositoryUpdateStatusConflict(t *testing.T) {
	db, mock, cleanup := newEventRepoMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE events SET status = $2")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), "evt-1", []models.EventStatus{models.EventOngoing}, models.EventCompleted)
	require.ErrorIs(t, err, ErrStateConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}
