package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/studenthub/hub-api/internal/models"
)

func newAchievementRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestAchievementRepositoryApprove(t *testing.T) {
	db, mock, cleanup := newAchievementRepoMock(t)
	defer cleanup()
	repo := NewAchievementRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE achievements")).
		WithArgs("ach-1", models.AchievementApproved, 5.0, "fac-1", sqlmock.AnyArg(), models.AchievementPending).
		WillReturnRows(sqlmock.NewRows([]string{"student_id"}).AddRow("stu-1"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE student_profiles")).
		WithArgs("stu-1", 5.0, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Approve(context.Background(), "ach-1", "fac-1", 5)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAchievementRepositoryApproveAlreadyDecided(t *testing.T) {
	db, mock, cleanup := newAchievementRepoMock(t)
	defer cleanup()
	repo := NewAchievementRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE achievements")).
		WithArgs("ach-1", models.AchievementApproved, 5.0, "fac-1", sqlmock.AnyArg(), models.AchievementPending).
		WillReturnRows(sqlmock.NewRows([]string{"student_id"}))
	mock.ExpectRollback()

	err := repo.Approve(context.Background(), "ach-1", "fac-1", 5)
	require.ErrorIs(t, err, ErrStateConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAchievementRepositoryReject(t *testing.T) {
	db, mock, cleanup := newAchievementRepoMock(t)
	defer cleanup()
	repo := NewAchievementRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE achievements")).
		WithArgs("ach-1", models.AchievementRejected, "insufficient evidence", "fac-1", sqlmock.AnyArg(), models.AchievementPending).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Reject(context.Background(), "ach-1", "fac-1", "insufficient evidence")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAchievementRepositoryRejectAlreadyDecided(t *testing.T) {
	db, mock, cleanup := newAchievementRepoMock(t)
	defer cleanup()
	repo := NewAchievementRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE achievements")).
		WithArgs("ach-1", models.AchievementRejected, "too late", "fac-1", sqlmock.AnyArg(), models.AchievementPending).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Reject(context.Background(), "ach-1", "fac-1", "too late")
	require.ErrorIs(t, err, ErrStateConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}
