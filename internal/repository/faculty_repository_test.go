package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func newFacultyRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestFacultyRepositoryAssignMentee(t *testing.T) {
	db, mock, cleanup := newFacultyRepoMock(t)
	defer cleanup()
	repo := NewFacultyRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT mentor_id FROM student_profiles WHERE user_id = $1 FOR UPDATE")).
		WithArgs("stu-1").
		WillReturnRows(sqlmock.NewRows([]string{"mentor_id"}).AddRow(nil))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE faculty_profiles SET current_mentees = current_mentees + 1")).
		WithArgs("fac-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE student_profiles SET mentor_id = $2")).
		WithArgs("stu-1", "fac-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.AssignMentee(context.Background(), "stu-1", "fac-1")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFacultyRepositoryAssignMenteeCapacityReached(t *testing.T) {
	db, mock, cleanup := newFacultyRepoMock(t)
	defer cleanup()
	repo := NewFacultyRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT mentor_id FROM student_profiles WHERE user_id = $1 FOR UPDATE")).
		WithArgs("stu-1").
		WillReturnRows(sqlmock.NewRows([]string{"mentor_id"}).AddRow(nil))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE faculty_profiles SET current_mentees = current_mentees + 1")).
		WithArgs("fac-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.AssignMentee(context.Background(), "stu-1", "fac-1")
	require.ErrorIs(t, err, ErrCapacityReached)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFacultyRepositoryAssignMenteeReassigns(t *testing.T) {
	db, mock, cleanup := newFacultyRepoMock(t)
	defer cleanup()
	repo := NewFacultyRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT mentor_id FROM student_profiles WHERE user_id = $1 FOR UPDATE")).
		WithArgs("stu-1").
		WillReturnRows(sqlmock.NewRows([]string{"mentor_id"}).AddRow("fac-old"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE faculty_profiles SET current_mentees = current_mentees + 1")).
		WithArgs("fac-new", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE faculty_profiles SET current_mentees = GREATEST(current_mentees - 1, 0)")).
		WithArgs("fac-old", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE student_profiles SET mentor_id = $2")).
		WithArgs("stu-1", "fac-new", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.AssignMentee(context.Background(), "stu-1", "fac-new")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFacultyRepositoryAssignMenteeSameMentorIsNoop(t *testing.T) {
	db, mock, cleanup := newFacultyRepoMock(t)
	defer cleanup()
	repo := NewFacultyRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT mentor_id FROM student_profiles WHERE user_id = $1 FOR UPDATE")).
		WithArgs("stu-1").
		WillReturnRows(sqlmock.NewRows([]string{"mentor_id"}).AddRow("fac-1"))
	mock.ExpectCommit()

	err := repo.AssignMentee(context.Background(), "stu-1", "fac-1")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
