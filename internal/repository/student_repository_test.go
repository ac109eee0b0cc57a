package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-kiosk-api/internal/models"
)

func TestStudentRepositoryIncrementLateStats(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec("UPDATE students").
		WithArgs("stu-1", 1, 25, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.IncrementLateStats(context.Background(), "stu-1", 1, 25))
}

func TestStudentRepositoryIncrementLateStatsMissingStudent(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec("UPDATE students").
		WithArgs("missing", 1, 25, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.IncrementLateStats(context.Background(), "missing", 1, 25)
	assert.Equal(t, sql.ErrNoRows, err)
}

func TestStudentRepositoryRecomputeLateStats(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec("UPDATE students").
		WithArgs("stu-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.RecomputeLateStats(context.Background(), "stu-1"))
}

func TestStudentRepositoryCountActive(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(42))

	total, err := repo.CountActive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, total)
}

func TestStudentRepositoryListFiltersByGrade(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	now := time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"id", "nis", "full_name", "grade", "class_name", "guardian_phone",
		"late_days_count", "late_minutes_total", "active", "created_at", "updated_at",
	}).AddRow("stu-1", "1001", "Siti Rahma", "X", "X-1", nil, 0, 0, true, now, now)

	mock.ExpectQuery("SELECT (.+) FROM students").
		WithArgs("X").
		WillReturnRows(rows)
	mock.ExpectQuery("SELECT COUNT").
		WithArgs("X").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	students, total, err := repo.List(context.Background(), models.StudentFilter{Grade: "X"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, students, 1)
	assert.Equal(t, "Siti Rahma", students[0].FullName)
}
