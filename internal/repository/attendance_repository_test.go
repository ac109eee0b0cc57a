package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-kiosk-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	return sqlxDB, mock, func() {
		sqlxDB.Close()
		db.Close()
	}
}

func attendanceRows(record models.AttendanceRecord) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "student_id", "date", "check_in_time", "status", "late_minutes",
		"session_id", "is_repeat_check_in", "note", "created_at", "updated_at",
	}).AddRow(
		record.ID, record.StudentID, record.Date, record.CheckInTime, record.Status,
		record.LateMinutes, record.SessionID, record.IsRepeatCheckIn, record.Note,
		record.CreatedAt, record.UpdatedAt,
	)
}

func TestAttendanceRepositoryUpsertCheckInNewRecord(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	date := time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)
	checkIn := date.Add(7 * time.Hour)
	rows := sqlmock.NewRows([]string{
		"id", "student_id", "date", "check_in_time", "status", "late_minutes",
		"session_id", "is_repeat_check_in", "note", "created_at", "updated_at", "inserted",
	}).AddRow("rec-1", "stu-1", date, checkIn, "present", 0, nil, false, nil, checkIn, checkIn, true)

	mock.ExpectQuery("INSERT INTO attendance_records").
		WithArgs(sqlmock.AnyArg(), "stu-1", date, checkIn, "present", 0, nil, sqlmock.AnyArg()).
		WillReturnRows(rows)

	record := &models.AttendanceRecord{
		StudentID:   "stu-1",
		Date:        date,
		CheckInTime: checkIn,
		Status:      models.AttendanceStatusPresent,
	}
	stored, inserted, err := repo.UpsertCheckIn(context.Background(), record)
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.Equal(t, "rec-1", stored.ID)
	assert.False(t, stored.IsRepeatCheckIn)
}

func TestAttendanceRepositoryUpsertCheckInMergesRepeat(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	date := time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)
	checkIn := date.Add(8 * time.Hour)
	rows := sqlmock.NewRows([]string{
		"id", "student_id", "date", "check_in_time", "status", "late_minutes",
		"session_id", "is_repeat_check_in", "note", "created_at", "updated_at", "inserted",
	}).AddRow("rec-1", "stu-1", date, checkIn, "late", 60, nil, true, nil, checkIn, checkIn, false)

	mock.ExpectQuery("INSERT INTO attendance_records").
		WithArgs(sqlmock.AnyArg(), "stu-1", date, checkIn, "late", 60, nil, sqlmock.AnyArg()).
		WillReturnRows(rows)

	record := &models.AttendanceRecord{
		StudentID:   "stu-1",
		Date:        date,
		CheckInTime: checkIn,
		Status:      models.AttendanceStatusLate,
		LateMinutes: 60,
	}
	stored, inserted, err := repo.UpsertCheckIn(context.Background(), record)
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.True(t, stored.IsRepeatCheckIn)
	assert.Equal(t, 60, stored.LateMinutes)
}

func TestAttendanceRepositoryInsertAbsentConflict(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	// ON CONFLICT DO NOTHING yields zero RETURNING rows when a record exists.
	mock.ExpectQuery("INSERT INTO attendance_records").
		WillReturnError(sql.ErrNoRows)

	date := time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)
	_, err := repo.InsertAbsent(context.Background(), &models.AttendanceRecord{
		StudentID:   "stu-1",
		Date:        date,
		CheckInTime: date,
	})
	assert.Equal(t, sql.ErrNoRows, err)
}

func TestAttendanceRepositoryFindByStudentAndDate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	date := time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)
	record := models.AttendanceRecord{
		ID: "rec-1", StudentID: "stu-1", Date: date,
		CheckInTime: date.Add(7 * time.Hour), Status: models.AttendanceStatusPresent,
		CreatedAt: date, UpdatedAt: date,
	}
	mock.ExpectQuery("SELECT (.+) FROM attendance_records WHERE student_id").
		WithArgs("stu-1", date).
		WillReturnRows(attendanceRows(record))

	found, err := repo.FindByStudentAndDate(context.Background(), "stu-1", date)
	require.NoError(t, err)
	assert.Equal(t, "rec-1", found.ID)
}

func TestAttendanceRepositoryFindByStudentAndDateMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	date := time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT (.+) FROM attendance_records WHERE student_id").
		WithArgs("stu-1", date).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByStudentAndDate(context.Background(), "stu-1", date)
	assert.Equal(t, sql.ErrNoRows, err)
}

func TestAttendanceRepositoryListByDate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	date := time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)
	record := models.AttendanceRecord{
		ID: "rec-1", StudentID: "stu-1", Date: date,
		CheckInTime: date.Add(7 * time.Hour), Status: models.AttendanceStatusPresent,
		CreatedAt: date, UpdatedAt: date,
	}
	mock.ExpectQuery("SELECT (.+) FROM attendance_records WHERE date").
		WithArgs(date).
		WillReturnRows(attendanceRows(record))

	records, err := repo.ListByDate(context.Background(), date)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "stu-1", records[0].StudentID)
}
