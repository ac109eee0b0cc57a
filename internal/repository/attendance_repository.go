package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-kiosk-api/internal/models"
)

const attendanceColumns = `id, student_id, date, check_in_time, status, late_minutes, session_id, is_repeat_check_in, note, created_at, updated_at`

// AttendanceRepository is the durable ledger of per-day attendance records.
// The attendance_records table carries a UNIQUE(student_id, date) constraint;
// every write path here goes through ON CONFLICT so that concurrent check-ins
// for the same student and day serialize inside a single statement.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// FindByID fetches one record by primary key. Returns sql.ErrNoRows when absent.
func (r *AttendanceRepository) FindByID(ctx context.Context, id string) (*models.AttendanceRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM attendance_records WHERE id = $1`, attendanceColumns)
	var record models.AttendanceRecord
	if err := r.db.GetContext(ctx, &record, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find attendance record by id: %w", err)
	}
	return &record, nil
}

// FindByStudentAndDate fetches the record for one student on one calendar day.
// Returns sql.ErrNoRows when no record exists yet.
func (r *AttendanceRepository) FindByStudentAndDate(ctx context.Context, studentID string, date time.Time) (*models.AttendanceRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM attendance_records WHERE student_id = $1 AND date = $2`, attendanceColumns)
	var record models.AttendanceRecord
	if err := r.db.GetContext(ctx, &record, query, studentID, date); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find attendance record: %w", err)
	}
	return &record, nil
}

// UpsertCheckIn inserts the record or merges a repeat check-in into the
// existing row for the same (student, date). On merge the late status sticks
// and late_minutes keeps the maximum observed that day. The returned bool is
// true when a brand-new row was inserted; it comes from the statement itself
// (xmax = 0), so callers can trust it even when two check-ins race.
func (r *AttendanceRepository) UpsertCheckIn(ctx context.Context, record *models.AttendanceRecord) (*models.AttendanceRecord, bool, error) {
	now := time.Now().UTC()
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	query := fmt.Sprintf(`INSERT INTO attendance_records (id, student_id, date, check_in_time, status, late_minutes, session_id, is_repeat_check_in, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE, $8, $8)
ON CONFLICT (student_id, date)
DO UPDATE SET check_in_time = EXCLUDED.check_in_time,
              status = CASE WHEN attendance_records.status = 'late' OR EXCLUDED.status = 'late' THEN 'late' ELSE EXCLUDED.status END,
              late_minutes = GREATEST(attendance_records.late_minutes, EXCLUDED.late_minutes),
              session_id = COALESCE(EXCLUDED.session_id, attendance_records.session_id),
              is_repeat_check_in = TRUE,
              updated_at = EXCLUDED.updated_at
RETURNING %s, (xmax = 0) AS inserted`, attendanceColumns)

	var stored struct {
		models.AttendanceRecord
		Inserted bool `db:"inserted"`
	}
	if err := r.db.GetContext(ctx, &stored, query,
		record.ID, record.StudentID, record.Date, record.CheckInTime,
		record.Status, record.LateMinutes, record.SessionID, now); err != nil {
		return nil, false, fmt.Errorf("upsert check-in: %w", err)
	}
	return &stored.AttendanceRecord, stored.Inserted, nil
}

// InsertAbsent creates an explicit absence record. When a record already
// exists for the (student, date) pair the insert is a no-op and sql.ErrNoRows
// is returned so the service can map it to a conflict.
func (r *AttendanceRepository) InsertAbsent(ctx context.Context, record *models.AttendanceRecord) (*models.AttendanceRecord, error) {
	now := time.Now().UTC()
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	query := fmt.Sprintf(`INSERT INTO attendance_records (id, student_id, date, check_in_time, status, late_minutes, session_id, is_repeat_check_in, note, created_at, updated_at)
VALUES ($1, $2, $3, $4, 'absent', 0, NULL, FALSE, $5, $6, $6)
ON CONFLICT (student_id, date) DO NOTHING
RETURNING %s`, attendanceColumns)

	var stored models.AttendanceRecord
	if err := r.db.GetContext(ctx, &stored, query,
		record.ID, record.StudentID, record.Date, record.CheckInTime, record.Note, now); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("insert absence: %w", err)
	}
	return &stored, nil
}

// Update overwrites the mutable fields of an existing record (corrections).
func (r *AttendanceRepository) Update(ctx context.Context, record *models.AttendanceRecord) (*models.AttendanceRecord, error) {
	query := fmt.Sprintf(`UPDATE attendance_records
SET status = $2, late_minutes = $3, note = $4, updated_at = $5
WHERE id = $1
RETURNING %s`, attendanceColumns)

	var stored models.AttendanceRecord
	if err := r.db.GetContext(ctx, &stored, query,
		record.ID, record.Status, record.LateMinutes, record.Note, time.Now().UTC()); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("update attendance record: %w", err)
	}
	return &stored, nil
}

// ListByDate returns all records for one calendar day ordered by check-in time.
func (r *AttendanceRepository) ListByDate(ctx context.Context, date time.Time) ([]models.AttendanceRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM attendance_records WHERE date = $1 ORDER BY check_in_time ASC`, attendanceColumns)
	records := []models.AttendanceRecord{}
	if err := r.db.SelectContext(ctx, &records, query, date); err != nil {
		return nil, fmt.Errorf("list attendance by date: %w", err)
	}
	return records, nil
}

// ListDailyReport returns one day's records joined with student identities,
// ordered by class then name, for the export surface.
func (r *AttendanceRepository) ListDailyReport(ctx context.Context, date time.Time) ([]models.DailyReportRow, error) {
	const query = `SELECT a.id, a.student_id, a.date, a.check_in_time, a.status, a.late_minutes, a.session_id, a.is_repeat_check_in, a.note, a.created_at, a.updated_at,
       s.nis, s.full_name, s.grade, s.class_name
FROM attendance_records a
JOIN students s ON s.id = a.student_id
WHERE a.date = $1
ORDER BY s.class_name ASC, s.full_name ASC`
	rows := []models.DailyReportRow{}
	if err := r.db.SelectContext(ctx, &rows, query, date); err != nil {
		return nil, fmt.Errorf("list daily report: %w", err)
	}
	return rows, nil
}

// ListByStudent returns a student's records most-recent-first.
func (r *AttendanceRepository) ListByStudent(ctx context.Context, studentID string, limit int) ([]models.AttendanceRecord, error) {
	if limit <= 0 || limit > 200 {
		limit = 30
	}
	query := fmt.Sprintf(`SELECT %s FROM attendance_records WHERE student_id = $1 ORDER BY date DESC LIMIT %d`, attendanceColumns, limit)
	records := []models.AttendanceRecord{}
	if err := r.db.SelectContext(ctx, &records, query, studentID); err != nil {
		return nil, fmt.Errorf("list attendance by student: %w", err)
	}
	return records, nil
}
