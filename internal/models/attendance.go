package models

import "time"

// AttendanceStatus represents the status for attendance records.
type AttendanceStatus string

const (
	AttendanceStatusPresent AttendanceStatus = "present"
	AttendanceStatusLate    AttendanceStatus = "late"
	AttendanceStatusAbsent  AttendanceStatus = "absent"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceStatusPresent, AttendanceStatusLate, AttendanceStatusAbsent:
		return true
	default:
		return false
	}
}

// AttendanceRecord is the single ledger row for a student on a calendar day.
// The (student_id, date) pair is unique; repeat check-ins merge into the same
// row instead of creating a second one.
type AttendanceRecord struct {
	ID              string           `db:"id" json:"id"`
	StudentID       string           `db:"student_id" json:"student_id"`
	Date            time.Time        `db:"date" json:"date"`
	CheckInTime     time.Time        `db:"check_in_time" json:"check_in_time"`
	Status          AttendanceStatus `db:"status" json:"status"`
	LateMinutes     int              `db:"late_minutes" json:"late_minutes"`
	SessionID       *string          `db:"session_id" json:"session_id,omitempty"`
	IsRepeatCheckIn bool             `db:"is_repeat_check_in" json:"is_repeat_check_in"`
	Note            *string          `db:"note" json:"note,omitempty"`
	CreatedAt       time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time        `db:"updated_at" json:"updated_at"`
}

// DailyReportRow is one attendance record joined with the student's identity,
// used by the daily export.
type DailyReportRow struct {
	AttendanceRecord
	NIS       string `db:"nis" json:"nis"`
	FullName  string `db:"full_name" json:"full_name"`
	Grade     string `db:"grade" json:"grade"`
	ClassName string `db:"class_name" json:"class_name"`
}

// DailyStats summarises one calendar day across the whole directory.
// AbsentCount counts both explicitly marked absences and students with no
// record at all, so PresentCount+LateCount+AbsentCount equals TotalStudents.
type DailyStats struct {
	Date          string            `json:"date"`
	PresentCount  int               `json:"present_count"`
	LateCount     int               `json:"late_count"`
	AbsentCount   int               `json:"absent_count"`
	TotalStudents int               `json:"total_students"`
	Ratio         float64           `json:"ratio"`
	FirstRecord   *AttendanceRecord `json:"first_record,omitempty"`
	LastRecord    *AttendanceRecord `json:"last_record,omitempty"`
}
