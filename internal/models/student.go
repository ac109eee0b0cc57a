package models

import "time"

// Student represents a learner registered in the kiosk directory.
type Student struct {
	ID               string    `db:"id" json:"id"`
	NIS              string    `db:"nis" json:"nis"`
	FullName         string    `db:"full_name" json:"full_name"`
	Grade            string    `db:"grade" json:"grade"`
	ClassName        string    `db:"class_name" json:"class_name"`
	GuardianPhone    *string   `db:"guardian_phone" json:"guardian_phone,omitempty"`
	LateDaysCount    int       `db:"late_days_count" json:"late_days_count"`
	LateMinutesTotal int       `db:"late_minutes_total" json:"late_minutes_total"`
	Active           bool      `db:"active" json:"active"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search    string
	Grade     string
	ClassName string
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
