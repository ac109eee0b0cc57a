package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-kiosk-api/internal/models"
	appErrors "github.com/noah-isme/sma-kiosk-api/pkg/errors"
)

type attendanceLedger interface {
	FindByID(ctx context.Context, id string) (*models.AttendanceRecord, error)
	UpsertCheckIn(ctx context.Context, record *models.AttendanceRecord) (*models.AttendanceRecord, bool, error)
	InsertAbsent(ctx context.Context, record *models.AttendanceRecord) (*models.AttendanceRecord, error)
	Update(ctx context.Context, record *models.AttendanceRecord) (*models.AttendanceRecord, error)
	ListByDate(ctx context.Context, date time.Time) ([]models.AttendanceRecord, error)
	ListByStudent(ctx context.Context, studentID string, limit int) ([]models.AttendanceRecord, error)
}

type studentDirectory interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	CountActive(ctx context.Context) (int, error)
	IncrementLateStats(ctx context.Context, id string, days, minutes int) error
	RecomputeLateStats(ctx context.Context, id string) error
}

type attendanceConfigProvider interface {
	AttendanceConfiguration(ctx context.Context) (*models.AttendanceConfiguration, error)
}

type auditRecorder interface {
	Enqueue(log *models.AuditLog)
}

type statsCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Invalidate(ctx context.Context, pattern string) error
}

type checkInMetrics interface {
	ObserveCheckIn(status models.AttendanceStatus, repeat bool)
}

// AttendanceServiceConfig tunes runtime behaviour.
type AttendanceServiceConfig struct {
	StatsCacheTTL time.Duration
	Now           func() time.Time
}

// AttendanceService coordinates check-ins, absences, corrections, history and
// the daily summary. Lateness is classified per call against the configuration
// in effect at that moment, so configuration changes only affect subsequent
// check-ins.
type AttendanceService struct {
	ledger    attendanceLedger
	students  studentDirectory
	config    attendanceConfigProvider
	audit     auditRecorder
	cache     statsCache
	metrics   checkInMetrics
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
	cacheTTL  time.Duration
}

// NewAttendanceService constructs the attendance service.
func NewAttendanceService(ledger attendanceLedger, students studentDirectory, config attendanceConfigProvider, audit auditRecorder, cache statsCache, metrics checkInMetrics, validate *validator.Validate, logger *zap.Logger, cfg AttendanceServiceConfig) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	now := cfg.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	ttl := cfg.StatsCacheTTL
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &AttendanceService{
		ledger:    ledger,
		students:  students,
		config:    config,
		audit:     audit,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		now:       now,
		cacheTTL:  ttl,
	}
}

// CheckInRequest is the kiosk payload for a student check-in.
type CheckInRequest struct {
	StudentID string     `json:"student_id" validate:"required"`
	Timestamp *time.Time `json:"timestamp"`
	SessionID *string    `json:"session_id"`
	IP        string     `json:"-"`
	UserAgent string     `json:"-"`
}

// CheckInResult describes the stored record and whether it merged into an
// earlier check-in on the same day.
type CheckInResult struct {
	Record   *models.AttendanceRecord `json:"record"`
	IsRepeat bool                     `json:"is_repeat_check_in"`
	Student  *models.Student          `json:"student"`
}

// MarkAbsentRequest marks a student absent for a calendar day.
type MarkAbsentRequest struct {
	StudentID string  `json:"student_id" validate:"required"`
	Date      string  `json:"date" validate:"required"`
	Note      *string `json:"note"`
	ActorID   *string `json:"-"`
	IP        string  `json:"-"`
	UserAgent string  `json:"-"`
}

// CorrectRecordRequest overrides the status of an existing record.
type CorrectRecordRequest struct {
	Status      string  `json:"status" validate:"required"`
	LateMinutes *int    `json:"late_minutes"`
	Note        *string `json:"note"`
	ActorID     *string `json:"-"`
	IP          string  `json:"-"`
	UserAgent   string  `json:"-"`
}

// RecordCheckIn classifies and stores one check-in. Repeat check-ins on the
// same day merge into the existing record: a late status sticks and
// late_minutes keeps the day's maximum. Cumulative student counters move only
// when a brand-new late record is created, never on a repeat.
func (s *AttendanceService) RecordCheckIn(ctx context.Context, req CheckInRequest) (*CheckInResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid check-in payload")
	}

	checkIn := s.now()
	if req.Timestamp != nil {
		checkIn = *req.Timestamp
	}

	student, err := s.students.FindByID(ctx, req.StudentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrStudentNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorageUnavailable.Code, appErrors.ErrStorageUnavailable.Status, "failed to load student")
	}
	if !student.Active {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student is not active")
	}

	cfg, err := s.config.AttendanceConfiguration(ctx)
	if err != nil {
		return nil, err
	}

	classification, err := ClassifyCheckIn(checkIn, cfg.WorkStartTime, cfg.LateThresholdMinutes)
	if err != nil {
		return nil, err
	}

	record := &models.AttendanceRecord{
		StudentID:   student.ID,
		Date:        calendarDate(checkIn),
		CheckInTime: checkIn,
		Status:      classification.Status,
		LateMinutes: classification.LateMinutes,
		SessionID:   req.SessionID,
	}
	stored, inserted, err := s.ledger.UpsertCheckIn(ctx, record)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorageUnavailable.Code, appErrors.ErrStorageUnavailable.Status, "failed to store check-in")
	}

	// The inserted flag comes from the upsert statement itself, so two
	// racing check-ins can never both take this branch for the same day.
	if inserted && stored.Status == models.AttendanceStatusLate {
		if err := s.students.IncrementLateStats(ctx, student.ID, 1, stored.LateMinutes); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrStorageUnavailable.Code, appErrors.ErrStorageUnavailable.Status, "failed to update late counters")
		}
		student.LateDaysCount++
		student.LateMinutesTotal += stored.LateMinutes
	}

	s.invalidateStats(ctx, stored.Date)
	if s.metrics != nil {
		s.metrics.ObserveCheckIn(stored.Status, !inserted)
	}
	s.emitAudit(models.AuditActionCheckIn, nil, stored, nil, req.IP, req.UserAgent)

	return &CheckInResult{Record: stored, IsRepeat: !inserted, Student: student}, nil
}

// MarkAbsent records an explicit absence. It conflicts when any record
// already exists for the student on that day.
func (s *AttendanceService) MarkAbsent(ctx context.Context, req MarkAbsentRequest) (*models.AttendanceRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date format, expected YYYY-MM-DD")
	}

	if _, err := s.students.FindByID(ctx, req.StudentID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrStudentNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorageUnavailable.Code, appErrors.ErrStorageUnavailable.Status, "failed to load student")
	}

	record := &models.AttendanceRecord{
		StudentID:   req.StudentID,
		Date:        date,
		CheckInTime: s.now(),
		Status:      models.AttendanceStatusAbsent,
		Note:        req.Note,
	}
	stored, err := s.ledger.InsertAbsent(ctx, record)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrDuplicateRecord, "attendance record already exists for this date")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorageUnavailable.Code, appErrors.ErrStorageUnavailable.Status, "failed to mark absence")
	}

	s.invalidateStats(ctx, stored.Date)
	s.emitAudit(models.AuditActionMarkAbsent, req.ActorID, stored, nil, req.IP, req.UserAgent)
	return stored, nil
}

// CorrectRecord overrides the status of an existing record and re-derives the
// student's cumulative counters from the ledger so they never drift.
func (s *AttendanceService) CorrectRecord(ctx context.Context, recordID string, req CorrectRecordRequest) (*models.AttendanceRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	status := models.AttendanceStatus(req.Status)
	if !status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported status %q", req.Status))
	}

	existing, err := s.ledger.FindByID(ctx, recordID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "attendance record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorageUnavailable.Code, appErrors.ErrStorageUnavailable.Status, "failed to load record")
	}

	lateMinutes := 0
	if status == models.AttendanceStatusLate {
		lateMinutes = existing.LateMinutes
		if req.LateMinutes != nil {
			lateMinutes = *req.LateMinutes
		}
		if lateMinutes < 0 {
			return nil, appErrors.Clone(appErrors.ErrValidation, "late_minutes must not be negative")
		}
	}

	updated := *existing
	updated.Status = status
	updated.LateMinutes = lateMinutes
	if req.Note != nil {
		updated.Note = req.Note
	}
	stored, err := s.ledger.Update(ctx, &updated)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "attendance record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorageUnavailable.Code, appErrors.ErrStorageUnavailable.Status, "failed to correct record")
	}

	if err := s.students.RecomputeLateStats(ctx, stored.StudentID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorageUnavailable.Code, appErrors.ErrStorageUnavailable.Status, "failed to recompute late counters")
	}

	s.invalidateStats(ctx, stored.Date)
	s.emitAudit(models.AuditActionRecordCorrection, req.ActorID, stored, existing, req.IP, req.UserAgent)
	return stored, nil
}

// GetHistory returns a student's most recent records.
func (s *AttendanceService) GetHistory(ctx context.Context, studentID string, limit int) ([]models.AttendanceRecord, error) {
	if _, err := s.students.FindByID(ctx, studentID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrStudentNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorageUnavailable.Code, appErrors.ErrStorageUnavailable.Status, "failed to load student")
	}
	records, err := s.ledger.ListByStudent(ctx, studentID, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorageUnavailable.Code, appErrors.ErrStorageUnavailable.Status, "failed to load history")
	}
	return records, nil
}

// GetDailyStats summarises one calendar day. Students without any record
// count as absent alongside explicitly marked absences, so the three buckets
// always sum to the active directory size.
func (s *AttendanceService) GetDailyStats(ctx context.Context, date time.Time) (*models.DailyStats, error) {
	date = calendarDate(date)
	key := statsCacheKey(date)

	if s.cache != nil {
		var cached models.DailyStats
		if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
			return &cached, nil
		}
	}

	records, err := s.ledger.ListByDate(ctx, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorageUnavailable.Code, appErrors.ErrStorageUnavailable.Status, "failed to list records")
	}
	total, err := s.students.CountActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorageUnavailable.Code, appErrors.ErrStorageUnavailable.Status, "failed to count students")
	}

	stats := buildDailyStats(date, records, total)

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, stats, s.cacheTTL); err != nil {
			s.logger.Warn("daily stats cache write failed", zap.Error(err))
		}
	}
	return stats, nil
}

// ListByDate returns the raw records for one day, for exports and admin views.
func (s *AttendanceService) ListByDate(ctx context.Context, date time.Time) ([]models.AttendanceRecord, error) {
	records, err := s.ledger.ListByDate(ctx, calendarDate(date))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorageUnavailable.Code, appErrors.ErrStorageUnavailable.Status, "failed to list records")
	}
	return records, nil
}

func buildDailyStats(date time.Time, records []models.AttendanceRecord, totalStudents int) *models.DailyStats {
	stats := &models.DailyStats{
		Date:          date.Format("2006-01-02"),
		TotalStudents: totalStudents,
	}
	for i := range records {
		record := &records[i]
		switch record.Status {
		case models.AttendanceStatusPresent:
			stats.PresentCount++
		case models.AttendanceStatusLate:
			stats.LateCount++
		default:
			continue
		}
		if stats.FirstRecord == nil {
			stats.FirstRecord = record
		}
		stats.LastRecord = record
	}
	stats.AbsentCount = totalStudents - stats.PresentCount - stats.LateCount
	if stats.AbsentCount < 0 {
		stats.AbsentCount = 0
	}
	if totalStudents > 0 {
		stats.Ratio = float64(stats.PresentCount+stats.LateCount) / float64(totalStudents)
	}
	return stats
}

func (s *AttendanceService) invalidateStats(ctx context.Context, date time.Time) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, statsCacheKey(calendarDate(date))); err != nil {
		s.logger.Warn("daily stats cache invalidation failed", zap.Error(err))
	}
}

func (s *AttendanceService) emitAudit(action string, actorID *string, record, previous *models.AttendanceRecord, ip, userAgent string) {
	if s.audit == nil {
		return
	}
	newBytes, _ := json.Marshal(record)
	var oldBytes []byte
	if previous != nil {
		oldBytes, _ = json.Marshal(previous)
	}
	if ip == "" {
		ip = "kiosk"
	}
	if userAgent == "" {
		userAgent = "attendance-service"
	}
	s.audit.Enqueue(&models.AuditLog{
		UserID:     actorID,
		Action:     action,
		Resource:   "attendance_record",
		ResourceID: &record.ID,
		OldValues:  oldBytes,
		NewValues:  newBytes,
		IPAddress:  ip,
		UserAgent:  userAgent,
	})
}

func statsCacheKey(date time.Time) string {
	return "stats:daily:" + date.Format("2006-01-02")
}

// calendarDate truncates a timestamp to its calendar day in its own location.
func calendarDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
