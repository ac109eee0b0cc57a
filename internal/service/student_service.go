package service

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-kiosk-api/internal/models"
	appErrors "github.com/noah-isme/sma-kiosk-api/pkg/errors"
)

type studentStore interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	Deactivate(ctx context.Context, id string) error
}

// StudentService manages the student directory. Cumulative lateness counters
// on the student row are owned by the attendance flow and never set directly
// from here.
type StudentService struct {
	repo      studentStore
	audit     auditRecorder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs a StudentService.
func NewStudentService(repo studentStore, audit auditRecorder, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, audit: audit, validator: validate, logger: logger}
}

// CreateStudentRequest is the payload for registering a student.
type CreateStudentRequest struct {
	NIS           string  `json:"nis" validate:"required"`
	FullName      string  `json:"full_name" validate:"required"`
	Grade         string  `json:"grade" validate:"required"`
	ClassName     string  `json:"class_name" validate:"required"`
	GuardianPhone *string `json:"guardian_phone"`
	ActorID       *string `json:"-"`
}

// UpdateStudentRequest is the payload for editing a student profile.
type UpdateStudentRequest struct {
	NIS           string  `json:"nis" validate:"required"`
	FullName      string  `json:"full_name" validate:"required"`
	Grade         string  `json:"grade" validate:"required"`
	ClassName     string  `json:"class_name" validate:"required"`
	GuardianPhone *string `json:"guardian_phone"`
	Active        *bool   `json:"active"`
	ActorID       *string `json:"-"`
}

// Get returns one student including the cumulative lateness counters.
func (s *StudentService) Get(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrStudentNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorageUnavailable.Code, appErrors.ErrStorageUnavailable.Status, "failed to load student")
	}
	return student, nil
}

// List returns students matching the filter with pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrStorageUnavailable.Code, appErrors.ErrStorageUnavailable.Status, "failed to list students")
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	return students, pagination, nil
}

// Create registers a new student.
func (s *StudentService) Create(ctx context.Context, req CreateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	student := &models.Student{
		NIS:           req.NIS,
		FullName:      req.FullName,
		Grade:         req.Grade,
		ClassName:     req.ClassName,
		GuardianPhone: req.GuardianPhone,
		Active:        true,
	}
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorageUnavailable.Code, appErrors.ErrStorageUnavailable.Status, "failed to create student")
	}
	s.emitAudit(models.AuditActionStudentCreate, req.ActorID, student.ID, nil, student)
	return student, nil
}

// Update edits a student profile.
func (s *StudentService) Update(ctx context.Context, id string, req UpdateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrStudentNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorageUnavailable.Code, appErrors.ErrStorageUnavailable.Status, "failed to load student")
	}

	updated := *existing
	updated.NIS = req.NIS
	updated.FullName = req.FullName
	updated.Grade = req.Grade
	updated.ClassName = req.ClassName
	updated.GuardianPhone = req.GuardianPhone
	if req.Active != nil {
		updated.Active = *req.Active
	}
	if err := s.repo.Update(ctx, &updated); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrStudentNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorageUnavailable.Code, appErrors.ErrStorageUnavailable.Status, "failed to update student")
	}
	s.emitAudit(models.AuditActionStudentUpdate, req.ActorID, id, existing, &updated)
	return &updated, nil
}

// Deactivate removes a student from the active directory without touching
// their historical records.
func (s *StudentService) Deactivate(ctx context.Context, id string, actorID *string) error {
	if err := s.repo.Deactivate(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrStudentNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrStorageUnavailable.Code, appErrors.ErrStorageUnavailable.Status, "failed to deactivate student")
	}
	s.emitAudit(models.AuditActionStudentDelete, actorID, id, nil, nil)
	return nil
}

func (s *StudentService) emitAudit(action string, actorID *string, studentID string, oldStudent, newStudent *models.Student) {
	if s.audit == nil {
		return
	}
	var oldBytes, newBytes []byte
	if oldStudent != nil {
		oldBytes, _ = json.Marshal(oldStudent)
	}
	if newStudent != nil {
		newBytes, _ = json.Marshal(newStudent)
	}
	s.audit.Enqueue(&models.AuditLog{
		UserID:     actorID,
		Action:     action,
		Resource:   "student",
		ResourceID: &studentID,
		OldValues:  oldBytes,
		NewValues:  newBytes,
		IPAddress:  "system",
		UserAgent:  "student-service",
	})
}
