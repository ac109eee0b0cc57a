package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-kiosk-api/internal/models"
	appErrors "github.com/noah-isme/sma-kiosk-api/pkg/errors"
)

type studentStoreStub struct {
	students    map[string]*models.Student
	created     []*models.Student
	deactivated []string
}

func newStudentStoreStub() *studentStoreStub {
	return &studentStoreStub{students: map[string]*models.Student{}}
}

func (s *studentStoreStub) FindByID(ctx context.Context, id string) (*models.Student, error) {
	student, ok := s.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *student
	return &copied, nil
}

func (s *studentStoreStub) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = "generated"
	}
	s.students[student.ID] = student
	s.created = append(s.created, student)
	return nil
}

func (s *studentStoreStub) Update(ctx context.Context, student *models.Student) error {
	if _, ok := s.students[student.ID]; !ok {
		return sql.ErrNoRows
	}
	s.students[student.ID] = student
	return nil
}

func (s *studentStoreStub) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	result := []models.Student{}
	for _, student := range s.students {
		result = append(result, *student)
	}
	return result, len(result), nil
}

func (s *studentStoreStub) Deactivate(ctx context.Context, id string) error {
	student, ok := s.students[id]
	if !ok {
		return sql.ErrNoRows
	}
	student.Active = false
	s.deactivated = append(s.deactivated, id)
	return nil
}

func TestStudentServiceCreateActivatesStudent(t *testing.T) {
	store := newStudentStoreStub()
	audit := &auditStub{}
	svc := NewStudentService(store, audit, nil, nil)

	student, err := svc.Create(context.Background(), CreateStudentRequest{
		NIS:       "1001",
		FullName:  "Siti Rahma",
		Grade:     "X",
		ClassName: "X-1",
	})
	require.NoError(t, err)
	assert.True(t, student.Active)
	assert.NotEmpty(t, student.ID)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionStudentCreate, audit.logs[0].Action)
}

func TestStudentServiceCreateRequiresNIS(t *testing.T) {
	svc := NewStudentService(newStudentStoreStub(), &auditStub{}, nil, nil)

	_, err := svc.Create(context.Background(), CreateStudentRequest{
		FullName:  "Siti Rahma",
		Grade:     "X",
		ClassName: "X-1",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestStudentServiceUpdateUnknownStudent(t *testing.T) {
	svc := NewStudentService(newStudentStoreStub(), &auditStub{}, nil, nil)

	_, err := svc.Update(context.Background(), "missing", UpdateStudentRequest{
		NIS:       "1001",
		FullName:  "Siti Rahma",
		Grade:     "X",
		ClassName: "X-1",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStudentNotFound.Code, appErrors.FromError(err).Code)
}

func TestStudentServiceUpdateTogglesActive(t *testing.T) {
	store := newStudentStoreStub()
	store.students["stu-1"] = &models.Student{ID: "stu-1", NIS: "1001", FullName: "Siti Rahma", Grade: "X", ClassName: "X-1", Active: true}
	audit := &auditStub{}
	svc := NewStudentService(store, audit, nil, nil)

	inactive := false
	updated, err := svc.Update(context.Background(), "stu-1", UpdateStudentRequest{
		NIS:       "1001",
		FullName:  "Siti Rahma",
		Grade:     "XI",
		ClassName: "XI-2",
		Active:    &inactive,
	})
	require.NoError(t, err)
	assert.False(t, updated.Active)
	assert.Equal(t, "XI", updated.Grade)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionStudentUpdate, audit.logs[0].Action)
}

func TestStudentServiceUpdateKeepsActiveWhenOmitted(t *testing.T) {
	store := newStudentStoreStub()
	store.students["stu-1"] = &models.Student{ID: "stu-1", NIS: "1001", FullName: "Siti Rahma", Grade: "X", ClassName: "X-1", Active: true}
	svc := NewStudentService(store, &auditStub{}, nil, nil)

	updated, err := svc.Update(context.Background(), "stu-1", UpdateStudentRequest{
		NIS:       "1001",
		FullName:  "Siti Rahma Putri",
		Grade:     "X",
		ClassName: "X-1",
	})
	require.NoError(t, err)
	assert.True(t, updated.Active)
	assert.Equal(t, "Siti Rahma Putri", updated.FullName)
}

func TestStudentServiceDeactivate(t *testing.T) {
	store := newStudentStoreStub()
	store.students["stu-1"] = &models.Student{ID: "stu-1", Active: true}
	audit := &auditStub{}
	svc := NewStudentService(store, audit, nil, nil)

	require.NoError(t, svc.Deactivate(context.Background(), "stu-1", nil))
	assert.Equal(t, []string{"stu-1"}, store.deactivated)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionStudentDelete, audit.logs[0].Action)
}

func TestStudentServiceDeactivateUnknownStudent(t *testing.T) {
	svc := NewStudentService(newStudentStoreStub(), &auditStub{}, nil, nil)

	err := svc.Deactivate(context.Background(), "missing", nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStudentNotFound.Code, appErrors.FromError(err).Code)
}

func TestStudentServiceGetUnknownStudent(t *testing.T) {
	svc := NewStudentService(newStudentStoreStub(), &auditStub{}, nil, nil)

	_, err := svc.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStudentNotFound.Code, appErrors.FromError(err).Code)
}
