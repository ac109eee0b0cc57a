package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-kiosk-api/internal/models"
)

type auditStoreStub struct {
	mu      sync.Mutex
	logs    []*models.AuditLog
	created chan struct{}
}

func newAuditStoreStub() *auditStoreStub {
	return &auditStoreStub{created: make(chan struct{}, 16)}
}

func (s *auditStoreStub) Create(ctx context.Context, log *models.AuditLog) error {
	s.mu.Lock()
	s.logs = append(s.logs, log)
	s.mu.Unlock()
	s.created <- struct{}{}
	return nil
}

func (s *auditStoreStub) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.logs)
}

func TestAuditServicePersistsEnqueuedEntries(t *testing.T) {
	store := newAuditStoreStub()
	svc := NewAuditService(store, nil, AuditServiceConfig{Workers: 1})
	svc.Start(context.Background())
	defer svc.Stop()

	svc.Enqueue(&models.AuditLog{
		Action:    models.AuditActionCheckIn,
		Resource:  "attendance",
		IPAddress: "kiosk",
		UserAgent: "attendance-service",
	})

	select {
	case <-store.created:
	case <-time.After(2 * time.Second):
		t.Fatal("audit entry was not persisted")
	}
	require.Equal(t, 1, store.count())
	assert.NotEmpty(t, store.logs[0].ID)
	assert.Equal(t, models.AuditActionCheckIn, store.logs[0].Action)
}

func TestAuditServiceEnqueueBeforeStartDoesNotPanic(t *testing.T) {
	store := newAuditStoreStub()
	svc := NewAuditService(store, nil, AuditServiceConfig{Workers: 1})

	// The queue rejects the job and the failure is only logged.
	svc.Enqueue(&models.AuditLog{Action: models.AuditActionCheckIn})
	assert.Equal(t, 0, store.count())
}

func TestAuditServiceIgnoresNilEntries(t *testing.T) {
	store := newAuditStoreStub()
	svc := NewAuditService(store, nil, AuditServiceConfig{Workers: 1})
	svc.Start(context.Background())
	defer svc.Stop()

	svc.Enqueue(nil)
	assert.Equal(t, 0, store.count())
}
