package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-kiosk-api/internal/models"
	"github.com/noah-isme/sma-kiosk-api/pkg/jobs"
)

type auditStore interface {
	Create(ctx context.Context, log *models.AuditLog) error
}

// AuditServiceConfig tunes the background worker pool.
type AuditServiceConfig struct {
	Workers    int
	BufferSize int
}

// AuditService records the audit trail asynchronously. Writes go through an
// in-memory queue so a slow or failing audit insert never blocks a check-in;
// failures are retried by the queue and logged, not surfaced to callers.
type AuditService struct {
	store  auditStore
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewAuditService constructs the service and its worker queue. Call Start
// before enqueueing and Stop on shutdown.
func NewAuditService(store auditStore, logger *zap.Logger, cfg AuditServiceConfig) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &AuditService{store: store, logger: logger}
	s.queue = jobs.NewQueue("audit", s.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.BufferSize,
		Logger:     logger,
	})
	return s
}

// Start launches the queue workers.
func (s *AuditService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the workers.
func (s *AuditService) Stop() {
	s.queue.Stop()
}

// Enqueue submits an audit entry without blocking the caller's request path.
func (s *AuditService) Enqueue(log *models.AuditLog) {
	if log == nil {
		return
	}
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if err := s.queue.Enqueue(jobs.Job{ID: log.ID, Type: log.Action, Payload: log}); err != nil {
		s.logger.Warn("failed to enqueue audit log",
			zap.String("action", log.Action), zap.Error(err))
	}
}

func (s *AuditService) handle(ctx context.Context, job jobs.Job) error {
	log, ok := job.Payload.(*models.AuditLog)
	if !ok {
		return fmt.Errorf("unexpected audit payload type %T", job.Payload)
	}
	return s.store.Create(ctx, log)
}
