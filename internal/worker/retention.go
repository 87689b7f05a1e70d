package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/jwalitptl/vaccine-clinic-api/internal/repository"
	"github.com/jwalitptl/vaccine-clinic-api/internal/service/audit"
	"github.com/jwalitptl/vaccine-clinic-api/pkg/logger"
)

type RetentionConfig struct {
	AuditRetention  time.Duration
	OutboxRetention time.Duration
	Interval        time.Duration
}

// RetentionWorker prunes old audit entries and delivered outbox events.
type RetentionWorker struct {
	audit  *audit.Service
	outbox repository.OutboxRepository
	config RetentionConfig
	logger *logger.Logger
	now    func() time.Time
}

func NewRetentionWorker(auditSvc *audit.Service, outbox repository.OutboxRepository, config RetentionConfig, logger *logger.Logger) *RetentionWorker {
	return &RetentionWorker{
		audit:  auditSvc,
		outbox: outbox,
		config: config,
		logger: logger,
		now:    time.Now,
	}
}

func (w *RetentionWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, _, err := w.RunOnce(ctx); err != nil {
				// Log error but continue
				w.logger.Error(err, "Retention run failed")
			}
		}
	}
}

// RunOnce performs a single pruning pass. A zero retention disables that half.
func (w *RetentionWorker) RunOnce(ctx context.Context) (auditRows, outboxRows int64, err error) {
	if w.config.AuditRetention > 0 {
		auditRows, err = w.audit.Cleanup(ctx, w.config.AuditRetention)
		if err != nil {
			return 0, 0, fmt.Errorf("failed to cleanup audit logs: %w", err)
		}
	}
	if w.config.OutboxRetention > 0 {
		outboxRows, err = w.outbox.DeleteProcessedBefore(ctx, w.now().Add(-w.config.OutboxRetention))
		if err != nil {
			return auditRows, 0, fmt.Errorf("failed to cleanup outbox events: %w", err)
		}
	}

	w.logger.Info("Retention run finished", "audit_deleted", auditRows, "outbox_deleted", outboxRows)
	return auditRows, outboxRows, nil
}
