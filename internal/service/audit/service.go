package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/vaccine-clinic-api/internal/model"
	"github.com/jwalitptl/vaccine-clinic-api/internal/repository"
	"github.com/jwalitptl/vaccine-clinic-api/pkg/logger"
)

type Service struct {
	repo repository.AuditRepository
	now  func() time.Time
}

func NewService(repo repository.AuditRepository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Entry describes one accepted or rejected command.
type Entry struct {
	Actor      model.Actor
	Action     string
	EntityType string
	EntityID   uuid.UUID
	Result     string
	Reason     string
	Metadata   interface{}
}

// Log creates an audit log entry
func (s *Service) Log(ctx context.Context, e Entry) error {
	var metadata json.RawMessage
	if e.Metadata != nil {
		raw, err := json.Marshal(e.Metadata)
		if err != nil {
			return err
		}
		metadata = raw
	}

	log := &model.AuditLog{
		ID:         uuid.New(),
		ActorID:    e.Actor.StaffID,
		ActorRole:  e.Actor.Role,
		Action:     e.Action,
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		Result:     e.Result,
		Reason:     e.Reason,
		Metadata:   metadata,
		RequestID:  logger.RequestIDFromContext(ctx),
		CreatedAt:  s.now(),
	}

	return s.repo.Create(ctx, log)
}

func (s *Service) List(ctx context.Context, filters *model.AuditFilters) ([]*model.AuditLog, error) {
	if filters == nil {
		filters = &model.AuditFilters{}
	}
	filters.Pagination = filters.Pagination.Normalize()
	return s.repo.List(ctx, filters)
}

// Cleanup removes entries older than the retention window.
func (s *Service) Cleanup(ctx context.Context, retention time.Duration) (int64, error) {
	return s.repo.DeleteBefore(ctx, s.now().Add(-retention))
}
