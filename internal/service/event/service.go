package event

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jwalitptl/vaccine-clinic-api/internal/model"
	"github.com/jwalitptl/vaccine-clinic-api/internal/repository"
)

// EventService writes domain events to the outbox. The worker process
// publishes them later.
type EventService struct {
	outboxRepo repository.OutboxRepository
	log        *zap.Logger
	now        func() time.Time
}

func NewEventService(outboxRepo repository.OutboxRepository, log *zap.Logger) *EventService {
	return &EventService{
		outboxRepo: outboxRepo,
		log:        log,
		now:        time.Now,
	}
}

func (s *EventService) Emit(ctx context.Context, eventType string, aggregateID uuid.UUID, payload interface{}) error {
	event, err := model.NewOutboxEvent(eventType, aggregateID, payload, s.now())
	if err != nil {
		return err
	}

	if err := s.outboxRepo.Create(ctx, event); err != nil {
		return fmt.Errorf("failed to create outbox event: %w", err)
	}

	s.log.Debug("outbox event created",
		zap.String("event_id", event.ID.String()),
		zap.String("event_type", eventType),
		zap.String("aggregate_id", aggregateID.String()),
	)
	return nil
}
