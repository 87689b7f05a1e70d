package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/vaccine-clinic-api/internal/model"
	"github.com/jwalitptl/vaccine-clinic-api/internal/repository"
)

type outboxRepository struct {
	s *Store
}

func (r *outboxRepository) Create(ctx context.Context, event *model.OutboxEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.appendOutbox(event)
	return nil
}

func (r *outboxRepository) due(e *model.OutboxEvent, now time.Time) bool {
	switch e.Status {
	case model.OutboxStatusPending, model.OutboxStatusRetry:
		return e.RetryAt == nil || !e.RetryAt.After(now)
	case model.OutboxStatusProcessing:
		return e.RetryAt != nil && !e.RetryAt.After(now)
	}
	return false
}

func (r *outboxRepository) ClaimPending(ctx context.Context, limit int, lease time.Duration) ([]*model.OutboxEvent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := r.s.now()
	leaseUntil := now.Add(lease)
	var out []*model.OutboxEvent
	for _, e := range r.s.outbox {
		if len(out) >= limit {
			break
		}
		if !r.due(e, now) {
			continue
		}
		e.Status = model.OutboxStatusProcessing
		e.RetryAt = &leaseUntil
		e.UpdatedAt = now
		cp := *e
		out = append(out, &cp)
	}
	return out, nil
}

func (r *outboxRepository) find(id uuid.UUID) (*model.OutboxEvent, error) {
	for _, e := range r.s.outbox {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *outboxRepository) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	e, err := r.find(id)
	if err != nil {
		return err
	}
	now := r.s.now()
	e.Status = model.OutboxStatusProcessed
	e.ProcessedAt = &now
	e.RetryAt = nil
	e.UpdatedAt = now
	return nil
}

func (r *outboxRepository) MarkRetry(ctx context.Context, id uuid.UUID, errMsg string, retryAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	e, err := r.find(id)
	if err != nil {
		return err
	}
	e.Status = model.OutboxStatusRetry
	e.ErrorMessage = &errMsg
	e.RetryAt = &retryAt
	e.RetryCount++
	e.UpdatedAt = r.s.now()
	return nil
}

func (r *outboxRepository) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	e, err := r.find(id)
	if err != nil {
		return err
	}
	e.Status = model.OutboxStatusFailed
	e.ErrorMessage = &errMsg
	e.RetryAt = nil
	e.UpdatedAt = r.s.now()
	return nil
}

func (r *outboxRepository) CountPending(ctx context.Context) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var n int64
	for _, e := range r.s.outbox {
		switch e.Status {
		case model.OutboxStatusPending, model.OutboxStatusRetry, model.OutboxStatusProcessing:
			n++
		}
	}
	return n, nil
}

func (r *outboxRepository) DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	kept := r.s.outbox[:0]
	var deleted int64
	for _, e := range r.s.outbox {
		if e.Status == model.OutboxStatusProcessed && e.ProcessedAt != nil && e.ProcessedAt.Before(before) {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	r.s.outbox = kept
	return deleted, nil
}
