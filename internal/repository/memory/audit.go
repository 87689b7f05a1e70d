package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/vaccine-clinic-api/internal/model"
)

type auditRepository struct {
	s *Store
}

func (r *auditRepository) Create(ctx context.Context, log *model.AuditLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cp := *log
	r.s.audit = append(r.s.audit, &cp)
	return nil
}

func (r *auditRepository) List(ctx context.Context, filters *model.AuditFilters) ([]*model.AuditLog, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []*model.AuditLog{}
	// newest first
	for i := len(r.s.audit) - 1; i >= 0; i-- {
		l := r.s.audit[i]
		if filters != nil {
			if filters.ActorID != uuid.Nil && l.ActorID != filters.ActorID {
				continue
			}
			if filters.EntityType != "" && l.EntityType != filters.EntityType {
				continue
			}
			if filters.EntityID != uuid.Nil && l.EntityID != filters.EntityID {
				continue
			}
			if !filters.Since.IsZero() && l.CreatedAt.Before(filters.Since) {
				continue
			}
		}
		cp := *l
		out = append(out, &cp)
	}
	return out, nil
}

func (r *auditRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	kept := r.s.audit[:0]
	var deleted int64
	for _, l := range r.s.audit {
		if l.CreatedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, l)
	}
	r.s.audit = kept
	return deleted, nil
}
