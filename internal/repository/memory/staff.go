package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/vaccine-clinic-api/internal/model"
	"github.com/jwalitptl/vaccine-clinic-api/internal/repository"
)

type staffRepository struct {
	s *Store
}

func (r *staffRepository) Get(ctx context.Context, id uuid.UUID) (*model.Staff, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	st, ok := r.s.staff[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *st
	return &cp, nil
}

func (r *staffRepository) Create(ctx context.Context, staff *model.Staff) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.staff[staff.ID]; ok {
		return repository.ErrDuplicate
	}
	cp := *staff
	r.s.staff[staff.ID] = &cp
	return nil
}

func (r *staffRepository) List(ctx context.Context) ([]*model.Staff, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*model.Staff, 0, len(r.s.staff))
	for _, st := range r.s.staff {
		cp := *st
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *staffRepository) SetActive(ctx context.Context, id uuid.UUID, active bool, updatedAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	st, ok := r.s.staff[id]
	if !ok {
		return repository.ErrNotFound
	}
	st.Active = active
	st.UpdatedAt = updatedAt
	return nil
}
