package staff

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/jwalitptl/vaccine-clinic-api/internal/model"
	"github.com/jwalitptl/vaccine-clinic-api/internal/repository"
	apperrors "github.com/jwalitptl/vaccine-clinic-api/pkg/errors"
)

// Directory resolves staff members, caching lookups for a short TTL.
type Directory struct {
	repo  repository.StaffRepository
	cache *cache.Cache
}

func NewDirectory(repo repository.StaffRepository, ttl, cleanup time.Duration) *Directory {
	return &Directory{
		repo:  repo,
		cache: cache.New(ttl, cleanup),
	}
}

// Get returns a copy of the staff member or a NotFound AppError.
func (d *Directory) Get(ctx context.Context, id uuid.UUID) (*model.Staff, error) {
	key := id.String()
	if v, ok := d.cache.Get(key); ok {
		cp := *v.(*model.Staff)
		return &cp, nil
	}

	st, err := d.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound(fmt.Sprintf("staff %s", id), err)
		}
		return nil, fmt.Errorf("failed to get staff: %w", err)
	}
	cached := *st
	d.cache.SetDefault(key, &cached)
	return st, nil
}

// GetActive is Get that also rejects deactivated staff.
func (d *Directory) GetActive(ctx context.Context, id uuid.UUID) (*model.Staff, error) {
	st, err := d.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !st.Active {
		return nil, apperrors.NewGuardViolation("staff_active", fmt.Sprintf("staff %s is not active", id))
	}
	return st, nil
}

func (d *Directory) Register(ctx context.Context, st *model.Staff) error {
	if st.ID == uuid.Nil {
		st.ID = uuid.New()
	}
	if !st.Role.IsValid() {
		return apperrors.NewValidation(fmt.Sprintf("unknown role %q", st.Role), nil)
	}
	now := time.Now()
	st.CreatedAt = now
	st.UpdatedAt = now
	if err := d.repo.Create(ctx, st); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return apperrors.NewValidation("staff already exists", err)
		}
		return fmt.Errorf("failed to create staff: %w", err)
	}
	d.cache.Delete(st.ID.String())
	return nil
}

func (d *Directory) List(ctx context.Context) ([]*model.Staff, error) {
	return d.repo.List(ctx)
}

// SetActive activates or deactivates a staff member. The cached entry is
// dropped so the change applies to the next lookup.
func (d *Directory) SetActive(ctx context.Context, id uuid.UUID, active bool) (*model.Staff, error) {
	if err := d.repo.SetActive(ctx, id, active, time.Now()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound(fmt.Sprintf("staff %s", id), err)
		}
		return nil, fmt.Errorf("failed to update staff: %w", err)
	}
	d.Invalidate(id)
	return d.Get(ctx, id)
}

// Invalidate drops a cached entry after an out-of-band change.
func (d *Directory) Invalidate(id uuid.UUID) {
	d.cache.Delete(id.String())
}
