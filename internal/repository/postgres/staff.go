package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/vaccine-clinic-api/internal/model"
	"github.com/jwalitptl/vaccine-clinic-api/internal/repository"
)

type staffRepository struct {
	BaseRepository
}

func NewStaffRepository(base BaseRepository) repository.StaffRepository {
	return &staffRepository{base}
}

func (r *staffRepository) Get(ctx context.Context, id uuid.UUID) (*model.Staff, error) {
	query := `
		SELECT id, name, email, role, active, created_at, updated_at
		FROM staff
		WHERE id = $1
	`
	var staff model.Staff
	if err := r.db.GetContext(ctx, &staff, query, id); err != nil {
		return nil, mapError(err)
	}
	return &staff, nil
}

func (r *staffRepository) Create(ctx context.Context, staff *model.Staff) error {
	query := `
		INSERT INTO staff (id, name, email, role, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		staff.ID,
		staff.Name,
		staff.Email,
		staff.Role,
		staff.Active,
		staff.CreatedAt,
		staff.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create staff: %w", mapError(err))
	}
	return nil
}

func (r *staffRepository) List(ctx context.Context) ([]*model.Staff, error) {
	query := `
		SELECT id, name, email, role, active, created_at, updated_at
		FROM staff
		ORDER BY name ASC
	`
	var out []*model.Staff
	if err := r.db.SelectContext(ctx, &out, query); err != nil {
		return nil, fmt.Errorf("failed to list staff: %w", err)
	}
	return out, nil
}

func (r *staffRepository) SetActive(ctx context.Context, id uuid.UUID, active bool, updatedAt time.Time) error {
	query := `
		UPDATE staff
		SET active = $2, updated_at = $3
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query, id, active, updatedAt)
	if err != nil {
		return fmt.Errorf("failed to update staff: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update staff: %w", err)
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}
