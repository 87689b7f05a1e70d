package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/vaccine-clinic-api/internal/model"
	"github.com/jwalitptl/vaccine-clinic-api/internal/repository"
)

type scheduleRepository struct {
	BaseRepository
}

func NewScheduleRepository(base BaseRepository) repository.ScheduleRepository {
	return &scheduleRepository{base}
}

// upsertRow carries the xmax = 0 flag that tells a fresh insert from a conflict.
type upsertRow struct {
	Inserted bool `db:"inserted"`
}

func (r *scheduleRepository) Upsert(ctx context.Context, schedule *model.Schedule) (*model.Schedule, bool, error) {
	// DO UPDATE with a no-op keeps RETURNING working on conflict.
	query := `
		INSERT INTO schedules (
			id, name, shift_type, start_date, end_date,
			repeat_pattern, weekdays, created_by, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET id = EXCLUDED.id
		RETURNING id, name, shift_type, start_date, end_date,
			repeat_pattern, weekdays, created_by, created_at, (xmax = 0) AS inserted
	`
	var row struct {
		model.Schedule
		upsertRow
	}
	err := r.db.GetContext(ctx, &row, query,
		schedule.ID,
		schedule.Name,
		schedule.ShiftType,
		schedule.StartDate,
		schedule.EndDate,
		schedule.RepeatPattern,
		schedule.Weekdays,
		schedule.CreatedBy,
		schedule.CreatedAt,
	)
	if err != nil {
		return nil, false, fmt.Errorf("failed to upsert schedule: %w", mapError(err))
	}
	return &row.Schedule, row.Inserted, nil
}

func (r *scheduleRepository) Get(ctx context.Context, id uuid.UUID) (*model.Schedule, error) {
	query := `
		SELECT id, name, shift_type, start_date, end_date,
			   repeat_pattern, weekdays, created_by, created_at
		FROM schedules
		WHERE id = $1
	`
	var schedule model.Schedule
	if err := r.db.GetContext(ctx, &schedule, query, id); err != nil {
		return nil, mapError(err)
	}
	return &schedule, nil
}

func (r *scheduleRepository) UpsertWorkDate(ctx context.Context, wd *model.WorkDate) (*model.WorkDate, bool, error) {
	query := `
		INSERT INTO work_dates (id, schedule_id, work_date, shift_type, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (schedule_id, work_date) DO UPDATE SET schedule_id = EXCLUDED.schedule_id
		RETURNING id, schedule_id, work_date, shift_type, created_at, (xmax = 0) AS inserted
	`
	var row struct {
		model.WorkDate
		upsertRow
	}
	err := r.db.GetContext(ctx, &row, query, wd.ID, wd.ScheduleID, wd.Date, wd.ShiftType, wd.CreatedAt)
	if err != nil {
		return nil, false, fmt.Errorf("failed to upsert work date: %w", mapError(err))
	}
	return &row.WorkDate, row.Inserted, nil
}

func (r *scheduleRepository) GetWorkDate(ctx context.Context, id uuid.UUID) (*model.WorkDate, error) {
	query := `
		SELECT id, schedule_id, work_date, shift_type, created_at
		FROM work_dates
		WHERE id = $1
	`
	var wd model.WorkDate
	if err := r.db.GetContext(ctx, &wd, query, id); err != nil {
		return nil, mapError(err)
	}
	return &wd, nil
}

func (r *scheduleRepository) ListWorkDates(ctx context.Context, scheduleID uuid.UUID) ([]*model.WorkDate, error) {
	query := `
		SELECT id, schedule_id, work_date, shift_type, created_at
		FROM work_dates
		WHERE schedule_id = $1
		ORDER BY work_date ASC
	`
	var out []*model.WorkDate
	if err := r.db.SelectContext(ctx, &out, query, scheduleID); err != nil {
		return nil, fmt.Errorf("failed to list work dates: %w", err)
	}
	return out, nil
}

func (r *scheduleRepository) AssignStaff(ctx context.Context, a *model.StaffAssignment) (bool, error) {
	query := `
		INSERT INTO staff_assignments (work_date_id, staff_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (work_date_id, staff_id) DO NOTHING
	`
	result, err := r.db.ExecContext(ctx, query, a.WorkDateID, a.StaffID, a.Status, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return false, fmt.Errorf("failed to assign staff: %w", mapError(err))
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows == 1, nil
}

func (r *scheduleRepository) ListAssignments(ctx context.Context, workDateID uuid.UUID) ([]*model.StaffAssignment, error) {
	query := `
		SELECT work_date_id, staff_id, status, created_at, updated_at
		FROM staff_assignments
		WHERE work_date_id = $1
		ORDER BY created_at ASC
	`
	var out []*model.StaffAssignment
	if err := r.db.SelectContext(ctx, &out, query, workDateID); err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	return out, nil
}

func (r *scheduleRepository) SetAssignmentStatus(ctx context.Context, workDateID, staffID uuid.UUID, status model.AssignmentStatus) error {
	query := `
		UPDATE staff_assignments
		SET status = $1, updated_at = NOW()
		WHERE work_date_id = $2 AND staff_id = $3
	`
	result, err := r.db.ExecContext(ctx, query, status, workDateID, staffID)
	if err != nil {
		return fmt.Errorf("failed to update assignment: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return repository.ErrNotFound
	}
	return nil
}
