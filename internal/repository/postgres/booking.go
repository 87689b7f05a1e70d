package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/vaccine-clinic-api/internal/model"
	"github.com/jwalitptl/vaccine-clinic-api/internal/repository"
)

const bookingColumns = `
	id, child_id, appointment_date, status, assigned_staff_id,
	checked_in_at, completed_at, cancelled_at, cancel_reason,
	created_at, updated_at`

type bookingRepository struct {
	BaseRepository
}

func NewBookingRepository(base BaseRepository) repository.BookingRepository {
	return &bookingRepository{base}
}

func (r *bookingRepository) Create(ctx context.Context, booking *model.Booking, orders []*model.VaccineOrder, event *model.OutboxEvent) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		query := `
			INSERT INTO bookings (` + bookingColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`
		_, err := tx.ExecContext(ctx, query,
			booking.ID,
			booking.ChildID,
			booking.AppointmentDate,
			booking.Status,
			booking.AssignedStaffID,
			booking.CheckedInAt,
			booking.CompletedAt,
			booking.CancelledAt,
			booking.CancelReason,
			booking.CreatedAt,
			booking.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create booking: %w", mapError(err))
		}

		for _, o := range orders {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO vaccine_orders (id, booking_id, vaccine_id, dose_number)
				VALUES ($1, $2, $3, $4)
			`, o.ID, o.BookingID, o.VaccineID, o.DoseNumber)
			if err != nil {
				return fmt.Errorf("failed to create vaccine order: %w", mapError(err))
			}
		}

		if event != nil {
			if err := insertOutboxEvent(ctx, tx, event); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *bookingRepository) Get(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	var booking model.Booking
	if err := r.db.GetContext(ctx, &booking, query, id); err != nil {
		return nil, mapError(err)
	}
	return &booking, nil
}

// bookingWhere renders the filter conditions shared by List and Count.
func bookingWhere(filters *model.BookingFilters) (string, []interface{}) {
	where := ` WHERE 1=1`
	var args []interface{}

	if !filters.AppointmentDate.IsZero() {
		args = append(args, filters.AppointmentDate)
		where += fmt.Sprintf(" AND appointment_date = $%d", len(args))
	}
	if filters.Status != "" {
		args = append(args, filters.Status)
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filters.ChildID != uuid.Nil {
		args = append(args, filters.ChildID)
		where += fmt.Sprintf(" AND child_id = $%d", len(args))
	}
	return where, args
}

func (r *bookingRepository) Count(ctx context.Context, filters *model.BookingFilters) (int, error) {
	if filters == nil {
		filters = &model.BookingFilters{}
	}
	where, args := bookingWhere(filters)

	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM bookings`+where, args...); err != nil {
		return 0, fmt.Errorf("failed to count bookings: %w", err)
	}
	return n, nil
}

func (r *bookingRepository) List(ctx context.Context, filters *model.BookingFilters) ([]*model.Booking, error) {
	if filters == nil {
		filters = &model.BookingFilters{}
	}
	where, args := bookingWhere(filters)
	query := `SELECT ` + bookingColumns + ` FROM bookings` + where

	p := filters.Pagination.Normalize()
	args = append(args, p.PageSize, filters.Pagination.Offset())
	query += fmt.Sprintf(" ORDER BY created_at ASC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	var bookings []*model.Booking
	if err := r.db.SelectContext(ctx, &bookings, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return bookings, nil
}

func (r *bookingRepository) ListOrders(ctx context.Context, bookingID uuid.UUID) ([]*model.VaccineOrder, error) {
	query := `
		SELECT id, booking_id, vaccine_id, dose_number
		FROM vaccine_orders
		WHERE booking_id = $1
		ORDER BY dose_number ASC, id ASC
	`
	var orders []*model.VaccineOrder
	if err := r.db.SelectContext(ctx, &orders, query, bookingID); err != nil {
		return nil, fmt.Errorf("failed to list vaccine orders: %w", err)
	}
	return orders, nil
}

func (r *bookingRepository) GetDiagnosis(ctx context.Context, bookingID uuid.UUID) (*model.Diagnosis, error) {
	var d model.Diagnosis
	err := r.db.GetContext(ctx, &d, `
		SELECT booking_id, doctor_id, diagnosis_date, recommended_follow_up
		FROM diagnoses
		WHERE booking_id = $1
	`, bookingID)
	if err != nil {
		return nil, mapError(err)
	}

	if err := r.db.SelectContext(ctx, &d.Results, `
		SELECT vaccine_order_id, outcome
		FROM diagnosis_results
		WHERE booking_id = $1
		ORDER BY position ASC
	`, bookingID); err != nil {
		return nil, fmt.Errorf("failed to get diagnosis results: %w", err)
	}
	return &d, nil
}

func (r *bookingRepository) ListVaccinationRecords(ctx context.Context, bookingID uuid.UUID) ([]*model.VaccinationRecord, error) {
	query := `
		SELECT vaccine_order_id, booking_id, nurse_id, administered_at, notes
		FROM vaccination_records
		WHERE booking_id = $1
		ORDER BY administered_at ASC
	`
	var records []*model.VaccinationRecord
	if err := r.db.SelectContext(ctx, &records, query, bookingID); err != nil {
		return nil, fmt.Errorf("failed to list vaccination records: %w", err)
	}
	return records, nil
}

func (r *bookingRepository) GetReaction(ctx context.Context, bookingID uuid.UUID) (*model.Reaction, error) {
	var rc model.Reaction
	err := r.db.GetContext(ctx, &rc, `
		SELECT booking_id, description, recorded_by, recorded_at
		FROM reactions
		WHERE booking_id = $1
	`, bookingID)
	if err != nil {
		return nil, mapError(err)
	}
	return &rc, nil
}

func (r *bookingRepository) ApplyTransition(ctx context.Context, booking *model.Booking, expected model.BookingStatus, effects model.TransitionEffects) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE bookings
			SET status = $1, assigned_staff_id = $2, checked_in_at = $3,
				completed_at = $4, cancelled_at = $5, cancel_reason = $6, updated_at = $7
			WHERE id = $8 AND status = $9
		`,
			booking.Status,
			booking.AssignedStaffID,
			booking.CheckedInAt,
			booking.CompletedAt,
			booking.CancelledAt,
			booking.CancelReason,
			booking.UpdatedAt,
			booking.ID,
			expected,
		)
		if err != nil {
			return fmt.Errorf("failed to update booking: %w", err)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rows == 0 {
			var exists bool
			if err := tx.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM bookings WHERE id = $1)`, booking.ID); err != nil {
				return fmt.Errorf("failed to check booking: %w", err)
			}
			if !exists {
				return repository.ErrNotFound
			}
			return repository.ErrStatusMismatch
		}

		if d := effects.Diagnosis; d != nil {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO diagnoses (booking_id, doctor_id, diagnosis_date, recommended_follow_up)
				VALUES ($1, $2, $3, $4)
			`, d.BookingID, d.DoctorID, d.DiagnosisDate, d.RecommendedFollowUp); err != nil {
				return mapError(err)
			}
			for i, res := range d.Results {
				if _, err := tx.ExecContext(ctx, `
					INSERT INTO diagnosis_results (booking_id, vaccine_order_id, outcome, position)
					VALUES ($1, $2, $3, $4)
				`, d.BookingID, res.VaccineOrderID, res.Outcome, i); err != nil {
					return mapError(err)
				}
			}
		}

		for _, rec := range effects.Records {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO vaccination_records (vaccine_order_id, booking_id, nurse_id, administered_at, notes)
				VALUES ($1, $2, $3, $4, $5)
			`, rec.VaccineOrderID, rec.BookingID, rec.NurseID, rec.AdministeredAt, rec.Notes); err != nil {
				return mapError(err)
			}
		}

		if rc := effects.Reaction; rc != nil {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO reactions (booking_id, description, recorded_by, recorded_at)
				VALUES ($1, $2, $3, $4)
			`, rc.BookingID, rc.Description, rc.RecordedBy, rc.RecordedAt); err != nil {
				return mapError(err)
			}
		}

		if effects.Event != nil {
			return insertOutboxEvent(ctx, tx, effects.Event)
		}
		return nil
	})
}
