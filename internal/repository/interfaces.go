package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/vaccine-clinic-api/internal/model"
)

var (
	// ErrNotFound is returned when the addressed record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrStatusMismatch is returned when a compare-and-swap finds a different status.
	ErrStatusMismatch = errors.New("status does not match expected value")
	// ErrDuplicate is returned when a unique key already holds a record.
	ErrDuplicate = errors.New("record already exists")
)

// All repository interfaces in one file
type (
	BookingRepository interface {
		// Create stores a PENDING booking together with its vaccine orders.
		Create(ctx context.Context, booking *model.Booking, orders []*model.VaccineOrder, event *model.OutboxEvent) error
		Get(ctx context.Context, id uuid.UUID) (*model.Booking, error)
		List(ctx context.Context, filters *model.BookingFilters) ([]*model.Booking, error)
		// Count reports how many bookings match filters, ignoring pagination.
		Count(ctx context.Context, filters *model.BookingFilters) (int, error)
		ListOrders(ctx context.Context, bookingID uuid.UUID) ([]*model.VaccineOrder, error)
		GetDiagnosis(ctx context.Context, bookingID uuid.UUID) (*model.Diagnosis, error)
		ListVaccinationRecords(ctx context.Context, bookingID uuid.UUID) ([]*model.VaccinationRecord, error)
		GetReaction(ctx context.Context, bookingID uuid.UUID) (*model.Reaction, error)
		// ApplyTransition writes booking's mutable fields and effects atomically,
		// provided the stored status still equals expected.
		ApplyTransition(ctx context.Context, booking *model.Booking, expected model.BookingStatus, effects model.TransitionEffects) error
	}

	ScheduleRepository interface {
		// Upsert creates the schedule or returns the stored one with the same id.
		Upsert(ctx context.Context, schedule *model.Schedule) (*model.Schedule, bool, error)
		Get(ctx context.Context, id uuid.UUID) (*model.Schedule, error)
		// UpsertWorkDate creates the work date or returns the existing one for (schedule, date).
		UpsertWorkDate(ctx context.Context, wd *model.WorkDate) (*model.WorkDate, bool, error)
		GetWorkDate(ctx context.Context, id uuid.UUID) (*model.WorkDate, error)
		ListWorkDates(ctx context.Context, scheduleID uuid.UUID) ([]*model.WorkDate, error)
		// AssignStaff inserts the pair if absent and reports whether it was created.
		AssignStaff(ctx context.Context, a *model.StaffAssignment) (bool, error)
		ListAssignments(ctx context.Context, workDateID uuid.UUID) ([]*model.StaffAssignment, error)
		SetAssignmentStatus(ctx context.Context, workDateID, staffID uuid.UUID, status model.AssignmentStatus) error
	}

	StaffRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.Staff, error)
		Create(ctx context.Context, staff *model.Staff) error
		List(ctx context.Context) ([]*model.Staff, error)
		SetActive(ctx context.Context, id uuid.UUID, active bool, updatedAt time.Time) error
	}

	AuditRepository interface {
		Create(ctx context.Context, log *model.AuditLog) error
		List(ctx context.Context, filters *model.AuditFilters) ([]*model.AuditLog, error)
		DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		// ClaimPending leases up to limit due events to the caller for the lease duration.
		ClaimPending(ctx context.Context, limit int, lease time.Duration) ([]*model.OutboxEvent, error)
		MarkProcessed(ctx context.Context, id uuid.UUID) error
		MarkRetry(ctx context.Context, id uuid.UUID, errMsg string, retryAt time.Time) error
		MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error
		CountPending(ctx context.Context) (int64, error)
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}
)
