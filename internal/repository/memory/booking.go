package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/jwalitptl/vaccine-clinic-api/internal/model"
	"github.com/jwalitptl/vaccine-clinic-api/internal/repository"
)

type bookingRepository struct {
	s *Store
}

func copyBooking(b *model.Booking) *model.Booking {
	cp := *b
	if b.AssignedStaffID != nil {
		id := *b.AssignedStaffID
		cp.AssignedStaffID = &id
	}
	return &cp
}

func (r *bookingRepository) Create(ctx context.Context, booking *model.Booking, orders []*model.VaccineOrder, event *model.OutboxEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.bookings[booking.ID]; ok {
		return repository.ErrDuplicate
	}
	r.s.bookings[booking.ID] = copyBooking(booking)
	stored := make([]*model.VaccineOrder, 0, len(orders))
	for _, o := range orders {
		cp := *o
		stored = append(stored, &cp)
	}
	r.s.orders[booking.ID] = stored
	r.s.appendOutbox(event)
	return nil
}

func (r *bookingRepository) Get(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	b, ok := r.s.bookings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyBooking(b), nil
}

func (r *bookingRepository) List(ctx context.Context, filters *model.BookingFilters) ([]*model.Booking, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []*model.Booking
	for _, b := range r.s.bookings {
		if matchesBooking(b, filters) {
			out = append(out, copyBooking(b))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})

	if filters != nil {
		p := filters.Pagination.Normalize()
		offset := filters.Pagination.Offset()
		if offset >= len(out) {
			return []*model.Booking{}, nil
		}
		end := offset + p.PageSize
		if end > len(out) {
			end = len(out)
		}
		out = out[offset:end]
	}
	return out, nil
}

func (r *bookingRepository) Count(ctx context.Context, filters *model.BookingFilters) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	n := 0
	for _, b := range r.s.bookings {
		if matchesBooking(b, filters) {
			n++
		}
	}
	return n, nil
}

func matchesBooking(b *model.Booking, filters *model.BookingFilters) bool {
	if filters == nil {
		return true
	}
	if !filters.AppointmentDate.IsZero() && !b.AppointmentDate.Equal(filters.AppointmentDate) {
		return false
	}
	if filters.Status != "" && b.Status != filters.Status {
		return false
	}
	if filters.ChildID != uuid.Nil && b.ChildID != filters.ChildID {
		return false
	}
	return true
}

func (r *bookingRepository) ListOrders(ctx context.Context, bookingID uuid.UUID) ([]*model.VaccineOrder, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	orders := r.s.orders[bookingID]
	out := make([]*model.VaccineOrder, 0, len(orders))
	for _, o := range orders {
		cp := *o
		out = append(out, &cp)
	}
	return out, nil
}

func (r *bookingRepository) GetDiagnosis(ctx context.Context, bookingID uuid.UUID) (*model.Diagnosis, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	d, ok := r.s.diagnoses[bookingID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *d
	cp.Results = append([]model.DiagnosisResult(nil), d.Results...)
	return &cp, nil
}

func (r *bookingRepository) ListVaccinationRecords(ctx context.Context, bookingID uuid.UUID) ([]*model.VaccinationRecord, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	records := r.s.records[bookingID]
	out := make([]*model.VaccinationRecord, 0, len(records))
	for _, rec := range records {
		cp := *rec
		out = append(out, &cp)
	}
	return out, nil
}

func (r *bookingRepository) GetReaction(ctx context.Context, bookingID uuid.UUID) (*model.Reaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	rc, ok := r.s.reactions[bookingID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *rc
	return &cp, nil
}

func (r *bookingRepository) ApplyTransition(ctx context.Context, booking *model.Booking, expected model.BookingStatus, effects model.TransitionEffects) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	current, ok := r.s.bookings[booking.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if current.Status != expected {
		return repository.ErrStatusMismatch
	}

	// unique keys are checked before anything is written
	if effects.Diagnosis != nil {
		if _, exists := r.s.diagnoses[booking.ID]; exists {
			return repository.ErrDuplicate
		}
	}
	if effects.Reaction != nil {
		if _, exists := r.s.reactions[booking.ID]; exists {
			return repository.ErrDuplicate
		}
	}
	if len(effects.Records) > 0 {
		existing := make(map[uuid.UUID]bool)
		for _, rec := range r.s.records[booking.ID] {
			existing[rec.VaccineOrderID] = true
		}
		for _, rec := range effects.Records {
			if existing[rec.VaccineOrderID] {
				return repository.ErrDuplicate
			}
			existing[rec.VaccineOrderID] = true
		}
	}

	r.s.bookings[booking.ID] = copyBooking(booking)
	if effects.Diagnosis != nil {
		d := *effects.Diagnosis
		d.Results = append([]model.DiagnosisResult(nil), effects.Diagnosis.Results...)
		r.s.diagnoses[booking.ID] = &d
	}
	for _, rec := range effects.Records {
		cp := *rec
		r.s.records[booking.ID] = append(r.s.records[booking.ID], &cp)
	}
	if effects.Reaction != nil {
		rc := *effects.Reaction
		r.s.reactions[booking.ID] = &rc
	}
	r.s.appendOutbox(effects.Event)
	return nil
}
