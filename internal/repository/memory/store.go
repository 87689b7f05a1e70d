// Package memory keeps every repository in process memory. It backs local runs
// with storage.driver=memory and the service tests.
package memory

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/vaccine-clinic-api/internal/model"
	"github.com/jwalitptl/vaccine-clinic-api/internal/repository"
)

type workDateKey struct {
	scheduleID uuid.UUID
	date       string
}

type assignmentKey struct {
	workDateID uuid.UUID
	staffID    uuid.UUID
}

// Store holds all tables behind one lock so multi-table writes are atomic.
type Store struct {
	mu sync.RWMutex

	bookings  map[uuid.UUID]*model.Booking
	orders    map[uuid.UUID][]*model.VaccineOrder
	diagnoses map[uuid.UUID]*model.Diagnosis
	records   map[uuid.UUID][]*model.VaccinationRecord
	reactions map[uuid.UUID]*model.Reaction

	schedules       map[uuid.UUID]*model.Schedule
	workDates       map[uuid.UUID]*model.WorkDate
	workDatesByKey  map[workDateKey]uuid.UUID
	assignments     map[assignmentKey]*model.StaffAssignment
	assignmentOrder []assignmentKey

	staff  map[uuid.UUID]*model.Staff
	audit  []*model.AuditLog
	outbox []*model.OutboxEvent

	now func() time.Time
}

func NewStore() *Store {
	return &Store{
		bookings:       make(map[uuid.UUID]*model.Booking),
		orders:         make(map[uuid.UUID][]*model.VaccineOrder),
		diagnoses:      make(map[uuid.UUID]*model.Diagnosis),
		records:        make(map[uuid.UUID][]*model.VaccinationRecord),
		reactions:      make(map[uuid.UUID]*model.Reaction),
		schedules:      make(map[uuid.UUID]*model.Schedule),
		workDates:      make(map[uuid.UUID]*model.WorkDate),
		workDatesByKey: make(map[workDateKey]uuid.UUID),
		assignments:    make(map[assignmentKey]*model.StaffAssignment),
		staff:          make(map[uuid.UUID]*model.Staff),
		now:            time.Now,
	}
}

func (s *Store) Bookings() repository.BookingRepository   { return &bookingRepository{s} }
func (s *Store) Schedules() repository.ScheduleRepository { return &scheduleRepository{s} }
func (s *Store) Staff() repository.StaffRepository        { return &staffRepository{s} }
func (s *Store) Audit() repository.AuditRepository        { return &auditRepository{s} }
func (s *Store) Outbox() repository.OutboxRepository      { return &outboxRepository{s} }

// appendOutbox must be called with mu held.
func (s *Store) appendOutbox(event *model.OutboxEvent) {
	if event == nil {
		return
	}
	cp := *event
	s.outbox = append(s.outbox, &cp)
}
