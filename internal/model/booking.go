package model

import (
	"time"

	"github.com/google/uuid"
)

type BookingStatus string

const (
	BookingStatusPending         BookingStatus = "PENDING"
	BookingStatusPaid            BookingStatus = "PAID"
	BookingStatusCheckedIn       BookingStatus = "CHECKED_IN"
	BookingStatusAssigned        BookingStatus = "ASSIGNED"
	BookingStatusDiagnosed       BookingStatus = "DIAGNOSED"
	BookingStatusVaccineInjected BookingStatus = "VACCINE_INJECTED"
	BookingStatusCompleted       BookingStatus = "COMPLETED"
	BookingStatusCancelled       BookingStatus = "CANCELLED"
)

var bookingTransitions = map[BookingStatus]map[BookingStatus]bool{
	BookingStatusPending:         {BookingStatusPaid: true, BookingStatusCancelled: true},
	BookingStatusPaid:            {BookingStatusCheckedIn: true, BookingStatusCancelled: true},
	BookingStatusCheckedIn:       {BookingStatusAssigned: true, BookingStatusCancelled: true},
	BookingStatusAssigned:        {BookingStatusDiagnosed: true, BookingStatusCancelled: true},
	BookingStatusDiagnosed:       {BookingStatusVaccineInjected: true, BookingStatusCancelled: true},
	BookingStatusVaccineInjected: {BookingStatusCompleted: true, BookingStatusCancelled: true},
	BookingStatusCompleted:       {},
	BookingStatusCancelled:       {},
}

func ParseBookingStatus(s string) (BookingStatus, bool) {
	st := BookingStatus(s)
	_, ok := bookingTransitions[st]
	return st, ok
}

// CanTransitionTo reports whether next is a direct successor of s in the lifecycle graph.
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	return bookingTransitions[s][next]
}

func (s BookingStatus) IsTerminal() bool {
	return len(bookingTransitions[s]) == 0
}

type Booking struct {
	ID              uuid.UUID     `db:"id" json:"id"`
	ChildID         uuid.UUID     `db:"child_id" json:"child_id"`
	AppointmentDate Date          `db:"appointment_date" json:"appointment_date"`
	Status          BookingStatus `db:"status" json:"status"`
	AssignedStaffID *uuid.UUID    `db:"assigned_staff_id" json:"assigned_staff_id,omitempty"`
	CheckedInAt     *time.Time    `db:"checked_in_at" json:"checked_in_at,omitempty"`
	CompletedAt     *time.Time    `db:"completed_at" json:"completed_at,omitempty"`
	CancelledAt     *time.Time    `db:"cancelled_at" json:"cancelled_at,omitempty"`
	CancelReason    *string       `db:"cancel_reason" json:"cancel_reason,omitempty"`
	CreatedAt       time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time     `db:"updated_at" json:"updated_at"`
}

type VaccineOrder struct {
	ID         uuid.UUID `db:"id" json:"id"`
	BookingID  uuid.UUID `db:"booking_id" json:"booking_id"`
	VaccineID  uuid.UUID `db:"vaccine_id" json:"vaccine_id"`
	DoseNumber int       `db:"dose_number" json:"dose_number"`
}

type Outcome string

const (
	OutcomeNormal          Outcome = "NORMAL"
	OutcomeCaution         Outcome = "CAUTION"
	OutcomePostpone        Outcome = "POSTPONE"
	OutcomeContraindicated Outcome = "CONTRAINDICATED"
)

func (o Outcome) IsValid() bool {
	switch o {
	case OutcomeNormal, OutcomeCaution, OutcomePostpone, OutcomeContraindicated:
		return true
	}
	return false
}

type DiagnosisResult struct {
	VaccineOrderID uuid.UUID `db:"vaccine_order_id" json:"vaccine_order_id"`
	Outcome        Outcome   `db:"outcome" json:"outcome"`
}

type Diagnosis struct {
	BookingID           uuid.UUID         `db:"booking_id" json:"booking_id"`
	DoctorID            uuid.UUID         `db:"doctor_id" json:"doctor_id"`
	DiagnosisDate       time.Time         `db:"diagnosis_date" json:"diagnosis_date"`
	Results             []DiagnosisResult `db:"-" json:"results"`
	RecommendedFollowUp *string           `db:"recommended_follow_up" json:"recommended_follow_up,omitempty"`
}

type VaccinationRecord struct {
	VaccineOrderID uuid.UUID `db:"vaccine_order_id" json:"vaccine_order_id"`
	BookingID      uuid.UUID `db:"booking_id" json:"booking_id"`
	NurseID        uuid.UUID `db:"nurse_id" json:"nurse_id"`
	AdministeredAt time.Time `db:"administered_at" json:"administered_at"`
	Notes          string    `db:"notes" json:"notes,omitempty"`
}

type Reaction struct {
	BookingID   uuid.UUID `db:"booking_id" json:"booking_id"`
	Description string    `db:"description" json:"description"`
	RecordedBy  uuid.UUID `db:"recorded_by" json:"recorded_by"`
	RecordedAt  time.Time `db:"recorded_at" json:"recorded_at"`
}

// BookingDetail is a booking with every record attached to it.
type BookingDetail struct {
	Booking
	Orders    []*VaccineOrder      `json:"orders"`
	Diagnosis *Diagnosis           `json:"diagnosis,omitempty"`
	Records   []*VaccinationRecord `json:"records,omitempty"`
	Reaction  *Reaction            `json:"reaction,omitempty"`
}

type BookingFilters struct {
	AppointmentDate Date
	Status          BookingStatus
	ChildID         uuid.UUID
	Pagination
}

// TransitionEffects are the records written in the same unit of work as a status change.
type TransitionEffects struct {
	Diagnosis *Diagnosis
	Records   []*VaccinationRecord
	Reaction  *Reaction
	Event     *OutboxEvent
}

type RegisterBookingRequest struct {
	ChildID         uuid.UUID                   `json:"child_id" validate:"required"`
	AppointmentDate Date                        `json:"appointment_date" validate:"required"`
	Orders          []RegisterVaccineOrderInput `json:"orders" validate:"required,min=1,dive"`
}

type RegisterVaccineOrderInput struct {
	VaccineID  uuid.UUID `json:"vaccine_id" validate:"required"`
	DoseNumber int       `json:"dose_number" validate:"required,min=1"`
}
