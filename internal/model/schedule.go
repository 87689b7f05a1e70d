package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type ShiftType string

const (
	ShiftMorning   ShiftType = "MORNING"
	ShiftAfternoon ShiftType = "AFTERNOON"
	ShiftEvening   ShiftType = "EVENING"
	ShiftFullDay   ShiftType = "FULL_DAY"
)

func (s ShiftType) IsValid() bool {
	switch s {
	case ShiftMorning, ShiftAfternoon, ShiftEvening, ShiftFullDay:
		return true
	}
	return false
}

type Schedule struct {
	ID            uuid.UUID     `db:"id" json:"id"`
	Name          string        `db:"name" json:"name"`
	ShiftType     ShiftType     `db:"shift_type" json:"shift_type"`
	StartDate     Date          `db:"start_date" json:"start_date"`
	EndDate       Date          `db:"end_date" json:"end_date"`
	RepeatPattern bool          `db:"repeat_pattern" json:"repeat_pattern"`
	Weekdays      pq.Int64Array `db:"weekdays" json:"weekdays"`
	CreatedBy     uuid.UUID     `db:"created_by" json:"created_by"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
}

// WeekdaySet returns the stored weekdays, Sunday = 0.
func (s *Schedule) WeekdaySet() []time.Weekday {
	out := make([]time.Weekday, 0, len(s.Weekdays))
	for _, d := range s.Weekdays {
		out = append(out, time.Weekday(d))
	}
	return out
}

type WorkDate struct {
	ID         uuid.UUID `db:"id" json:"id"`
	ScheduleID uuid.UUID `db:"schedule_id" json:"schedule_id"`
	Date       Date      `db:"work_date" json:"date"`
	ShiftType  ShiftType `db:"shift_type" json:"shift_type"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

type AssignmentStatus string

const (
	AssignmentActive   AssignmentStatus = "ACTIVE"
	AssignmentInactive AssignmentStatus = "INACTIVE"
)

func (s AssignmentStatus) IsValid() bool {
	return s == AssignmentActive || s == AssignmentInactive
}

type StaffAssignment struct {
	WorkDateID uuid.UUID        `db:"work_date_id" json:"work_date_id"`
	StaffID    uuid.UUID        `db:"staff_id" json:"staff_id"`
	Status     AssignmentStatus `db:"status" json:"status"`
	CreatedAt  time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time        `db:"updated_at" json:"updated_at"`
}

type AssignmentOutcome string

const (
	OutcomeCreated       AssignmentOutcome = "CREATED"
	OutcomeAlreadyExists AssignmentOutcome = "ALREADY_EXISTS"
	OutcomeFailed        AssignmentOutcome = "FAILED"
)

type AssignmentResult struct {
	WorkDateID uuid.UUID         `json:"work_date_id"`
	StaffID    uuid.UUID         `json:"staff_id"`
	Outcome    AssignmentOutcome `json:"outcome"`
	Error      string            `json:"error,omitempty"`
}

// ScheduleDefinition is what an administrator submits to create a schedule.
type ScheduleDefinition struct {
	ScheduleID    *uuid.UUID     `json:"schedule_id,omitempty"`
	Name          string         `json:"name" validate:"required,max=200"`
	ShiftType     ShiftType      `json:"shift_type" validate:"required,shift_type"`
	StartDate     Date           `json:"start_date" validate:"required"`
	EndDate       Date           `json:"end_date" validate:"required"`
	RepeatPattern bool           `json:"repeat_pattern"`
	Weekdays      []time.Weekday `json:"weekdays" validate:"dive,weekday"`
	StaffIDs      []uuid.UUID    `json:"staff_ids"`
}

type ScheduleResult struct {
	Schedule    *Schedule          `json:"schedule"`
	WorkDates   []*WorkDate        `json:"work_dates"`
	Assignments []AssignmentResult `json:"assignments"`
}

type AddStaffRequest struct {
	WorkDateIDs []uuid.UUID `json:"work_date_ids" validate:"required,min=1"`
	StaffIDs    []uuid.UUID `json:"staff_ids" validate:"required,min=1"`
}
