package booking

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/jwalitptl/vaccine-clinic-api/internal/model"
	"github.com/jwalitptl/vaccine-clinic-api/internal/repository"
	"github.com/jwalitptl/vaccine-clinic-api/internal/service/diagnosis"
	apperrors "github.com/jwalitptl/vaccine-clinic-api/pkg/errors"
)

type Action string

const (
	ActionPay            Action = "pay"
	ActionCheckIn        Action = "check_in"
	ActionAssignStaff    Action = "assign_staff"
	ActionDiagnose       Action = "diagnose"
	ActionAdminister     Action = "administer"
	ActionComplete       Action = "complete"
	ActionCancel         Action = "cancel"
	ActionRecordReaction Action = "record_reaction"
)

// Actions lists every lifecycle action in pipeline order.
var Actions = []Action{
	ActionPay, ActionCheckIn, ActionAssignStaff, ActionDiagnose,
	ActionAdminister, ActionComplete, ActionCancel, ActionRecordReaction,
}

// Guard names reported in GuardViolation errors.
const (
	GuardRole              = "role"
	GuardStaffUnassigned   = "staff_unassigned"
	GuardDiagnosisCoverage = "diagnosis_coverage"
	GuardDiagnosisPresent  = "diagnosis_present"
	GuardEligibility       = "vaccine_eligibility"
	GuardRecordOnce        = "record_once"
	GuardReactionOnce      = "reaction_once"
)

const maxTextLength = 2000

// Payload carries the action specific input. Fields not used by an action
// are ignored.
type Payload struct {
	StaffID             *uuid.UUID              `json:"staff_id,omitempty"`
	Results             []model.DiagnosisResult `json:"results,omitempty"`
	RecommendedFollowUp *string                 `json:"recommended_follow_up,omitempty"`
	Records             []AdministerInput       `json:"records,omitempty"`
	Reason              string                  `json:"reason,omitempty"`
	Description         string                  `json:"description,omitempty"`
}

type AdministerInput struct {
	VaccineOrderID uuid.UUID `json:"vaccine_order_id"`
	Notes          string    `json:"notes,omitempty"`
}

// transition is the working state of one command. next starts as a copy of
// the stored booking; guards fill in next and effects without writing.
type transition struct {
	action  Action
	current *model.Booking
	next    *model.Booking
	actor   model.Actor
	payload Payload
	effects model.TransitionEffects
}

type rule struct {
	from []model.BookingStatus
	// to is empty for actions that leave the status unchanged.
	to       model.BookingStatus
	roles    []model.Role
	validate func(p Payload) error
	guard    func(ctx context.Context, s *Service, t *transition) error
}

var activeStatuses = []model.BookingStatus{
	model.BookingStatusPending,
	model.BookingStatusPaid,
	model.BookingStatusCheckedIn,
	model.BookingStatusAssigned,
	model.BookingStatusDiagnosed,
	model.BookingStatusVaccineInjected,
}

var rules = map[Action]rule{
	ActionPay: {
		from:  []model.BookingStatus{model.BookingStatusPending},
		to:    model.BookingStatusPaid,
		roles: []model.Role{model.RolePayment, model.RoleAdmin},
	},
	ActionCheckIn: {
		from:  []model.BookingStatus{model.BookingStatusPaid},
		to:    model.BookingStatusCheckedIn,
		roles: []model.Role{model.RoleFrontDesk},
		guard: func(_ context.Context, s *Service, t *transition) error {
			now := s.now()
			t.next.CheckedInAt = &now
			return nil
		},
	},
	ActionAssignStaff: {
		from:     []model.BookingStatus{model.BookingStatusCheckedIn},
		to:       model.BookingStatusAssigned,
		roles:    []model.Role{model.RoleFrontDesk},
		validate: validateAssignStaff,
		guard:    guardAssignStaff,
	},
	ActionDiagnose: {
		from:     []model.BookingStatus{model.BookingStatusAssigned},
		to:       model.BookingStatusDiagnosed,
		roles:    []model.Role{model.RoleDoctor},
		validate: validateDiagnose,
		guard:    guardDiagnose,
	},
	ActionAdminister: {
		from:     []model.BookingStatus{model.BookingStatusDiagnosed},
		to:       model.BookingStatusVaccineInjected,
		roles:    []model.Role{model.RoleNurse},
		validate: validateAdminister,
		guard:    guardAdminister,
	},
	ActionComplete: {
		from:  []model.BookingStatus{model.BookingStatusVaccineInjected},
		to:    model.BookingStatusCompleted,
		roles: []model.Role{model.RoleFrontDesk, model.RoleDoctor, model.RoleNurse, model.RoleAdmin, model.RoleSystem},
		guard: func(_ context.Context, s *Service, t *transition) error {
			now := s.now()
			t.next.CompletedAt = &now
			return nil
		},
	},
	ActionCancel: {
		from:  activeStatuses,
		to:    model.BookingStatusCancelled,
		roles: []model.Role{model.RoleFrontDesk, model.RoleAdmin},
		validate: func(p Payload) error {
			if len(p.Reason) > maxTextLength {
				return apperrors.NewValidation(fmt.Sprintf("reason must be at most %d characters", maxTextLength), nil)
			}
			return nil
		},
		guard: func(_ context.Context, s *Service, t *transition) error {
			now := s.now()
			t.next.CancelledAt = &now
			if reason := strings.TrimSpace(t.payload.Reason); reason != "" {
				t.next.CancelReason = &reason
			}
			return nil
		},
	},
	ActionRecordReaction: {
		from:     []model.BookingStatus{model.BookingStatusVaccineInjected, model.BookingStatusCompleted},
		roles:    []model.Role{model.RoleNurse, model.RoleDoctor},
		validate: validateRecordReaction,
		guard:    guardRecordReaction,
	},
}

// AllowedFrom reports whether action may be attempted from status.
func AllowedFrom(action Action, status model.BookingStatus) bool {
	r, ok := rules[action]
	return ok && slices.Contains(r.from, status)
}

func validateAssignStaff(p Payload) error {
	if p.StaffID == nil || *p.StaffID == uuid.Nil {
		return apperrors.NewValidation("staff_id is required", nil)
	}
	return nil
}

func guardAssignStaff(ctx context.Context, s *Service, t *transition) error {
	if t.current.AssignedStaffID != nil {
		return apperrors.NewGuardViolation(GuardStaffUnassigned, "booking already has an assigned staff member")
	}
	st, err := s.staff.GetActive(ctx, *t.payload.StaffID)
	if err != nil {
		return err
	}
	id := st.ID
	t.next.AssignedStaffID = &id
	return nil
}

func validateDiagnose(p Payload) error {
	if len(p.Results) == 0 {
		return apperrors.NewValidation("results are required", nil)
	}
	for i, r := range p.Results {
		if r.VaccineOrderID == uuid.Nil {
			return apperrors.NewValidation(fmt.Sprintf("results[%d].vaccine_order_id is required", i), nil)
		}
		if !r.Outcome.IsValid() {
			return apperrors.NewValidation(fmt.Sprintf("results[%d].outcome %q is not a valid outcome", i, r.Outcome), nil)
		}
	}
	if p.RecommendedFollowUp != nil && len(*p.RecommendedFollowUp) > maxTextLength {
		return apperrors.NewValidation(fmt.Sprintf("recommended_follow_up must be at most %d characters", maxTextLength), nil)
	}
	return nil
}

// guardDiagnose requires the results to name every order of the booking exactly once.
func guardDiagnose(ctx context.Context, s *Service, t *transition) error {
	orders, err := s.repo.ListOrders(ctx, t.current.ID)
	if err != nil {
		return fmt.Errorf("failed to list vaccine orders: %w", err)
	}

	known := make(map[uuid.UUID]bool, len(orders))
	for _, o := range orders {
		known[o.ID] = false
	}
	for _, r := range t.payload.Results {
		seen, ok := known[r.VaccineOrderID]
		if !ok {
			return apperrors.NewGuardViolation(GuardDiagnosisCoverage,
				fmt.Sprintf("vaccine order %s does not belong to booking", r.VaccineOrderID))
		}
		if seen {
			return apperrors.NewGuardViolation(GuardDiagnosisCoverage,
				fmt.Sprintf("vaccine order %s is diagnosed more than once", r.VaccineOrderID))
		}
		known[r.VaccineOrderID] = true
	}
	for _, o := range orders {
		if !known[o.ID] {
			return apperrors.NewGuardViolation(GuardDiagnosisCoverage,
				fmt.Sprintf("vaccine order %s has no diagnosis result", o.ID))
		}
	}

	t.effects.Diagnosis = &model.Diagnosis{
		BookingID:           t.current.ID,
		DoctorID:            t.actor.StaffID,
		DiagnosisDate:       s.now(),
		Results:             append([]model.DiagnosisResult(nil), t.payload.Results...),
		RecommendedFollowUp: t.payload.RecommendedFollowUp,
	}
	return nil
}

func validateAdminister(p Payload) error {
	for i, r := range p.Records {
		if r.VaccineOrderID == uuid.Nil {
			return apperrors.NewValidation(fmt.Sprintf("records[%d].vaccine_order_id is required", i), nil)
		}
		if len(r.Notes) > maxTextLength {
			return apperrors.NewValidation(fmt.Sprintf("records[%d].notes must be at most %d characters", i, maxTextLength), nil)
		}
	}
	return nil
}

// guardAdminister admits only orders in the diagnosis' eligible set. An empty
// record list is accepted only when nothing is eligible.
func guardAdminister(ctx context.Context, s *Service, t *transition) error {
	diag, err := s.repo.GetDiagnosis(ctx, t.current.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NewGuardViolation(GuardDiagnosisPresent, "booking has no diagnosis")
		}
		return fmt.Errorf("failed to get diagnosis: %w", err)
	}
	eligible := diagnosis.EligibleSet(diag.Results)
	if len(t.payload.Records) == 0 && len(eligible) > 0 {
		return apperrors.NewValidation("records are required", nil)
	}

	now := s.now()
	seen := make(map[uuid.UUID]bool, len(t.payload.Records))
	records := make([]*model.VaccinationRecord, 0, len(t.payload.Records))
	for _, r := range t.payload.Records {
		if seen[r.VaccineOrderID] {
			return apperrors.NewGuardViolation(GuardRecordOnce,
				fmt.Sprintf("vaccine order %s is listed more than once", r.VaccineOrderID))
		}
		seen[r.VaccineOrderID] = true
		if _, ok := eligible[r.VaccineOrderID]; !ok {
			return apperrors.NewGuardViolation(GuardEligibility,
				fmt.Sprintf("vaccine order %s is not eligible for administration", r.VaccineOrderID))
		}
		records = append(records, &model.VaccinationRecord{
			VaccineOrderID: r.VaccineOrderID,
			BookingID:      t.current.ID,
			NurseID:        t.actor.StaffID,
			AdministeredAt: now,
			Notes:          r.Notes,
		})
	}
	t.effects.Records = records
	return nil
}

func validateRecordReaction(p Payload) error {
	desc := strings.TrimSpace(p.Description)
	if desc == "" {
		return apperrors.NewValidation("description is required", nil)
	}
	if len(desc) > maxTextLength {
		return apperrors.NewValidation(fmt.Sprintf("description must be at most %d characters", maxTextLength), nil)
	}
	return nil
}

func guardRecordReaction(ctx context.Context, s *Service, t *transition) error {
	_, err := s.repo.GetReaction(ctx, t.current.ID)
	switch {
	case err == nil:
		return apperrors.NewGuardViolation(GuardReactionOnce, "a reaction is already recorded for this booking")
	case !errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("failed to get reaction: %w", err)
	}

	t.effects.Reaction = &model.Reaction{
		BookingID:   t.current.ID,
		Description: strings.TrimSpace(t.payload.Description),
		RecordedBy:  t.actor.StaffID,
		RecordedAt:  s.now(),
	}
	return nil
}
