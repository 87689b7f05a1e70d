package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jwalitptl/vaccine-clinic-api/internal/model"
	"github.com/jwalitptl/vaccine-clinic-api/internal/repository"
	"github.com/jwalitptl/vaccine-clinic-api/internal/service/audit"
	"github.com/jwalitptl/vaccine-clinic-api/internal/service/staff"
	apperrors "github.com/jwalitptl/vaccine-clinic-api/pkg/errors"
	"github.com/jwalitptl/vaccine-clinic-api/pkg/logger"
	"github.com/jwalitptl/vaccine-clinic-api/pkg/metrics"
	"github.com/jwalitptl/vaccine-clinic-api/pkg/validator"
)

// Service runs the booking lifecycle: intake, reads and guarded transitions.
type Service struct {
	repo      repository.BookingRepository
	staff     *staff.Directory
	audit     *audit.Service
	validator *validator.Validator
	metrics   *metrics.Metrics
	log       *zap.Logger
	now       func() time.Time
	loc       *time.Location
}

func NewService(
	repo repository.BookingRepository,
	staffDir *staff.Directory,
	auditSvc *audit.Service,
	v *validator.Validator,
	m *metrics.Metrics,
	log *zap.Logger,
) *Service {
	return &Service{
		repo:      repo,
		staff:     staffDir,
		audit:     auditSvc,
		validator: v,
		metrics:   m,
		log:       log,
		now:       time.Now,
		loc:       time.UTC,
	}
}

// WithClock sets the clock and the clinic time zone used for "today".
func (s *Service) WithClock(now func() time.Time, loc *time.Location) *Service {
	s.now = now
	if loc != nil {
		s.loc = loc
	}
	return s
}

// TransitionEvent is the outbox payload of an accepted transition.
type TransitionEvent struct {
	BookingID   uuid.UUID           `json:"booking_id"`
	Action      Action              `json:"action"`
	From        model.BookingStatus `json:"from"`
	To          model.BookingStatus `json:"to"`
	ActorID     uuid.UUID           `json:"actor_id"`
	ActorRole   model.Role          `json:"actor_role"`
	Description string              `json:"description,omitempty"`
	OccurredAt  time.Time           `json:"occurred_at"`
}

// Transition applies action to the booking on behalf of actor. Every check
// runs before anything is written; the write itself is a compare-and-swap on
// the status read at the start of the call.
func (s *Service) Transition(ctx context.Context, bookingID uuid.UUID, action Action, payload Payload, actor model.Actor) (*model.Booking, error) {
	requestID := logger.RequestIDFromContext(ctx)
	s.log.Info("BookingService.Transition called",
		zap.String(logger.RequestIDField, requestID),
		zap.String("booking_id", bookingID.String()),
		zap.String("action", string(action)),
		zap.String("actor_role", string(actor.Role)),
	)

	next, err := s.transition(ctx, bookingID, action, payload, actor)
	if err != nil {
		s.record(ctx, action, bookingID, actor, err)
		s.log.Info("BookingService.Transition rejected",
			zap.String(logger.RequestIDField, requestID),
			zap.String("booking_id", bookingID.String()),
			zap.String("action", string(action)),
			zap.Error(err),
		)
		return nil, err
	}

	s.record(ctx, action, bookingID, actor, nil)
	s.log.Info("BookingService.Transition succeeded",
		zap.String(logger.RequestIDField, requestID),
		zap.String("booking_id", bookingID.String()),
		zap.String("status", string(next.Status)),
	)
	return next, nil
}

func (s *Service) transition(ctx context.Context, bookingID uuid.UUID, action Action, payload Payload, actor model.Actor) (*model.Booking, error) {
	r, ok := rules[action]
	if !ok {
		return nil, apperrors.NewValidation(fmt.Sprintf("unknown action %q", action), nil)
	}

	current, err := s.repo.Get(ctx, bookingID)
	if err != nil {
		return nil, s.mapRepoError(bookingID, err)
	}

	if !AllowedFrom(action, current.Status) {
		return nil, apperrors.NewInvalidTransition(string(action), string(current.Status))
	}
	if r.validate != nil {
		if err := r.validate(payload); err != nil {
			return nil, err
		}
	}
	if !actor.HasRole(r.roles...) {
		return nil, apperrors.NewGuardViolation(GuardRole,
			fmt.Sprintf("role %q may not %s", actor.Role, action))
	}

	next := *current
	t := &transition{
		action:  action,
		current: current,
		next:    &next,
		actor:   actor,
		payload: payload,
	}
	if r.guard != nil {
		if err := r.guard(ctx, s, t); err != nil {
			return nil, err
		}
	}

	now := s.now()
	if r.to != "" {
		next.Status = r.to
	}
	next.UpdatedAt = now

	event, err := model.NewOutboxEvent(model.EventBookingPrefix+string(action), bookingID, TransitionEvent{
		BookingID:   bookingID,
		Action:      action,
		From:        current.Status,
		To:          next.Status,
		ActorID:     actor.StaffID,
		ActorRole:   actor.Role,
		Description: reactionText(t.effects.Reaction),
		OccurredAt:  now,
	}, now)
	if err != nil {
		return nil, apperrors.NewInternal(err)
	}
	t.effects.Event = event

	if err := s.repo.ApplyTransition(ctx, &next, current.Status, t.effects); err != nil {
		if action == ActionRecordReaction && errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewGuardViolation(GuardReactionOnce, "a reaction is already recorded for this booking")
		}
		return nil, s.mapRepoError(bookingID, err)
	}
	return &next, nil
}

func reactionText(r *model.Reaction) string {
	if r == nil {
		return ""
	}
	return r.Description
}

func (s *Service) mapRepoError(bookingID uuid.UUID, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewNotFound(fmt.Sprintf("booking %s", bookingID), err)
	case errors.Is(err, repository.ErrStatusMismatch):
		return apperrors.NewConcurrentModification(fmt.Sprintf("booking %s", bookingID), err)
	case errors.Is(err, repository.ErrDuplicate):
		return apperrors.NewGuardViolation(GuardRecordOnce, "record already exists for this booking")
	}
	if _, ok := apperrors.As(err); ok {
		return err
	}
	return fmt.Errorf("failed to apply transition: %w", err)
}

func (s *Service) record(ctx context.Context, action Action, bookingID uuid.UUID, actor model.Actor, err error) {
	result := model.AuditResultAccepted
	label := result
	reason := ""
	if err != nil {
		result = model.AuditResultRejected
		label = apperrors.CodeOf(err).String()
		reason = err.Error()
	}
	if s.metrics != nil {
		s.metrics.TransitionsTotal.WithLabelValues(string(action), label).Inc()
	}
	if s.audit == nil {
		return
	}

	auditErr := s.audit.Log(ctx, audit.Entry{
		Actor:      actor,
		Action:     string(action),
		EntityType: model.AuditEntityBooking,
		EntityID:   bookingID,
		Result:     result,
		Reason:     reason,
	})
	if auditErr != nil {
		s.log.Warn("failed to write audit log", zap.Error(auditErr))
	}
}

// Register creates a PENDING booking with its vaccine orders.
func (s *Service) Register(ctx context.Context, actor model.Actor, req *model.RegisterBookingRequest) (*model.BookingDetail, error) {
	s.log.Info("BookingService.Register called",
		zap.String(logger.RequestIDField, logger.RequestIDFromContext(ctx)),
		zap.String("child_id", req.ChildID.String()),
	)

	if !actor.HasRole(model.RoleFrontDesk, model.RoleAdmin, model.RoleSystem) {
		return nil, apperrors.NewGuardViolation(GuardRole, fmt.Sprintf("role %q may not register bookings", actor.Role))
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	today := model.DateOf(s.now().In(s.loc))
	if req.AppointmentDate.Before(today) {
		return nil, apperrors.NewValidation("appointment_date must not be in the past", nil)
	}

	type doseKey struct {
		vaccine uuid.UUID
		dose    int
	}
	seen := make(map[doseKey]bool, len(req.Orders))

	now := s.now()
	booking := &model.Booking{
		ID:              uuid.New(),
		ChildID:         req.ChildID,
		AppointmentDate: req.AppointmentDate,
		Status:          model.BookingStatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	orders := make([]*model.VaccineOrder, 0, len(req.Orders))
	for _, in := range req.Orders {
		k := doseKey{in.VaccineID, in.DoseNumber}
		if seen[k] {
			return nil, apperrors.NewValidation(
				fmt.Sprintf("vaccine %s dose %d is ordered more than once", in.VaccineID, in.DoseNumber), nil)
		}
		seen[k] = true
		orders = append(orders, &model.VaccineOrder{
			ID:         uuid.New(),
			BookingID:  booking.ID,
			VaccineID:  in.VaccineID,
			DoseNumber: in.DoseNumber,
		})
	}

	event, err := model.NewOutboxEvent(model.EventBookingRegistered, booking.ID, booking, now)
	if err != nil {
		return nil, apperrors.NewInternal(err)
	}
	if err := s.repo.Create(ctx, booking, orders, event); err != nil {
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}

	return &model.BookingDetail{Booking: *booking, Orders: orders}, nil
}

// Get returns the booking with its orders and satellite records.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.BookingDetail, error) {
	b, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, s.mapRepoError(id, err)
	}
	detail := &model.BookingDetail{Booking: *b}

	if detail.Orders, err = s.repo.ListOrders(ctx, id); err != nil {
		return nil, fmt.Errorf("failed to list vaccine orders: %w", err)
	}
	if detail.Records, err = s.repo.ListVaccinationRecords(ctx, id); err != nil {
		return nil, fmt.Errorf("failed to list vaccination records: %w", err)
	}

	diag, err := s.repo.GetDiagnosis(ctx, id)
	switch {
	case err == nil:
		detail.Diagnosis = diag
	case !errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("failed to get diagnosis: %w", err)
	}

	reaction, err := s.repo.GetReaction(ctx, id)
	switch {
	case err == nil:
		detail.Reaction = reaction
	case !errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("failed to get reaction: %w", err)
	}

	return detail, nil
}

func (s *Service) List(ctx context.Context, filters *model.BookingFilters) ([]*model.Booking, error) {
	if filters == nil {
		filters = &model.BookingFilters{}
	}
	filters.Pagination = filters.Pagination.Normalize()
	bookings, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return bookings, nil
}

// Count reports how many bookings match filters across all pages.
func (s *Service) Count(ctx context.Context, filters *model.BookingFilters) (int, error) {
	n, err := s.repo.Count(ctx, filters)
	if err != nil {
		return 0, fmt.Errorf("failed to count bookings: %w", err)
	}
	return n, nil
}
