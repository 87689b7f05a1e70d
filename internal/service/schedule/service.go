package schedule

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/jwalitptl/vaccine-clinic-api/internal/model"
	"github.com/jwalitptl/vaccine-clinic-api/internal/repository"
	"github.com/jwalitptl/vaccine-clinic-api/internal/service/audit"
	"github.com/jwalitptl/vaccine-clinic-api/internal/service/event"
	"github.com/jwalitptl/vaccine-clinic-api/internal/service/staff"
	apperrors "github.com/jwalitptl/vaccine-clinic-api/pkg/errors"
	"github.com/jwalitptl/vaccine-clinic-api/pkg/logger"
	"github.com/jwalitptl/vaccine-clinic-api/pkg/metrics"
	"github.com/jwalitptl/vaccine-clinic-api/pkg/validator"
)

// scheduleNamespace seeds the name-based ids of schedules submitted without one.
var scheduleNamespace = uuid.MustParse("5d0c7a9e-2f4b-4c1e-9b8a-6e3f1d2c4b5a")

// Service is the shift scheduler.
type Service struct {
	repo      repository.ScheduleRepository
	staff     *staff.Directory
	events    *event.EventService
	audit     *audit.Service
	validator *validator.Validator
	metrics   *metrics.Metrics
	log       *zap.Logger
	workers   int
	now       func() time.Time
	loc       *time.Location
}

func NewService(
	repo repository.ScheduleRepository,
	staffDir *staff.Directory,
	events *event.EventService,
	auditSvc *audit.Service,
	v *validator.Validator,
	m *metrics.Metrics,
	log *zap.Logger,
	workers int,
) *Service {
	if workers <= 0 {
		workers = 1
	}
	return &Service{
		repo:      repo,
		staff:     staffDir,
		events:    events,
		audit:     auditSvc,
		validator: v,
		metrics:   m,
		log:       log,
		workers:   workers,
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

type ScheduleCreatedEvent struct {
	ScheduleID  uuid.UUID                       `json:"schedule_id"`
	Name        string                          `json:"name"`
	ShiftType   model.ShiftType                 `json:"shift_type"`
	StartDate   model.Date                      `json:"start_date"`
	EndDate     model.Date                      `json:"end_date"`
	WorkDates   int                             `json:"work_dates"`
	Assignments map[model.AssignmentOutcome]int `json:"assignments"`
}

type StaffAddedEvent struct {
	WorkDateIDs []uuid.UUID                     `json:"work_date_ids"`
	StaffIDs    []uuid.UUID                     `json:"staff_ids"`
	Assignments map[model.AssignmentOutcome]int `json:"assignments"`
}

// CreateSchedule materializes the definition into a schedule, its work dates
// and the staff roster. Assignment is not all-or-nothing: the per-pair
// outcomes are returned even when err reports a cancelled context.
func (s *Service) CreateSchedule(ctx context.Context, actor model.Actor, def *model.ScheduleDefinition) (*model.ScheduleResult, error) {
	requestID := logger.RequestIDFromContext(ctx)
	s.log.Info("ScheduleService.CreateSchedule called",
		zap.String(logger.RequestIDField, requestID),
		zap.String("name", def.Name),
		zap.Stringer("start_date", def.StartDate),
		zap.Stringer("end_date", def.EndDate),
	)

	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := s.validateDefinition(def); err != nil {
		return nil, err
	}

	weekdays := normalizeWeekdays(def.RepeatPattern, def.Weekdays)
	staffIDs := dedupe(def.StaffIDs)

	id := identity(def, weekdays)
	if def.ScheduleID != nil && *def.ScheduleID != uuid.Nil {
		id = *def.ScheduleID
	}

	candidate := &model.Schedule{
		ID:            id,
		Name:          strings.TrimSpace(def.Name),
		ShiftType:     def.ShiftType,
		StartDate:     def.StartDate,
		EndDate:       def.EndDate,
		RepeatPattern: def.RepeatPattern,
		Weekdays:      toInt64Array(weekdays),
		CreatedBy:     actor.StaffID,
		CreatedAt:     s.now(),
	}
	sched, created, err := s.repo.Upsert(ctx, candidate)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert schedule: %w", err)
	}
	if !created && !sameDefinition(sched, candidate) {
		return nil, apperrors.NewValidation(
			fmt.Sprintf("schedule %s already exists with a different definition", id), nil)
	}

	dates := Expand(sched.StartDate, sched.EndDate, sched.RepeatPattern, sched.WeekdaySet())
	workDates := make([]*model.WorkDate, 0, len(dates))
	for _, d := range dates {
		wd, wdCreated, err := s.repo.UpsertWorkDate(ctx, &model.WorkDate{
			ID:         uuid.New(),
			ScheduleID: sched.ID,
			Date:       d,
			ShiftType:  sched.ShiftType,
			CreatedAt:  s.now(),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to upsert work date %s: %w", d, err)
		}
		if wdCreated && s.metrics != nil {
			s.metrics.WorkDatesExpanded.Inc()
		}
		workDates = append(workDates, wd)
	}

	results, assignErr := s.assign(ctx, workDates, staffIDs)
	counts := countOutcomes(results)

	if created {
		s.emit(ctx, model.EventScheduleCreated, sched.ID, ScheduleCreatedEvent{
			ScheduleID:  sched.ID,
			Name:        sched.Name,
			ShiftType:   sched.ShiftType,
			StartDate:   sched.StartDate,
			EndDate:     sched.EndDate,
			WorkDates:   len(workDates),
			Assignments: counts,
		})
	}
	s.record(ctx, actor, "create_schedule", model.AuditEntitySchedule, sched.ID, assignErr, counts)

	s.log.Info("ScheduleService.CreateSchedule finished",
		zap.String(logger.RequestIDField, requestID),
		zap.String("schedule_id", sched.ID.String()),
		zap.Bool("created", created),
		zap.Int("work_dates", len(workDates)),
		zap.Int("created_assignments", counts[model.OutcomeCreated]),
		zap.Int("failed_assignments", counts[model.OutcomeFailed]),
	)

	return &model.ScheduleResult{
		Schedule:    sched,
		WorkDates:   workDates,
		Assignments: results,
	}, assignErr
}

// AddStaff attaches staff to existing work dates with the same idempotent
// cross-product semantics as CreateSchedule.
func (s *Service) AddStaff(ctx context.Context, actor model.Actor, req *model.AddStaffRequest) ([]model.AssignmentResult, error) {
	s.log.Info("ScheduleService.AddStaff called",
		zap.String(logger.RequestIDField, logger.RequestIDFromContext(ctx)),
		zap.Int("work_dates", len(req.WorkDateIDs)),
		zap.Int("staff", len(req.StaffIDs)),
	)

	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	ids := dedupe(req.WorkDateIDs)
	workDates := make([]*model.WorkDate, 0, len(ids))
	for _, id := range ids {
		wd, err := s.repo.GetWorkDate(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, apperrors.NewNotFound(fmt.Sprintf("work date %s", id), err)
			}
			return nil, fmt.Errorf("failed to get work date: %w", err)
		}
		workDates = append(workDates, wd)
	}

	staffIDs := dedupe(req.StaffIDs)
	results, assignErr := s.assign(ctx, workDates, staffIDs)
	counts := countOutcomes(results)

	if counts[model.OutcomeCreated] > 0 {
		s.emit(ctx, model.EventScheduleStaffAdded, workDates[0].ScheduleID, StaffAddedEvent{
			WorkDateIDs: ids,
			StaffIDs:    staffIDs,
			Assignments: counts,
		})
	}
	for _, wd := range workDates {
		s.record(ctx, actor, "add_staff", model.AuditEntityWorkDate, wd.ID, assignErr, counts)
	}
	return results, assignErr
}

func (s *Service) GetSchedule(ctx context.Context, id uuid.UUID) (*model.Schedule, error) {
	sched, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound(fmt.Sprintf("schedule %s", id), err)
		}
		return nil, fmt.Errorf("failed to get schedule: %w", err)
	}
	return sched, nil
}

func (s *Service) ListWorkDates(ctx context.Context, scheduleID uuid.UUID) ([]*model.WorkDate, error) {
	if _, err := s.GetSchedule(ctx, scheduleID); err != nil {
		return nil, err
	}
	return s.repo.ListWorkDates(ctx, scheduleID)
}

func (s *Service) ListAssignments(ctx context.Context, workDateID uuid.UUID) ([]*model.StaffAssignment, error) {
	if _, err := s.repo.GetWorkDate(ctx, workDateID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound(fmt.Sprintf("work date %s", workDateID), err)
		}
		return nil, fmt.Errorf("failed to get work date: %w", err)
	}
	return s.repo.ListAssignments(ctx, workDateID)
}

// SetAssignmentStatus toggles an existing assignment between ACTIVE and INACTIVE.
func (s *Service) SetAssignmentStatus(ctx context.Context, actor model.Actor, workDateID, staffID uuid.UUID, status model.AssignmentStatus) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if !status.IsValid() {
		return apperrors.NewValidation(fmt.Sprintf("status must be ACTIVE or INACTIVE, got %q", status), nil)
	}

	err := s.repo.SetAssignmentStatus(ctx, workDateID, staffID, status)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NewNotFound(fmt.Sprintf("assignment of staff %s to work date %s", staffID, workDateID), err)
		}
		return fmt.Errorf("failed to set assignment status: %w", err)
	}
	s.record(ctx, actor, "set_assignment_status", model.AuditEntityWorkDate, workDateID, nil,
		map[string]string{"staff_id": staffID.String(), "status": string(status)})
	return nil
}

func requireAdmin(actor model.Actor) error {
	if !actor.HasRole(model.RoleAdmin) {
		return apperrors.NewGuardViolation("role", fmt.Sprintf("role %q may not manage schedules", actor.Role))
	}
	return nil
}

func (s *Service) validateDefinition(def *model.ScheduleDefinition) error {
	if err := s.validator.Validate(def); err != nil {
		return err
	}
	if strings.TrimSpace(def.Name) == "" {
		return apperrors.NewValidation("name is required", nil)
	}
	if def.EndDate.Before(def.StartDate) {
		return apperrors.NewDateRange("end_date must not be before start_date")
	}
	if def.EndDate.After(def.StartDate.AddYears(1)) {
		return apperrors.NewDateRange("a schedule may span at most one year")
	}
	today := model.DateOf(s.now().In(s.loc))
	if def.StartDate.Before(today) {
		return apperrors.NewValidation("start_date must not be in the past", nil)
	}
	if def.RepeatPattern && len(def.Weekdays) == 0 {
		return apperrors.NewValidation("weekdays are required when repeat_pattern is set", nil)
	}
	return nil
}

// identity derives a stable id from the calendar-relevant fields, so resubmitting
// a definition addresses the same schedule.
func identity(def *model.ScheduleDefinition, weekdays []time.Weekday) uuid.UUID {
	var b strings.Builder
	fmt.Fprintf(&b, "%s|%s|%s|%s|%t|", strings.TrimSpace(def.Name), def.ShiftType, def.StartDate, def.EndDate, def.RepeatPattern)
	for _, d := range weekdays {
		fmt.Fprintf(&b, "%d,", d)
	}
	return uuid.NewSHA1(scheduleNamespace, []byte(b.String()))
}

func sameDefinition(a, b *model.Schedule) bool {
	return a.Name == b.Name &&
		a.ShiftType == b.ShiftType &&
		a.StartDate.Equal(b.StartDate) &&
		a.EndDate.Equal(b.EndDate) &&
		a.RepeatPattern == b.RepeatPattern &&
		slices.Equal(a.Weekdays, b.Weekdays)
}

// normalizeWeekdays sorts and dedupes; weekdays are meaningless without repeat.
func normalizeWeekdays(repeat bool, days []time.Weekday) []time.Weekday {
	if !repeat {
		return nil
	}
	out := slices.Clone(days)
	slices.Sort(out)
	return slices.Compact(out)
}

func toInt64Array(days []time.Weekday) pq.Int64Array {
	out := make(pq.Int64Array, 0, len(days))
	for _, d := range days {
		out = append(out, int64(d))
	}
	return out
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func countOutcomes(results []model.AssignmentResult) map[model.AssignmentOutcome]int {
	counts := map[model.AssignmentOutcome]int{}
	for _, r := range results {
		counts[r.Outcome]++
	}
	return counts
}

func (s *Service) emit(ctx context.Context, eventType string, aggregateID uuid.UUID, payload interface{}) {
	if s.events == nil {
		return
	}
	// emitted even when the caller has gone away
	if err := s.events.Emit(context.WithoutCancel(ctx), eventType, aggregateID, payload); err != nil {
		s.log.Warn("failed to emit event", zap.String("event_type", eventType), zap.Error(err))
	}
}

func (s *Service) record(ctx context.Context, actor model.Actor, action, entityType string, entityID uuid.UUID, err error, metadata interface{}) {
	if s.audit == nil {
		return
	}
	result, reason := model.AuditResultAccepted, ""
	if err != nil {
		result, reason = model.AuditResultRejected, err.Error()
	}
	auditErr := s.audit.Log(context.WithoutCancel(ctx), audit.Entry{
		Actor:      actor,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Result:     result,
		Reason:     reason,
		Metadata:   metadata,
	})
	if auditErr != nil {
		s.log.Warn("failed to write audit log", zap.Error(auditErr))
	}
}
