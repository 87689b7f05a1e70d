package schedule

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jwalitptl/vaccine-clinic-api/internal/model"
	"github.com/jwalitptl/vaccine-clinic-api/internal/repository"
)

// assign upserts every (work date, staff) pair on a bounded pool and joins
// them before returning. Results are in work date major order.
//
// Once ctx is done no further pairs are dispatched; they are reported FAILED
// and the context error is returned alongside the partial results. Pairs
// already dispatched finish on a context detached from cancellation.
func (s *Service) assign(ctx context.Context, workDates []*model.WorkDate, staffIDs []uuid.UUID) ([]model.AssignmentResult, error) {
	results := make([]model.AssignmentResult, 0, len(workDates)*len(staffIDs))
	if len(workDates) == 0 || len(staffIDs) == 0 {
		return results, nil
	}
	results = results[:len(workDates)*len(staffIDs)]

	staffErrs := s.resolveStaff(ctx, staffIDs)
	detached := context.WithoutCancel(ctx)

	var g errgroup.Group
	g.SetLimit(s.workers)

	var cancelErr error
	i := 0
	for _, wd := range workDates {
		for _, staffID := range staffIDs {
			idx := i
			i++
			results[idx] = model.AssignmentResult{WorkDateID: wd.ID, StaffID: staffID}

			if err := ctx.Err(); err != nil {
				cancelErr = err
				results[idx].Outcome = model.OutcomeFailed
				results[idx].Error = err.Error()
				continue
			}
			if err := staffErrs[staffID]; err != nil {
				results[idx].Outcome = model.OutcomeFailed
				results[idx].Error = err.Error()
				continue
			}

			workDateID := wd.ID
			g.Go(func() error {
				results[idx] = s.assignOne(detached, workDateID, staffID)
				return nil
			})
		}
	}
	// workers never return errors; failures are per pair
	_ = g.Wait()

	if s.metrics != nil {
		for _, r := range results {
			s.metrics.AssignmentOutcomes.WithLabelValues(string(r.Outcome)).Inc()
		}
	}
	return results, cancelErr
}

func (s *Service) assignOne(ctx context.Context, workDateID, staffID uuid.UUID) model.AssignmentResult {
	res := model.AssignmentResult{WorkDateID: workDateID, StaffID: staffID}
	now := s.now()

	created, err := s.repo.AssignStaff(ctx, &model.StaffAssignment{
		WorkDateID: workDateID,
		StaffID:    staffID,
		Status:     model.AssignmentActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	switch {
	case errors.Is(err, repository.ErrNotFound):
		res.Outcome = model.OutcomeFailed
		res.Error = fmt.Sprintf("work date %s not found", workDateID)
	case err != nil:
		res.Outcome = model.OutcomeFailed
		res.Error = err.Error()
	case created:
		res.Outcome = model.OutcomeCreated
	default:
		res.Outcome = model.OutcomeAlreadyExists
	}
	return res
}

// resolveStaff looks every staff member up once; unknown or inactive staff
// fail all of their pairs.
func (s *Service) resolveStaff(ctx context.Context, staffIDs []uuid.UUID) map[uuid.UUID]error {
	errs := make(map[uuid.UUID]error, len(staffIDs))
	for _, id := range staffIDs {
		if _, err := s.staff.GetActive(ctx, id); err != nil {
			errs[id] = err
		}
	}
	return errs
}
