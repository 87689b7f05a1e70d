package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/jwalitptl/vaccine-clinic-api/internal/model"
	"github.com/jwalitptl/vaccine-clinic-api/internal/repository"
)

type scheduleRepository struct {
	s *Store
}

func copySchedule(sc *model.Schedule) *model.Schedule {
	cp := *sc
	cp.Weekdays = append(cp.Weekdays[:0:0], sc.Weekdays...)
	return &cp
}

func (r *scheduleRepository) Upsert(ctx context.Context, schedule *model.Schedule) (*model.Schedule, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if existing, ok := r.s.schedules[schedule.ID]; ok {
		return copySchedule(existing), false, nil
	}
	r.s.schedules[schedule.ID] = copySchedule(schedule)
	return copySchedule(schedule), true, nil
}

func (r *scheduleRepository) Get(ctx context.Context, id uuid.UUID) (*model.Schedule, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	sc, ok := r.s.schedules[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copySchedule(sc), nil
}

func (r *scheduleRepository) UpsertWorkDate(ctx context.Context, wd *model.WorkDate) (*model.WorkDate, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := workDateKey{scheduleID: wd.ScheduleID, date: wd.Date.String()}
	if id, ok := r.s.workDatesByKey[key]; ok {
		cp := *r.s.workDates[id]
		return &cp, false, nil
	}
	cp := *wd
	r.s.workDates[wd.ID] = &cp
	r.s.workDatesByKey[key] = wd.ID
	out := cp
	return &out, true, nil
}

func (r *scheduleRepository) GetWorkDate(ctx context.Context, id uuid.UUID) (*model.WorkDate, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	wd, ok := r.s.workDates[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *wd
	return &cp, nil
}

func (r *scheduleRepository) ListWorkDates(ctx context.Context, scheduleID uuid.UUID) ([]*model.WorkDate, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []*model.WorkDate{}
	for _, wd := range r.s.workDates {
		if wd.ScheduleID == scheduleID {
			cp := *wd
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out, nil
}

func (r *scheduleRepository) AssignStaff(ctx context.Context, a *model.StaffAssignment) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.workDates[a.WorkDateID]; !ok {
		return false, repository.ErrNotFound
	}
	key := assignmentKey{workDateID: a.WorkDateID, staffID: a.StaffID}
	if _, ok := r.s.assignments[key]; ok {
		return false, nil
	}
	cp := *a
	r.s.assignments[key] = &cp
	r.s.assignmentOrder = append(r.s.assignmentOrder, key)
	return true, nil
}

func (r *scheduleRepository) ListAssignments(ctx context.Context, workDateID uuid.UUID) ([]*model.StaffAssignment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []*model.StaffAssignment{}
	for _, key := range r.s.assignmentOrder {
		if key.workDateID != workDateID {
			continue
		}
		cp := *r.s.assignments[key]
		out = append(out, &cp)
	}
	return out, nil
}

func (r *scheduleRepository) SetAssignmentStatus(ctx context.Context, workDateID, staffID uuid.UUID, status model.AssignmentStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.assignments[assignmentKey{workDateID: workDateID, staffID: staffID}]
	if !ok {
		return repository.ErrNotFound
	}
	a.Status = status
	a.UpdatedAt = r.s.now()
	return nil
}
