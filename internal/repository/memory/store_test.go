package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/vaccine-clinic-api/internal/model"
	"github.com/jwalitptl/vaccine-clinic-api/internal/repository"
)

func newBooking(t *testing.T, store *Store) *model.Booking {
	t.Helper()
	b := &model.Booking{
		ID:              uuid.New(),
		ChildID:         uuid.New(),
		AppointmentDate: model.NewDate(2024, 1, 10),
		Status:          model.BookingStatusPending,
	}
	orders := []*model.VaccineOrder{{ID: uuid.New(), BookingID: b.ID, VaccineID: uuid.New(), DoseNumber: 1}}
	require.NoError(t, store.Bookings().Create(context.Background(), b, orders, nil))
	return b
}

func TestApplyTransition_CompareAndSwap(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	repo := store.Bookings()
	b := newBooking(t, store)

	next := *b
	next.Status = model.BookingStatusPaid
	event, err := model.NewOutboxEvent("booking.pay", b.ID, map[string]string{"to": "PAID"}, time.Now())
	require.NoError(t, err)
	require.NoError(t, repo.ApplyTransition(ctx, &next, model.BookingStatusPending, model.TransitionEffects{Event: event}))

	// a second writer that read PENDING loses
	stale := *b
	stale.Status = model.BookingStatusCancelled
	err = repo.ApplyTransition(ctx, &stale, model.BookingStatusPending, model.TransitionEffects{Event: event})
	assert.ErrorIs(t, err, repository.ErrStatusMismatch)

	got, err := repo.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusPaid, got.Status)

	pending, err := store.Outbox().CountPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), pending)
}

func TestApplyTransition_DuplicateEffectWritesNothing(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	repo := store.Bookings()
	b := newBooking(t, store)
	b.Status = model.BookingStatusDiagnosed

	store.diagnoses[b.ID] = &model.Diagnosis{BookingID: b.ID}
	store.bookings[b.ID].Status = model.BookingStatusAssigned

	next := *b
	err := repo.ApplyTransition(ctx, &next, model.BookingStatusAssigned, model.TransitionEffects{
		Diagnosis: &model.Diagnosis{BookingID: b.ID},
	})
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	got, err := repo.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusAssigned, got.Status)
}

func TestApplyTransition_NotFound(t *testing.T) {
	store := NewStore()
	err := store.Bookings().ApplyTransition(context.Background(), &model.Booking{ID: uuid.New()}, model.BookingStatusPending, model.TransitionEffects{})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestGetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	b := newBooking(t, store)

	got, err := store.Bookings().Get(ctx, b.ID)
	require.NoError(t, err)
	got.Status = model.BookingStatusCancelled

	again, err := store.Bookings().Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusPending, again.Status)
}

func TestOutbox_ClaimLeaseAndRetry(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	outbox := store.Outbox()

	for i := 0; i < 3; i++ {
		e, err := model.NewOutboxEvent("schedule.created", uuid.New(), nil, now)
		require.NoError(t, err)
		require.NoError(t, outbox.Create(ctx, e))
	}

	first, err := outbox.ClaimPending(ctx, 2, time.Minute)
	require.NoError(t, err)
	require.Len(t, first, 2)

	// leased events are not handed out again
	second, err := outbox.ClaimPending(ctx, 10, time.Minute)
	require.NoError(t, err)
	require.Len(t, second, 1)

	require.NoError(t, outbox.MarkProcessed(ctx, first[0].ID))
	require.NoError(t, outbox.MarkRetry(ctx, first[1].ID, "redis down", now.Add(time.Hour)))
	require.NoError(t, outbox.MarkFailed(ctx, second[0].ID, "bad payload"))

	none, err := outbox.ClaimPending(ctx, 10, time.Minute)
	require.NoError(t, err)
	assert.Empty(t, none)

	now = now.Add(2 * time.Hour)
	retried, err := outbox.ClaimPending(ctx, 10, time.Minute)
	require.NoError(t, err)
	require.Len(t, retried, 1)
	assert.Equal(t, first[1].ID, retried[0].ID)
	assert.Equal(t, 1, retried[0].RetryCount)

	deleted, err := outbox.DeleteProcessedBefore(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}

func TestOutbox_ExpiredLeaseIsReclaimed(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	e, err := model.NewOutboxEvent("booking.pay", uuid.New(), nil, now)
	require.NoError(t, err)
	require.NoError(t, store.Outbox().Create(ctx, e))

	claimed, err := store.Outbox().ClaimPending(ctx, 1, time.Minute)
	require.NoError(t, err)
	require.Len(t, claimed, 1)

	now = now.Add(2 * time.Minute)
	reclaimed, err := store.Outbox().ClaimPending(ctx, 1, time.Minute)
	require.NoError(t, err)
	assert.Len(t, reclaimed, 1)
}

func TestSchedule_UpsertsAreIdempotent(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	repo := store.Schedules()

	sc := &model.Schedule{ID: uuid.New(), Name: "Mornings", ShiftType: model.ShiftMorning}
	_, created, err := repo.Upsert(ctx, sc)
	require.NoError(t, err)
	assert.True(t, created)
	stored, created, err := repo.Upsert(ctx, &model.Schedule{ID: sc.ID, Name: "Other"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "Mornings", stored.Name)

	wd := &model.WorkDate{ID: uuid.New(), ScheduleID: sc.ID, Date: model.NewDate(2024, 1, 1), ShiftType: model.ShiftMorning}
	first, created, err := repo.UpsertWorkDate(ctx, wd)
	require.NoError(t, err)
	assert.True(t, created)
	second, created, err := repo.UpsertWorkDate(ctx, &model.WorkDate{ID: uuid.New(), ScheduleID: sc.ID, Date: wd.Date})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	staffID := uuid.New()
	created, err = repo.AssignStaff(ctx, &model.StaffAssignment{WorkDateID: first.ID, StaffID: staffID, Status: model.AssignmentActive})
	require.NoError(t, err)
	assert.True(t, created)
	created, err = repo.AssignStaff(ctx, &model.StaffAssignment{WorkDateID: first.ID, StaffID: staffID, Status: model.AssignmentActive})
	require.NoError(t, err)
	assert.False(t, created)

	require.NoError(t, repo.SetAssignmentStatus(ctx, first.ID, staffID, model.AssignmentInactive))
	assignments, err := repo.ListAssignments(ctx, first.ID)
	require.NoError(t, err)
	require.Len(t, assignments, 1)
	assert.Equal(t, model.AssignmentInactive, assignments[0].Status)

	err = repo.SetAssignmentStatus(ctx, first.ID, uuid.New(), model.AssignmentInactive)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
