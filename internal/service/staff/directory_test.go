package staff

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/vaccine-clinic-api/internal/model"
	"github.com/jwalitptl/vaccine-clinic-api/internal/repository"
	"github.com/jwalitptl/vaccine-clinic-api/internal/repository/memory"
	apperrors "github.com/jwalitptl/vaccine-clinic-api/pkg/errors"
)

// countingRepo counts lookups that reach the repository.
type countingRepo struct {
	repository.StaffRepository
	gets int
}

func (r *countingRepo) Get(ctx context.Context, id uuid.UUID) (*model.Staff, error) {
	r.gets++
	return r.StaffRepository.Get(ctx, id)
}

func TestDirectory_RegisterAndGet(t *testing.T) {
	ctx := context.Background()
	repo := &countingRepo{StaffRepository: memory.NewStore().Staff()}
	dir := NewDirectory(repo, time.Minute, time.Minute)

	st := &model.Staff{Name: "Dr. Kim", Role: model.RoleDoctor, Active: true}
	require.NoError(t, dir.Register(ctx, st))
	assert.NotEqual(t, uuid.Nil, st.ID)

	for i := 0; i < 3; i++ {
		got, err := dir.Get(ctx, st.ID)
		require.NoError(t, err)
		assert.Equal(t, "Dr. Kim", got.Name)
	}
	assert.Equal(t, 1, repo.gets)

	dir.Invalidate(st.ID)
	_, err := dir.Get(ctx, st.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.gets)
}

func TestDirectory_Errors(t *testing.T) {
	ctx := context.Background()
	dir := NewDirectory(memory.NewStore().Staff(), time.Minute, time.Minute)

	_, err := dir.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, apperrors.NotFoundError)

	err = dir.Register(ctx, &model.Staff{Name: "X", Role: "janitor"})
	assert.ErrorIs(t, err, apperrors.ValidationError)

	st := &model.Staff{Name: "Y", Role: model.RoleNurse, Active: true}
	require.NoError(t, dir.Register(ctx, st))
	err = dir.Register(ctx, &model.Staff{ID: st.ID, Name: "Y again", Role: model.RoleNurse})
	assert.ErrorIs(t, err, apperrors.ValidationError)

	inactive := &model.Staff{Name: "Z", Role: model.RoleNurse, Active: false}
	require.NoError(t, dir.Register(ctx, inactive))
	_, err = dir.GetActive(ctx, inactive.ID)
	assert.ErrorIs(t, err, &apperrors.AppError{Code: apperrors.ErrGuardViolation, Guard: "staff_active"})

	all, err := dir.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestDirectory_SetActiveBypassesCache(t *testing.T) {
	ctx := context.Background()
	dir := NewDirectory(memory.NewStore().Staff(), time.Hour, time.Hour)

	st := &model.Staff{Name: "Nurse Ada", Role: model.RoleNurse, Active: true}
	require.NoError(t, dir.Register(ctx, st))
	_, err := dir.GetActive(ctx, st.ID)
	require.NoError(t, err)

	updated, err := dir.SetActive(ctx, st.ID, false)
	require.NoError(t, err)
	assert.False(t, updated.Active)

	_, err = dir.GetActive(ctx, st.ID)
	assert.ErrorIs(t, err, &apperrors.AppError{Code: apperrors.ErrGuardViolation, Guard: "staff_active"})

	_, err = dir.SetActive(ctx, st.ID, true)
	require.NoError(t, err)
	_, err = dir.GetActive(ctx, st.ID)
	assert.NoError(t, err)

	_, err = dir.SetActive(ctx, uuid.New(), false)
	assert.ErrorIs(t, err, apperrors.NotFoundError)
}

func TestDirectory_GetReturnsCopies(t *testing.T) {
	ctx := context.Background()
	dir := NewDirectory(memory.NewStore().Staff(), time.Hour, time.Hour)

	st := &model.Staff{Name: "Dr. Okafor", Role: model.RoleDoctor, Active: true}
	require.NoError(t, dir.Register(ctx, st))

	first, err := dir.Get(ctx, st.ID)
	require.NoError(t, err)
	first.Active = false
	first.Name = "changed"

	second, err := dir.Get(ctx, st.ID)
	require.NoError(t, err)
	assert.True(t, second.Active)
	assert.Equal(t, "Dr. Okafor", second.Name)
}
