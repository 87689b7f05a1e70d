package audit

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/vaccine-clinic-api/internal/model"
	"github.com/jwalitptl/vaccine-clinic-api/internal/repository/memory"
	"github.com/jwalitptl/vaccine-clinic-api/pkg/logger"
)

func TestLogAndList(t *testing.T) {
	store := memory.NewStore()
	svc := NewService(store.Audit())
	ctx := logger.ContextWithRequestID(context.Background(), "req-1")

	actor := model.Actor{StaffID: uuid.New(), Role: model.RoleNurse}
	booking := uuid.New()

	require.NoError(t, svc.Log(ctx, Entry{
		Actor:      actor,
		Action:     "administer",
		EntityType: model.AuditEntityBooking,
		EntityID:   booking,
		Result:     model.AuditResultRejected,
		Reason:     "vaccine_eligibility",
		Metadata:   map[string]string{"from": "DIAGNOSED"},
	}))
	require.NoError(t, svc.Log(ctx, Entry{
		Actor:      model.Actor{StaffID: uuid.New(), Role: model.RoleAdmin},
		Action:     "create",
		EntityType: model.AuditEntitySchedule,
		EntityID:   uuid.New(),
		Result:     model.AuditResultAccepted,
	}))

	logs, err := svc.List(ctx, &model.AuditFilters{EntityType: model.AuditEntityBooking, EntityID: booking})
	require.NoError(t, err)
	require.Len(t, logs, 1)

	l := logs[0]
	assert.Equal(t, actor.StaffID, l.ActorID)
	assert.Equal(t, model.RoleNurse, l.ActorRole)
	assert.Equal(t, "req-1", l.RequestID)
	assert.Equal(t, "vaccine_eligibility", l.Reason)

	var meta map[string]string
	require.NoError(t, json.Unmarshal(l.Metadata, &meta))
	assert.Equal(t, "DIAGNOSED", meta["from"])

	all, err := svc.List(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestCleanup(t *testing.T) {
	store := memory.NewStore()
	svc := NewService(store.Audit())
	ctx := context.Background()

	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now.AddDate(0, 0, -100) }
	require.NoError(t, svc.Log(ctx, Entry{Action: "old", Result: model.AuditResultAccepted}))
	svc.now = func() time.Time { return now.AddDate(0, 0, -1) }
	require.NoError(t, svc.Log(ctx, Entry{Action: "recent", Result: model.AuditResultAccepted}))

	svc.now = func() time.Time { return now }
	deleted, err := svc.Cleanup(ctx, 90*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	logs, err := svc.List(ctx, nil)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "recent", logs[0].Action)
}
