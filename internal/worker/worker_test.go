package worker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/vaccine-clinic-api/internal/model"
	"github.com/jwalitptl/vaccine-clinic-api/internal/repository/memory"
	"github.com/jwalitptl/vaccine-clinic-api/internal/service/audit"
	"github.com/jwalitptl/vaccine-clinic-api/internal/service/booking"
	"github.com/jwalitptl/vaccine-clinic-api/pkg/logger"
)

type sentMail struct {
	to      []string
	subject string
	body    string
}

type fakeSender struct {
	sent []sentMail
	err  error
}

func (f *fakeSender) SendCustom(ctx context.Context, to []string, subject, content string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{to: to, subject: subject, body: content})
	return nil
}

func reactionEvent(t *testing.T, description string) *model.OutboxEvent {
	t.Helper()
	bookingID := uuid.New()
	ev, err := model.NewOutboxEvent(model.EventReactionRecorded, bookingID, booking.TransitionEvent{
		BookingID:   bookingID,
		Action:      booking.ActionRecordReaction,
		From:        model.BookingStatusCompleted,
		To:          model.BookingStatusCompleted,
		ActorID:     uuid.New(),
		ActorRole:   model.RoleNurse,
		Description: description,
		OccurredAt:  time.Date(2030, 3, 4, 10, 30, 0, 0, time.UTC),
	}, time.Now())
	require.NoError(t, err)
	return ev
}

func TestReactionAlerter_SendsMail(t *testing.T) {
	sender := &fakeSender{}
	a := NewReactionAlerter(sender, []string{"oncall@clinic.example"})
	ev := reactionEvent(t, "fever 39C two hours after dose")

	require.NoError(t, a.Handle(context.Background(), ev))
	require.Len(t, sender.sent, 1)
	mail := sender.sent[0]
	assert.Equal(t, []string{"oncall@clinic.example"}, mail.to)
	assert.Contains(t, mail.subject, ev.AggregateID.String())
	assert.Contains(t, mail.body, "fever 39C two hours after dose")
	assert.Contains(t, mail.body, "nurse")
	assert.Contains(t, mail.body, "2030-03-04 10:30 UTC")
}

func TestReactionAlerter_NoRecipients(t *testing.T) {
	sender := &fakeSender{}
	a := NewReactionAlerter(sender, nil)
	require.NoError(t, a.Handle(context.Background(), reactionEvent(t, "rash")))
	assert.Empty(t, sender.sent)
}

func TestReactionAlerter_Errors(t *testing.T) {
	a := NewReactionAlerter(&fakeSender{err: errors.New("smtp down")}, []string{"x@clinic.example"})
	assert.ErrorContains(t, a.Handle(context.Background(), reactionEvent(t, "rash")), "smtp down")

	bad := &model.OutboxEvent{ID: uuid.New(), Payload: json.RawMessage(`{"booking_id":`)}
	assert.Error(t, NewReactionAlerter(&fakeSender{}, []string{"x@clinic.example"}).Handle(context.Background(), bad))
}

func TestRetentionWorker_RunOnce(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	now := time.Now()

	old := &model.AuditLog{ID: uuid.New(), Action: "pay", CreatedAt: now.AddDate(0, 0, -100)}
	recent := &model.AuditLog{ID: uuid.New(), Action: "pay", CreatedAt: now.Add(-time.Hour)}
	require.NoError(t, store.Audit().Create(ctx, old))
	require.NoError(t, store.Audit().Create(ctx, recent))

	delivered, err := model.NewOutboxEvent(model.EventScheduleCreated, uuid.New(), struct{}{}, now)
	require.NoError(t, err)
	waiting, err := model.NewOutboxEvent(model.EventScheduleCreated, uuid.New(), struct{}{}, now)
	require.NoError(t, err)
	require.NoError(t, store.Outbox().Create(ctx, delivered))
	require.NoError(t, store.Outbox().Create(ctx, waiting))
	require.NoError(t, store.Outbox().MarkProcessed(ctx, delivered.ID))

	log := logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard})
	w := NewRetentionWorker(audit.NewService(store.Audit()), store.Outbox(), RetentionConfig{
		AuditRetention:  90 * 24 * time.Hour,
		OutboxRetention: 24 * time.Hour,
		Interval:        time.Hour,
	}, log)
	w.now = func() time.Time { return now.Add(48 * time.Hour) }

	auditRows, outboxRows, err := w.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), auditRows)
	assert.Equal(t, int64(1), outboxRows)

	logs, err := store.Audit().List(ctx, &model.AuditFilters{})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, recent.ID, logs[0].ID)

	pending, err := store.Outbox().CountPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), pending)
}

func TestRetentionWorker_ZeroRetentionSkips(t *testing.T) {
	store := memory.NewStore()
	require.NoError(t, store.Audit().Create(context.Background(),
		&model.AuditLog{ID: uuid.New(), CreatedAt: time.Now().AddDate(-5, 0, 0)}))

	log := logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard})
	w := NewRetentionWorker(audit.NewService(store.Audit()), store.Outbox(), RetentionConfig{Interval: time.Hour}, log)

	auditRows, outboxRows, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, auditRows)
	assert.Zero(t, outboxRows)
}
