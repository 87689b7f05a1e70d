package worker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/vaccine-clinic-api/internal/model"
	"github.com/jwalitptl/vaccine-clinic-api/internal/repository/memory"
	"github.com/jwalitptl/vaccine-clinic-api/pkg/logger"
	"github.com/jwalitptl/vaccine-clinic-api/pkg/messaging"
	"github.com/jwalitptl/vaccine-clinic-api/pkg/metrics"
)

type flakyBroker struct {
	messaging.Broker
	failures int
	calls    int
}

func (b *flakyBroker) Publish(ctx context.Context, channel string, message interface{}) error {
	b.calls++
	if b.calls <= b.failures {
		return errors.New("connection refused")
	}
	return b.Broker.Publish(ctx, channel, message)
}

func testConfig() OutboxProcessorConfig {
	return OutboxProcessorConfig{
		BatchSize:     10,
		PollInterval:  time.Millisecond,
		RetryAttempts: 3,
		RetryDelay:    time.Second,
		Lease:         time.Minute,
		Channel:       "clinic.events",
	}
}

func quietLogger() *logger.Logger {
	return logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard})
}

func seed(t *testing.T, store *memory.Store, eventType string) *model.OutboxEvent {
	t.Helper()
	event, err := model.NewOutboxEvent(eventType, uuid.New(), map[string]string{"k": "v"}, time.Now())
	require.NoError(t, err)
	require.NoError(t, store.Outbox().Create(context.Background(), event))
	return event
}

func TestOutboxProcessor_PublishesEnvelope(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	broker := messaging.NewLocalBroker()
	defer broker.Close()

	sub, err := broker.Subscribe(ctx, "clinic.events")
	require.NoError(t, err)

	m := metrics.NewMetrics("test")
	p := NewOutboxProcessor(store.Outbox(), broker, testConfig(), quietLogger(), m)
	event := seed(t, store, model.EventScheduleCreated)

	done := make(chan []byte, 1)
	go func() { done <- <-sub }()

	n, err := p.ProcessBatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	select {
	case raw := <-done:
		var msg messaging.Message
		require.NoError(t, json.Unmarshal(raw, &msg))
		assert.Equal(t, event.ID, msg.ID)
		assert.Equal(t, model.EventScheduleCreated, msg.Type)
		assert.Equal(t, event.AggregateID, msg.AggregateID)
		assert.JSONEq(t, `{"k":"v"}`, string(msg.Payload))
	case <-time.After(time.Second):
		t.Fatal("no message published")
	}

	pending, err := store.Outbox().CountPending(ctx)
	require.NoError(t, err)
	assert.Zero(t, pending)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.OutboxEventsProcessed))

	// nothing left to claim
	n, err = p.ProcessBatch(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestOutboxProcessor_RetriesThenSucceeds(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	broker := &flakyBroker{Broker: messaging.NewLocalBroker(), failures: 1}
	m := metrics.NewMetrics("test")

	// backoff lands in the past so the retry is due immediately
	p := NewOutboxProcessor(store.Outbox(), broker, testConfig(), quietLogger(), m).
		WithClock(func() time.Time { return time.Now().Add(-time.Hour) })
	seed(t, store, model.EventScheduleCreated)

	n, err := p.ProcessBatch(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.OutboxRetries.WithLabelValues(model.EventScheduleCreated)))

	n, err = p.ProcessBatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 2, broker.calls)
}

func TestOutboxProcessor_FailsAfterRetryAttempts(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	broker := &flakyBroker{Broker: messaging.NewLocalBroker(), failures: 100}
	m := metrics.NewMetrics("test")

	p := NewOutboxProcessor(store.Outbox(), broker, testConfig(), quietLogger(), m).
		WithClock(func() time.Time { return time.Now().Add(-time.Hour) })
	seed(t, store, model.EventScheduleCreated)

	for i := 0; i < 5; i++ {
		_, err := p.ProcessBatch(ctx)
		require.NoError(t, err)
	}

	assert.Equal(t, 3, broker.calls)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.OutboxEventsFailed))
	pending, err := store.Outbox().CountPending(ctx)
	require.NoError(t, err)
	assert.Zero(t, pending)
}

func TestOutboxProcessor_RunsHandlersForType(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	m := metrics.NewMetrics("test")
	p := NewOutboxProcessor(store.Outbox(), messaging.NewLocalBroker(), testConfig(), quietLogger(), m)

	var seen []string
	p.Handle(model.EventReactionRecorded, func(ctx context.Context, e *model.OutboxEvent) error {
		seen = append(seen, e.EventType)
		return nil
	})

	seed(t, store, model.EventScheduleCreated)
	seed(t, store, model.EventReactionRecorded)

	n, err := p.ProcessBatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{model.EventReactionRecorded}, seen)
}

func TestOutboxProcessor_HandlerErrorRetries(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	m := metrics.NewMetrics("test")
	p := NewOutboxProcessor(store.Outbox(), messaging.NewLocalBroker(), testConfig(), quietLogger(), m)
	p.Handle(model.EventReactionRecorded, func(context.Context, *model.OutboxEvent) error {
		return errors.New("smtp unavailable")
	})
	seed(t, store, model.EventReactionRecorded)

	n, err := p.ProcessBatch(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	pending, err := store.Outbox().CountPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), pending)
}

func TestNewOutboxProcessor_RejectsBadConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Channel = ""
	assert.Panics(t, func() {
		NewOutboxProcessor(memory.NewStore().Outbox(), messaging.NewLocalBroker(), cfg, quietLogger(), metrics.NewMetrics("test"))
	})
}

func TestOutboxProcessor_StartStopsOnCancel(t *testing.T) {
	store := memory.NewStore()
	p := NewOutboxProcessor(store.Outbox(), messaging.NewLocalBroker(), testConfig(), quietLogger(), metrics.NewMetrics("test"))
	seed(t, store, model.EventScheduleCreated)

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		p.Start(ctx)
		close(stopped)
	}()

	require.Eventually(t, func() bool {
		n, _ := store.Outbox().CountPending(context.Background())
		return n == 0
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("processor did not stop")
	}
}
