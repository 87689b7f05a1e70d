package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jwalitptl/vaccine-clinic-api/internal/model"
	"github.com/jwalitptl/vaccine-clinic-api/internal/repository"
	"github.com/jwalitptl/vaccine-clinic-api/pkg/logger"
	"github.com/jwalitptl/vaccine-clinic-api/pkg/messaging"
	"github.com/jwalitptl/vaccine-clinic-api/pkg/metrics"
)

type OutboxProcessorConfig struct {
	BatchSize     int
	PollInterval  time.Duration
	RetryAttempts int
	// RetryDelay is the first backoff; it doubles on every further attempt.
	RetryDelay time.Duration
	Lease      time.Duration
	Channel    string
}

// EventHandler is a side effect run for every published event of a type.
type EventHandler func(ctx context.Context, event *model.OutboxEvent) error

// OutboxProcessor publishes pending outbox events to the broker. Delivery is
// at least once: an event whose publish or handler fails is retried whole.
type OutboxProcessor struct {
	repo     repository.OutboxRepository
	broker   messaging.Broker
	config   OutboxProcessorConfig
	logger   *logger.Logger
	metrics  *metrics.Metrics
	handlers map[string][]EventHandler
	now      func() time.Time
}

func NewOutboxProcessor(
	repo repository.OutboxRepository,
	broker messaging.Broker,
	config OutboxProcessorConfig,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *OutboxProcessor {
	// Config validation instead of defaults
	if config.BatchSize <= 0 {
		panic("BatchSize must be greater than 0")
	}
	if config.PollInterval <= 0 {
		panic("PollInterval must be greater than 0")
	}
	if config.RetryAttempts <= 0 {
		panic("RetryAttempts must be greater than 0")
	}
	if config.RetryDelay <= 0 {
		panic("RetryDelay must be greater than 0")
	}
	if config.Lease <= 0 {
		panic("Lease must be greater than 0")
	}
	if config.Channel == "" {
		panic("Channel must not be empty")
	}

	return &OutboxProcessor{
		repo:     repo,
		broker:   broker,
		config:   config,
		logger:   logger,
		metrics:  metrics,
		handlers: make(map[string][]EventHandler),
		now:      time.Now,
	}
}

// Handle registers h for events of eventType. Not safe to call after Start.
func (p *OutboxProcessor) Handle(eventType string, h EventHandler) {
	p.handlers[eventType] = append(p.handlers[eventType], h)
}

func (p *OutboxProcessor) WithClock(now func() time.Time) *OutboxProcessor {
	p.now = now
	return p
}

func (p *OutboxProcessor) Start(ctx context.Context) {
	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	p.logger.Info("Starting outbox processor", "channel", p.config.Channel)

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Shutting down outbox processor")
			return
		case <-ticker.C:
			if _, err := p.ProcessBatch(ctx); err != nil {
				p.logger.Error(err, "Failed to process events")
			}
		}
	}
}

// ProcessBatch claims one batch of due events and handles each of them. It
// returns how many were published successfully.
func (p *OutboxProcessor) ProcessBatch(ctx context.Context) (int, error) {
	timer := prometheus.NewTimer(p.metrics.OutboxProcessingLatency)
	defer timer.ObserveDuration()

	events, err := p.repo.ClaimPending(ctx, p.config.BatchSize, p.config.Lease)
	if err != nil {
		p.metrics.DatabaseOperations.WithLabelValues("claim_pending_events", "error").Inc()
		return 0, fmt.Errorf("failed to claim pending events: %w", err)
	}
	p.metrics.DatabaseOperations.WithLabelValues("claim_pending_events", "success").Inc()

	processed := 0
	for _, event := range events {
		if err := p.processEvent(ctx, event); err != nil {
			p.logger.Error(err, "Failed to process event",
				"event_id", event.ID.String(),
				"event_type", event.EventType,
				"retry_count", event.RetryCount)
			continue
		}
		processed++
	}

	if pending, err := p.repo.CountPending(ctx); err == nil {
		p.metrics.OutboxQueueSize.Set(float64(pending))
	}
	return processed, nil
}

func (p *OutboxProcessor) processEvent(ctx context.Context, event *model.OutboxEvent) error {
	if err := p.deliver(ctx, event); err != nil {
		if markErr := p.fail(ctx, event, err); markErr != nil {
			return errors.Join(err, markErr)
		}
		return err
	}

	p.metrics.OutboxEventsProcessed.Inc()
	if err := p.repo.MarkProcessed(ctx, event.ID); err != nil {
		p.logger.Error(err, "Failed to update event status", "event_id", event.ID.String())
		return err
	}
	return nil
}

func (p *OutboxProcessor) deliver(ctx context.Context, event *model.OutboxEvent) error {
	msg := messaging.Message{
		ID:          event.ID,
		Type:        event.EventType,
		AggregateID: event.AggregateID,
		Payload:     event.Payload,
		OccurredAt:  event.CreatedAt,
	}
	if err := p.broker.Publish(ctx, p.config.Channel, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	for _, h := range p.handlers[event.EventType] {
		if err := h(ctx, event); err != nil {
			return fmt.Errorf("handler for %s failed: %w", event.EventType, err)
		}
	}
	return nil
}

// fail schedules another attempt with exponential backoff, or parks the event
// as FAILED once RetryAttempts deliveries have failed.
func (p *OutboxProcessor) fail(ctx context.Context, event *model.OutboxEvent, cause error) error {
	attempt := event.RetryCount + 1
	if attempt >= p.config.RetryAttempts {
		p.metrics.OutboxEventsFailed.Inc()
		return p.repo.MarkFailed(ctx, event.ID, cause.Error())
	}

	p.metrics.OutboxRetries.WithLabelValues(event.EventType).Inc()
	retryAt := p.now().Add(p.config.RetryDelay << event.RetryCount)
	return p.repo.MarkRetry(ctx, event.ID, cause.Error(), retryAt)
}
