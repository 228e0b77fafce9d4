package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/edconde/clinica3s/internal/model"
	"github.com/edconde/clinica3s/internal/repository"
	"github.com/edconde/clinica3s/pkg/logger"
	"github.com/edconde/clinica3s/pkg/messaging"
	"github.com/edconde/clinica3s/pkg/metrics"
)

type OutboxProcessorConfig struct {
	Channel         string
	BatchSize       int
	PollInterval    time.Duration
	RetryAttempts   int
	RetryDelay      time.Duration
	RetentionPeriod time.Duration
	CleanupInterval time.Duration
}

// OutboxProcessor relays stored domain events to the broker. Rows are claimed
// with SKIP LOCKED inside one transaction per event, so several processors can
// share the table.
type OutboxProcessor struct {
	tx      repository.Transactor
	repo    repository.OutboxRepository
	broker  messaging.Broker
	config  OutboxProcessorConfig
	logger  *logger.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewOutboxProcessor(
	tx repository.Transactor,
	repo repository.OutboxRepository,
	broker messaging.Broker,
	config OutboxProcessorConfig,
	logger *logger.Logger,
	m *metrics.Metrics,
) (*OutboxProcessor, error) {
	if config.Channel == "" {
		return nil, fmt.Errorf("channel is required")
	}
	if config.BatchSize <= 0 {
		return nil, fmt.Errorf("batch size must be greater than 0")
	}
	if config.PollInterval <= 0 {
		return nil, fmt.Errorf("poll interval must be greater than 0")
	}
	if config.RetryAttempts <= 0 {
		return nil, fmt.Errorf("retry attempts must be greater than 0")
	}
	if config.RetryDelay <= 0 {
		return nil, fmt.Errorf("retry delay must be greater than 0")
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = time.Hour
	}
	if m == nil {
		m = metrics.NewNoop()
	}

	return &OutboxProcessor{
		tx:      tx,
		repo:    repo,
		broker:  broker,
		config:  config,
		logger:  logger,
		metrics: m,
		now:     time.Now,
	}, nil
}

// Start polls until ctx is cancelled.
func (p *OutboxProcessor) Start(ctx context.Context) {
	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()
	cleanup := time.NewTicker(p.config.CleanupInterval)
	defer cleanup.Stop()

	p.logger.Info("starting outbox processor", "channel", p.config.Channel)

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("shutting down outbox processor")
			return
		case <-ticker.C:
			if _, err := p.ProcessBatch(ctx); err != nil {
				p.logger.Error(err, "failed to process events")
			}
		case <-cleanup.C:
			if _, err := p.Cleanup(ctx); err != nil {
				p.logger.Error(err, "failed to clean up processed events")
			}
		}
	}
}

// ProcessBatch delivers up to BatchSize due events and returns how many were
// published. Every event is claimed, published and marked in its own
// transaction, so a store error rolls back only the event in hand and the ones
// before it stay committed. Delivery is at least once: a crash or store error
// after Publish re-sends that single event, and consumers dedupe on Message.ID.
func (p *OutboxProcessor) ProcessBatch(ctx context.Context) (int, error) {
	timer := prometheus.NewTimer(p.metrics.OutboxProcessingLatency)
	defer timer.ObserveDuration()

	delivered := 0
	for i := 0; i < p.config.BatchSize; i++ {
		if err := ctx.Err(); err != nil {
			return delivered, err
		}
		claimed, published, err := p.processNext(ctx)
		if err != nil {
			return delivered, err
		}
		if !claimed {
			break
		}
		if published {
			delivered++
		}
	}
	return delivered, nil
}

// processNext claims one due event and settles it before committing.
func (p *OutboxProcessor) processNext(ctx context.Context) (claimed, published bool, err error) {
	err = p.tx.WithinTx(ctx, func(ctx context.Context) error {
		events, err := p.repo.GetPendingEventsWithLock(ctx, 1)
		if err != nil {
			p.metrics.DatabaseOperations.WithLabelValues("get_pending_events", "error").Inc()
			return fmt.Errorf("failed to get pending events: %w", err)
		}
		p.metrics.DatabaseOperations.WithLabelValues("get_pending_events", "success").Inc()
		if len(events) == 0 {
			return nil
		}

		claimed = true
		published, err = p.processEvent(ctx, events[0])
		return err
	})
	return claimed, published, err
}

// processEvent reports whether the event was published. The error is non-nil
// only when its new state could not be stored.
func (p *OutboxProcessor) processEvent(ctx context.Context, event *model.OutboxEvent) (bool, error) {
	msg := messaging.Message{
		ID:         event.ID.String(),
		Type:       event.EventType,
		Payload:    event.Payload,
		OccurredAt: event.CreatedAt,
	}

	if pubErr := p.broker.Publish(ctx, p.config.Channel, msg); pubErr != nil {
		return false, p.handleFailure(ctx, event, pubErr)
	}

	if err := p.repo.MarkProcessed(ctx, event.ID); err != nil {
		p.metrics.DatabaseOperations.WithLabelValues("mark_processed", "error").Inc()
		return false, fmt.Errorf("failed to mark event %s processed: %w", event.ID, err)
	}
	p.metrics.OutboxEventsProcessed.Inc()
	return true, nil
}

func (p *OutboxProcessor) handleFailure(ctx context.Context, event *model.OutboxEvent, pubErr error) error {
	attempt := event.RetryCount + 1

	if attempt >= p.config.RetryAttempts {
		p.metrics.OutboxEventsFailed.Inc()
		p.logger.Error(pubErr, "giving up on event",
			"event_id", event.ID.String(),
			"event_type", event.EventType,
			"attempts", attempt)
		if err := p.repo.MarkFailed(ctx, event.ID, pubErr.Error()); err != nil {
			return fmt.Errorf("failed to mark event %s failed: %w", event.ID, err)
		}
		return nil
	}

	retryAt := p.now().Add(p.backoff(attempt))
	p.metrics.OutboxRetries.WithLabelValues(event.EventType).Inc()
	p.logger.Warn("publish failed, will retry",
		"event_id", event.ID.String(),
		"event_type", event.EventType,
		"attempt", attempt,
		"retry_at", retryAt,
		"error", pubErr.Error())
	if err := p.repo.MarkRetry(ctx, event.ID, pubErr.Error(), retryAt); err != nil {
		return fmt.Errorf("failed to schedule retry for event %s: %w", event.ID, err)
	}
	return nil
}

// backoff doubles the retry delay with each failed attempt.
func (p *OutboxProcessor) backoff(attempt int) time.Duration {
	d := p.config.RetryDelay
	for i := 1; i < attempt; i++ {
		d *= 2
	}
	return d
}

// Cleanup removes processed events older than the retention period.
func (p *OutboxProcessor) Cleanup(ctx context.Context) (int64, error) {
	if p.config.RetentionPeriod <= 0 {
		return 0, nil
	}
	deleted, err := p.repo.DeleteProcessedBefore(ctx, p.now().Add(-p.config.RetentionPeriod))
	if err != nil {
		p.metrics.DatabaseOperations.WithLabelValues("delete_processed", "error").Inc()
		return 0, err
	}
	p.metrics.DatabaseOperations.WithLabelValues("delete_processed", "success").Inc()
	if deleted > 0 {
		p.logger.Info("deleted processed events", "count", deleted)
	}
	return deleted, nil
}
