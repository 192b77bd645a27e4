// Package relay implements the outbox dispatch worker: it claims committed
// outbox rows, decodes them into typed domain events and delivers them to
// registered handlers with retry, backoff and dead-lettering.
package relay

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/harborlabs/harbor-backoffice/internal/config"
	"github.com/harborlabs/harbor-backoffice/internal/domain/event"
	"github.com/harborlabs/harbor-backoffice/internal/outbox"
)

// Store is the slice of the outbox store the relay needs. Claims are
// lease-based so concurrent relay instances never double-process a row.
type Store interface {
	ClaimBatch(ctx context.Context, workerID string, limit int, lease time.Duration) ([]outbox.Message, error)
	MarkProcessed(ctx context.Context, id int64, workerID string) error
	MarkFailed(ctx context.Context, id int64, workerID string, cause error, availableAt time.Time, deadLetter bool) error
	ReleaseLease(ctx context.Context, ids []int64, workerID string) error
}

// Handler consumes one domain event. Handlers must be idempotent per
// EventID: crash recovery can redeliver a row whose handlers partially
// succeeded.
type Handler interface {
	// Name identifies the handler in logs and idempotency records.
	Name() string
	Handle(ctx context.Context, evt event.DomainEvent) error
}

// Relay polls the outbox and delivers claimed rows. Run one per worker
// goroutine; each carries its own worker ID for lease ownership.
type Relay struct {
	store    Store
	registry *event.Registry
	handlers map[string][]Handler
	logger   *zap.Logger
	workerID string

	pollInterval   time.Duration
	leaseDuration  time.Duration
	batchSize      int
	maxRetries     int
	backoffBase    time.Duration
	backoffCap     time.Duration
	sem            *semaphore.Weighted
	maxConcurrency int64
}

func New(store Store, registry *event.Registry, cfg *config.Config, logger *zap.Logger) *Relay {
	workerID := ulid.Make().String()
	return &Relay{
		store:          store,
		registry:       registry,
		handlers:       make(map[string][]Handler),
		logger:         logger.Named("outbox.relay").With(zap.String("worker_id", workerID)),
		workerID:       workerID,
		pollInterval:   cfg.RelayPollInterval,
		leaseDuration:  cfg.RelayLeaseDuration,
		batchSize:      cfg.RelayBatchSize,
		maxRetries:     cfg.RelayMaxRetries,
		backoffBase:    cfg.RelayBackoffBase,
		backoffCap:     cfg.RelayBackoffCap,
		sem:            semaphore.NewWeighted(int64(cfg.RelayMaxConcurrency)),
		maxConcurrency: int64(cfg.RelayMaxConcurrency),
	}
}

// Subscribe registers a handler for an event type. Handlers run in
// registration order.
func (r *Relay) Subscribe(eventType string, h Handler) {
	r.handlers[eventType] = append(r.handlers[eventType], h)
}

// Run polls until ctx is cancelled. In-flight rows are finished (or their
// leases released) before Run returns, so shutdown never leaves rows
// permanently claimed.
func (r *Relay) Run(ctx context.Context) {
	r.logger.Info("relay_started",
		zap.Duration("poll_interval", r.pollInterval),
		zap.Int("batch_size", r.batchSize),
	)

	if err := r.processBatch(ctx); err != nil {
		r.logger.Error("relay_initial_poll_failed", zap.Error(err))
	}

	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("relay_stopped")
			return
		case <-ticker.C:
			if err := r.processBatch(ctx); err != nil {
				r.logger.Error("relay_poll_failed", zap.Error(err))
			}
		}
	}
}

// processBatch claims one batch and dispatches its rows concurrently up to
// the configured limit. The claim query only surfaces each aggregate's
// earliest undelivered row, so no two rows in a batch share an aggregate
// and concurrent dispatch cannot violate per-aggregate ordering.
func (r *Relay) processBatch(ctx context.Context) error {
	msgs, err := r.store.ClaimBatch(ctx, r.workerID, r.batchSize, r.leaseDuration)
	if err != nil {
		return fmt.Errorf("claim batch: %w", err)
	}
	if len(msgs) == 0 {
		return nil
	}
	metricClaimed.Add(float64(len(msgs)))

	var wg sync.WaitGroup
	for i := range msgs {
		if err := r.sem.Acquire(ctx, 1); err != nil {
			// Shutting down: give back the rows we never started.
			r.releaseRemaining(msgs[i:])
			break
		}
		wg.Add(1)
		go func(m outbox.Message) {
			defer wg.Done()
			defer r.sem.Release(1)
			r.dispatch(ctx, m)
		}(msgs[i])
	}
	wg.Wait()
	return nil
}

func (r *Relay) releaseRemaining(msgs []outbox.Message) {
	ids := make([]int64, 0, len(msgs))
	for _, m := range msgs {
		ids = append(ids, m.ID)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.store.ReleaseLease(ctx, ids, r.workerID); err != nil {
		r.logger.Error("lease_release_failed", zap.Error(err), zap.Int64s("ids", ids))
	}
}

// dispatch delivers one row. Failures are isolated per row: an error here
// never stops the rest of the batch.
func (r *Relay) dispatch(ctx context.Context, m outbox.Message) {
	evt, err := r.decode(m)
	if err != nil {
		// Undecodable payloads are permanent failures; retrying cannot
		// help, so park the row for the operator immediately.
		r.logger.Error("outbox_message_undecodable",
			zap.Int64("id", m.ID),
			zap.String("event_type", m.EventType),
			zap.Error(err),
		)
		r.markFailed(ctx, m, err, true)
		return
	}

	handlers := r.handlers[m.EventType]
	if len(handlers) == 0 {
		// No subscribers: delivery is vacuously complete.
		if err := r.store.MarkProcessed(ctx, m.ID, r.workerID); err != nil && !errors.Is(err, outbox.ErrClaimLost) {
			r.logger.Error("outbox_mark_processed_failed", zap.Int64("id", m.ID), zap.Error(err))
		}
		return
	}

	for _, h := range handlers {
		if err := h.Handle(ctx, evt); err != nil {
			if ctx.Err() != nil {
				// Shutdown, not a handler fault: release the lease so the
				// row keeps its retry budget.
				r.releaseRemaining([]outbox.Message{m})
				return
			}
			r.logger.Warn("outbox_handler_failed",
				zap.Int64("id", m.ID),
				zap.String("event_type", m.EventType),
				zap.String("handler", h.Name()),
				zap.Int("retry_count", m.RetryCount),
				zap.Error(err),
			)
			r.markFailed(ctx, m, fmt.Errorf("%s: %w", h.Name(), err), false)
			return
		}
	}

	if err := r.store.MarkProcessed(ctx, m.ID, r.workerID); err != nil {
		if errors.Is(err, outbox.ErrClaimLost) {
			r.logger.Warn("outbox_claim_lost", zap.Int64("id", m.ID))
			return
		}
		r.logger.Error("outbox_mark_processed_failed", zap.Int64("id", m.ID), zap.Error(err))
		return
	}
	metricProcessed.WithLabelValues(m.EventType).Inc()
}

// markFailed records a failed attempt, dead-lettering once the retry
// ceiling is reached or when the failure is known to be permanent.
func (r *Relay) markFailed(ctx context.Context, m outbox.Message, cause error, permanent bool) {
	attempt := m.RetryCount + 1
	deadLetter := permanent || attempt >= r.maxRetries

	availableAt := time.Now().UTC()
	if !deadLetter {
		availableAt = availableAt.Add(r.backoff(attempt))
	}

	// Marking must survive request-scope cancellation or the row stays
	// leased until the lease expires.
	markCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := r.store.MarkFailed(markCtx, m.ID, r.workerID, cause, availableAt, deadLetter); err != nil {
		if errors.Is(err, outbox.ErrClaimLost) {
			r.logger.Warn("outbox_claim_lost", zap.Int64("id", m.ID))
			return
		}
		r.logger.Error("outbox_mark_failed_failed", zap.Int64("id", m.ID), zap.Error(err))
		return
	}

	if deadLetter {
		metricDeadLettered.WithLabelValues(m.EventType).Inc()
		r.logger.Error("outbox_message_dead_lettered",
			zap.Int64("id", m.ID),
			zap.String("event_type", m.EventType),
			zap.Int("attempts", attempt),
			zap.Error(cause),
		)
		return
	}
	metricFailed.WithLabelValues(m.EventType).Inc()
}

// decode rebuilds the typed DomainEvent from a stored row.
func (r *Relay) decode(m outbox.Message) (event.DomainEvent, error) {
	payload, err := r.registry.Decode(m.EventType, m.Payload)
	if err != nil {
		return event.DomainEvent{}, err
	}
	eventID, err := uuid.Parse(m.EventID)
	if err != nil {
		return event.DomainEvent{}, fmt.Errorf("parse event id %q: %w", m.EventID, err)
	}
	return event.DomainEvent{
		EventID:       eventID,
		AggregateID:   m.AggregateID,
		AggregateType: m.AggregateType,
		EventType:     m.EventType,
		OccurredAt:    m.OccurredAt,
		Payload:       payload,
	}, nil
}

// backoff doubles per attempt from the base, capped.
func (r *Relay) backoff(attempt int) time.Duration {
	shift := attempt - 1
	if shift > 10 {
		shift = 10
	}
	d := r.backoffBase * time.Duration(1<<shift)
	if d > r.backoffCap {
		return r.backoffCap
	}
	return d
}
