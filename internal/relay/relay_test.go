package relay

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/harborlabs/harbor-backoffice/internal/config"
	"github.com/harborlabs/harbor-backoffice/internal/domain/event"
	"github.com/harborlabs/harbor-backoffice/internal/domain/order"
	"github.com/harborlabs/harbor-backoffice/internal/outbox"
)

type fakeStore struct {
	mu sync.Mutex

	batch []outbox.Message

	processed []int64
	released  []int64

	failed []failedCall
}

type failedCall struct {
	id          int64
	cause       error
	availableAt time.Time
	deadLetter  bool
}

func (s *fakeStore) ClaimBatch(ctx context.Context, workerID string, limit int, lease time.Duration) ([]outbox.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	batch := s.batch
	s.batch = nil
	return batch, nil
}

func (s *fakeStore) MarkProcessed(ctx context.Context, id int64, workerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processed = append(s.processed, id)
	return nil
}

func (s *fakeStore) MarkFailed(ctx context.Context, id int64, workerID string, cause error, availableAt time.Time, deadLetter bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed = append(s.failed, failedCall{id: id, cause: cause, availableAt: availableAt, deadLetter: deadLetter})
	return nil
}

func (s *fakeStore) ReleaseLease(ctx context.Context, ids []int64, workerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.released = append(s.released, ids...)
	return nil
}

type recordingHandler struct {
	mu     sync.Mutex
	name   string
	events []event.DomainEvent
	err    error
}

func (h *recordingHandler) Name() string { return h.name }

func (h *recordingHandler) Handle(ctx context.Context, evt event.DomainEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, evt)
	return h.err
}

func testConfig() *config.Config {
	return &config.Config{
		RelayPollInterval:   time.Second,
		RelayBatchSize:      10,
		RelayLeaseDuration:  30 * time.Second,
		RelayMaxRetries:     3,
		RelayMaxConcurrency: 4,
		RelayBackoffBase:    2 * time.Second,
		RelayBackoffCap:     5 * time.Minute,
	}
}

func newTestRegistry() *event.Registry {
	r := event.NewRegistry()
	order.RegisterEvents(r)
	return r
}

func confirmedMessage(id int64, retryCount int) outbox.Message {
	return outbox.Message{
		ID:            id,
		EventID:       uuid.NewString(),
		AggregateID:   "1001",
		AggregateType: order.AggregateType,
		EventType:     order.EventTypeConfirmed,
		Payload:       []byte(`{"order_id":1001,"customer_id":42,"total_cents":2599,"currency":"EUR"}`),
		OccurredAt:    time.Now().UTC(),
		RetryCount:    retryCount,
		AvailableAt:   time.Now().UTC(),
	}
}

func TestProcessBatch_DeliversAndMarksProcessed(t *testing.T) {
	store := &fakeStore{batch: []outbox.Message{confirmedMessage(1, 0)}}
	h := &recordingHandler{name: "recorder"}

	r := New(store, newTestRegistry(), testConfig(), zap.NewNop())
	r.Subscribe(order.EventTypeConfirmed, h)

	require.NoError(t, r.processBatch(context.Background()))

	require.Len(t, h.events, 1)
	payload, ok := h.events[0].Payload.(*order.ConfirmedPayload)
	require.True(t, ok)
	assert.Equal(t, int64(1001), payload.OrderID)
	assert.Equal(t, int64(42), payload.CustomerID)

	assert.Equal(t, []int64{1}, store.processed)
	assert.Empty(t, store.failed)
}

func TestProcessBatch_NoSubscribersIsProcessed(t *testing.T) {
	store := &fakeStore{batch: []outbox.Message{confirmedMessage(7, 0)}}

	r := New(store, newTestRegistry(), testConfig(), zap.NewNop())
	require.NoError(t, r.processBatch(context.Background()))

	assert.Equal(t, []int64{7}, store.processed)
	assert.Empty(t, store.failed)
}

func TestProcessBatch_HandlerFailureSchedulesRetry(t *testing.T) {
	store := &fakeStore{batch: []outbox.Message{confirmedMessage(1, 0)}}
	h := &recordingHandler{name: "flaky", err: errors.New("smtp down")}

	r := New(store, newTestRegistry(), testConfig(), zap.NewNop())
	r.Subscribe(order.EventTypeConfirmed, h)

	before := time.Now().UTC()
	require.NoError(t, r.processBatch(context.Background()))

	require.Len(t, store.failed, 1)
	call := store.failed[0]
	assert.False(t, call.deadLetter)
	assert.ErrorContains(t, call.cause, "smtp down")
	assert.ErrorContains(t, call.cause, "flaky")

	// First retry waits one full base interval.
	assert.False(t, call.availableAt.Before(before.Add(2*time.Second)))
	assert.Empty(t, store.processed)
}

func TestProcessBatch_DeadLettersAtRetryCeiling(t *testing.T) {
	// RetryCount 2 means this delivery is attempt 3, the configured max.
	store := &fakeStore{batch: []outbox.Message{confirmedMessage(1, 2)}}
	h := &recordingHandler{name: "flaky", err: errors.New("smtp down")}

	r := New(store, newTestRegistry(), testConfig(), zap.NewNop())
	r.Subscribe(order.EventTypeConfirmed, h)

	require.NoError(t, r.processBatch(context.Background()))

	require.Len(t, store.failed, 1)
	assert.True(t, store.failed[0].deadLetter)
}

func TestProcessBatch_UndecodableIsPermanent(t *testing.T) {
	m := confirmedMessage(1, 0)
	m.EventType = "order.unknown"
	store := &fakeStore{batch: []outbox.Message{m}}

	r := New(store, newTestRegistry(), testConfig(), zap.NewNop())
	require.NoError(t, r.processBatch(context.Background()))

	require.Len(t, store.failed, 1)
	assert.True(t, store.failed[0].deadLetter)
	assert.Empty(t, store.processed)
}

func TestBackoff(t *testing.T) {
	r := New(&fakeStore{}, newTestRegistry(), testConfig(), zap.NewNop())

	assert.Equal(t, 2*time.Second, r.backoff(1))
	assert.Equal(t, 4*time.Second, r.backoff(2))
	assert.Equal(t, 8*time.Second, r.backoff(3))
	assert.Equal(t, 5*time.Minute, r.backoff(20))
}

func TestRun_StopsOnCancel(t *testing.T) {
	store := &fakeStore{}
	r := New(store, newTestRegistry(), testConfig(), zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("relay did not stop after cancel")
	}
}
