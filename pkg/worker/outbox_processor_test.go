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
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/edconde/clinica3s/internal/model"
	"github.com/edconde/clinica3s/internal/repository/mocks"
	"github.com/edconde/clinica3s/pkg/logger"
	"github.com/edconde/clinica3s/pkg/messaging"
	"github.com/edconde/clinica3s/pkg/metrics"
)

const channel = "clinic.events"

type failingBroker struct {
	err   error
	calls int
}

func (b *failingBroker) Publish(context.Context, string, messaging.Message) error {
	b.calls++
	return b.err
}

func (b *failingBroker) Close() error { return nil }

func testConfig() OutboxProcessorConfig {
	return OutboxProcessorConfig{
		Channel:         channel,
		BatchSize:       10,
		PollInterval:    time.Second,
		RetryAttempts:   3,
		RetryDelay:      time.Minute,
		RetentionPeriod: 24 * time.Hour,
	}
}

func newProcessor(t *testing.T, repo *mocks.OutboxRepository, broker messaging.Broker) (*OutboxProcessor, *mocks.Transactor, *metrics.Metrics) {
	t.Helper()
	tx := &mocks.Transactor{}
	m := metrics.NewNoop()
	p, err := NewOutboxProcessor(tx, repo, broker, testConfig(), logger.New(logger.Config{Output: io.Discard}), m)
	require.NoError(t, err)
	return p, tx, m
}

func event(retries int) *model.OutboxEvent {
	return &model.OutboxEvent{
		ID:          uuid.New(),
		EventType:   model.EventAppointmentPaid,
		AggregateID: uuid.New(),
		Payload:     json.RawMessage(`{"totalAmount":90}`),
		Status:      model.OutboxStatusPending,
		RetryCount:  retries,
		CreatedAt:   time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestNewOutboxProcessor_RejectsBadConfig(t *testing.T) {
	cases := map[string]func(*OutboxProcessorConfig){
		"channel":        func(c *OutboxProcessorConfig) { c.Channel = "" },
		"batch size":     func(c *OutboxProcessorConfig) { c.BatchSize = 0 },
		"poll interval":  func(c *OutboxProcessorConfig) { c.PollInterval = 0 },
		"retry attempts": func(c *OutboxProcessorConfig) { c.RetryAttempts = 0 },
		"retry delay":    func(c *OutboxProcessorConfig) { c.RetryDelay = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := testConfig()
			mutate(&cfg)
			_, err := NewOutboxProcessor(&mocks.Transactor{}, &mocks.OutboxRepository{}, messaging.NewMemoryBroker(), cfg, logger.New(logger.Config{Output: io.Discard}), nil)
			assert.Error(t, err)
		})
	}
}

func TestProcessBatch_Publishes(t *testing.T) {
	repo := &mocks.OutboxRepository{}
	broker := messaging.NewMemoryBroker()
	p, tx, m := newProcessor(t, repo, broker)

	e1, e2 := event(0), event(1)
	repo.On("GetPendingEventsWithLock", mock.Anything, 1).Return([]*model.OutboxEvent{e1}, nil).Once()
	repo.On("GetPendingEventsWithLock", mock.Anything, 1).Return([]*model.OutboxEvent{e2}, nil).Once()
	repo.On("GetPendingEventsWithLock", mock.Anything, 1).Return([]*model.OutboxEvent{}, nil).Once()
	repo.On("MarkProcessed", mock.Anything, e1.ID).Return(nil)
	repo.On("MarkProcessed", mock.Anything, e2.ID).Return(nil)

	n, err := p.ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	// one transaction per event plus the empty claim that ends the batch
	assert.Equal(t, 3, tx.Calls)

	msgs := broker.Messages(channel)
	require.Len(t, msgs, 2)
	assert.Equal(t, e1.ID.String(), msgs[0].ID)
	assert.Equal(t, model.EventAppointmentPaid, msgs[0].Type)
	assert.JSONEq(t, `{"totalAmount":90}`, string(msgs[0].Payload))
	assert.Equal(t, e1.CreatedAt, msgs[0].OccurredAt)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.OutboxEventsProcessed))
	repo.AssertExpectations(t)
}

func TestProcessBatch_SchedulesRetryWithBackoff(t *testing.T) {
	repo := &mocks.OutboxRepository{}
	broker := &failingBroker{err: errors.New("redis unavailable")}
	p, _, m := newProcessor(t, repo, broker)
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return now }

	e := event(1)
	repo.On("GetPendingEventsWithLock", mock.Anything, 1).Return([]*model.OutboxEvent{e}, nil).Once()
	repo.On("GetPendingEventsWithLock", mock.Anything, 1).Return([]*model.OutboxEvent{}, nil).Once()
	repo.On("MarkRetry", mock.Anything, e.ID, "redis unavailable", now.Add(2*time.Minute)).Return(nil)

	n, err := p.ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OutboxRetries.WithLabelValues(model.EventAppointmentPaid)))
	repo.AssertExpectations(t)
}

func TestProcessBatch_GivesUpAfterRetryAttempts(t *testing.T) {
	repo := &mocks.OutboxRepository{}
	p, _, m := newProcessor(t, repo, &failingBroker{err: errors.New("boom")})

	e := event(2)
	repo.On("GetPendingEventsWithLock", mock.Anything, 1).Return([]*model.OutboxEvent{e}, nil).Once()
	repo.On("GetPendingEventsWithLock", mock.Anything, 1).Return([]*model.OutboxEvent{}, nil).Once()
	repo.On("MarkFailed", mock.Anything, e.ID, "boom").Return(nil)

	_, err := p.ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OutboxEventsFailed))
	repo.AssertNotCalled(t, "MarkRetry", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessBatch_StoreErrorKeepsEarlierEventsCommitted(t *testing.T) {
	repo := &mocks.OutboxRepository{}
	broker := messaging.NewMemoryBroker()
	p, tx, m := newProcessor(t, repo, broker)

	e1, e2, e3 := event(0), event(0), event(0)
	repo.On("GetPendingEventsWithLock", mock.Anything, 1).Return([]*model.OutboxEvent{e1}, nil).Once()
	repo.On("GetPendingEventsWithLock", mock.Anything, 1).Return([]*model.OutboxEvent{e2}, nil).Once()
	repo.On("MarkProcessed", mock.Anything, e1.ID).Return(nil)
	repo.On("MarkProcessed", mock.Anything, e2.ID).Return(errors.New("conn reset"))

	n, err := p.ProcessBatch(context.Background())
	require.ErrorContains(t, err, "conn reset")
	assert.Equal(t, 1, n)
	// e1 was marked in its own transaction before e2 failed
	assert.Equal(t, 2, tx.Calls)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OutboxEventsProcessed))

	msgs := broker.Messages(channel)
	require.Len(t, msgs, 2)
	assert.Equal(t, e2.ID.String(), msgs[1].ID)
	repo.AssertNotCalled(t, "MarkProcessed", mock.Anything, e3.ID)
	repo.AssertNumberOfCalls(t, "GetPendingEventsWithLock", 2)
}

func TestProcessBatch_StopsAtBatchSize(t *testing.T) {
	repo := &mocks.OutboxRepository{}
	p, tx, _ := newProcessor(t, repo, messaging.NewMemoryBroker())
	p.config.BatchSize = 2

	for i := 0; i < 3; i++ {
		repo.On("GetPendingEventsWithLock", mock.Anything, 1).Return([]*model.OutboxEvent{event(0)}, nil).Once()
	}
	repo.On("MarkProcessed", mock.Anything, mock.Anything).Return(nil)

	n, err := p.ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, tx.Calls)
	repo.AssertNumberOfCalls(t, "GetPendingEventsWithLock", 2)
}

func TestProcessBatch_FetchError(t *testing.T) {
	repo := &mocks.OutboxRepository{}
	p, _, _ := newProcessor(t, repo, messaging.NewMemoryBroker())
	repo.On("GetPendingEventsWithLock", mock.Anything, 1).Return(nil, errors.New("db down"))

	_, err := p.ProcessBatch(context.Background())
	assert.ErrorContains(t, err, "failed to get pending events")
}

func TestCleanup(t *testing.T) {
	repo := &mocks.OutboxRepository{}
	p, _, _ := newProcessor(t, repo, messaging.NewMemoryBroker())
	now := time.Date(2024, 6, 8, 0, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return now }

	repo.On("DeleteProcessedBefore", mock.Anything, now.Add(-24*time.Hour)).Return(int64(4), nil)

	n, err := p.Cleanup(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}

func TestBackoff(t *testing.T) {
	p, _, _ := newProcessor(t, &mocks.OutboxRepository{}, messaging.NewMemoryBroker())
	assert.Equal(t, time.Minute, p.backoff(1))
	assert.Equal(t, 2*time.Minute, p.backoff(2))
	assert.Equal(t, 4*time.Minute, p.backoff(3))
}

func TestStart_StopsOnCancel(t *testing.T) {
	repo := &mocks.OutboxRepository{}
	p, _, _ := newProcessor(t, repo, messaging.NewMemoryBroker())
	p.config.PollInterval = 10 * time.Millisecond
	repo.On("GetPendingEventsWithLock", mock.Anything, 1).Return([]*model.OutboxEvent{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Start(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("processor did not stop")
	}
}
