package processor

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/nimasrn/cash-ledger/internal/model"
	"github.com/nimasrn/cash-ledger/internal/queue"
	"github.com/nimasrn/cash-ledger/internal/repository"
	"github.com/nimasrn/cash-ledger/internal/services"
	"github.com/nimasrn/cash-ledger/pkg/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, redis.RedisAdapter) {
	t.Helper()
	mr := miniredis.RunT(t)
	adapter, err := redis.NewRedisAdapter(t.Name()+"-"+mr.Addr(), "", &redis.Options{Addrs: []string{mr.Addr()}})
	require.NoError(t, err)
	return mr, adapter
}

type MockRecorder struct {
	mock.Mock
}

func (m *MockRecorder) Record(ctx context.Context, ev *model.LedgerEvent) (bool, error) {
	args := m.Called(ctx, ev)
	return args.Bool(0), args.Error(1)
}

func eventMessage(t *testing.T, ev *model.LedgerEvent) *queue.Message {
	t.Helper()
	data, err := json.Marshal(ev)
	require.NoError(t, err)
	return &queue.Message{ID: "1-0", Data: data}
}

func newEvent() *model.LedgerEvent {
	return &model.LedgerEvent{
		ID:           uuid.NewString(),
		Type:         model.EventCustomerCreated,
		OwnerID:      "owner-1",
		CustomerID:   "customer-1",
		CustomerName: "Asha",
		OccurredAt:   time.Now().UTC(),
	}
}

func TestIdempotency_LockAndMarkers(t *testing.T) {
	_, adapter := setupRedis(t)
	svc := NewIdempotencyService(adapter, DefaultIdempotencyConfig())
	ctx := context.Background()

	pc, err := svc.AcquireProcessingLock(ctx, "ev-1")
	require.NoError(t, err)
	assert.False(t, pc.IsRetry)

	_, err = svc.AcquireProcessingLock(ctx, "ev-1")
	assert.ErrorIs(t, err, ErrLockAcquireFailed)

	require.NoError(t, svc.MarkSuccess(ctx, pc))

	processed, err := svc.IsProcessed(ctx, "ev-1")
	require.NoError(t, err)
	assert.True(t, processed)

	_, err = svc.AcquireProcessingLock(ctx, "ev-1")
	assert.ErrorIs(t, err, ErrAlreadyProcessed)
}

func TestIdempotency_RetriesExhausted(t *testing.T) {
	_, adapter := setupRedis(t)
	cfg := DefaultIdempotencyConfig()
	cfg.MaxRetries = 2
	svc := NewIdempotencyService(adapter, cfg)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		pc, err := svc.AcquireProcessingLock(ctx, "ev-2")
		require.NoError(t, err)
		assert.Equal(t, i, pc.RetryCount)
		require.NoError(t, svc.MarkFailure(ctx, pc, errors.New("db down")))
	}

	n, err := svc.GetRetryCount(ctx, "ev-2")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = svc.AcquireProcessingLock(ctx, "ev-2")
	assert.ErrorIs(t, err, ErrMaxRetriesExceeded)
}

func TestIdempotency_LockExpires(t *testing.T) {
	mr, adapter := setupRedis(t)
	svc := NewIdempotencyService(adapter, DefaultIdempotencyConfig())
	ctx := context.Background()

	_, err := svc.AcquireProcessingLock(ctx, "ev-3")
	require.NoError(t, err)

	mr.FastForward(31 * time.Second)

	_, err = svc.AcquireProcessingLock(ctx, "ev-3")
	assert.NoError(t, err)
}

func TestActivityProcessor_Process(t *testing.T) {
	t.Run("records once", func(t *testing.T) {
		_, adapter := setupRedis(t)
		recorder := new(MockRecorder)
		p := NewActivityProcessor(recorder, NewIdempotencyService(adapter, DefaultIdempotencyConfig()))
		ev := newEvent()

		recorder.On("Record", mock.Anything, mock.MatchedBy(func(e *model.LedgerEvent) bool {
			return e.ID == ev.ID && e.CustomerName == "Asha"
		})).Return(true, nil).Once()

		require.NoError(t, p.Process(context.Background(), eventMessage(t, ev)))
		require.NoError(t, p.Process(context.Background(), eventMessage(t, ev)))

		recorder.AssertNumberOfCalls(t, "Record", 1)
	})

	t.Run("store failure is retried", func(t *testing.T) {
		_, adapter := setupRedis(t)
		recorder := new(MockRecorder)
		idem := NewIdempotencyService(adapter, DefaultIdempotencyConfig())
		p := NewActivityProcessor(recorder, idem)
		ev := newEvent()

		recorder.On("Record", mock.Anything, mock.Anything).Return(false, errors.New("db down")).Once()
		recorder.On("Record", mock.Anything, mock.Anything).Return(true, nil).Once()

		assert.Error(t, p.Process(context.Background(), eventMessage(t, ev)))
		n, err := idem.GetRetryCount(context.Background(), ev.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		require.NoError(t, p.Process(context.Background(), eventMessage(t, ev)))
		recorder.AssertNumberOfCalls(t, "Record", 2)
	})

	t.Run("undecodable message", func(t *testing.T) {
		_, adapter := setupRedis(t)
		recorder := new(MockRecorder)
		p := NewActivityProcessor(recorder, NewIdempotencyService(adapter, DefaultIdempotencyConfig()))

		err := p.Process(context.Background(), &queue.Message{ID: "1-0", Data: []byte("{")})
		assert.Error(t, err)
		recorder.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
	})
}

type chanRecorder struct {
	mu   sync.Mutex
	seen map[string]int
	done chan string
}

func (r *chanRecorder) Record(ctx context.Context, ev *model.LedgerEvent) (bool, error) {
	r.mu.Lock()
	r.seen[ev.ID]++
	r.mu.Unlock()
	r.done <- ev.ID
	return true, nil
}

func TestProcessorService_EndToEnd(t *testing.T) {
	_, adapter := setupRedis(t)

	qcfg := queue.Config{
		Name:              "test:ledger-events",
		ConsumerGroup:     "activity",
		ConsumerName:      "test",
		MaxRetries:        3,
		VisibilityTimeout: 5 * time.Second,
		PollInterval:      20 * time.Millisecond,
		BatchSize:         10,
	}
	publisherQueue, err := queue.NewQueue(adapter, qcfg)
	require.NoError(t, err)
	defer publisherQueue.Stop(time.Second)
	publisher := queue.NewEventPublisher(publisherQueue)

	recorder := &chanRecorder{seen: map[string]int{}, done: make(chan string, 10)}
	service := NewProcessorService(adapter, ServiceConfig{Queue: qcfg, Consumers: 2, Workers: 2})
	service.RegisterProcessor(NewActivityProcessor(recorder, NewIdempotencyService(adapter, DefaultIdempotencyConfig())))
	require.NoError(t, service.Start())
	defer service.Stop()

	ids := map[string]bool{}
	for i := 0; i < 3; i++ {
		ev := newEvent()
		ids[ev.ID] = true
		require.NoError(t, publisher.Publish(context.Background(), ev))
	}

	for i := 0; i < 3; i++ {
		select {
		case id := <-recorder.done:
			assert.True(t, ids[id])
		case <-time.After(3 * time.Second):
			t.Fatal("event not processed")
		}
	}

	assert.Eventually(t, func() bool {
		return service.Metrics().Processed == 3
	}, 2*time.Second, 20*time.Millisecond)

	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	for id := range ids {
		assert.Equal(t, 1, recorder.seen[id])
	}
}

func TestProcessorService_RecordsActivityRows(t *testing.T) {
	_, adapter := setupRedis(t)
	activity := services.NewActivityService(repository.NewActivityRepository(repository.NewTestDB(t)))
	p := NewActivityProcessor(activity, NewIdempotencyService(adapter, DefaultIdempotencyConfig()))

	ev := newEvent()
	require.NoError(t, p.Process(context.Background(), eventMessage(t, ev)))

	items, err := activity.List(context.Background(), model.ActivityFilter{OwnerID: ev.OwnerID})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, ev.ID, items[0].ID)
	assert.Equal(t, "Added customer Asha", items[0].Message)
}

func TestProcessorService_StartWithoutProcessor(t *testing.T) {
	_, adapter := setupRedis(t)
	service := NewProcessorService(adapter, ServiceConfig{Queue: queue.Config{Name: "x"}})
	assert.Error(t, service.Start())
}
