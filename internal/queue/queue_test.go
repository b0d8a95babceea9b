package queue

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/nimasrn/cash-ledger/internal/model"
	"github.com/nimasrn/cash-ledger/pkg/redis"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, redis.RedisAdapter) {
	mr := miniredis.RunT(t)

	// the adapter registry is global, so every test gets its own name
	connName := t.Name() + "-" + mr.Addr()
	adapter, err := redis.NewRedisAdapter(connName, "", &redis.Options{
		Addrs: []string{mr.Addr()},
	})
	require.NoError(t, err)

	return mr, adapter
}

func testConfig(name string) Config {
	return Config{
		Name:              name,
		ConsumerGroup:     "test-group",
		ConsumerName:      "test-consumer",
		MaxRetries:        3,
		VisibilityTimeout: 5 * time.Second,
		PollInterval:      50 * time.Millisecond,
		BatchSize:         10,
		MaxLen:            1000,
		EnableDLQ:         true,
	}
}

func TestNewQueue_RequiresName(t *testing.T) {
	_, adapter := setupTestRedis(t)
	_, err := NewQueue(adapter, Config{})
	assert.Error(t, err)
}

func TestNewQueue_ExistingGroup(t *testing.T) {
	_, adapter := setupTestRedis(t)

	q1, err := NewQueue(adapter, testConfig("test:group"))
	require.NoError(t, err)
	defer q1.Stop(time.Second)

	q2, err := NewQueue(adapter, testConfig("test:group"))
	require.NoError(t, err)
	defer q2.Stop(time.Second)
}

func TestQueue_PublishAndConsume(t *testing.T) {
	_, adapter := setupTestRedis(t)

	q, err := NewQueue(adapter, testConfig("test:queue"))
	require.NoError(t, err)
	defer q.Stop(time.Second)

	_, err = q.PublishJSON(context.Background(), map[string]string{"key": "value"}, map[string]string{"type": "test"})
	require.NoError(t, err)

	received := make(chan *Message, 1)
	require.NoError(t, q.Consume(func(ctx context.Context, msg *Message) error {
		received <- msg
		return nil
	}))

	select {
	case msg := <-received:
		assert.JSONEq(t, `{"key":"value"}`, string(msg.Data))
		assert.Equal(t, "test", msg.Metadata["type"])
		assert.Equal(t, 0, msg.Attempts)
		assert.False(t, msg.Timestamp.IsZero())
	case <-time.After(2 * time.Second):
		t.Fatal("message not received")
	}

	assert.Eventually(t, func() bool {
		stats, err := q.GetStats()
		return err == nil && stats.PendingMessages == 0
	}, 2*time.Second, 20*time.Millisecond)
}

func TestQueue_PublishHonoursCancelledContext(t *testing.T) {
	_, adapter := setupTestRedis(t)
	q, err := NewQueue(adapter, testConfig("test:cancel"))
	require.NoError(t, err)
	defer q.Stop(time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = q.Publish(ctx, []byte("x"), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestQueue_FailedMessageGoesToDeadLetter(t *testing.T) {
	_, adapter := setupTestRedis(t)

	cfg := testConfig("test:retry")
	cfg.MaxRetries = 1
	cfg.VisibilityTimeout = 100 * time.Millisecond
	q, err := NewQueue(adapter, cfg)
	require.NoError(t, err)
	defer q.Stop(time.Second)

	_, err = q.Publish(context.Background(), []byte(`{"n":1}`), map[string]string{"event": "x"})
	require.NoError(t, err)

	var calls int32
	require.NoError(t, q.Consume(func(ctx context.Context, msg *Message) error {
		atomic.AddInt32(&calls, 1)
		return assert.AnError
	}))

	assert.Eventually(t, func() bool {
		n, err := adapter.XLen(q.DeadLetterName())
		return err == nil && n == 1
	}, 5*time.Second, 50*time.Millisecond)
	assert.GreaterOrEqual(t, atomic.LoadInt32(&calls), int32(1))
}

func TestQueue_GetStats(t *testing.T) {
	_, adapter := setupTestRedis(t)
	q, err := NewQueue(adapter, testConfig("test:stats"))
	require.NoError(t, err)
	defer q.Stop(time.Second)

	for i := 0; i < 5; i++ {
		_, err := q.PublishJSON(context.Background(), map[string]int{"count": i}, nil)
		require.NoError(t, err)
	}

	stats, err := q.GetStats()
	require.NoError(t, err)
	assert.Equal(t, int64(5), stats.TotalMessages)
	assert.Equal(t, 0, q.InFlight())
}

func TestEventPublisher_RoundTrip(t *testing.T) {
	_, adapter := setupTestRedis(t)
	q, err := NewQueue(adapter, testConfig("test:events"))
	require.NoError(t, err)
	defer q.Stop(time.Second)

	amount := decimal.RequireFromString("30.00")
	ev := &model.LedgerEvent{
		ID:            uuid.NewString(),
		Type:          model.EventTransactionAdded,
		OwnerID:       "owner-1",
		CustomerID:    "customer-1",
		CustomerName:  "Asha",
		TransactionID: "txn-1",
		TxType:        model.TransactionPaid,
		Amount:        &amount,
		PaymentMethod: model.PaymentOnline,
		OccurredAt:    time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, NewEventPublisher(q).Publish(context.Background(), ev))

	received := make(chan *Message, 1)
	require.NoError(t, q.Consume(func(ctx context.Context, msg *Message) error {
		received <- msg
		return nil
	}))

	select {
	case msg := <-received:
		assert.Equal(t, string(model.EventTransactionAdded), msg.Metadata["event"])
		assert.Equal(t, ev.ID, msg.Metadata["event_id"])

		decoded, err := DecodeEvent(msg)
		require.NoError(t, err)
		assert.Equal(t, ev.ID, decoded.ID)
		assert.True(t, decoded.Amount.Equal(amount))
		assert.True(t, decoded.OccurredAt.Equal(ev.OccurredAt))
		assert.Equal(t, "Paid 30.00 to Asha (online)", decoded.Describe())
	case <-time.After(2 * time.Second):
		t.Fatal("event not received")
	}
}

func TestDecodeEvent_Invalid(t *testing.T) {
	_, err := DecodeEvent(&Message{ID: "1-0", Data: []byte("not json")})
	assert.Error(t, err)

	_, err = DecodeEvent(&Message{ID: "1-0", Data: []byte(`{"userId":"u"}`)})
	assert.Error(t, err)
}
