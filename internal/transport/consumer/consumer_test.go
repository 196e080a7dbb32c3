package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/huongnv75/customer-orders/internal/service/models/inbox"
	"github.com/huongnv75/customer-orders/internal/service/models/order"
)

type fakeAcknowledger struct {
	mu      sync.Mutex
	acked   bool
	nacked  bool
	requeue bool
}

func (f *fakeAcknowledger) Ack(_ uint64, _ bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acked = true

	return nil
}

func (f *fakeAcknowledger) Nack(_ uint64, _ bool, requeue bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nacked = true
	f.requeue = requeue

	return nil
}

func (f *fakeAcknowledger) Reject(_ uint64, _ bool) error {
	return nil
}

// fakeSnapshotService fails on a canceled context the way a pgx-backed
// service would.
type fakeSnapshotService struct {
	mu      sync.Mutex
	applied []string
	err     error
}

func (f *fakeSnapshotService) ApplyOrderSnapshot(ctx context.Context, snapshot order.Order) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if f.err != nil {
		return f.err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.applied = append(f.applied, snapshot.ID)

	return nil
}

type fakeInboxRepo struct {
	mu       sync.Mutex
	inserted []inbox.Message
	err      error
}

func (f *fakeInboxRepo) Insert(ctx context.Context, msg inbox.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if f.err != nil {
		return f.err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserted = append(f.inserted, msg)

	return nil
}

func (f *fakeInboxRepo) GetPendingMessages(_ context.Context, _ int) ([]inbox.Message, error) {
	return nil, nil
}

func (f *fakeInboxRepo) Delete(_ context.Context, _ int64) error {
	return nil
}

func (f *fakeInboxRepo) UpdateRetry(_ context.Context, _ int64, _ int, _ string, _ time.Time) error {
	return nil
}

func newTestConsumer(svc *fakeSnapshotService, repo *fakeInboxRepo) *Consumer {
	return &Consumer{
		service:   svc,
		inboxRepo: repo,
		queue:     amqp.Queue{Name: "orders.snapshots"},
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

func snapshotBody(t *testing.T, id string) []byte {
	t.Helper()

	body, err := json.Marshal(order.Order{ID: id, CustomerID: "cus_01"})
	require.NoError(t, err)

	return body
}

// A malformed payload must not cancel the context shared by the rest of the
// group: later valid snapshots still get applied and acked.
func TestConsumer_MalformedMessageDoesNotStopLaterDeliveries(t *testing.T) {
	svc := &fakeSnapshotService{}
	repo := &fakeInboxRepo{}
	c := newTestConsumer(svc, repo)

	g, gctx := errgroup.WithContext(context.Background())
	g.SetLimit(50)

	badAck := &fakeAcknowledger{}
	first := make(chan struct{})
	g.Go(func() error {
		defer close(first)

		return c.handleMessage(gctx, amqp.Delivery{
			Acknowledger: badAck,
			DeliveryTag:  1,
			Body:         []byte("{not json"),
		})
	})
	<-first

	goodAck := &fakeAcknowledger{}
	g.Go(func() error {
		return c.handleMessage(gctx, amqp.Delivery{
			Acknowledger: goodAck,
			DeliveryTag:  2,
			Body:         snapshotBody(t, "order_01"),
		})
	})
	require.NoError(t, g.Wait())

	assert.True(t, badAck.nacked)
	assert.False(t, badAck.requeue)
	assert.False(t, badAck.acked)

	assert.Equal(t, []string{"order_01"}, svc.applied)
	assert.True(t, goodAck.acked)
	assert.False(t, goodAck.nacked)
	assert.Empty(t, repo.inserted)
}

func TestConsumer_ApplyFailureParksMessageAndAcks(t *testing.T) {
	svc := &fakeSnapshotService{err: errors.New("storage unavailable")}
	repo := &fakeInboxRepo{}
	c := newTestConsumer(svc, repo)

	ack := &fakeAcknowledger{}
	err := c.handleMessage(context.Background(), amqp.Delivery{
		Acknowledger: ack,
		MessageId:    "msg-1",
		RoutingKey:   "orders.snapshot",
		Body:         snapshotBody(t, "order_01"),
	})
	require.NoError(t, err)

	assert.True(t, ack.acked)
	assert.False(t, ack.nacked)

	require.Len(t, repo.inserted, 1)
	parked := repo.inserted[0]
	assert.Equal(t, "msg-1", parked.MessageID)
	assert.Equal(t, "orders.snapshots", parked.QueueName)
	assert.Equal(t, "orders.snapshot", parked.RoutingKey)
	assert.Equal(t, "storage unavailable", parked.LastError)
	assert.Equal(t, defaultMaxRetries, parked.MaxRetries)
	assert.Zero(t, parked.RetryCount)
}

func TestConsumer_ParkFailureRequeuesMessage(t *testing.T) {
	svc := &fakeSnapshotService{err: errors.New("storage unavailable")}
	repo := &fakeInboxRepo{err: errors.New("inbox unavailable")}
	c := newTestConsumer(svc, repo)

	ack := &fakeAcknowledger{}
	err := c.handleMessage(context.Background(), amqp.Delivery{
		Acknowledger: ack,
		Body:         snapshotBody(t, "order_01"),
	})
	require.NoError(t, err)

	assert.False(t, ack.acked)
	assert.True(t, ack.nacked)
	assert.True(t, ack.requeue)
}
