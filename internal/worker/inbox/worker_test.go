package inbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	inboxmodel "github.com/huongnv75/customer-orders/internal/service/models/inbox"
	"github.com/huongnv75/customer-orders/internal/service/models/order"
)

type fakeInboxRepo struct {
	pending []inboxmodel.Message

	deletedIDs  []int64
	retriedIDs  []int64
	retryCounts []int
	nextRetries []time.Time
}

func (f *fakeInboxRepo) Insert(_ context.Context, _ inboxmodel.Message) error {
	return nil
}

func (f *fakeInboxRepo) GetPendingMessages(_ context.Context, _ int) ([]inboxmodel.Message, error) {
	return f.pending, nil
}

func (f *fakeInboxRepo) Delete(_ context.Context, id int64) error {
	f.deletedIDs = append(f.deletedIDs, id)

	return nil
}

func (f *fakeInboxRepo) UpdateRetry(_ context.Context, id int64, retryCount int, _ string, nextRetryAt time.Time) error {
	f.retriedIDs = append(f.retriedIDs, id)
	f.retryCounts = append(f.retryCounts, retryCount)
	f.nextRetries = append(f.nextRetries, nextRetryAt)

	return nil
}

type fakeService struct {
	err     error
	applied []order.Order
}

func (f *fakeService) ApplyOrderSnapshot(_ context.Context, snapshot order.Order) error {
	if f.err != nil {
		return f.err
	}
	f.applied = append(f.applied, snapshot)

	return nil
}

func pendingMessage(t *testing.T, id int64, retryCount, maxRetries int) inboxmodel.Message {
	t.Helper()

	payload, err := json.Marshal(order.Order{ID: "order_01", CustomerID: "cus_01"})
	require.NoError(t, err)

	return inboxmodel.Message{
		ID:         id,
		MessageID:  "msg_01",
		Payload:    payload,
		RetryCount: retryCount,
		MaxRetries: maxRetries,
	}
}

func TestProcessMessages_DeletesOnSuccess(t *testing.T) {
	repo := &fakeInboxRepo{pending: []inboxmodel.Message{pendingMessage(t, 1, 0, 5)}}
	svc := &fakeService{}
	w := NewWorker(repo, svc, time.Second, 10)

	w.processMessages(context.Background())

	require.Len(t, svc.applied, 1)
	assert.Equal(t, "order_01", svc.applied[0].ID)
	assert.Equal(t, []int64{1}, repo.deletedIDs)
	assert.Empty(t, repo.retriedIDs)
}

func TestProcessMessages_SchedulesRetryWithBackoff(t *testing.T) {
	repo := &fakeInboxRepo{pending: []inboxmodel.Message{pendingMessage(t, 1, 1, 5)}}
	svc := &fakeService{err: errors.New("db down")}
	w := NewWorker(repo, svc, time.Second, 10)

	before := time.Now()
	w.processMessages(context.Background())

	require.Equal(t, []int64{1}, repo.retriedIDs)
	assert.Equal(t, []int{2}, repo.retryCounts)
	assert.Empty(t, repo.deletedIDs)

	// retry 2 -> 2^2 * 30s = 120s backoff
	require.Len(t, repo.nextRetries, 1)
	assert.WithinDuration(t, before.Add(120*time.Second), repo.nextRetries[0], 5*time.Second)
}

func TestProcessMessages_DropsAfterMaxRetries(t *testing.T) {
	repo := &fakeInboxRepo{pending: []inboxmodel.Message{pendingMessage(t, 1, 4, 5)}}
	svc := &fakeService{err: errors.New("db down")}
	w := NewWorker(repo, svc, time.Second, 10)

	w.processMessages(context.Background())

	assert.Equal(t, []int64{1}, repo.deletedIDs)
	assert.Empty(t, repo.retriedIDs)
}

func TestProcessMessages_MalformedPayloadIsRetried(t *testing.T) {
	repo := &fakeInboxRepo{pending: []inboxmodel.Message{{
		ID:         2,
		MessageID:  "msg_02",
		Payload:    []byte("not json"),
		RetryCount: 0,
		MaxRetries: 5,
	}}}
	svc := &fakeService{}
	w := NewWorker(repo, svc, time.Second, 10)

	w.processMessages(context.Background())

	assert.Empty(t, svc.applied)
	assert.Equal(t, []int64{2}, repo.retriedIDs)
	assert.Equal(t, []int{1}, repo.retryCounts)
}
