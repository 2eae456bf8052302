package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go-gin-ticket-ledger/internal/model"
	"go-gin-ticket-ledger/internal/queue"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockNotificationService struct {
	mock.Mock
}

func (m *MockNotificationService) Record(ctx context.Context, n *model.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

func (m *MockNotificationService) ListByEvent(ctx context.Context, eventID int64) ([]*model.Notification, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Notification), args.Error(1)
}

// fakeQueue 記錄 Ack / Nack
type fakeQueue struct {
	ch     chan queue.Delivery
	mu     sync.Mutex
	acked  []uuid.UUID
	nacked []uuid.UUID
}

func newFakeQueue() *fakeQueue {
	return &fakeQueue{ch: make(chan queue.Delivery, 8)}
}

func (q *fakeQueue) Publish(ctx context.Context, n *model.Notification) error {
	q.ch <- queue.Delivery{
		Data: n,
		Ack: func() {
			q.mu.Lock()
			defer q.mu.Unlock()
			q.acked = append(q.acked, n.Key)
		},
		Nack: func(requeue bool) {
			q.mu.Lock()
			defer q.mu.Unlock()
			q.nacked = append(q.nacked, n.Key)
		},
	}
	return nil
}

func (q *fakeQueue) Subscribe(ctx context.Context) (<-chan queue.Delivery, error) {
	return q.ch, nil
}

func TestNotificationWorker_AcksOnSuccessNacksOnFailure(t *testing.T) {
	svc := new(MockNotificationService)
	q := newFakeQueue()

	ok := &model.Notification{Key: uuid.New(), Type: model.NotificationEventCreated}
	bad := &model.Notification{Key: uuid.New(), Type: model.NotificationTicketPurchased}
	svc.On("Record", mock.Anything, ok).Return(nil)
	svc.On("Record", mock.Anything, bad).Return(errors.New("db down"))

	w := NewNotificationWorker(svc, q)
	done, err := w.Start(context.Background())
	require.NoError(t, err)

	require.NoError(t, q.Publish(context.Background(), ok))
	require.NoError(t, q.Publish(context.Background(), bad))
	close(q.ch)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}

	assert.Equal(t, []uuid.UUID{ok.Key}, q.acked)
	assert.Equal(t, []uuid.UUID{bad.Key}, q.nacked)
	svc.AssertExpectations(t)
}
