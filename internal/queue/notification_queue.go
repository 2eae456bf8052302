package queue

import (
	"context"

	"go-gin-ticket-ledger/internal/model"
)

type Delivery struct {
	Data *model.Notification
	Ack  func()
	Nack func(requeue bool)
}

// NotificationQueue 帳本提交後的通知管道，消費端為索引 worker
type NotificationQueue interface {
	Publish(ctx context.Context, n *model.Notification) error
	Subscribe(ctx context.Context) (<-chan Delivery, error)
}

type MemoryNotificationQueue struct {
	// 使用 Go channel 模擬 MQ
	ch chan *model.Notification
}

func NewMemoryNotificationQueue(bufferSize int) *MemoryNotificationQueue {
	return &MemoryNotificationQueue{
		ch: make(chan *model.Notification, bufferSize),
	}
}

func (q *MemoryNotificationQueue) Publish(ctx context.Context, n *model.Notification) error {
	select {
	case q.ch <- n:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *MemoryNotificationQueue) Subscribe(ctx context.Context) (<-chan Delivery, error) {
	out := make(chan Delivery)

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case n := <-q.ch:
				d := Delivery{
					Data: n,
					Ack:  func() {},
					Nack: func(requeue bool) {
						if !requeue {
							return
						}
						// 緩衝已滿時放棄重送，避免卡住消費者
						select {
						case q.ch <- n:
						default:
						}
					},
				}
				select {
				case out <- d:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}
