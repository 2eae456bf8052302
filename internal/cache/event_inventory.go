package cache

import (
	"context"
	"errors"
	"fmt"

	apperrors "go-gin-ticket-ledger/pkg/app_errors"

	"github.com/redis/go-redis/v9"
)

// ErrNotWarmed 活動庫存尚未預熱到 Redis，呼叫端應直接走資料庫
var ErrNotWarmed = errors.New("event inventory not warmed")

// EventInventoryManager 售完的快速前置檢查。資料庫仍是唯一權威，
// 這裡只用來在鎖定活動列之前擋掉已售完的請求。
type EventInventoryManager interface {
	// 預熱：載入活動剩餘票數
	WarmUpInventory(ctx context.Context, eventID int64, remaining int) error
	GetRemaining(ctx context.Context, eventID int64) (int, error)
	// 預留：原子性扣減一張，售完回傳 ErrEventSoldOut
	Reserve(ctx context.Context, eventID int64) error
	// 釋放：交易失敗時歸還預留
	Release(ctx context.Context, eventID int64) error
	// 移除：活動取消後不再需要
	Evict(ctx context.Context, eventID int64) error
}

type RedisEventInventoryManager struct {
	client *redis.Client
}

func NewRedisEventInventoryManager(client *redis.Client) *RedisEventInventoryManager {
	return &RedisEventInventoryManager{
		client: client,
	}
}

func inventoryKey(eventID int64) string {
	return fmt.Sprintf("event:%d:inventory", eventID)
}

func (m *RedisEventInventoryManager) WarmUpInventory(ctx context.Context, eventID int64, remaining int) error {
	return m.client.Set(ctx, inventoryKey(eventID), remaining, 0).Err()
}

func (m *RedisEventInventoryManager) GetRemaining(ctx context.Context, eventID int64) (int, error) {
	val, err := m.client.Get(ctx, inventoryKey(eventID)).Int()
	if errors.Is(err, redis.Nil) {
		return -1, ErrNotWarmed
	}
	return val, err
}

var reserveScript = redis.NewScript(`
	local remaining = redis.call('GET', KEYS[1])
	if not remaining then
		return -2 -- 未預熱
	end
	if tonumber(remaining) <= 0 then
		return -1 -- 售完
	end
	redis.call('DECR', KEYS[1])
	return 1
`)

// 只在 key 存在時歸還，避免 Evict 之後又被建立
var releaseScript = redis.NewScript(`
	if redis.call('EXISTS', KEYS[1]) == 1 then
		return redis.call('INCR', KEYS[1])
	end
	return -1
`)

func (m *RedisEventInventoryManager) Reserve(ctx context.Context, eventID int64) error {
	code, err := reserveScript.Run(ctx, m.client, []string{inventoryKey(eventID)}).Int64()
	if err != nil {
		return err
	}
	switch code {
	case 1:
		return nil
	case -1:
		return apperrors.ErrEventSoldOut
	case -2:
		return ErrNotWarmed
	default:
		return fmt.Errorf("unexpected reserve result %d", code)
	}
}

func (m *RedisEventInventoryManager) Release(ctx context.Context, eventID int64) error {
	return releaseScript.Run(ctx, m.client, []string{inventoryKey(eventID)}).Err()
}

func (m *RedisEventInventoryManager) Evict(ctx context.Context, eventID int64) error {
	return m.client.Del(ctx, inventoryKey(eventID)).Err()
}
