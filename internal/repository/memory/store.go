// Package memory 提供帳本 repository 的記憶體實作，供單機部署與測試使用。
//
// 同一時間只有一個寫入交易；交易在已提交狀態的複本上運作，提交時整份替換，
// 讀取端只會看到最後一次提交的快照。
package memory

import (
	"context"
	"sync"
	"time"

	"go-gin-ticket-ledger/internal/clock"
	"go-gin-ticket-ledger/internal/model"
	"go-gin-ticket-ledger/internal/repository"

	"github.com/google/uuid"
)

type profileKey struct {
	fan       model.Identity
	organizer model.Identity
}

type state struct {
	nextEventID  int64
	nextTicketID int64
	listingSeq   int64

	events        map[int64]*model.Event
	escrow        map[int64][]*model.EscrowRecord
	tickets       map[int64]*model.Ticket
	listings      map[int64]*model.Listing
	profiles      map[profileKey]*model.LoyaltyProfile
	goldReq       map[model.Identity]int
	accounts      map[model.Identity]model.Amount
	// 通知紀錄與其鍵集合在快照間共用，只由持有 writeMu 的交易寫入
	notifications []*model.Notification
	notifyKeys    map[uuid.UUID]struct{}
	pendingKeys   map[uuid.UUID]struct{}
}

func newState() *state {
	return &state{
		events:     make(map[int64]*model.Event),
		escrow:     make(map[int64][]*model.EscrowRecord),
		tickets:    make(map[int64]*model.Ticket),
		listings:   make(map[int64]*model.Listing),
		profiles:   make(map[profileKey]*model.LoyaltyProfile),
		goldReq:    make(map[model.Identity]int),
		accounts:   make(map[model.Identity]model.Amount),
		notifyKeys: make(map[uuid.UUID]struct{}),
	}
}

func (s *state) hasNotification(key uuid.UUID) bool {
	if _, ok := s.notifyKeys[key]; ok {
		return true
	}
	_, ok := s.pendingKeys[key]
	return ok
}

func (s *state) clone() *state {
	c := newState()
	c.nextEventID = s.nextEventID
	c.nextTicketID = s.nextTicketID
	c.listingSeq = s.listingSeq

	for id, e := range s.events {
		ev := *e
		c.events[id] = &ev
	}
	for id, records := range s.escrow {
		cp := make([]*model.EscrowRecord, len(records))
		for i, rec := range records {
			r := *rec
			cp[i] = &r
		}
		c.escrow[id] = cp
	}
	for id, t := range s.tickets {
		tk := *t
		c.tickets[id] = &tk
	}
	for id, l := range s.listings {
		ls := *l
		c.listings[id] = &ls
	}
	for k, p := range s.profiles {
		pr := *p
		c.profiles[k] = &pr
	}
	for k, v := range s.goldReq {
		c.goldReq[k] = v
	}
	for k, v := range s.accounts {
		c.accounts[k] = v
	}
	// 已提交快照只讀到自己的長度，交易附加寫在其後的容量，rollback 後由下一個交易覆寫
	c.notifications = s.notifications
	c.notifyKeys = s.notifyKeys
	return c
}

type Store struct {
	writeMu sync.Mutex // 序列化寫入交易

	mu        sync.RWMutex
	committed *state

	clock clock.Clock
}

func NewStore(clk clock.Clock) *Store {
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &Store{committed: newState(), clock: clk}
}

type txKey struct{ store *Store }

func (s *Store) txState(ctx context.Context) *state {
	st, _ := ctx.Value(txKey{s}).(*state)
	return st
}

// WithTx 巢狀呼叫加入外層交易；fn 回傳錯誤時丟棄整份複本
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.txState(ctx) != nil {
		return fn(ctx)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	work := s.committed.clone()
	s.mu.RUnlock()

	if err := fn(context.WithValue(ctx, txKey{s}, work)); err != nil {
		return err
	}

	for k := range work.pendingKeys {
		work.notifyKeys[k] = struct{}{}
	}
	work.pendingKeys = nil

	s.mu.Lock()
	s.committed = work
	s.mu.Unlock()
	return nil
}

// read 交易中回傳交易狀態，否則回傳已提交快照 (提交後不再被修改)
func (s *Store) read(ctx context.Context) *state {
	if st := s.txState(ctx); st != nil {
		return st
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.committed
}

// write 在交易中執行 fn，ctx 沒有交易時自動開一個
func (s *Store) write(ctx context.Context, fn func(st *state) error) error {
	return s.WithTx(ctx, func(ctx context.Context) error {
		return fn(s.txState(ctx))
	})
}

func (s *Store) now() time.Time {
	return s.clock.Now()
}

// Repositories 回傳以此 Store 為後端的完整 repository 組合
func (s *Store) Repositories() *repository.Repositories {
	return &repository.Repositories{
		Tx:            s,
		Events:        &eventRepository{s},
		Escrow:        &escrowRepository{s},
		Tickets:       &ticketRepository{s},
		Listings:      &listingRepository{s},
		Loyalty:       &loyaltyRepository{s},
		Accounts:      &accountRepository{s},
		Notifications: &notificationRepository{s},
	}
}
