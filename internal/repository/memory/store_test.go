package memory

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"go-gin-ticket-ledger/internal/clock"
	"go-gin-ticket-ledger/internal/model"
	apperrors "go-gin-ticket-ledger/pkg/app_errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func newTestStore() *Store {
	return NewStore(clock.NewFixed(testNow))
}

func seedEvent(t *testing.T, s *Store, maxTickets int) *model.Event {
	t.Helper()
	e, err := s.Repositories().Events.Create(context.Background(), &model.Event{
		Organizer:   "org",
		TicketPrice: 100,
		MaxTickets:  maxTickets,
		EventDate:   testNow.Add(24 * time.Hour),
	})
	require.NoError(t, err)
	return e
}

func TestWithTx_RollbackDiscardsAllEffects(t *testing.T) {
	s := newTestStore()
	repos := s.Repositories()
	ctx := context.Background()
	event := seedEvent(t, s, 5)

	boom := errors.New("boom")
	err := repos.Tx.WithTx(ctx, func(ctx context.Context) error {
		require.NoError(t, repos.Events.IncrementTicketsSold(ctx, event.ID))
		require.NoError(t, repos.Escrow.Credit(ctx, event.ID, "alice", 100))
		_, err := repos.Tickets.Mint(ctx, event.ID, "alice")
		require.NoError(t, err)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := repos.Events.FindByID(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.TicketsSold)

	total, err := repos.Escrow.SumFor(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, model.Amount(0), total)

	// rollback 不消耗 token id
	next, err := repos.Tickets.NextID(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), next)
}

func TestWithTx_NestedJoinsOuter(t *testing.T) {
	s := newTestStore()
	repos := s.Repositories()
	ctx := context.Background()
	event := seedEvent(t, s, 5)

	err := repos.Tx.WithTx(ctx, func(ctx context.Context) error {
		return repos.Tx.WithTx(ctx, func(ctx context.Context) error {
			return repos.Escrow.Credit(ctx, event.ID, "alice", 100)
		})
	})
	require.NoError(t, err)

	amount, err := repos.Escrow.RecordFor(ctx, event.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, model.Amount(100), amount)
}

func TestWithTx_ReadersSeeCommittedSnapshot(t *testing.T) {
	s := newTestStore()
	repos := s.Repositories()
	ctx := context.Background()
	event := seedEvent(t, s, 5)

	err := repos.Tx.WithTx(ctx, func(txCtx context.Context) error {
		require.NoError(t, repos.Events.IncrementTicketsSold(txCtx, event.ID))

		inside, err := repos.Events.FindByID(txCtx, event.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, inside.TicketsSold)

		outside, err := repos.Events.FindByID(ctx, event.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, outside.TicketsSold)
		return nil
	})
	require.NoError(t, err)

	got, err := repos.Events.FindByID(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.TicketsSold)
}

func TestEvents_IncrementRespectsCapacity(t *testing.T) {
	s := newTestStore()
	repos := s.Repositories()
	ctx := context.Background()
	event := seedEvent(t, s, 2)

	require.NoError(t, repos.Events.IncrementTicketsSold(ctx, event.ID))
	require.NoError(t, repos.Events.IncrementTicketsSold(ctx, event.ID))
	assert.ErrorIs(t, repos.Events.IncrementTicketsSold(ctx, event.ID), apperrors.ErrEventSoldOut)
	assert.ErrorIs(t, repos.Events.IncrementTicketsSold(ctx, 99), apperrors.ErrEventNotFound)
}

func TestEvents_MarkCancelledOnce(t *testing.T) {
	s := newTestStore()
	repos := s.Repositories()
	ctx := context.Background()
	event := seedEvent(t, s, 2)

	require.NoError(t, repos.Events.MarkCancelled(ctx, event.ID))
	assert.ErrorIs(t, repos.Events.MarkCancelled(ctx, event.ID), apperrors.ErrAlreadyCancelled)
}

func TestEvents_ReturnedCopiesAreDetached(t *testing.T) {
	s := newTestStore()
	repos := s.Repositories()
	ctx := context.Background()
	event := seedEvent(t, s, 2)

	got, err := repos.Events.FindByID(ctx, event.ID)
	require.NoError(t, err)
	got.TicketsSold = 2

	again, err := repos.Events.FindByID(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, again.TicketsSold)
}

func TestEscrow_ListKeepsFirstCreditOrderAndZeroedRecords(t *testing.T) {
	s := newTestStore()
	repos := s.Repositories()
	ctx := context.Background()
	event := seedEvent(t, s, 5)

	require.NoError(t, repos.Escrow.Credit(ctx, event.ID, "bob", 100))
	require.NoError(t, repos.Escrow.Credit(ctx, event.ID, "alice", 100))
	require.NoError(t, repos.Escrow.Credit(ctx, event.ID, "bob", 100))
	require.NoError(t, repos.Escrow.Zero(ctx, event.ID, "alice"))

	records, err := repos.Escrow.ListByEvent(ctx, event.ID)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, model.Identity("bob"), records[0].Buyer)
	assert.Equal(t, model.Amount(200), records[0].Amount)
	assert.Equal(t, model.Identity("alice"), records[1].Buyer)
	assert.Equal(t, model.Amount(0), records[1].Amount)

	total, err := repos.Escrow.SumFor(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, model.Amount(200), total)
}

func TestListings_InsertionOrderAndUniqueness(t *testing.T) {
	s := newTestStore()
	repos := s.Repositories()
	ctx := context.Background()
	event := seedEvent(t, s, 5)

	var ids []int64
	for i := 0; i < 3; i++ {
		tk, err := repos.Tickets.Mint(ctx, event.ID, "alice")
		require.NoError(t, err)
		ids = append(ids, tk.ID)
	}

	for _, id := range []int64{ids[2], ids[0], ids[1]} {
		_, err := repos.Listings.Create(ctx, &model.Listing{TicketID: id, Seller: "alice", AskPrice: 50})
		require.NoError(t, err)
	}
	_, err := repos.Listings.Create(ctx, &model.Listing{TicketID: ids[0], Seller: "alice", AskPrice: 60})
	assert.ErrorIs(t, err, apperrors.ErrAlreadyListed)

	listings, err := repos.Listings.ListByEvent(ctx, event.ID)
	require.NoError(t, err)
	require.Len(t, listings, 3)
	assert.Equal(t, []int64{ids[2], ids[0], ids[1]},
		[]int64{listings[0].TicketID, listings[1].TicketID, listings[2].TicketID})

	require.NoError(t, repos.Listings.Delete(ctx, ids[0]))
	assert.ErrorIs(t, repos.Listings.Delete(ctx, ids[0]), apperrors.ErrNotListed)
	_, err = repos.Listings.FindByTicketID(ctx, ids[0])
	assert.ErrorIs(t, err, apperrors.ErrNotListed)
}

func TestTickets_UpdateOwnerClearsApproval(t *testing.T) {
	s := newTestStore()
	repos := s.Repositories()
	ctx := context.Background()
	event := seedEvent(t, s, 5)

	tk, err := repos.Tickets.Mint(ctx, event.ID, "alice")
	require.NoError(t, err)
	require.NoError(t, repos.Tickets.UpdateApproval(ctx, tk.ID, model.MarketplaceOperator))
	require.NoError(t, repos.Tickets.UpdateOwner(ctx, tk.ID, "bob"))

	got, err := repos.Tickets.FindByID(ctx, tk.ID)
	require.NoError(t, err)
	assert.Equal(t, model.Identity("bob"), got.Owner)
	assert.True(t, got.Approved.IsZero())

	_, err = repos.Tickets.FindByID(ctx, 42)
	assert.ErrorIs(t, err, apperrors.ErrTicketNotFound)
}

func TestNotifications_AppendIsIdempotentOnKey(t *testing.T) {
	s := newTestStore()
	repos := s.Repositories()
	ctx := context.Background()

	n := &model.Notification{Key: uuid.New(), Type: model.NotificationEventCreated, EventID: 7, OccurredAt: testNow}
	added, err := repos.Notifications.Append(ctx, n)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = repos.Notifications.Append(ctx, n)
	require.NoError(t, err)
	assert.False(t, added)

	list, err := repos.Notifications.ListByEvent(ctx, 7)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestNotifications_RolledBackAppendsLeaveNoTrace(t *testing.T) {
	s := newTestStore()
	repos := s.Repositories()
	ctx := context.Background()
	note := func() *model.Notification {
		return &model.Notification{Key: uuid.New(), Type: model.NotificationTicketPurchased, EventID: 3, OccurredAt: testNow}
	}

	first := note()
	_, err := repos.Notifications.Append(ctx, first)
	require.NoError(t, err)
	snapshot := s.read(ctx)

	dropped := note()
	errAbort := errors.New("abort")
	err = s.WithTx(ctx, func(ctx context.Context) error {
		added, err := repos.Notifications.Append(ctx, dropped)
		require.NoError(t, err)
		assert.True(t, added)
		// 同一交易內重複的鍵也要擋下
		added, err = repos.Notifications.Append(ctx, dropped)
		require.NoError(t, err)
		assert.False(t, added)
		return errAbort
	})
	require.ErrorIs(t, err, errAbort)

	kept := note()
	added, err := repos.Notifications.Append(ctx, kept)
	require.NoError(t, err)
	assert.True(t, added)

	// 被 rollback 的鍵仍可再寫入，已提交的鍵不行
	added, err = repos.Notifications.Append(ctx, dropped)
	require.NoError(t, err)
	assert.True(t, added)
	added, err = repos.Notifications.Append(ctx, kept)
	require.NoError(t, err)
	assert.False(t, added)

	list, err := repos.Notifications.ListByEvent(ctx, 3)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []uuid.UUID{first.Key, kept.Key, dropped.Key}, []uuid.UUID{list[0].Key, list[1].Key, list[2].Key})
	assert.Equal(t, []int64{1, 2, 3}, []int64{list[0].ID, list[1].ID, list[2].ID})

	require.Len(t, snapshot.notifications, 1)
	assert.Equal(t, first.Key, snapshot.notifications[0].Key)
}

func TestWithTx_ConcurrentWritersSerialize(t *testing.T) {
	s := newTestStore()
	repos := s.Repositories()
	ctx := context.Background()
	event := seedEvent(t, s, 10)

	var wg sync.WaitGroup
	var mu sync.Mutex
	success := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := repos.Tx.WithTx(ctx, func(ctx context.Context) error {
				if err := repos.Events.IncrementTicketsSold(ctx, event.ID); err != nil {
					return err
				}
				return repos.Escrow.Credit(ctx, event.ID, "alice", 100)
			})
			if err == nil {
				mu.Lock()
				success++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, success)
	total, err := repos.Escrow.SumFor(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, model.Amount(1000), total)
}

func TestCredit_RejectsOverflow(t *testing.T) {
	s := newTestStore()
	repos := s.Repositories()
	ctx := context.Background()

	require.NoError(t, repos.Escrow.Credit(ctx, 0, "alice", math.MaxInt64))
	assert.ErrorIs(t, repos.Escrow.Credit(ctx, 0, "alice", 1), apperrors.ErrInvalidAmount)
	held, err := repos.Escrow.RecordFor(ctx, 0, "alice")
	require.NoError(t, err)
	assert.Equal(t, model.Amount(math.MaxInt64), held)

	require.NoError(t, repos.Accounts.Credit(ctx, "org", math.MaxInt64))
	assert.ErrorIs(t, repos.Accounts.Credit(ctx, "org", 1), apperrors.ErrInvalidAmount)
	balance, err := repos.Accounts.BalanceOf(ctx, "org")
	require.NoError(t, err)
	assert.Equal(t, model.Amount(math.MaxInt64), balance)
}
