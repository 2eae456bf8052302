package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go-gin-ticket-ledger/internal/clock"
	"go-gin-ticket-ledger/internal/model"
	"go-gin-ticket-ledger/internal/queue"
	"go-gin-ticket-ledger/internal/repository"
	"go-gin-ticket-ledger/internal/repository/memory"
	"go-gin-ticket-ledger/internal/service"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

const (
	organizer model.Identity = "0xorganizer"
	alice     model.Identity = "0xalice"
	bob       model.Identity = "0xbob"
	carol     model.Identity = "0xcarol"
)

type fixture struct {
	ledger *service.Ledger
	repos  *repository.Repositories
	deps   service.LedgerDeps
}

type option func(*service.LedgerDeps)

// withFlakyPayer 以帳本餘額付款，另可指定失敗對象
func withFlakyPayer(p *flakyPayer) option {
	return func(d *service.LedgerDeps) {
		p.inner = service.NewAccountPayer(d.Repos.Accounts)
		d.Payer = p
	}
}

func withQueue(q queue.NotificationQueue) option {
	return func(d *service.LedgerDeps) { d.Queue = q }
}

func withInventory(inv *MockInventory) option {
	return func(d *service.LedgerDeps) { d.Inventory = inv }
}

func newFixture(t *testing.T, opts ...option) *fixture {
	t.Helper()
	return newFixtureOn(t, memory.NewStore(clock.NewFixed(testNow)).Repositories(), opts...)
}

func newFixtureOn(t *testing.T, repos *repository.Repositories, opts ...option) *fixture {
	t.Helper()
	deps := service.LedgerDeps{Repos: repos, Clock: clock.NewFixed(testNow)}
	for _, opt := range opts {
		opt(&deps)
	}
	return &fixture{ledger: service.NewLedger(deps), repos: repos, deps: deps}
}

func eventParams(price model.Amount, maxTickets int) model.CreateEventParams {
	return model.CreateEventParams{
		Organizer:   organizer,
		MetadataURI: "ipfs://event-metadata",
		TicketPrice: price,
		MaxTickets:  maxTickets,
		EventDate:   testNow.Add(30 * 24 * time.Hour),
	}
}

func (f *fixture) createEvent(t *testing.T, price model.Amount, maxTickets int) *model.Event {
	t.Helper()
	event, err := f.ledger.Events.CreateEvent(context.Background(), eventParams(price, maxTickets))
	require.NoError(t, err)
	return event
}

func (f *fixture) buy(t *testing.T, eventID int64, buyer model.Identity, amount model.Amount) *model.Ticket {
	t.Helper()
	ticket, err := f.ledger.Events.BuyTicket(context.Background(), eventID, buyer, amount)
	require.NoError(t, err)
	return ticket
}

func (f *fixture) balance(t *testing.T, who model.Identity) model.Amount {
	t.Helper()
	b, err := f.ledger.Accounts.BalanceOf(context.Background(), who)
	require.NoError(t, err)
	return b
}

func (f *fixture) event(t *testing.T, id int64) *model.Event {
	t.Helper()
	e, err := f.ledger.Events.GetEvent(context.Background(), id)
	require.NoError(t, err)
	return e
}

// flakyPayer 對指定身份的付款一律失敗，其餘交給 inner
type flakyPayer struct {
	inner   service.Payer
	mu      sync.Mutex
	failFor model.Identity
	paid    []model.Identity
}

var errTransferRejected = errors.New("transfer rejected")

func (p *flakyPayer) Pay(ctx context.Context, to model.Identity, amount model.Amount) error {
	p.mu.Lock()
	fail := p.failFor
	p.paid = append(p.paid, to)
	p.mu.Unlock()
	if !fail.IsZero() && to == fail {
		return errTransferRejected
	}
	return p.inner.Pay(ctx, to, amount)
}

// payees 回傳並清空目前為止的付款對象（依呼叫順序）
func (p *flakyPayer) payees() []model.Identity {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := p.paid
	p.paid = nil
	return out
}

func (p *flakyPayer) failPaymentsTo(who model.Identity) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failFor = who
}

type MockInventory struct {
	mock.Mock
}

func (m *MockInventory) WarmUpInventory(ctx context.Context, eventID int64, remaining int) error {
	args := m.Called(ctx, eventID, remaining)
	return args.Error(0)
}

func (m *MockInventory) GetRemaining(ctx context.Context, eventID int64) (int, error) {
	args := m.Called(ctx, eventID)
	return args.Int(0), args.Error(1)
}

func (m *MockInventory) Reserve(ctx context.Context, eventID int64) error {
	args := m.Called(ctx, eventID)
	return args.Error(0)
}

func (m *MockInventory) Release(ctx context.Context, eventID int64) error {
	args := m.Called(ctx, eventID)
	return args.Error(0)
}

func (m *MockInventory) Evict(ctx context.Context, eventID int64) error {
	args := m.Called(ctx, eventID)
	return args.Error(0)
}
