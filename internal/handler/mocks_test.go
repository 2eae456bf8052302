package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"go-gin-ticket-ledger/internal/model"

	"github.com/stretchr/testify/mock"
)

type MockEventService struct {
	mock.Mock
}

func (m *MockEventService) CreateEvent(ctx context.Context, params model.CreateEventParams) (*model.Event, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Event), args.Error(1)
}

func (m *MockEventService) BuyTicket(ctx context.Context, eventID int64, buyer model.Identity, amountPaid model.Amount) (*model.Ticket, error) {
	args := m.Called(ctx, eventID, buyer, amountPaid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Ticket), args.Error(1)
}

func (m *MockEventService) UpdateEventMetadataURI(ctx context.Context, eventID int64, caller model.Identity, metadataURI string) (*model.Event, error) {
	args := m.Called(ctx, eventID, caller, metadataURI)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Event), args.Error(1)
}

func (m *MockEventService) UpdateTicketPrice(ctx context.Context, eventID int64, caller model.Identity, price model.Amount) (*model.Event, error) {
	args := m.Called(ctx, eventID, caller, price)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Event), args.Error(1)
}

func (m *MockEventService) CancelEvent(ctx context.Context, eventID int64, caller model.Identity, refundPool model.Amount) (*model.CancellationReceipt, error) {
	args := m.Called(ctx, eventID, caller, refundPool)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CancellationReceipt), args.Error(1)
}

func (m *MockEventService) TotalReceived(ctx context.Context, eventID int64) (model.Amount, error) {
	args := m.Called(ctx, eventID)
	return args.Get(0).(model.Amount), args.Error(1)
}

func (m *MockEventService) GetEvent(ctx context.Context, eventID int64) (*model.Event, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Event), args.Error(1)
}

func (m *MockEventService) ListEvents(ctx context.Context) ([]*model.Event, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Event), args.Error(1)
}

func (m *MockEventService) NextEventID(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockEventService) EventBuyers(ctx context.Context, eventID int64) ([]model.Identity, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Identity), args.Error(1)
}

func (m *MockEventService) Payment(ctx context.Context, eventID int64, buyer model.Identity) (model.Amount, error) {
	args := m.Called(ctx, eventID, buyer)
	return args.Get(0).(model.Amount), args.Error(1)
}

func (m *MockEventService) WarmUpInventory(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

var (
	InvalidJSON = `{"invalid": json}`
)

// create JSON request body
func createJSONRequest(data interface{}) *bytes.Buffer {
	if s, ok := data.(string); ok {
		return bytes.NewBufferString(s)
	}
	jsonData, err := json.Marshal(data)
	if err != nil {
		return bytes.NewBuffer([]byte(""))
	}
	return bytes.NewBuffer(jsonData)
}

// create HTTP request with JSON body, signed by caller when not empty
func createJSONHTTPRequest(method, url string, data interface{}, caller model.Identity) *http.Request {
	req, err := http.NewRequest(method, url, createJSONRequest(data))
	if err != nil {
		return nil
	}
	req.Header.Set("Content-Type", "application/json")
	if caller != "" {
		req.Header.Set("X-Wallet-Address", string(caller))
	}
	return req
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	Kind  string `json:"kind"`
}
