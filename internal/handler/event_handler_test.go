package handler_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go-gin-ticket-ledger/internal/handler"
	"go-gin-ticket-ledger/internal/model"
	apperrors "go-gin-ticket-ledger/pkg/app_errors"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func setupEventTestRouter(mockService *MockEventService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	handler.NewEventHandler(mockService, nil).RegisterRoutes(router)
	return router
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestCreateEvent(t *testing.T) {
	date := time.Date(2026, 12, 1, 20, 0, 0, 0, time.UTC)

	t.Run("Success", func(t *testing.T) {
		mockService := new(MockEventService)
		router := setupEventTestRouter(mockService)

		mockService.On("CreateEvent", mock.Anything, model.CreateEventParams{
			Organizer:   "0xorganizer",
			MetadataURI: "ipfs://meta",
			TicketPrice: 100,
			MaxTickets:  10,
			EventDate:   date,
		}).Return(&model.Event{ID: 0, Organizer: "0xorganizer", TicketPrice: 100, MaxTickets: 10}, nil).Once()

		req := createJSONHTTPRequest("POST", "/api/v1/events", handler.CreateEventRequest{
			MetadataURI: "ipfs://meta",
			TicketPrice: 100,
			MaxTickets:  10,
			EventDate:   date,
		}, "0xorganizer")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("Failed - missing caller", func(t *testing.T) {
		mockService := new(MockEventService)
		router := setupEventTestRouter(mockService)

		req := createJSONHTTPRequest("POST", "/api/v1/events", handler.CreateEventRequest{EventDate: date}, "")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "InvalidIdentity", decodeError(t, w).Code)
		mockService.AssertNotCalled(t, "CreateEvent", mock.Anything, mock.Anything)
	})

	t.Run("Failed - invalid JSON", func(t *testing.T) {
		mockService := new(MockEventService)
		router := setupEventTestRouter(mockService)

		req := createJSONHTTPRequest("POST", "/api/v1/events", InvalidJSON, "0xorganizer")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Failed - ErrInvalidEventParameters", func(t *testing.T) {
		mockService := new(MockEventService)
		router := setupEventTestRouter(mockService)

		mockService.On("CreateEvent", mock.Anything, mock.Anything).Return(nil, apperrors.ErrInvalidEventParameters).Once()

		req := createJSONHTTPRequest("POST", "/api/v1/events", handler.CreateEventRequest{EventDate: date}, "0xorganizer")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		body := decodeError(t, w)
		assert.Equal(t, "InvalidEventParameters", body.Code)
		assert.Equal(t, "validation", body.Kind)
	})
}

func TestBuyTicket_ErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{apperrors.ErrEventSoldOut, http.StatusConflict, "EventSoldOut"},
		{apperrors.ErrEventCancelled, http.StatusConflict, "EventCancelled"},
		{apperrors.ErrNotAllowedToBuyOwnTicket, http.StatusForbidden, "NotAllowedToBuyOwnTicket"},
		{apperrors.ErrIncorrectPayment, http.StatusPaymentRequired, "IncorrectPayment"},
		{apperrors.ErrEventNotFound, http.StatusNotFound, "EventNotFound"},
		{fmt.Errorf("%w: bank down", apperrors.ErrPaymentFailed), http.StatusBadGateway, "PaymentFailed"},
		{errors.New("connection reset"), http.StatusInternalServerError, "InternalServerError"},
	}

	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			mockService := new(MockEventService)
			router := setupEventTestRouter(mockService)

			mockService.On("BuyTicket", mock.Anything, int64(3), model.Identity("0xalice"), model.Amount(100)).
				Return(nil, tc.err).Once()

			req := createJSONHTTPRequest("POST", "/api/v1/events/3/tickets", handler.AmountRequest{Amount: 100}, "0xalice")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tc.status, w.Code)
			assert.Equal(t, tc.code, decodeError(t, w).Code)
			mockService.AssertExpectations(t)
		})
	}
}

func TestBuyTicket_InternalErrorsAreNotLeaked(t *testing.T) {
	mockService := new(MockEventService)
	router := setupEventTestRouter(mockService)

	mockService.On("BuyTicket", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("pq: password authentication failed")).Once()

	req := createJSONHTTPRequest("POST", "/api/v1/events/0/tickets", handler.AmountRequest{Amount: 1}, "0xalice")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal server error", decodeError(t, w).Error)
}

func TestGetEvent(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		mockService := new(MockEventService)
		router := setupEventTestRouter(mockService)

		mockService.On("GetEvent", mock.Anything, int64(7)).Return(&model.Event{ID: 7, MaxTickets: 5}, nil).Once()

		req, _ := http.NewRequest("GET", "/api/v1/events/7", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var event model.Event
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &event))
		assert.Equal(t, int64(7), event.ID)
	})

	t.Run("Failed - invalid id", func(t *testing.T) {
		mockService := new(MockEventService)
		router := setupEventTestRouter(mockService)

		req, _ := http.NewRequest("GET", "/api/v1/events/abc", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		mockService.AssertNotCalled(t, "GetEvent", mock.Anything, mock.Anything)
	})
}

func TestCancelEvent_PassesRefundPool(t *testing.T) {
	mockService := new(MockEventService)
	router := setupEventTestRouter(mockService)

	receipt := &model.CancellationReceipt{EventID: 1, RefundPool: 500, TotalRefunded: 400, Surplus: 100, Refunds: []model.Refund{}}
	mockService.On("CancelEvent", mock.Anything, int64(1), model.Identity("0xorganizer"), model.Amount(500)).
		Return(receipt, nil).Once()

	req := createJSONHTTPRequest("POST", "/api/v1/events/1/cancel", handler.AmountRequest{Amount: 500}, "0xorganizer")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var got model.CancellationReceipt
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, model.Amount(100), got.Surplus)
	mockService.AssertExpectations(t)
}

func TestIdempotency_ReplaysPurchase(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockService := new(MockEventService)
	idem, err := handler.NewIdempotency(16)
	require.NoError(t, err)
	router := gin.New()
	handler.NewEventHandler(mockService, idem).RegisterRoutes(router)

	mockService.On("BuyTicket", mock.Anything, int64(1), model.Identity("0xalice"), model.Amount(100)).
		Return(&model.Ticket{ID: 9, EventID: 1, Owner: "0xalice"}, nil).Once()

	send := func(caller model.Identity) *httptest.ResponseRecorder {
		req := createJSONHTTPRequest("POST", "/api/v1/events/1/tickets", handler.AmountRequest{Amount: 100}, caller)
		req.Header.Set(handler.IdempotencyHeader, "order-1")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	first := send("0xalice")
	second := send("0xalice")

	assert.Equal(t, http.StatusCreated, first.Code)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "true", second.Header().Get(handler.ReplayedHeader))
	mockService.AssertNumberOfCalls(t, "BuyTicket", 1)

	// 不同呼叫者使用相同 key 不會互相回放
	mockService.On("BuyTicket", mock.Anything, int64(1), model.Identity("0xbob"), model.Amount(100)).
		Return(nil, apperrors.ErrEventSoldOut).Once()
	third := send("0xbob")
	assert.Equal(t, http.StatusConflict, third.Code)
	assert.Empty(t, third.Header().Get(handler.ReplayedHeader))
}
