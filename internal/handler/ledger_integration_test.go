package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go-gin-ticket-ledger/internal/clock"
	"go-gin-ticket-ledger/internal/handler"
	"go-gin-ticket-ledger/internal/model"
	"go-gin-ticket-ledger/internal/repository/memory"
	"go-gin-ticket-ledger/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var integrationNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type apiClient struct {
	t      *testing.T
	router *gin.Engine
}

func newLedgerRouter(t *testing.T) *apiClient {
	t.Helper()
	gin.SetMode(gin.TestMode)
	clk := clock.NewFixed(integrationNow)
	ledger := service.NewLedger(service.LedgerDeps{
		Repos: memory.NewStore(clk).Repositories(),
		Clock: clk,
	})
	idem, err := handler.NewIdempotency(64)
	require.NoError(t, err)

	router := gin.New()
	handler.RegisterLedgerRoutes(router, ledger, idem)
	return &apiClient{t: t, router: router}
}

func (a *apiClient) do(method, url string, body interface{}, caller model.Identity, out interface{}) int {
	a.t.Helper()
	var req *http.Request
	if body != nil {
		req = createJSONHTTPRequest(method, url, body, caller)
	} else {
		req, _ = http.NewRequest(method, url, nil)
		if caller != "" {
			req.Header.Set(handler.CallerHeader, string(caller))
		}
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	if out != nil && w.Body.Len() > 0 {
		require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), out), w.Body.String())
	}
	return w.Code
}

func TestLedgerAPI_PrimarySaleResaleAndCancel(t *testing.T) {
	api := newLedgerRouter(t)

	var event model.Event
	status := api.do("POST", "/api/v1/events", handler.CreateEventRequest{
		MetadataURI: "ipfs://concert",
		TicketPrice: 100,
		MaxTickets:  2,
		EventDate:   integrationNow.Add(72 * time.Hour),
	}, "0xorganizer", &event)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, int64(0), event.ID)

	var ticket model.Ticket
	require.Equal(t, http.StatusCreated, api.do("POST", "/api/v1/events/0/tickets",
		handler.AmountRequest{Amount: 100}, "0xalice", &ticket))
	assert.Equal(t, model.Identity("0xalice"), ticket.Owner)

	var errBody errorBody
	assert.Equal(t, http.StatusPaymentRequired, api.do("POST", "/api/v1/events/0/tickets",
		handler.AmountRequest{Amount: 99}, "0xbob", &errBody))
	assert.Equal(t, "IncorrectPayment", errBody.Code)

	assert.Equal(t, http.StatusForbidden, api.do("POST", "/api/v1/events/0/tickets",
		handler.AmountRequest{Amount: 100}, "0xorganizer", &errBody))
	assert.Equal(t, "NotAllowedToBuyOwnTicket", errBody.Code)

	var detail handler.TicketResponse
	require.Equal(t, http.StatusOK, api.do("GET", "/api/v1/tickets/0", nil, "", &detail))
	assert.Equal(t, "ipfs://concert", detail.TokenURI)

	// 二級市場
	var listing model.Listing
	ticketID := ticket.ID
	require.Equal(t, http.StatusCreated, api.do("POST", "/api/v1/listings",
		handler.ListTicketRequest{TicketID: &ticketID, AskPrice: 150}, "0xalice", &listing))
	assert.Equal(t, int64(0), listing.EventID)

	var listings handler.ListingsResponse
	require.Equal(t, http.StatusOK, api.do("GET", "/api/v1/events/0/listings", nil, "", &listings))
	assert.Equal(t, []int64{0}, listings.TicketIDs)

	var resale model.Resale
	require.Equal(t, http.StatusOK, api.do("POST", "/api/v1/listings/0/purchase",
		handler.AmountRequest{Amount: 150}, "0xbob", &resale))
	assert.Equal(t, model.Identity("0xbob"), resale.Buyer)

	var owner handler.OwnerResponse
	require.Equal(t, http.StatusOK, api.do("GET", "/api/v1/tickets/0/owner", nil, "", &owner))
	assert.Equal(t, model.Identity("0xbob"), owner.Owner)

	assert.Equal(t, http.StatusConflict, api.do("POST", "/api/v1/listings/0/purchase",
		handler.AmountRequest{Amount: 150}, "0xcarol", &errBody))
	assert.Equal(t, "NotListed", errBody.Code)

	var balance handler.BalanceResponse
	require.Equal(t, http.StatusOK, api.do("GET", "/api/v1/accounts/0xalice/balance", nil, "", &balance))
	assert.Equal(t, model.Amount(150), balance.Balance)

	// 取消活動：退款給原始買家
	var total handler.TotalReceivedResponse
	require.Equal(t, http.StatusOK, api.do("GET", "/api/v1/events/0/total-received", nil, "", &total))
	assert.Equal(t, model.Amount(100), total.TotalReceived)

	assert.Equal(t, http.StatusPaymentRequired, api.do("POST", "/api/v1/events/0/cancel",
		handler.AmountRequest{Amount: 50}, "0xorganizer", &errBody))
	assert.Equal(t, "InsufficientRefund", errBody.Code)

	var receipt model.CancellationReceipt
	require.Equal(t, http.StatusOK, api.do("POST", "/api/v1/events/0/cancel",
		handler.AmountRequest{Amount: 100}, "0xorganizer", &receipt))
	assert.Equal(t, model.Amount(100), receipt.TotalRefunded)

	require.Equal(t, http.StatusOK, api.do("GET", "/api/v1/accounts/0xalice/balance", nil, "", &balance))
	assert.Equal(t, model.Amount(250), balance.Balance)

	assert.Equal(t, http.StatusConflict, api.do("POST", "/api/v1/events/0/cancel",
		handler.AmountRequest{Amount: 100}, "0xorganizer", &errBody))
	assert.Equal(t, "AlreadyCancelled", errBody.Code)

	var counters handler.CountersResponse
	require.Equal(t, http.StatusOK, api.do("GET", "/api/v1/counters", nil, "", &counters))
	assert.Equal(t, handler.CountersResponse{NextEventID: 1, NextTokenID: 1}, counters)
}

func TestLedgerAPI_Loyalty(t *testing.T) {
	api := newLedgerRouter(t)

	two := 2
	require.Equal(t, http.StatusOK, api.do("PUT", "/api/v1/loyalty/gold-requirement",
		handler.GoldRequirementRequest{Requirement: &two}, "0xorganizer", nil))

	var status model.LoyaltyStatus
	for i := 0; i < 2; i++ {
		require.Equal(t, http.StatusOK, api.do("POST", "/api/v1/loyalty/attendance",
			handler.AttendanceRequest{Fan: "0xalice"}, "0xorganizer", &status))
	}
	assert.Equal(t, 2, status.AttendedCount)
	assert.Equal(t, model.TierGold, status.Tier)

	var errBody errorBody
	assert.Equal(t, http.StatusForbidden, api.do("POST", "/api/v1/loyalty/attendance",
		handler.AttendanceRequest{Fan: "0xorganizer"}, "0xorganizer", &errBody))
	assert.Equal(t, "SelfAttendance", errBody.Code)

	require.Equal(t, http.StatusOK, api.do("GET", "/api/v1/loyalty/organizers/0xorganizer/fans/0xalice", nil, "", &status))
	assert.Equal(t, model.TierGold, status.Tier)
	assert.Equal(t, 2, status.GoldRequirement)
}

func TestLedgerAPI_UnknownResources(t *testing.T) {
	api := newLedgerRouter(t)

	var errBody errorBody
	assert.Equal(t, http.StatusNotFound, api.do("GET", "/api/v1/events/42", nil, "", &errBody))
	assert.Equal(t, "EventNotFound", errBody.Code)

	assert.Equal(t, http.StatusNotFound, api.do("GET", "/api/v1/tickets/42/owner", nil, "", &errBody))
	assert.Equal(t, "UnknownTicket", errBody.Code)

	assert.Equal(t, http.StatusNotFound, api.do("GET", "/api/v1/events/42/activity", nil, "", &errBody))

	assert.Equal(t, http.StatusBadRequest, api.do("GET", "/api/v1/tickets", nil, "", &errBody))
}
