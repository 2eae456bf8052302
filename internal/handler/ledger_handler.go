package handler

import (
	"net/http"

	"go-gin-ticket-ledger/internal/model"
	"go-gin-ticket-ledger/internal/service"

	"github.com/gin-gonic/gin"
)

// LedgerHandler 帳本層級的查詢：帳戶餘額、id 計數器、活動紀錄
type LedgerHandler struct {
	ledger *service.Ledger
}

func NewLedgerHandler(ledger *service.Ledger) *LedgerHandler {
	return &LedgerHandler{ledger: ledger}
}

func (h *LedgerHandler) RegisterRoutes(r *gin.Engine) {
	router := r.Group("/api/v1")
	{
		router.GET("accounts/:holder/balance", h.Balance)
		router.GET("counters", h.Counters)
		router.GET("events/:id/activity", h.Activity)
	}
}

type BalanceResponse struct {
	Holder  model.Identity `json:"holder"`
	Balance model.Amount   `json:"balance"`
}

type CountersResponse struct {
	NextEventID int64 `json:"next_event_id"`
	NextTokenID int64 `json:"next_token_id"`
}

func (h *LedgerHandler) Balance(c *gin.Context) {
	holder := model.Identity(c.Param("holder"))
	balance, err := h.ledger.Accounts.BalanceOf(c, holder)
	if err != nil {
		respondError(c, err, "BalanceOf")
		return
	}
	respondSuccess(c, BalanceResponse{Holder: holder, Balance: balance}, http.StatusOK)
}

func (h *LedgerHandler) Counters(c *gin.Context) {
	nextEvent, err := h.ledger.Events.NextEventID(c)
	if err != nil {
		respondError(c, err, "Counters")
		return
	}
	nextToken, err := h.ledger.Tickets.NextTokenID(c)
	if err != nil {
		respondError(c, err, "Counters")
		return
	}
	respondSuccess(c, CountersResponse{NextEventID: nextEvent, NextTokenID: nextToken}, http.StatusOK)
}

// Activity 依發布順序回傳活動的通知紀錄 (由索引 worker 寫入)
func (h *LedgerHandler) Activity(c *gin.Context) {
	id, ok := paramID(c, "id", "Activity")
	if !ok {
		return
	}
	if _, err := h.ledger.Events.GetEvent(c, id); err != nil {
		respondError(c, err, "Activity")
		return
	}
	notes, err := h.ledger.Notifications.ListByEvent(c, id)
	if err != nil {
		respondError(c, err, "Activity")
		return
	}
	if notes == nil {
		notes = []*model.Notification{}
	}
	respondSuccess(c, notes, http.StatusOK)
}

// RegisterLedgerRoutes 掛上帳本全部 API
func RegisterLedgerRoutes(r *gin.Engine, ledger *service.Ledger, idempotency *Idempotency) {
	NewEventHandler(ledger.Events, idempotency).RegisterRoutes(r)
	NewTicketHandler(ledger.Tickets).RegisterRoutes(r)
	NewMarketplaceHandler(ledger.Marketplace, idempotency).RegisterRoutes(r)
	NewLoyaltyHandler(ledger.Loyalty).RegisterRoutes(r)
	NewLedgerHandler(ledger).RegisterRoutes(r)
}
