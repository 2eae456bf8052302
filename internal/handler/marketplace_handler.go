package handler

import (
	"net/http"

	"go-gin-ticket-ledger/internal/model"
	"go-gin-ticket-ledger/internal/service"

	"github.com/gin-gonic/gin"
)

type MarketplaceHandler struct {
	service     service.MarketplaceService
	idempotency *Idempotency
}

func NewMarketplaceHandler(service service.MarketplaceService, idempotency *Idempotency) *MarketplaceHandler {
	return &MarketplaceHandler{service: service, idempotency: idempotency}
}

func (h *MarketplaceHandler) RegisterRoutes(r *gin.Engine) {
	router := r.Group("/api/v1")
	{
		router.POST("listings", h.List)
		router.GET("listings/:ticket_id", h.GetListing)
		router.POST("listings/:ticket_id/purchase", h.idempotency.Middleware(), h.Buy)
		router.DELETE("listings/:ticket_id", h.Cancel)
		router.GET("events/:id/listings", h.ListingsByEvent)
	}
}

type ListTicketRequest struct {
	TicketID *int64 `json:"ticket_id" binding:"required"`
	AskPrice int64  `json:"ask_price"`
}

type ListingsResponse struct {
	EventID   int64   `json:"event_id"`
	TicketIDs []int64 `json:"ticket_ids"`
}

func (h *MarketplaceHandler) List(c *gin.Context) {
	seller, ok := caller(c, "ListTicket")
	if !ok {
		return
	}
	var req ListTicketRequest
	if err := BindJson(c, &req); err != nil {
		return
	}
	listing, err := h.service.ListTicket(c, *req.TicketID, seller, model.Amount(req.AskPrice))
	if err != nil {
		respondError(c, err, "ListTicket")
		return
	}
	respondSuccess(c, listing, http.StatusCreated)
}

func (h *MarketplaceHandler) GetListing(c *gin.Context) {
	id, ok := paramID(c, "ticket_id", "GetListing")
	if !ok {
		return
	}
	listing, err := h.service.GetListing(c, id)
	if err != nil {
		respondError(c, err, "GetListing")
		return
	}
	respondSuccess(c, listing, http.StatusOK)
}

func (h *MarketplaceHandler) Buy(c *gin.Context) {
	id, ok := paramID(c, "ticket_id", "BuyListedTicket")
	if !ok {
		return
	}
	buyer, ok := caller(c, "BuyListedTicket")
	if !ok {
		return
	}
	var req AmountRequest
	if err := BindJson(c, &req); err != nil {
		return
	}
	resale, err := h.service.BuyTicket(c, id, buyer, model.Amount(req.Amount))
	if err != nil {
		respondError(c, err, "BuyListedTicket")
		return
	}
	respondSuccess(c, resale, http.StatusOK)
}

func (h *MarketplaceHandler) Cancel(c *gin.Context) {
	id, ok := paramID(c, "ticket_id", "CancelListing")
	if !ok {
		return
	}
	seller, ok := caller(c, "CancelListing")
	if !ok {
		return
	}
	if err := h.service.CancelListing(c, id, seller); err != nil {
		respondError(c, err, "CancelListing")
		return
	}
	respondSuccess(c, nil, http.StatusNoContent)
}

func (h *MarketplaceHandler) ListingsByEvent(c *gin.Context) {
	id, ok := paramID(c, "id", "GetListingsByEvent")
	if !ok {
		return
	}
	ids, err := h.service.GetListingsByEvent(c, id)
	if err != nil {
		respondError(c, err, "GetListingsByEvent")
		return
	}
	respondSuccess(c, ListingsResponse{EventID: id, TicketIDs: ids}, http.StatusOK)
}
