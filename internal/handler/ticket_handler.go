package handler

import (
	"net/http"

	"go-gin-ticket-ledger/internal/model"
	"go-gin-ticket-ledger/internal/service"

	"github.com/gin-gonic/gin"
)

type TicketHandler struct {
	service service.TicketService
}

func NewTicketHandler(service service.TicketService) *TicketHandler {
	return &TicketHandler{service: service}
}

func (h *TicketHandler) RegisterRoutes(r *gin.Engine) {
	router := r.Group("/api/v1")
	{
		router.GET("tickets", h.ListByOwner)
		router.GET("tickets/:id", h.GetByID)
		router.GET("tickets/:id/owner", h.Owner)
		router.POST("tickets/:id/transfer", h.Transfer)
		router.POST("tickets/:id/approve", h.Approve)
	}
}

type TicketsQuery struct {
	Owner string `form:"owner" binding:"required"`
}

type TicketResponse struct {
	*model.Ticket
	TokenURI string `json:"token_uri"`
}

type OwnerResponse struct {
	TicketID int64          `json:"ticket_id"`
	Owner    model.Identity `json:"owner"`
}

type TransferRequest struct {
	To string `json:"to" binding:"required"`
}

// ApproveRequest delegate 為空字串時撤銷授權
type ApproveRequest struct {
	Delegate string `json:"delegate"`
}

func (h *TicketHandler) ListByOwner(c *gin.Context) {
	var q TicketsQuery
	if err := BindQuery(c, &q); err != nil {
		return
	}
	tickets, err := h.service.TicketsOf(c, model.Identity(q.Owner))
	if err != nil {
		respondError(c, err, "TicketsOf")
		return
	}
	respondSuccess(c, tickets, http.StatusOK)
}

func (h *TicketHandler) GetByID(c *gin.Context) {
	id, ok := paramID(c, "id", "GetTicket")
	if !ok {
		return
	}
	ticket, err := h.service.GetTicket(c, id)
	if err != nil {
		respondError(c, err, "GetTicket")
		return
	}
	uri, err := h.service.TokenURI(c, id)
	if err != nil {
		respondError(c, err, "GetTicket")
		return
	}
	respondSuccess(c, TicketResponse{Ticket: ticket, TokenURI: uri}, http.StatusOK)
}

func (h *TicketHandler) Owner(c *gin.Context) {
	id, ok := paramID(c, "id", "OwnerOf")
	if !ok {
		return
	}
	owner, err := h.service.OwnerOf(c, id)
	if err != nil {
		respondError(c, err, "OwnerOf")
		return
	}
	respondSuccess(c, OwnerResponse{TicketID: id, Owner: owner}, http.StatusOK)
}

func (h *TicketHandler) Transfer(c *gin.Context) {
	id, ok := paramID(c, "id", "Transfer")
	if !ok {
		return
	}
	from, ok := caller(c, "Transfer")
	if !ok {
		return
	}
	var req TransferRequest
	if err := BindJson(c, &req); err != nil {
		return
	}
	if err := h.service.Transfer(c, id, from, model.Identity(req.To)); err != nil {
		respondError(c, err, "Transfer")
		return
	}
	respondSuccess(c, nil, http.StatusNoContent)
}

func (h *TicketHandler) Approve(c *gin.Context) {
	id, ok := paramID(c, "id", "Approve")
	if !ok {
		return
	}
	owner, ok := caller(c, "Approve")
	if !ok {
		return
	}
	var req ApproveRequest
	if err := BindJson(c, &req); err != nil {
		return
	}
	if err := h.service.Approve(c, id, owner, model.Identity(req.Delegate)); err != nil {
		respondError(c, err, "Approve")
		return
	}
	respondSuccess(c, nil, http.StatusNoContent)
}
