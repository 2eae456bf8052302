package handler

import (
	"net/http"
	"time"

	"go-gin-ticket-ledger/internal/model"
	"go-gin-ticket-ledger/internal/service"

	"github.com/gin-gonic/gin"
)

type EventHandler struct {
	service     service.EventService
	idempotency *Idempotency
}

// NewEventHandler idempotency 可為 nil，此時不做重送保護
func NewEventHandler(service service.EventService, idempotency *Idempotency) *EventHandler {
	return &EventHandler{service: service, idempotency: idempotency}
}

func (h *EventHandler) RegisterRoutes(r *gin.Engine) {
	router := r.Group("/api/v1")
	{
		router.GET("events", h.List)
		router.GET("events/:id", h.GetByID)
		router.POST("events", h.Create)
		router.PUT("events/:id/metadata", h.UpdateMetadata)
		router.PUT("events/:id/price", h.UpdatePrice)
		router.POST("events/:id/tickets", h.idempotency.Middleware(), h.BuyTicket)
		router.POST("events/:id/cancel", h.Cancel)
		router.GET("events/:id/total-received", h.TotalReceived)
		router.GET("events/:id/buyers", h.Buyers)
		router.GET("events/:id/payments/:buyer", h.Payment)
	}
}

// CreateEventRequest 建立活動請求，主辦方為呼叫者
type CreateEventRequest struct {
	MetadataURI     string    `json:"metadata_uri"`
	TicketPrice     int64     `json:"ticket_price"`
	MaxTickets      int       `json:"max_tickets"`
	EventDate       time.Time `json:"event_date" binding:"required"`
	GoldRequirement *int      `json:"gold_requirement"`
}

type UpdateMetadataRequest struct {
	MetadataURI string `json:"metadata_uri"`
}

type UpdatePriceRequest struct {
	TicketPrice int64 `json:"ticket_price"`
}

// AmountRequest 附帶付款金額的請求 (購票、取消活動的退款池)
type AmountRequest struct {
	Amount int64 `json:"amount"`
}

type TotalReceivedResponse struct {
	EventID       int64        `json:"event_id"`
	TotalReceived model.Amount `json:"total_received"`
}

type PaymentResponse struct {
	EventID int64          `json:"event_id"`
	Buyer   model.Identity `json:"buyer"`
	Amount  model.Amount   `json:"amount"`
}

func (h *EventHandler) List(c *gin.Context) {
	events, err := h.service.ListEvents(c)
	if err != nil {
		respondError(c, err, "ListEvents")
		return
	}
	respondSuccess(c, events, http.StatusOK)
}

func (h *EventHandler) GetByID(c *gin.Context) {
	id, ok := paramID(c, "id", "GetEvent")
	if !ok {
		return
	}
	event, err := h.service.GetEvent(c, id)
	if err != nil {
		respondError(c, err, "GetEvent")
		return
	}
	respondSuccess(c, event, http.StatusOK)
}

func (h *EventHandler) Create(c *gin.Context) {
	organizer, ok := caller(c, "CreateEvent")
	if !ok {
		return
	}
	var req CreateEventRequest
	if err := BindJson(c, &req); err != nil {
		return
	}
	created, err := h.service.CreateEvent(c, model.CreateEventParams{
		Organizer:       organizer,
		MetadataURI:     req.MetadataURI,
		TicketPrice:     model.Amount(req.TicketPrice),
		MaxTickets:      req.MaxTickets,
		EventDate:       req.EventDate,
		GoldRequirement: req.GoldRequirement,
	})
	if err != nil {
		respondError(c, err, "CreateEvent")
		return
	}
	respondSuccess(c, created, http.StatusCreated)
}

func (h *EventHandler) UpdateMetadata(c *gin.Context) {
	id, ok := paramID(c, "id", "UpdateEventMetadataURI")
	if !ok {
		return
	}
	who, ok := caller(c, "UpdateEventMetadataURI")
	if !ok {
		return
	}
	var req UpdateMetadataRequest
	if err := BindJson(c, &req); err != nil {
		return
	}
	updated, err := h.service.UpdateEventMetadataURI(c, id, who, req.MetadataURI)
	if err != nil {
		respondError(c, err, "UpdateEventMetadataURI")
		return
	}
	respondSuccess(c, updated, http.StatusOK)
}

func (h *EventHandler) UpdatePrice(c *gin.Context) {
	id, ok := paramID(c, "id", "UpdateTicketPrice")
	if !ok {
		return
	}
	who, ok := caller(c, "UpdateTicketPrice")
	if !ok {
		return
	}
	var req UpdatePriceRequest
	if err := BindJson(c, &req); err != nil {
		return
	}
	updated, err := h.service.UpdateTicketPrice(c, id, who, model.Amount(req.TicketPrice))
	if err != nil {
		respondError(c, err, "UpdateTicketPrice")
		return
	}
	respondSuccess(c, updated, http.StatusOK)
}

func (h *EventHandler) BuyTicket(c *gin.Context) {
	id, ok := paramID(c, "id", "BuyTicket")
	if !ok {
		return
	}
	buyer, ok := caller(c, "BuyTicket")
	if !ok {
		return
	}
	var req AmountRequest
	if err := BindJson(c, &req); err != nil {
		return
	}
	ticket, err := h.service.BuyTicket(c, id, buyer, model.Amount(req.Amount))
	if err != nil {
		respondError(c, err, "BuyTicket")
		return
	}
	respondSuccess(c, ticket, http.StatusCreated)
}

func (h *EventHandler) Cancel(c *gin.Context) {
	id, ok := paramID(c, "id", "CancelEvent")
	if !ok {
		return
	}
	who, ok := caller(c, "CancelEvent")
	if !ok {
		return
	}
	var req AmountRequest
	if err := BindJson(c, &req); err != nil {
		return
	}
	receipt, err := h.service.CancelEvent(c, id, who, model.Amount(req.Amount))
	if err != nil {
		respondError(c, err, "CancelEvent")
		return
	}
	respondSuccess(c, receipt, http.StatusOK)
}

func (h *EventHandler) TotalReceived(c *gin.Context) {
	id, ok := paramID(c, "id", "TotalReceived")
	if !ok {
		return
	}
	total, err := h.service.TotalReceived(c, id)
	if err != nil {
		respondError(c, err, "TotalReceived")
		return
	}
	respondSuccess(c, TotalReceivedResponse{EventID: id, TotalReceived: total}, http.StatusOK)
}

func (h *EventHandler) Buyers(c *gin.Context) {
	id, ok := paramID(c, "id", "EventBuyers")
	if !ok {
		return
	}
	buyers, err := h.service.EventBuyers(c, id)
	if err != nil {
		respondError(c, err, "EventBuyers")
		return
	}
	respondSuccess(c, buyers, http.StatusOK)
}

func (h *EventHandler) Payment(c *gin.Context) {
	id, ok := paramID(c, "id", "Payment")
	if !ok {
		return
	}
	buyer := model.Identity(c.Param("buyer"))
	amount, err := h.service.Payment(c, id, buyer)
	if err != nil {
		respondError(c, err, "Payment")
		return
	}
	respondSuccess(c, PaymentResponse{EventID: id, Buyer: buyer, Amount: amount}, http.StatusOK)
}
