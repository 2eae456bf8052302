package handler

import (
	"net/http"

	"go-gin-ticket-ledger/internal/model"
	"go-gin-ticket-ledger/internal/service"

	"github.com/gin-gonic/gin"
)

type LoyaltyHandler struct {
	service service.LoyaltyService
}

func NewLoyaltyHandler(service service.LoyaltyService) *LoyaltyHandler {
	return &LoyaltyHandler{service: service}
}

func (h *LoyaltyHandler) RegisterRoutes(r *gin.Engine) {
	router := r.Group("/api/v1")
	{
		router.POST("loyalty/attendance", h.RecordAttendance)
		router.PUT("loyalty/gold-requirement", h.SetGoldRequirement)
		router.GET("loyalty/organizers/:organizer/fans/:fan", h.Tier)
		router.GET("events/:id/loyalty/:fan", h.TierForEvent)
	}
}

type AttendanceRequest struct {
	Fan string `json:"fan" binding:"required"`
}

type GoldRequirementRequest struct {
	Requirement *int `json:"requirement" binding:"required"`
}

type GoldRequirementResponse struct {
	Organizer   model.Identity `json:"organizer"`
	Requirement int            `json:"requirement"`
}

// RecordAttendance 呼叫者即主辦方
func (h *LoyaltyHandler) RecordAttendance(c *gin.Context) {
	organizer, ok := caller(c, "RecordAttendance")
	if !ok {
		return
	}
	var req AttendanceRequest
	if err := BindJson(c, &req); err != nil {
		return
	}
	status, err := h.service.RecordAttendance(c, organizer, model.Identity(req.Fan))
	if err != nil {
		respondError(c, err, "RecordAttendance")
		return
	}
	respondSuccess(c, status, http.StatusOK)
}

func (h *LoyaltyHandler) SetGoldRequirement(c *gin.Context) {
	organizer, ok := caller(c, "SetGoldRequirement")
	if !ok {
		return
	}
	var req GoldRequirementRequest
	if err := BindJson(c, &req); err != nil {
		return
	}
	if err := h.service.SetGoldRequirement(c, organizer, *req.Requirement); err != nil {
		respondError(c, err, "SetGoldRequirement")
		return
	}
	respondSuccess(c, GoldRequirementResponse{Organizer: organizer, Requirement: *req.Requirement}, http.StatusOK)
}

func (h *LoyaltyHandler) Tier(c *gin.Context) {
	status, err := h.service.LoyaltyTier(c, model.Identity(c.Param("fan")), model.Identity(c.Param("organizer")))
	if err != nil {
		respondError(c, err, "LoyaltyTier")
		return
	}
	respondSuccess(c, status, http.StatusOK)
}

func (h *LoyaltyHandler) TierForEvent(c *gin.Context) {
	id, ok := paramID(c, "id", "TierForEvent")
	if !ok {
		return
	}
	status, err := h.service.TierForEvent(c, model.Identity(c.Param("fan")), id)
	if err != nil {
		respondError(c, err, "TierForEvent")
		return
	}
	respondSuccess(c, status, http.StatusOK)
}
