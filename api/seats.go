package api

import (
	"net/http"

	"github.com/Domenick1991/skyplan/internal/service/seats"
	"github.com/gin-gonic/gin"
)

type SeatHandler struct {
	service seats.SeatUseCase
}

type reserveSeatsRequest struct {
	SeatIDs     []int64 `json:"seat_ids"`
	HoldMinutes int     `json:"hold_minutes"`
}

type releaseSeatsRequest struct {
	SeatIDs  []int64 `json:"seat_ids"`
	FlightID int64   `json:"flight_id"`
}

func NewSeatHandler(service seats.SeatUseCase) *SeatHandler {
	return &SeatHandler{service: service}
}

// Register expects a group that already requires an authenticated user.
func (h *SeatHandler) Register(router *gin.RouterGroup) {
	router.POST("/reserve", h.reserve)
	router.POST("/release", h.release)
}

func (h *SeatHandler) reserve(c *gin.Context) {
	var req reserveSeatsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	held, err := h.service.Reserve(c.Request.Context(), *currentUser(c), req.SeatIDs, req.HoldMinutes)
	if err != nil {
		respondError(c, err)
		return
	}
	var expiresAt any
	if len(held) > 0 {
		expiresAt = held[0].ReservedUntil
	}
	respond(c, http.StatusOK, "seats reserved", gin.H{"seats": held, "expires_at": expiresAt})
}

func (h *SeatHandler) release(c *gin.Context) {
	var req releaseSeatsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	released, err := h.service.Release(c.Request.Context(), *currentUser(c), req.SeatIDs, req.FlightID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "seats released", gin.H{"seats": released, "count": len(released)})
}
