package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Domenick1991/skyplan/internal/domain"
	"github.com/Domenick1991/skyplan/internal/service/flights"
	"github.com/Domenick1991/skyplan/internal/service/seats"
	"github.com/gin-gonic/gin"
)

type FlightHandler struct {
	service flights.FlightUseCase
	seats   seats.SeatUseCase
}

func NewFlightHandler(service flights.FlightUseCase, seatService seats.SeatUseCase) *FlightHandler {
	return &FlightHandler{service: service, seats: seatService}
}

func (h *FlightHandler) Register(router *gin.RouterGroup) {
	router.GET("", h.list)
	router.GET("/:id", h.get)
	router.GET("/:id/seats", h.seatMap)
}

// list handles GET /flights?from=HAN&to=SGN&date=2026-12-01.
func (h *FlightHandler) list(c *gin.Context) {
	filter := domain.FlightFilter{
		FromAirport: strings.TrimSpace(c.Query("from")),
		ToAirport:   strings.TrimSpace(c.Query("to")),
	}
	if raw := c.Query("date"); raw != "" {
		date, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			badRequest(c, "date must be YYYY-MM-DD")
			return
		}
		filter.Date = date
	}

	list, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "ok", gin.H{"flights": list, "count": len(list)})
}

func (h *FlightHandler) get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	flight, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "ok", gin.H{"flight": flight})
}

func (h *FlightHandler) seatMap(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	seatMap, err := h.seats.ListSeats(c.Request.Context(), id, currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "ok", gin.H{
		"flight": seatMap.Flight,
		"seats":  seatMap.Seats,
		"layout": seatMap.Layout,
	})
}

func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return id, true
}
