package api

import (
	"net/http"
	"strings"

	"github.com/Domenick1991/skyplan/internal/service/booking"
	"github.com/gin-gonic/gin"
)

type BookingHandler struct {
	service booking.BookingUseCase
}

type seatAssignment struct {
	BookingPassengerID int64 `json:"booking_passenger_id"`
	SeatID             int64 `json:"seat_id"`
}

type assignSeatsRequest struct {
	Assignments []seatAssignment `json:"assignments"`
}

func NewBookingHandler(service booking.BookingUseCase) *BookingHandler {
	return &BookingHandler{service: service}
}

func (h *BookingHandler) Register(router *gin.RouterGroup) {
	router.POST("", h.create)
	router.GET("/mine", RequireUser(), h.mine)
	router.GET("/:code", h.get)
	router.POST("/:code/cancel", h.cancel)
	router.POST("/:code/claim", RequireUser(), h.claim)
	router.PUT("/:code/seats", RequireUser(), h.assignSeats)
}

func (h *BookingHandler) create(c *gin.Context) {
	var input booking.CreateBookingInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err.Error())
		return
	}
	input.RequesterID = currentUser(c)

	created, err := h.service.Create(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, "booking created", gin.H{
		"booking":      created,
		"booking_code": created.Code,
	})
}

func (h *BookingHandler) get(c *gin.Context) {
	b, err := h.service.Get(c.Request.Context(), bookingCode(c), currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "ok", gin.H{"booking": b})
}

func (h *BookingHandler) mine(c *gin.Context) {
	list, err := h.service.ListMine(c.Request.Context(), *currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "ok", gin.H{"bookings": list, "count": len(list)})
}

func (h *BookingHandler) cancel(c *gin.Context) {
	b, err := h.service.Cancel(c.Request.Context(), bookingCode(c), currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "booking cancelled", gin.H{"booking": b})
}

func (h *BookingHandler) claim(c *gin.Context) {
	b, err := h.service.Claim(c.Request.Context(), bookingCode(c), *currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "booking claimed", gin.H{"booking": b})
}

func (h *BookingHandler) assignSeats(c *gin.Context) {
	var req assignSeatsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if len(req.Assignments) == 0 {
		badRequest(c, "assignments are required")
		return
	}
	assignments := make(map[int64]int64, len(req.Assignments))
	for _, a := range req.Assignments {
		if _, dup := assignments[a.BookingPassengerID]; dup {
			badRequest(c, "each booking passenger may appear once")
			return
		}
		assignments[a.BookingPassengerID] = a.SeatID
	}

	b, err := h.service.AssignSeats(c.Request.Context(), bookingCode(c), *currentUser(c), assignments)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "seats assigned", gin.H{"booking": b})
}

func bookingCode(c *gin.Context) string {
	return strings.ToUpper(strings.TrimSpace(c.Param("code")))
}
