package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/Domenick1991/skyplan/internal/domain"
	"github.com/Domenick1991/skyplan/internal/service/tickets"
	"github.com/gin-gonic/gin"
)

type TicketHandler struct {
	service tickets.TicketUseCase
}

func NewTicketHandler(service tickets.TicketUseCase) *TicketHandler {
	return &TicketHandler{service: service}
}

func (h *TicketHandler) Register(router *gin.RouterGroup) {
	router.GET("/:code", h.get)
	router.POST("/:code/check-in", h.transition("checked in", h.service.CheckIn))
	router.POST("/:code/validate", h.transition("ticket used", h.service.Validate))
	router.POST("/:code/cancel", h.transition("ticket cancelled", h.service.Cancel))
	router.POST("/:code/refund", h.transition("ticket refunded", h.service.Refund))
}

// RegisterBookingRoutes mounts issuance and listing under /bookings/:code.
func (h *TicketHandler) RegisterBookingRoutes(router *gin.RouterGroup) {
	router.POST("/:code/tickets", h.issue)
	router.GET("/:code/tickets", h.listByBooking)
}

func (h *TicketHandler) issue(c *gin.Context) {
	list, err := h.service.Issue(c.Request.Context(), bookingCode(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "tickets issued", gin.H{"tickets": list, "count": len(list)})
}

func (h *TicketHandler) listByBooking(c *gin.Context) {
	list, err := h.service.ListByBooking(c.Request.Context(), bookingCode(c), currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "ok", gin.H{"tickets": list, "count": len(list)})
}

func (h *TicketHandler) get(c *gin.Context) {
	t, err := h.service.Get(c.Request.Context(), ticketCode(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "ok", gin.H{"ticket": t})
}

func (h *TicketHandler) transition(message string, op func(context.Context, string) (*domain.Ticket, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		t, err := op(c.Request.Context(), ticketCode(c))
		if err != nil {
			respondError(c, err)
			return
		}
		respond(c, http.StatusOK, message, gin.H{"ticket": t})
	}
}

func ticketCode(c *gin.Context) string {
	return strings.ToUpper(strings.TrimSpace(c.Param("code")))
}
