package api

import (
	"crypto/subtle"
	"net/http"

	"github.com/Domenick1991/skyplan/internal/service/payment"
	"github.com/gin-gonic/gin"
)

// gatewaySecretHeader carries the shared secret on gateway callbacks.
const gatewaySecretHeader = "X-Gateway-Secret"

type PaymentHandler struct {
	service       payment.PaymentUseCase
	gatewaySecret string
}

// NewPaymentHandler accepts confirmations from the booking owner, or from the
// gateway when the request carries gatewaySecret. An empty secret disables
// gateway callbacks.
func NewPaymentHandler(service payment.PaymentUseCase, gatewaySecret string) *PaymentHandler {
	return &PaymentHandler{service: service, gatewaySecret: gatewaySecret}
}

func (h *PaymentHandler) Register(router *gin.RouterGroup) {
	router.POST("", h.initiate)
	router.GET("/:id", RequireUser(), h.get)
	router.POST("/:id/confirm", h.confirm)
}

// RegisterBookingRoutes mounts GET /bookings/:code/payments.
func (h *PaymentHandler) RegisterBookingRoutes(router *gin.RouterGroup) {
	router.GET("/:code/payments", h.listByBooking)
}

func (h *PaymentHandler) initiate(c *gin.Context) {
	var input payment.InitiateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err.Error())
		return
	}
	input.RequesterID = currentUser(c)

	attempt, err := h.service.Initiate(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, "payment initiated", gin.H{
		"payment":     attempt.Payment,
		"payment_url": attempt.Redirect.URL,
		"reference":   attempt.Redirect.Reference,
		"attempts":    attempt.Attempts,
	})
}

// confirm receives the gateway's verdict.
func (h *PaymentHandler) confirm(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	input := payment.ConfirmInput{RequesterID: currentUser(c)}
	if c.GetHeader(gatewaySecretHeader) != "" {
		if !h.fromGateway(c) {
			unauthorized(c, "invalid gateway secret")
			return
		}
		input.FromGateway = true
	}
	if input.RequesterID == nil && !input.FromGateway {
		unauthorized(c, "authentication required")
		return
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err.Error())
		return
	}
	input.PaymentID = id

	res, err := h.service.Confirm(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}
	message := "payment recorded"
	if res.Duplicate {
		message = "payment already recorded"
	}
	respond(c, http.StatusOK, message, gin.H{
		"payment":   res.Payment,
		"booking":   res.Booking,
		"tickets":   res.Tickets,
		"duplicate": res.Duplicate,
	})
}

func (h *PaymentHandler) fromGateway(c *gin.Context) bool {
	got := c.GetHeader(gatewaySecretHeader)
	return h.gatewaySecret != "" && subtle.ConstantTimeCompare([]byte(got), []byte(h.gatewaySecret)) == 1
}

func (h *PaymentHandler) get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	p, err := h.service.Get(c.Request.Context(), id, currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "ok", gin.H{"payment": p})
}

func (h *PaymentHandler) listByBooking(c *gin.Context) {
	list, err := h.service.ListByBooking(c.Request.Context(), bookingCode(c), currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "ok", gin.H{"payments": list, "count": len(list)})
}
